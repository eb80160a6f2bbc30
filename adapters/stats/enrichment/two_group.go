package enrichment

import (
	"context"
	"math"

	"kinlib/domain/core"
	"kinlib/domain/enrichment"
	"kinlib/domain/substrate"
)

// TwoGroupOptions selects the test applied to each contingency table
type TwoGroupOptions struct {
	Alternative Alternative
	Method      TestMethod
}

// TwoGroup compares how often each kinase of type t matches foreground versus
// background substrates. Substrates of other types are ignored. Results are
// in kinase order with q-values across the section.
func (e *Engine) TwoGroup(ctx context.Context, t core.KinaseType, foreground, background []substrate.Substrate,
	kinases []core.KinaseID, criterion core.Criterion, opts TwoGroupOptions) (*enrichment.Section, error) {
	if err := criterion.Validate(); err != nil {
		return nil, err
	}
	ids, err := e.KinasesOfType(kinases, t)
	if err != nil {
		return nil, err
	}
	section := &enrichment.Section{Type: t}
	if len(ids) == 0 {
		return section, nil
	}

	fg, err := e.processor.Table(ctx, OfType(foreground, t), ids, criterion.Measure)
	if err != nil {
		return nil, err
	}
	bg, err := e.processor.Table(ctx, OfType(background, t), ids, criterion.Measure)
	if err != nil {
		return nil, err
	}
	section.Excluded = append(append(section.Excluded, fg.Excluded...), bg.Excluded...)

	fgHits := fg.Hits(criterion)
	bgHits := bg.Hits(criterion)
	for _, id := range ids {
		table := enrichment.Contingency{
			ForegroundHits:  count(fgHits[id]),
			ForegroundTotal: len(fg.Rows),
			BackgroundHits:  count(bgHits[id]),
			BackgroundTotal: len(bg.Rows),
		}
		section.Results = append(section.Results, contingencyResult(id, t, table, opts))
	}
	AssignQValues(section.Results)

	e.logger.Info("%s two-group: %d kinases, %d foreground / %d background sites (%s, %s)",
		t, len(ids), len(fg.Rows), len(bg.Rows), opts.Method, opts.Alternative)
	return section, nil
}

func contingencyResult(id core.KinaseID, t core.KinaseType, table enrichment.Contingency, opts TwoGroupOptions) enrichment.Result {
	r := enrichment.Result{
		Kinase: id,
		Type:   t,
		Table:  &table,
		QValue: math.NaN(),
	}
	if table.Hits() == 0 || table.Hits() == table.Total() {
		r.OddsRatio, r.PValue = 1, 1
	} else {
		r.OddsRatio = OddsRatio(table)
		if opts.Method == ChiSquare {
			r.PValue = ChiSquareTest(table, opts.Alternative)
		} else {
			r.PValue = FisherExact(table, opts.Alternative)
		}
	}
	r.ES = math.Log2(r.OddsRatio)
	r.NES = r.ES
	r.Direction = enrichment.DirectionOf(r.ES)
	r.Log2FrequencyFactor = math.Log2(FrequencyFactor(table))
	return r
}

func count(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
