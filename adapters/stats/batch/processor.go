// Package batch scores many substrates against many kinases in parallel and
// exposes the results as tables of one measure each.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"kinlib/adapters/stats/scoring"
	"kinlib/domain/core"
	"kinlib/domain/substrate"
)

// Processor fans scoring out across a bounded pool of goroutines
type Processor struct {
	engine  *scoring.Engine
	workers int
}

// NewProcessor creates a processor; workers < 1 uses one goroutine per CPU
func NewProcessor(engine *scoring.Engine, workers int) *Processor {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Processor{engine: engine, workers: workers}
}

// Engine returns the scoring engine
func (p *Processor) Engine() *scoring.Engine { return p.engine }

// Workers returns the pool size
func (p *Processor) Workers() int { return p.workers }

// Table computes one measure for every substrate and kinase. Rows follow the
// order of subs and columns the order of kinases (every library kinase when
// empty). Kinases whose type cannot phosphorylate a site are absent from that
// row. Substrates that cannot be scored are listed in Table.Excluded.
func (p *Processor) Table(ctx context.Context, subs []substrate.Substrate, kinases []core.KinaseID, measure core.Measure) (*Table, error) {
	if !measure.Valid() {
		return nil, fmt.Errorf("unknown measure %d", int(measure))
	}
	columns, err := p.columns(kinases)
	if err != nil {
		return nil, err
	}

	values := make([]map[core.KinaseID]float64, len(subs))
	reasons := make([]error, len(subs))
	err = p.each(ctx, len(subs), func(i int) error {
		if subs[i].IsZero() {
			reasons[i] = core.NewMalformedSubstrateError(subs[i].ID, "empty window")
			return nil
		}
		v, err := p.engine.Values(subs[i], measure, columns)
		if isSubstrateError(err) {
			reasons[i] = err
			return nil
		}
		if err != nil {
			return err
		}
		values[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	t := &Table{Measure: measure, Kinases: columns}
	for i, sub := range subs {
		if reasons[i] != nil {
			t.Excluded = append(t.Excluded, substrate.Exclusion{Substrate: sub.ID, Reason: reasons[i].Error()})
			continue
		}
		t.Rows = append(t.Rows, Row{Index: i, Substrate: sub, Values: values[i]})
	}
	return t, nil
}

// Prediction is the four measure tables of one batch
type Prediction struct {
	Score          *Table
	ScoreRank      *Table
	Percentile     *Table
	PercentileRank *Table
}

// Table returns the table of one measure
func (p *Prediction) Table(m core.Measure) *Table {
	switch m {
	case core.MeasureScore:
		return p.Score
	case core.MeasureScoreRank:
		return p.ScoreRank
	case core.MeasurePercentile:
		return p.Percentile
	case core.MeasurePercentileRank:
		return p.PercentileRank
	default:
		return nil
	}
}

// Predict computes all four measures in a single pass over subs
func (p *Processor) Predict(ctx context.Context, subs []substrate.Substrate, kinases []core.KinaseID) (*Prediction, error) {
	columns, err := p.columns(kinases)
	if err != nil {
		return nil, err
	}

	preds := make([]*scoring.Prediction, len(subs))
	reasons := make([]error, len(subs))
	err = p.each(ctx, len(subs), func(i int) error {
		if subs[i].IsZero() {
			reasons[i] = core.NewMalformedSubstrateError(subs[i].ID, "empty window")
			return nil
		}
		pred, err := p.engine.Predict(subs[i], columns)
		if isSubstrateError(err) {
			reasons[i] = err
			return nil
		}
		if err != nil {
			return err
		}
		preds[i] = pred
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &Prediction{}
	for _, m := range core.Measures {
		t := &Table{Measure: m, Kinases: columns}
		for i, sub := range subs {
			if reasons[i] != nil {
				t.Excluded = append(t.Excluded, substrate.Exclusion{Substrate: sub.ID, Reason: reasons[i].Error()})
				continue
			}
			t.Rows = append(t.Rows, Row{Index: i, Substrate: sub, Values: preds[i].Measure(m)})
		}
		switch m {
		case core.MeasureScore:
			out.Score = t
		case core.MeasureScoreRank:
			out.ScoreRank = t
		case core.MeasurePercentile:
			out.Percentile = t
		case core.MeasurePercentileRank:
			out.PercentileRank = t
		}
	}
	return out, nil
}

// columns resolves the requested kinases, failing on the first unknown id
func (p *Processor) columns(kinases []core.KinaseID) ([]core.KinaseID, error) {
	lib := p.engine.Library()
	if len(kinases) == 0 {
		var all []core.KinaseID
		for _, t := range lib.Types() {
			all = append(all, lib.Kinases(t)...)
		}
		return all, nil
	}

	seen := make(map[core.KinaseID]bool, len(kinases))
	out := make([]core.KinaseID, 0, len(kinases))
	for _, id := range kinases {
		if _, err := lib.Get(id); err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// each runs fn(i) for i in [0,n) on the worker pool. fn writes only to slot i.
func (p *Processor) each(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func isSubstrateError(err error) bool {
	return errors.Is(err, core.ErrMalformedSubstrate) || errors.Is(err, core.ErrTypeMismatch)
}
