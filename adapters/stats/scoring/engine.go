package scoring

import (
	"fmt"
	"sort"
	"strings"

	"kinlib/domain/core"
	"kinlib/domain/kinase"
	"kinlib/domain/substrate"
)

// Engine binds the shared matrix library and background index. It holds no
// mutable state; any number of goroutines may use one Engine.
type Engine struct {
	library    *kinase.Library
	background *kinase.BackgroundIndex
	opts       Options
}

// NewEngine fails when either lookup table is missing or a library kinase has
// no background population.
func NewEngine(library *kinase.Library, background *kinase.BackgroundIndex, opts Options) (*Engine, error) {
	if library == nil {
		return nil, core.ErrMissingLibrary
	}
	if background == nil {
		return nil, core.ErrMissingBackground
	}

	var missing []string
	for _, t := range library.Types() {
		for _, id := range library.Kinases(t) {
			if !background.Has(id) {
				missing = append(missing, string(id))
			}
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w for %s", core.ErrMissingBackground, strings.Join(missing, ", "))
	}

	return &Engine{library: library, background: background, opts: opts}, nil
}

// Library returns the matrix library
func (e *Engine) Library() *kinase.Library { return e.library }

// Background returns the background index
func (e *Engine) Background() *kinase.BackgroundIndex { return e.background }

// Options returns the scoring options
func (e *Engine) Options() Options { return e.opts }

// Score scores sub against one kinase
func (e *Engine) Score(sub substrate.Substrate, id core.KinaseID) (float64, error) {
	m, err := e.library.Get(id)
	if err != nil {
		return 0, err
	}
	return Score(sub, m, e.opts)
}

// PercentileOf places a raw score within the kinase's background
func (e *Engine) PercentileOf(score float64, id core.KinaseID) (float64, error) {
	p, err := e.background.Percentile(score, id)
	if err != nil {
		return 0, err
	}
	return round(p, e.opts.PercentileDecimals), nil
}

// Percentile scores sub against one kinase and returns its background percentile
func (e *Engine) Percentile(sub substrate.Substrate, id core.KinaseID) (float64, error) {
	s, err := e.Score(sub, id)
	if err != nil {
		return 0, err
	}
	return e.PercentileOf(s, id)
}

// BackgroundRankOf returns the 1-indexed position a raw score takes in the
// kinase's background, best first. Ties with background scores take the
// lowest position.
func (e *Engine) BackgroundRankOf(score float64, id core.KinaseID) (int, error) {
	return e.background.Position(score, id)
}

// Rank returns the 1-indexed position of kinase id among every kinase of its
// type, ordered best-first by method (score or percentile) for sub. Tied
// kinases share the lowest position.
func (e *Engine) Rank(sub substrate.Substrate, id core.KinaseID, method core.Measure) (int, error) {
	m, err := e.library.Get(id)
	if err != nil {
		return 0, err
	}
	if err := sub.CheckType(id, m.Type()); err != nil {
		return 0, err
	}
	rankMeasure := core.MeasureScoreRank
	if method.Base() == core.MeasurePercentile {
		rankMeasure = core.MeasurePercentileRank
	}
	values, err := e.Values(sub, rankMeasure, []core.KinaseID{id})
	if err != nil {
		return 0, err
	}
	return int(values[id]), nil
}

// Values computes one measure of sub for every kinase in ids whose type can
// phosphorylate the site; other kinases are left out. Empty ids selects every
// kinase of the site's type. Rank measures rank against the full type.
func (e *Engine) Values(sub substrate.Substrate, measure core.Measure, ids []core.KinaseID) (map[core.KinaseID]float64, error) {
	if !measure.Valid() {
		return nil, fmt.Errorf("unknown measure %d", int(measure))
	}
	kind := sub.Type()
	wanted := make([]core.KinaseID, 0, len(ids))
	if len(ids) == 0 {
		wanted = e.library.Kinases(kind)
	}
	for _, id := range ids {
		m, err := e.library.Get(id)
		if err != nil {
			return nil, err
		}
		if m.Type() == kind {
			wanted = append(wanted, id)
		}
	}

	if !measure.IsRank() {
		return e.baseValues(sub, measure, wanted)
	}

	all, err := e.baseValues(sub, measure.Base(), e.library.Kinases(kind))
	if err != nil {
		return nil, err
	}
	sorted := make([]float64, 0, len(all))
	for _, v := range all {
		sorted = append(sorted, v)
	}
	sort.Float64s(sorted)

	out := make(map[core.KinaseID]float64, len(wanted))
	for _, id := range wanted {
		out[id] = float64(rankOf(sorted, all[id]))
	}
	return out, nil
}

// Prediction holds every measure of one substrate
type Prediction struct {
	Substrate      substrate.Substrate
	Score          map[core.KinaseID]float64
	ScoreRank      map[core.KinaseID]float64
	Percentile     map[core.KinaseID]float64
	PercentileRank map[core.KinaseID]float64
}

// Predict computes score, score rank, percentile and percentile rank of sub
// for the kinases in ids (every kinase of the site's type when empty).
func (e *Engine) Predict(sub substrate.Substrate, ids []core.KinaseID) (*Prediction, error) {
	p := &Prediction{Substrate: sub}
	var err error
	if p.Score, err = e.Values(sub, core.MeasureScore, ids); err != nil {
		return nil, err
	}
	if p.ScoreRank, err = e.Values(sub, core.MeasureScoreRank, ids); err != nil {
		return nil, err
	}
	if p.Percentile, err = e.Values(sub, core.MeasurePercentile, ids); err != nil {
		return nil, err
	}
	if p.PercentileRank, err = e.Values(sub, core.MeasurePercentileRank, ids); err != nil {
		return nil, err
	}
	return p, nil
}

// Measure returns the values of one measure from a prediction
func (p *Prediction) Measure(m core.Measure) map[core.KinaseID]float64 {
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

func (e *Engine) baseValues(sub substrate.Substrate, measure core.Measure, ids []core.KinaseID) (map[core.KinaseID]float64, error) {
	out := make(map[core.KinaseID]float64, len(ids))
	for _, id := range ids {
		m, err := e.library.Get(id)
		if err != nil {
			return nil, err
		}
		s, err := Score(sub, m, e.opts)
		if err != nil {
			return nil, err
		}
		if measure == core.MeasurePercentile {
			if s, err = e.PercentileOf(s, id); err != nil {
				return nil, err
			}
		}
		out[id] = s
	}
	return out, nil
}

// rankOf returns 1 + the number of values strictly greater than v
func rankOf(ascending []float64, v float64) int {
	atOrBelow := sort.Search(len(ascending), func(i int) bool { return ascending[i] > v })
	return len(ascending) - atOrBelow + 1
}
