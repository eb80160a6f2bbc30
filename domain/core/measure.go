package core

import (
	"fmt"
	"strings"
)

// Measure selects which per-kinase value a table or predicate works on.
type Measure int

const (
	MeasureScore Measure = iota + 1
	MeasurePercentile
	MeasureScoreRank
	MeasurePercentileRank
)

// Measures lists every measure in report order
var Measures = []Measure{MeasureScore, MeasureScoreRank, MeasurePercentile, MeasurePercentileRank}

func (m Measure) String() string {
	switch m {
	case MeasureScore:
		return "score"
	case MeasurePercentile:
		return "percentile"
	case MeasureScoreRank:
		return "score_rank"
	case MeasurePercentileRank:
		return "percentile_rank"
	default:
		return fmt.Sprintf("measure(%d)", int(m))
	}
}

// Valid reports whether m is a known measure
func (m Measure) Valid() bool {
	return m >= MeasureScore && m <= MeasurePercentileRank
}

// IsRank reports whether smaller values are better (rank measures)
func (m Measure) IsRank() bool {
	return m == MeasureScoreRank || m == MeasurePercentileRank
}

// Base returns the value domain a rank measure ranks in
func (m Measure) Base() Measure {
	switch m {
	case MeasureScoreRank:
		return MeasureScore
	case MeasurePercentileRank:
		return MeasurePercentile
	default:
		return m
	}
}

// ParseMeasure accepts the measure names used in reports and on the command line
func ParseMeasure(s string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "score":
		return MeasureScore, nil
	case "percentile":
		return MeasurePercentile, nil
	case "score_rank", "score-rank":
		return MeasureScoreRank, nil
	case "percentile_rank", "percentile-rank":
		return MeasurePercentileRank, nil
	default:
		return 0, fmt.Errorf("unknown measure %q", s)
	}
}

// Criterion decides whether a kinase matches a substrate. Score and
// percentile match at or above Threshold; ranks match at or below it.
type Criterion struct {
	Measure   Measure
	Threshold float64
}

// Match applies the criterion to one value
func (c Criterion) Match(value float64) bool {
	if c.Measure.IsRank() {
		return value <= c.Threshold
	}
	return value >= c.Threshold
}

// Validate rejects unknown measures and non-positive rank thresholds
func (c Criterion) Validate() error {
	if !c.Measure.Valid() {
		return fmt.Errorf("%w: unknown measure %d", ErrInvalidCriterion, int(c.Measure))
	}
	if c.Measure.IsRank() && c.Threshold < 1 {
		return fmt.Errorf("%w: rank threshold %v matches nothing", ErrInvalidCriterion, c.Threshold)
	}
	return nil
}

func (c Criterion) String() string {
	if c.Measure.IsRank() {
		return fmt.Sprintf("%s <= %g", c.Measure, c.Threshold)
	}
	return fmt.Sprintf("%s >= %g", c.Measure, c.Threshold)
}
