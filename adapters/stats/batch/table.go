package batch

import (
	"iter"

	"kinlib/domain/core"
	"kinlib/domain/substrate"
)

// Row holds one substrate's values keyed by kinase
type Row struct {
	// Index is the position of the substrate in the input batch
	Index     int
	Substrate substrate.Substrate
	Values    map[core.KinaseID]float64
}

// Table is one measure computed over a batch
type Table struct {
	Measure  core.Measure
	Kinases  []core.KinaseID
	Rows     []Row
	Excluded []substrate.Exclusion
}

// Match is a single substrate-kinase pair passing a criterion
type Match struct {
	Substrate core.SubstrateID `json:"substrate"`
	Window    string           `json:"window"`
	Kinase    core.KinaseID    `json:"kinase"`
	Value     float64          `json:"value"`
}

// Matches yields every (substrate, kinase) pair whose value passes c, row by
// row in table order and kinase by kinase in column order. A criterion on a
// different measure than the table matches nothing. The sequence may be
// ranged over any number of times.
func (t *Table) Matches(c core.Criterion) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		if c.Measure != t.Measure {
			return
		}
		for _, row := range t.Rows {
			for _, k := range t.Kinases {
				v, ok := row.Values[k]
				if !ok || !c.Match(v) {
					continue
				}
				m := Match{Substrate: row.Substrate.ID, Window: row.Substrate.Window(), Kinase: k, Value: v}
				if !yield(m) {
					return
				}
			}
		}
	}
}

// Hits returns, per kinase, a flag for each row telling whether the row
// passes c. Kinases absent from a row never hit it.
func (t *Table) Hits(c core.Criterion) map[core.KinaseID][]bool {
	hits := make(map[core.KinaseID][]bool, len(t.Kinases))
	for _, k := range t.Kinases {
		hits[k] = make([]bool, len(t.Rows))
	}
	if c.Measure != t.Measure {
		return hits
	}
	for i, row := range t.Rows {
		for _, k := range t.Kinases {
			if v, ok := row.Values[k]; ok && c.Match(v) {
				hits[k][i] = true
			}
		}
	}
	return hits
}

// Column returns the values of one kinase in row order, skipping rows where
// the kinase was not scored.
func (t *Table) Column(k core.KinaseID) []float64 {
	out := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if v, ok := row.Values[k]; ok {
			out = append(out, v)
		}
	}
	return out
}
