package enrichment

import (
	"math"
	"sort"

	"kinlib/domain/core"
	"kinlib/domain/substrate"
)

// Entry is one ranked-list member
type Entry struct {
	Substrate substrate.Substrate
	Statistic float64
}

// RankedList is an ordered sequence of substrates with a continuous ranking
// statistic, best first.
type RankedList struct {
	entries []Entry
}

// NewRankedList orders entries by statistic descending (stable) unless
// preserveOrder is set. Empty lists and non-finite statistics are rejected.
func NewRankedList(entries []Entry, preserveOrder bool) (RankedList, error) {
	if len(entries) == 0 {
		return RankedList{}, core.ErrEmptyRankedList
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	for _, e := range out {
		if math.IsNaN(e.Statistic) || math.IsInf(e.Statistic, 0) {
			return RankedList{}, core.NewMalformedSubstrateError(e.Substrate.ID, "non-finite ranking statistic")
		}
	}
	if !preserveOrder {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Statistic > out[j].Statistic })
	}
	return RankedList{entries: out}, nil
}

// Len returns the number of entries
func (l RankedList) Len() int {
	return len(l.entries)
}

// Entries returns the entries in rank order
func (l RankedList) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Substrates returns the substrates in rank order
func (l RankedList) Substrates() []substrate.Substrate {
	out := make([]substrate.Substrate, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Substrate
	}
	return out
}

// Statistics returns the ranking statistics in rank order
func (l RankedList) Statistics() []float64 {
	out := make([]float64, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Statistic
	}
	return out
}

// ForType keeps the entries whose site kinases of type t can phosphorylate,
// preserving order.
func (l RankedList) ForType(t core.KinaseType) RankedList {
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Substrate.Type() == t {
			out = append(out, e)
		}
	}
	return RankedList{entries: out}
}

// DifferentialSite is a site with a fold change from a differential
// phosphorylation experiment. PValue is NaN when not measured.
type DifferentialSite struct {
	Substrate substrate.Substrate
	LogFC     float64
	PValue    float64
}
