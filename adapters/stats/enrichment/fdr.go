package enrichment

import (
	"math"
	"sort"

	"kinlib/domain/enrichment"
)

// BenjaminiHochberg returns step-up FDR q-values for pvalues. NaN inputs are
// left out of the family and come back as NaN.
func BenjaminiHochberg(pvalues []float64) []float64 {
	q := make([]float64, len(pvalues))
	idx := make([]int, 0, len(pvalues))
	for i, p := range pvalues {
		if math.IsNaN(p) {
			q[i] = math.NaN()
			continue
		}
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool { return pvalues[idx[a]] < pvalues[idx[b]] })

	m := float64(len(idx))
	running := 1.0
	for rank := len(idx); rank >= 1; rank-- {
		i := idx[rank-1]
		v := pvalues[i] * m / float64(rank)
		if v < running {
			running = v
		}
		q[i] = clamp01(running)
	}
	return q
}

// AssignQValues fills QValue on every computed row from its PValue
func AssignQValues(results []enrichment.Result) {
	p := make([]float64, len(results))
	for i, r := range results {
		p[i] = math.NaN()
		if r.OK() {
			p[i] = r.PValue
		}
	}
	for i, q := range BenjaminiHochberg(p) {
		if results[i].OK() {
			results[i].QValue = q
		}
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
