package enrichment

import (
	"math"
	"sort"
)

// runningSum is the extreme deviation of one kinase's running sum
type runningSum struct {
	es float64
	// edge is the index into the sorted hit positions bounding the leading
	// edge: hits [0, edge] for a positive ES, [edge, n) for a negative one.
	edge int
}

// enrichmentScore walks the running sum over a list of n entries whose hit
// positions are given in ascending order. weight returns |r|^w of an entry.
// Only hit positions are visited: the maximum sits just after a hit and the
// minimum just before one, so the walk costs O(len(hits)).
func enrichmentScore(hits []int, n int, weight func(pos int) float64) (runningSum, bool) {
	nh := len(hits)
	if nh == 0 || nh >= n {
		return runningSum{}, false
	}
	norm := 0.0
	for _, pos := range hits {
		norm += weight(pos)
	}
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return runningSum{}, false
	}
	missStep := 1 / float64(n-nh)

	maxDev, minDev := 0.0, 0.0
	maxAt, minAt := 0, 0
	cum := 0.0
	for m, pos := range hits {
		misses := float64(pos - m)
		before := cum - misses*missStep
		if before < minDev {
			minDev, minAt = before, m
		}
		cum += weight(pos) / norm
		after := cum - misses*missStep
		if after > maxDev {
			maxDev, maxAt = after, m
		}
	}

	if math.Abs(minDev) > math.Abs(maxDev) {
		return runningSum{es: minDev, edge: minAt}, true
	}
	return runningSum{es: maxDev, edge: maxAt}, true
}

// permutedHits maps hit positions through perm into dst and sorts them
func permutedHits(dst, hits, perm []int) []int {
	dst = dst[:0]
	for _, pos := range hits {
		dst = append(dst, perm[pos])
	}
	sort.Ints(dst)
	return dst
}
