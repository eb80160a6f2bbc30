package kinase

import (
	"fmt"
	"math"
	"sort"

	"kinlib/domain/core"
)

// BackgroundIndex holds each kinase's precomputed background score
// population, sorted ascending. Immutable after construction.
type BackgroundIndex struct {
	populations map[core.KinaseID][]float64
}

// NewBackgroundIndex copies and sorts every population. Empty populations and
// non-finite scores are rejected.
func NewBackgroundIndex(populations map[core.KinaseID][]float64) (*BackgroundIndex, error) {
	idx := &BackgroundIndex{populations: make(map[core.KinaseID][]float64, len(populations))}
	for id, pop := range populations {
		if len(pop) == 0 {
			return nil, fmt.Errorf("%w: %s has no background scores", core.ErrInvalidBackground, id)
		}
		sorted := make([]float64, len(pop))
		copy(sorted, pop)
		for _, v := range sorted {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %s has a non-finite background score", core.ErrInvalidBackground, id)
			}
		}
		sort.Float64s(sorted)
		idx.populations[id] = sorted
	}
	return idx, nil
}

// Has reports whether a background exists for id
func (b *BackgroundIndex) Has(id core.KinaseID) bool {
	_, ok := b.populations[id]
	return ok
}

// Size returns the background population size for id (0 if absent)
func (b *BackgroundIndex) Size(id core.KinaseID) int {
	return len(b.populations[id])
}

// Kinases lists the kinases with a background, sorted
func (b *BackgroundIndex) Kinases() []core.KinaseID {
	ids := make([]core.KinaseID, 0, len(b.populations))
	for id := range b.populations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Percentile returns the percentage of the background with a score <= score.
// Monotone non-decreasing in score.
func (b *BackgroundIndex) Percentile(score float64, id core.KinaseID) (float64, error) {
	pop, err := b.population(score, id)
	if err != nil {
		return 0, err
	}
	return 100 * float64(atOrBelow(pop, score)) / float64(len(pop)), nil
}

// Position returns the 1-indexed position score would take in the background
// ordered best-first. Equal values take the lowest position, so a score tied
// with the top background value is position 1.
func (b *BackgroundIndex) Position(score float64, id core.KinaseID) (int, error) {
	pop, err := b.population(score, id)
	if err != nil {
		return 0, err
	}
	return len(pop) - atOrBelow(pop, score) + 1, nil
}

func (b *BackgroundIndex) population(score float64, id core.KinaseID) ([]float64, error) {
	pop, ok := b.populations[id]
	if !ok {
		return nil, fmt.Errorf("%w: no background for %s", core.ErrUnknownKinase, id)
	}
	if math.IsNaN(score) {
		return nil, fmt.Errorf("%w: NaN score for %s", core.ErrInvalidBackground, id)
	}
	return pop, nil
}

// atOrBelow counts sorted values <= score
func atOrBelow(sorted []float64, score float64) int {
	return sort.Search(len(sorted), func(i int) bool { return sorted[i] > score })
}
