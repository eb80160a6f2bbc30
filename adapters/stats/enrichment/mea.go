package enrichment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"kinlib/domain/core"
	"kinlib/domain/enrichment"
)

// DefaultPermutations is the null sample size used when none is configured
const DefaultPermutations = 1000

// MEAOptions configures the ranked-list permutation test
type MEAOptions struct {
	// Permutations must be positive
	Permutations int
	// Workers bounds concurrent permutations; < 1 uses the batch pool size
	Workers int
	// Seed makes the null reproducible. Nil draws one from the clock.
	Seed *int64
	// Weight is the exponent applied to |statistic| at hit positions
	Weight float64
	// MinSize and MaxSize bound the hit count of a testable kinase; MaxSize
	// 0 means unbounded.
	MinSize int
	MaxSize int
}

// DefaultMEAOptions returns 1000 permutations, weight 1 and no size bounds
func DefaultMEAOptions() MEAOptions {
	return MEAOptions{Permutations: DefaultPermutations, Weight: 1, MinSize: 1}
}

// ResolveSeed returns *seed, or a clock-derived seed when seed is nil
func ResolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return time.Now().UnixNano()
}

type meaKinase struct {
	id     core.KinaseID
	hits   []int
	result enrichment.Result
	sum    runningSum
}

// MEA runs the ranked-list enrichment test for the kinases of type t. Every
// kinase shares permutation i, drawn from the RNG stream keyed by (seed, i),
// and null scores land in slots addressed by i so the pooled null does not
// depend on the worker count. The seed actually used is returned.
func (e *Engine) MEA(ctx context.Context, t core.KinaseType, list enrichment.RankedList,
	kinases []core.KinaseID, criterion core.Criterion, opts MEAOptions) (*enrichment.Section, int64, error) {
	if opts.Permutations <= 0 {
		return nil, 0, fmt.Errorf("%w: got %d", core.ErrInsufficientPermutations, opts.Permutations)
	}
	if err := criterion.Validate(); err != nil {
		return nil, 0, err
	}
	if opts.Weight < 0 || math.IsNaN(opts.Weight) {
		return nil, 0, fmt.Errorf("running-sum weight must be >= 0, got %v", opts.Weight)
	}
	seed := ResolveSeed(opts.Seed)
	if opts.Seed == nil {
		e.logger.Info("no seed supplied, using %d", seed)
	}

	ids, err := e.KinasesOfType(kinases, t)
	if err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return &enrichment.Section{Type: t}, seed, nil
	}
	typed := list.ForType(t)
	if typed.Len() == 0 {
		return nil, 0, fmt.Errorf("%w: no %s sites", core.ErrEmptyRankedList, t)
	}

	table, err := e.processor.Table(ctx, typed.Substrates(), ids, criterion.Measure)
	if err != nil {
		return nil, 0, err
	}
	section := &enrichment.Section{Type: t, Excluded: table.Excluded}
	if len(table.Rows) == 0 {
		return nil, 0, fmt.Errorf("%w: every %s site was excluded", core.ErrEmptyRankedList, t)
	}

	entries := typed.Entries()
	n := len(table.Rows)
	weights := make([]float64, n)
	substrates := make([]core.SubstrateID, n)
	allZero := true
	for i, row := range table.Rows {
		r := entries[row.Index].Statistic
		if r != 0 {
			allZero = false
		}
		weights[i] = math.Pow(math.Abs(r), opts.Weight)
		substrates[i] = row.Substrate.ID
	}
	if allZero {
		return nil, 0, fmt.Errorf("%w: every %s ranking statistic is zero", core.ErrDegenerateStatistic, t)
	}
	weightAt := func(pos int) float64 { return weights[pos] }

	hitFlags := table.Hits(criterion)
	all := make([]*meaKinase, 0, len(ids))
	var testable []*meaKinase
	for _, id := range ids {
		k := &meaKinase{id: id}
		all = append(all, k)
		for pos, hit := range hitFlags[id] {
			if hit {
				k.hits = append(k.hits, pos)
			}
		}
		if err := checkSize(len(k.hits), n, opts); err != nil {
			k.result = enrichment.NAResult(id, t, err)
			continue
		}
		sum, ok := enrichmentScore(k.hits, n, weightAt)
		if !ok {
			k.result = enrichment.NAResult(id, t,
				fmt.Errorf("%w: hit statistics of %s sum to zero", core.ErrDegenerateStatistic, id))
			continue
		}
		k.sum = sum
		k.result = enrichment.Result{Kinase: id, Type: t, ES: sum.es, HitCount: len(k.hits)}
		testable = append(testable, k)
	}

	nulls, err := e.nullDistribution(ctx, testable, n, weightAt, seed, opts)
	if err != nil {
		return nil, 0, err
	}
	for ki, k := range testable {
		k.result = finishMEA(k, nulls[ki], substrates, opts.Permutations)
	}

	na := 0
	for _, k := range all {
		section.Results = append(section.Results, k.result)
		if !k.result.OK() {
			na++
			e.logger.Debug("%s %s: %v", t, k.id, k.result.Err)
		}
	}
	AssignQValues(section.Results)

	e.logger.Info("%s MEA: %d sites, %d kinases (%d NA), %d permutations, seed %d",
		t, n, len(ids), na, opts.Permutations, seed)
	return section, seed, nil
}

func checkSize(hits, n int, opts MEAOptions) error {
	minSize := max(opts.MinSize, 1)
	switch {
	case hits < minSize:
		return fmt.Errorf("%w: %d hits, need at least %d", core.ErrInsufficientHits, hits, minSize)
	case opts.MaxSize > 0 && hits > opts.MaxSize:
		return fmt.Errorf("%w: %d hits exceeds maximum %d", core.ErrInsufficientHits, hits, opts.MaxSize)
	case hits >= n:
		return fmt.Errorf("%w: every site is a hit", core.ErrInsufficientHits)
	}
	return nil
}

// nullDistribution returns null[k][i], the ES of testable kinase k under
// permutation i. Permutations whose hit statistics sum to zero hold NaN.
func (e *Engine) nullDistribution(ctx context.Context, testable []*meaKinase, n int,
	weight func(int) float64, seed int64, opts MEAOptions) ([][]float64, error) {
	nulls := make([][]float64, len(testable))
	for k := range nulls {
		nulls[k] = make([]float64, opts.Permutations)
	}
	if len(testable) == 0 {
		return nulls, nil
	}

	workers := opts.Workers
	if workers < 1 {
		workers = e.processor.Workers()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < opts.Permutations; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := e.rng.Stream(gctx, "mea", seed, i)
			if err != nil {
				return err
			}
			perm := r.Perm(n)
			var buf []int
			for ki, k := range testable {
				buf = permutedHits(buf, k.hits, perm)
				sum, ok := enrichmentScore(buf, n, weight)
				if !ok {
					nulls[ki][i] = math.NaN()
					continue
				}
				nulls[ki][i] = sum.es
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nulls, nil
}

// finishMEA normalizes the observed ES by the same-sign null pool and
// derives the permutation p-value. Pools are built in permutation order.
func finishMEA(k *meaKinase, null []float64, substrates []core.SubstrateID, permutations int) enrichment.Result {
	res := k.result
	es := res.ES
	positive := es >= 0

	var pool []float64
	extreme := 0
	for _, v := range null {
		if math.IsNaN(v) || (v >= 0) != positive {
			continue
		}
		pool = append(pool, math.Abs(v))
		if (positive && v >= es) || (!positive && v <= es) {
			extreme++
		}
	}
	if len(pool) == 0 {
		return enrichment.NAResult(k.id, res.Type,
			fmt.Errorf("%w: no %s null scores for %s", core.ErrEmptyNullPool, enrichment.DirectionOf(es), k.id))
	}
	mean, err := stats.Mean(pool)
	if err != nil || mean == 0 {
		return enrichment.NAResult(k.id, res.Type,
			fmt.Errorf("%w: %s null scores of %s are all zero", core.ErrDegenerateStatistic, enrichment.DirectionOf(es), k.id))
	}

	res.NES = es / mean
	res.PValue = math.Min(1, math.Max(float64(extreme)/float64(len(pool)), 1/float64(permutations+1)))
	res.QValue = math.NaN()
	res.Direction = enrichment.DirectionOf(es)

	if positive {
		for _, pos := range k.hits[:k.sum.edge+1] {
			res.LeadingEdge = append(res.LeadingEdge, substrates[pos])
		}
	} else {
		for _, pos := range k.hits[k.sum.edge:] {
			res.LeadingEdge = append(res.LeadingEdge, substrates[pos])
		}
	}
	return res
}
