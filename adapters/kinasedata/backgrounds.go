package kinasedata

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"kinlib/adapters/excel"
	"kinlib/adapters/stats/scoring"
	"kinlib/domain/core"
	"kinlib/domain/kinase"
	"kinlib/domain/substrate"
)

// BuildBackgrounds scores reference substrates of type t against every
// kinase of t, producing one background population per kinase. Substrates
// of other types are ignored.
func BuildBackgrounds(ctx context.Context, lib *kinase.Library, subs []substrate.Substrate, t core.KinaseType,
	opts scoring.Options, workers int) (map[core.KinaseID][]float64, error) {
	matrices, err := lib.Resolve(nil, t)
	if err != nil {
		return nil, err
	}
	eligible := make([]substrate.Substrate, 0, len(subs))
	for _, s := range subs {
		if !s.IsZero() && s.Type() == t {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: no %s reference sites", core.ErrInvalidBackground, t)
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	cols := make([][]float64, len(matrices))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k, m := range matrices {
		k, m := k, m
		g.Go(func() error {
			col := make([]float64, len(eligible))
			for i, s := range eligible {
				if i%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				v, err := scoring.Score(s, m, opts)
				if err != nil {
					return err
				}
				col[i] = v
			}
			cols[k] = col
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[core.KinaseID][]float64, len(matrices))
	for k, m := range matrices {
		out[m.ID()] = cols[k]
	}
	return out, nil
}

// WriteBackgrounds writes populations in the wide format read by
// ParseBackgrounds, kinases in name order
func WriteBackgrounds(path string, populations map[core.KinaseID][]float64) error {
	ids := make([]core.KinaseID, 0, len(populations))
	rowsN := 0
	for id, v := range populations {
		ids = append(ids, id)
		rowsN = max(rowsN, len(v))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	headers := make([]string, len(ids))
	for i, id := range ids {
		headers[i] = string(id)
	}
	rows := make([][]string, rowsN)
	for r := range rows {
		rows[r] = make([]string, len(ids))
		for c, id := range ids {
			if v := populations[id]; r < len(v) {
				rows[r][c] = formatFloat(v[r])
			}
		}
	}

	w, err := excel.NewDataWriter(path)
	if err != nil {
		return err
	}
	return w.Write(headers, rows)
}
