package kinasedata

import (
	"context"
	"fmt"
	"math"

	"kinlib/adapters/excel"
	"kinlib/domain/core"
	"kinlib/domain/enrichment"
	"kinlib/domain/substrate"
	"kinlib/ports"
)

// Default header candidates, matched case-insensitively in this order
var (
	SequenceColumns  = []string{"sequence", "peptide", "site", "substrate", "window"}
	IDColumns        = []string{"id", "site_id", "name", "protein"}
	StatisticColumns = []string{"statistic", "rank", "score", "t", "stat"}
	LogFCColumns     = []string{"logfc", "log2fc", "log2foldchange", "lfc", "fold_change"}
	PValueColumns    = []string{"pvalue", "p_value", "p.value", "padj", "adj.p.val", "fdr"}
)

// SiteColumns names the columns of a site table. Empty fields fall back to
// the default candidates.
type SiteColumns struct {
	Sequence  string
	ID        string
	Statistic string
	LogFC     string
	PValue    string
}

// SiteOptions controls how site tables are read
type SiteOptions struct {
	Columns   SiteColumns
	Substrate substrate.Options
}

type siteRow struct {
	index int
	sub   substrate.Substrate
}

// ReadSubstrates parses the sequence column into substrates. Rows that do not
// parse are returned as exclusions.
func ReadSubstrates(data *excel.ExcelData, opts SiteOptions) ([]substrate.Substrate, []substrate.Exclusion, error) {
	rows, excluded, err := readSites(data, opts)
	if err != nil {
		return nil, nil, err
	}
	subs := make([]substrate.Substrate, len(rows))
	for i, r := range rows {
		subs[i] = r.sub
	}
	return subs, excluded, nil
}

// ReadRankedList pairs each site with its ranking statistic. Sites without a
// finite statistic are excluded.
func ReadRankedList(data *excel.ExcelData, opts SiteOptions, preserveOrder bool) (enrichment.RankedList, []substrate.Exclusion, error) {
	col, err := resolveColumn(data, opts.Columns.Statistic, StatisticColumns, true)
	if err != nil {
		return enrichment.RankedList{}, nil, err
	}
	rows, excluded, err := readSites(data, opts)
	if err != nil {
		return enrichment.RankedList{}, nil, err
	}

	entries := make([]enrichment.Entry, 0, len(rows))
	for _, r := range rows {
		v, ok, err := data.Float(r.index, col)
		if err != nil || !ok || math.IsInf(v, 0) {
			excluded = append(excluded, substrate.Exclusion{Substrate: r.sub.ID, Reason: "missing ranking statistic"})
			continue
		}
		entries = append(entries, enrichment.Entry{Substrate: r.sub, Statistic: v})
	}
	list, err := enrichment.NewRankedList(entries, preserveOrder)
	if err != nil {
		return enrichment.RankedList{}, excluded, err
	}
	return list, excluded, nil
}

// ReadDifferential reads fold changes and, when present, p-values. Sites
// without a fold change are excluded; a missing p-value is NaN.
func ReadDifferential(data *excel.ExcelData, opts SiteOptions) ([]enrichment.DifferentialSite, []substrate.Exclusion, error) {
	fcCol, err := resolveColumn(data, opts.Columns.LogFC, LogFCColumns, true)
	if err != nil {
		return nil, nil, err
	}
	pCol, err := resolveColumn(data, opts.Columns.PValue, PValueColumns, false)
	if err != nil {
		return nil, nil, err
	}
	rows, excluded, err := readSites(data, opts)
	if err != nil {
		return nil, nil, err
	}

	sites := make([]enrichment.DifferentialSite, 0, len(rows))
	for _, r := range rows {
		fc, ok, err := data.Float(r.index, fcCol)
		if err != nil || !ok || math.IsInf(fc, 0) {
			excluded = append(excluded, substrate.Exclusion{Substrate: r.sub.ID, Reason: "missing log fold change"})
			continue
		}
		p := math.NaN()
		if pCol != "" {
			if v, ok, err := data.Float(r.index, pCol); err == nil && ok {
				p = v
			}
		}
		sites = append(sites, enrichment.DifferentialSite{Substrate: r.sub, LogFC: fc, PValue: p})
	}
	return sites, excluded, nil
}

// SampleSubstrates returns n substrates drawn without replacement from the
// RNG stream of seed, keeping their input order. n >= len(subs) returns subs.
func SampleSubstrates(ctx context.Context, rng ports.RNGPort, subs []substrate.Substrate, n int, seed int64) ([]substrate.Substrate, error) {
	if n <= 0 || n >= len(subs) {
		return subs, nil
	}
	r, err := rng.SeededStream(ctx, "sample-sites", seed)
	if err != nil {
		return nil, err
	}
	keep := make([]bool, len(subs))
	for _, i := range r.Perm(len(subs))[:n] {
		keep[i] = true
	}
	out := make([]substrate.Substrate, 0, n)
	for i, s := range subs {
		if keep[i] {
			out = append(out, s)
		}
	}
	return out, nil
}

func readSites(data *excel.ExcelData, opts SiteOptions) ([]siteRow, []substrate.Exclusion, error) {
	seqCol, err := resolveColumn(data, opts.Columns.Sequence, SequenceColumns, true)
	if err != nil {
		return nil, nil, err
	}
	idCol, err := resolveColumn(data, opts.Columns.ID, IDColumns, false)
	if err != nil {
		return nil, nil, err
	}

	var rows []siteRow
	var excluded []substrate.Exclusion
	for i, row := range data.Rows {
		var id core.SubstrateID
		if idCol != "" {
			id = core.SubstrateID(row[idCol])
		}
		sub, err := substrate.Parse(id, row[seqCol], opts.Substrate)
		if err != nil {
			if id == "" {
				id = core.SubstrateID(row[seqCol])
			}
			excluded = append(excluded, substrate.Exclusion{Substrate: id, Reason: err.Error()})
			continue
		}
		rows = append(rows, siteRow{index: i, sub: sub})
	}
	return rows, excluded, nil
}

// resolveColumn returns explicit when set (it must exist), otherwise the
// first matching candidate. Missing required columns are an error.
func resolveColumn(data *excel.ExcelData, explicit string, candidates []string, required bool) (string, error) {
	if explicit != "" {
		if !data.HasColumn(explicit) {
			return "", fmt.Errorf("column %q not found (have %v)", explicit, data.Headers)
		}
		return explicit, nil
	}
	if col := data.FindColumn(candidates...); col != "" {
		return col, nil
	}
	if required {
		return "", fmt.Errorf("none of the columns %v found (have %v)", candidates, data.Headers)
	}
	return "", nil
}
