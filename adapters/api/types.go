package api

import (
	"math"

	"kinlib/adapters/stats/batch"
	"kinlib/domain/core"
	"kinlib/domain/substrate"
)

// SiteInput is one phospho-site in a request. Peptide is either a full
// 15-residue window or a peptide marking the site with a trailing '*'.
type SiteInput struct {
	ID      string `json:"id,omitempty"`
	Peptide string `json:"peptide"`
}

// CriterionInput selects the measure and threshold that decide a match
type CriterionInput struct {
	Measure   string  `json:"measure"`
	Threshold float64 `json:"threshold"`
}

// TableRequest asks for one measure over a batch of sites
type TableRequest struct {
	Sites          []SiteInput `json:"sites"`
	Kinases        []string    `json:"kinases,omitempty"`
	PhosphoPriming bool        `json:"phospho_priming,omitempty"`
	// Method is "score" or "percentile" and only applies to /api/rank
	Method string `json:"method,omitempty"`
}

// ScanRequest asks for every kinase passing a criterion per site
type ScanRequest struct {
	TableRequest
	Criterion CriterionInput `json:"criterion"`
}

// TwoGroupRequest compares foreground against background sites
type TwoGroupRequest struct {
	Foreground     []SiteInput    `json:"foreground"`
	Background     []SiteInput    `json:"background"`
	Kinases        []string       `json:"kinases,omitempty"`
	Types          []string       `json:"types,omitempty"`
	PhosphoPriming bool           `json:"phospho_priming,omitempty"`
	Criterion      CriterionInput `json:"criterion"`
	Alternative    string         `json:"alternative,omitempty"`
	Method         string         `json:"method,omitempty"`
}

// RankedSiteInput is a ranked-list member with its ranking statistic
type RankedSiteInput struct {
	SiteInput
	Statistic float64 `json:"statistic"`
}

// MEARequest runs the ranked-list permutation test
type MEARequest struct {
	Sites          []RankedSiteInput `json:"sites"`
	PreserveOrder  bool              `json:"preserve_order,omitempty"`
	Kinases        []string          `json:"kinases,omitempty"`
	Types          []string          `json:"types,omitempty"`
	PhosphoPriming bool              `json:"phospho_priming,omitempty"`
	Criterion      CriterionInput    `json:"criterion"`
	Permutations   int               `json:"permutations,omitempty"`
	Seed           *int64            `json:"seed,omitempty"`
	Weight         *float64          `json:"weight,omitempty"`
	MinSize        int               `json:"min_size,omitempty"`
	MaxSize        int               `json:"max_size,omitempty"`
}

// DifferentialSiteInput is a site with its fold change and optional p-value
type DifferentialSiteInput struct {
	SiteInput
	LogFC  float64  `json:"log_fc"`
	PValue *float64 `json:"p_value,omitempty"`
}

// DifferentialRequest runs the differential phosphorylation analysis
type DifferentialRequest struct {
	Sites           []DifferentialSiteInput `json:"sites"`
	LogFCThreshold  float64                 `json:"logfc_threshold"`
	PValueThreshold float64                 `json:"pvalue_threshold,omitempty"`
	BackgroundAll   bool                    `json:"background_all,omitempty"`
	Kinases         []string                `json:"kinases,omitempty"`
	Types           []string                `json:"types,omitempty"`
	PhosphoPriming  bool                    `json:"phospho_priming,omitempty"`
	Criterion       CriterionInput          `json:"criterion"`
	Alternative     string                  `json:"alternative,omitempty"`
	Method          string                  `json:"method,omitempty"`
}

// RowResponse is one site of a measure table
type RowResponse struct {
	Index     int                `json:"index"`
	Substrate core.SubstrateID   `json:"substrate"`
	Window    string             `json:"window"`
	Values    map[string]float64 `json:"values"`
}

// TableResponse is a measure table with the sites that could not be scored
type TableResponse struct {
	Measure  string                `json:"measure"`
	Kinases  []core.KinaseID       `json:"kinases"`
	Rows     []RowResponse         `json:"rows"`
	Excluded []substrate.Exclusion `json:"excluded,omitempty"`
}

// ScanResponse lists the matches of a scan next to its table
type ScanResponse struct {
	Criterion string        `json:"criterion"`
	Table     TableResponse `json:"table"`
	Matches   []batch.Match `json:"matches"`
}

// PredictResponse holds all four measure tables
type PredictResponse struct {
	Score          TableResponse `json:"score"`
	ScoreRank      TableResponse `json:"score_rank"`
	Percentile     TableResponse `json:"percentile"`
	PercentileRank TableResponse `json:"percentile_rank"`
}

// BackgroundRankRequest places sites within one kinase's background
type BackgroundRankRequest struct {
	Sites          []SiteInput `json:"sites"`
	Kinase         string      `json:"kinase"`
	PhosphoPriming bool        `json:"phospho_priming,omitempty"`
}

// BackgroundRankRow is one site's score and its place in the background
type BackgroundRankRow struct {
	Index          int              `json:"index"`
	Substrate      core.SubstrateID `json:"substrate"`
	Window         string           `json:"window"`
	Score          float64          `json:"score"`
	Percentile     float64          `json:"percentile"`
	BackgroundRank int              `json:"background_rank"`
}

// BackgroundRankResponse answers a BackgroundRankRequest
type BackgroundRankResponse struct {
	Kinase         core.KinaseID         `json:"kinase"`
	BackgroundSize int                   `json:"background_size"`
	Rows           []BackgroundRankRow   `json:"rows"`
	Excluded       []substrate.Exclusion `json:"excluded,omitempty"`
}

// KinasesResponse lists the loaded kinases of one type
type KinasesResponse struct {
	Type    string          `json:"type"`
	Kinases []core.KinaseID `json:"kinases"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// tableResponse converts a table; origin maps batch positions back to the
// request's site positions
func tableResponse(t *batch.Table, sites parsedSites) TableResponse {
	resp := TableResponse{
		Measure:  t.Measure.String(),
		Kinases:  t.Kinases,
		Rows:     make([]RowResponse, 0, len(t.Rows)),
		Excluded: append(append([]substrate.Exclusion(nil), sites.excluded...), t.Excluded...),
	}
	for _, row := range t.Rows {
		values := make(map[string]float64, len(row.Values))
		for k, v := range row.Values {
			if !math.IsNaN(v) {
				values[k.String()] = v
			}
		}
		resp.Rows = append(resp.Rows, RowResponse{
			Index:     sites.origin[row.Index],
			Substrate: row.Substrate.ID,
			Window:    row.Substrate.Window(),
			Values:    values,
		})
	}
	return resp
}
