package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinlib/adapters/stats/scoring"
	"kinlib/domain/core"
	"kinlib/internal/container"
	"kinlib/internal/errors"
	"kinlib/internal/testkit"
)

func newTestServer(t *testing.T) (*Server, *container.Container, *testkit.TestKit) {
	t.Helper()
	kit := testkit.MustNewTestKit()
	c, err := container.NewFromTables(kit.Library, kit.Background, scoring.DefaultOptions(), 2)
	require.NoError(t, err)
	return NewServer(c.Scoring, c.ScanService, c.EnrichmentService), c, kit
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func sitesOf(windows ...string) []SiteInput {
	out := make([]SiteInput, len(windows))
	for i, w := range windows {
		out[i] = SiteInput{Peptide: w}
	}
	return out
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, len(testkit.SerThrKinases)+len(testkit.TyrosineKinases), body["kinases"])
}

func TestKinases(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/kinases/tyrosine", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[KinasesResponse](t, rec)
	assert.Equal(t, "tyrosine", resp.Type)
	assert.Equal(t, testkit.TyrosineKinases, resp.Kinases)

	rec = do(t, s, http.MethodGet, "/api/kinases/histidine", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreKeepsRequestPositions(t *testing.T) {
	s, c, kit := newTestServer(t)
	sub := kit.MotifSubstrates(1, "AKT1", 5)[0]

	rec := do(t, s, http.MethodPost, "/api/score", TableRequest{
		Sites:   []SiteInput{{ID: "bad", Peptide: "PLX*"}, {ID: "good", Peptide: sub.Window()}},
		Kinases: []string{"akt1", "egfr"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[TableResponse](t, rec)
	assert.Equal(t, "score", resp.Measure)
	assert.Equal(t, []core.KinaseID{"AKT1", "EGFR"}, resp.Kinases)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, 1, resp.Rows[0].Index)
	assert.Equal(t, core.SubstrateID("good"), resp.Rows[0].Substrate)

	want, err := c.Scoring.Score(sub, "AKT1")
	require.NoError(t, err)
	assert.InDelta(t, want, resp.Rows[0].Values["AKT1"], 1e-9)
	assert.NotContains(t, resp.Rows[0].Values, "EGFR", "tyrosine kinase never scores a serine site")

	require.Len(t, resp.Excluded, 1)
	assert.Equal(t, core.SubstrateID("bad"), resp.Excluded[0].Substrate)
}

func TestPercentileAndRank(t *testing.T) {
	s, _, kit := newTestServer(t)
	sub := kit.MotifSubstrates(1, "PLK1", 6)[0]
	req := TableRequest{Sites: sitesOf(sub.Window()), Kinases: testkitNames(testkit.SerThrKinases)}

	rec := do(t, s, http.MethodPost, "/api/percentile", req)
	require.Equal(t, http.StatusOK, rec.Code)
	pct := decode[TableResponse](t, rec)
	assert.Equal(t, "percentile", pct.Measure)
	for _, v := range pct.Rows[0].Values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}

	req.Method = "percentile"
	rec = do(t, s, http.MethodPost, "/api/rank", req)
	require.Equal(t, http.StatusOK, rec.Code)
	rank := decode[TableResponse](t, rec)
	assert.Equal(t, "percentile_rank", rank.Measure)
	for _, v := range rank.Rows[0].Values {
		assert.GreaterOrEqual(t, v, 1.0)
		assert.LessOrEqual(t, v, float64(len(testkit.SerThrKinases)))
	}

	req.Method = "median"
	rec = do(t, s, http.MethodPost, "/api/rank", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackgroundRankEndpoint(t *testing.T) {
	s, _, kit := newTestServer(t)
	motif := kit.MotifSubstrates(3, "CK2A1", 21)
	tyr := kit.RandomSubstrates(1, core.Tyrosine, 22)[0]
	sites := []SiteInput{
		{ID: "m0", Peptide: motif[0].Window()},
		{ID: "tyr", Peptide: tyr.Window()},
		{ID: "m1", Peptide: motif[1].Window()},
		{ID: "broken", Peptide: "PL**QE"},
		{ID: "m2", Peptide: motif[2].Window()},
	}

	rec := do(t, s, http.MethodPost, "/api/background-rank", BackgroundRankRequest{Sites: sites, Kinase: "ck2a1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[BackgroundRankResponse](t, rec)

	assert.Equal(t, core.KinaseID("CK2A1"), resp.Kinase)
	assert.Equal(t, testkit.BackgroundSize, resp.BackgroundSize)
	require.Len(t, resp.Rows, 3)
	for i, row := range resp.Rows {
		assert.Equal(t, []int{0, 2, 4}[i], row.Index)
		assert.GreaterOrEqual(t, row.BackgroundRank, 1)
		assert.LessOrEqual(t, row.BackgroundRank, resp.BackgroundSize/10)
		assert.Greater(t, row.Percentile, 90.0)
	}

	excluded := make([]string, len(resp.Excluded))
	for i, ex := range resp.Excluded {
		excluded[i] = string(ex.Substrate)
	}
	assert.ElementsMatch(t, []string{"tyr", "broken"}, excluded)

	rec = do(t, s, http.MethodPost, "/api/background-rank", BackgroundRankRequest{Sites: sites, Kinase: "NOPE"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, s, http.MethodPost, "/api/background-rank", BackgroundRankRequest{Kinase: "CK2A1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredict(t *testing.T) {
	s, _, kit := newTestServer(t)
	sub := kit.RandomSubstrates(1, core.Tyrosine, 8)[0]

	rec := do(t, s, http.MethodPost, "/api/predict", TableRequest{Sites: sitesOf(sub.Window())})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[PredictResponse](t, rec)

	assert.Equal(t, "score", resp.Score.Measure)
	assert.Equal(t, "score_rank", resp.ScoreRank.Measure)
	assert.Equal(t, "percentile", resp.Percentile.Measure)
	assert.Equal(t, "percentile_rank", resp.PercentileRank.Measure)
	require.Len(t, resp.Score.Rows, 1)
	assert.Len(t, resp.Score.Rows[0].Values, len(testkit.TyrosineKinases))
}

func TestScan(t *testing.T) {
	s, _, kit := newTestServer(t)
	subs := kit.MotifSubstrates(3, "CK2A1", 9)

	rec := do(t, s, http.MethodPost, "/api/scan", ScanRequest{
		TableRequest: TableRequest{Sites: sitesOf(subs[0].Window(), subs[1].Window(), subs[2].Window())},
		Criterion:    CriterionInput{Measure: "percentile", Threshold: 90},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ScanResponse](t, rec)

	assert.Equal(t, "percentile >= 90", resp.Criterion)
	var hits int
	for _, m := range resp.Matches {
		assert.GreaterOrEqual(t, m.Value, 90.0)
		if m.Kinase == "CK2A1" {
			hits++
		}
	}
	assert.Equal(t, 3, hits)
}

func TestRequestErrors(t *testing.T) {
	s, _, kit := newTestServer(t)
	window := kit.RandomSubstrates(1, core.SerThr, 10)[0].Window()

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"no sites", "/api/score", TableRequest{}, http.StatusBadRequest, errors.CodeInvalidInput},
		{"unknown kinase", "/api/score", TableRequest{Sites: sitesOf(window), Kinases: []string{"NOPE"}}, http.StatusNotFound, errors.CodeNotFound},
		{"unknown measure", "/api/scan", ScanRequest{
			TableRequest: TableRequest{Sites: sitesOf(window)},
			Criterion:    CriterionInput{Measure: "volume", Threshold: 1},
		}, http.StatusBadRequest, errors.CodeInvalidInput},
		{"rank threshold below one", "/api/scan", ScanRequest{
			TableRequest: TableRequest{Sites: sitesOf(window)},
			Criterion:    CriterionInput{Measure: "score_rank", Threshold: 0},
		}, http.StatusBadRequest, errors.CodeInvalidInput},
		{"unknown field", "/api/score", map[string]interface{}{"sites": sitesOf(window), "colour": "red"}, http.StatusBadRequest, errors.CodeInvalidInput},
		{"bad alternative", "/api/enrichment/two-group", TwoGroupRequest{
			Foreground:  sitesOf(window),
			Background:  sitesOf(window),
			Criterion:   CriterionInput{Measure: "percentile", Threshold: 90},
			Alternative: "sideways",
		}, http.StatusBadRequest, errors.CodeInvalidInput},
		{"negative logfc", "/api/enrichment/differential", DifferentialRequest{
			LogFCThreshold: -1,
			Criterion:      CriterionInput{Measure: "percentile", Threshold: 90},
		}, http.StatusBadRequest, errors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestTwoGroupEndpoint(t *testing.T) {
	s, _, kit := newTestServer(t)
	var fg, bg []SiteInput
	for _, sub := range kit.MotifSubstrates(25, "ERK2", 11) {
		fg = append(fg, SiteInput{ID: string(sub.ID), Peptide: sub.Window()})
	}
	for _, sub := range kit.RandomSubstrates(150, core.SerThr, 12) {
		bg = append(bg, SiteInput{ID: string(sub.ID), Peptide: sub.Window()})
	}

	fg = append(fg, SiteInput{ID: "bad-fg", Peptide: "PLX*"})
	bg = append(bg, SiteInput{ID: "bad-bg", Peptide: "PLsQE"})

	rec := do(t, s, http.MethodPost, "/api/enrichment/two-group", TwoGroupRequest{
		Foreground: fg,
		Background: bg,
		Criterion:  CriterionInput{Measure: "percentile", Threshold: 90},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "two_group", report["mode"])
	assert.Nil(t, report["tyrosine"], "no tyrosine sites given")
	combined := report["combined"].([]interface{})
	require.Len(t, combined, len(testkit.SerThrKinases))
	assert.Equal(t, "ERK2", combined[0].(map[string]interface{})["kinase"])
	assert.ElementsMatch(t, []string{"bad-fg", "bad-bg"}, excludedIDs(report))
}

func excludedIDs(report map[string]interface{}) []string {
	var ids []string
	excluded, _ := report["excluded"].([]interface{})
	for _, e := range excluded {
		ids = append(ids, e.(map[string]interface{})["substrate"].(string))
	}
	return ids
}

func TestMEAEndpointReplaysSeed(t *testing.T) {
	s, _, kit := newTestServer(t)
	motif := kit.MotifSubstrates(15, "PKACA", 13)
	random := kit.RandomSubstrates(60, core.SerThr, 14)

	var sites []RankedSiteInput
	for i, sub := range append(motif, random...) {
		sites = append(sites, RankedSiteInput{
			SiteInput: SiteInput{ID: string(sub.ID), Peptide: sub.Window()},
			Statistic: float64(len(motif)+len(random)-i) - 30,
		})
	}
	sites = append(sites, RankedSiteInput{SiteInput: SiteInput{ID: "unparseable", Peptide: "PL**QE"}, Statistic: 1})
	seed := int64(2024)
	req := MEARequest{
		Sites:        sites,
		Criterion:    CriterionInput{Measure: "percentile", Threshold: 90},
		Permutations: 100,
		Seed:         &seed,
	}

	first := do(t, s, http.MethodPost, "/api/enrichment/mea", req)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := do(t, s, http.MethodPost, "/api/enrichment/mea", req)
	require.Equal(t, http.StatusOK, second.Code)

	a := decode[map[string]interface{}](t, first)
	b := decode[map[string]interface{}](t, second)
	assert.EqualValues(t, seed, a["seed"])
	assert.EqualValues(t, 100, a["permutations"])
	assert.Equal(t, a["combined"], b["combined"])
	assert.Equal(t, []string{"unparseable"}, excludedIDs(a))
}

func TestDifferentialEndpointRecordsExclusions(t *testing.T) {
	s, _, kit := newTestServer(t)
	var sites []DifferentialSiteInput
	for _, sub := range kit.MotifSubstrates(20, "CK2A1", 15) {
		sites = append(sites, DifferentialSiteInput{SiteInput: SiteInput{ID: string(sub.ID), Peptide: sub.Window()}, LogFC: 2})
	}
	for _, sub := range kit.RandomSubstrates(100, core.SerThr, 16) {
		sites = append(sites, DifferentialSiteInput{SiteInput: SiteInput{ID: string(sub.ID), Peptide: sub.Window()}, LogFC: 0})
	}
	sites = append(sites, DifferentialSiteInput{SiteInput: SiteInput{ID: "short", Peptide: "RsP"}, LogFC: 3})

	rec := do(t, s, http.MethodPost, "/api/enrichment/differential", DifferentialRequest{
		Sites:          sites,
		LogFCThreshold: 1,
		Criterion:      CriterionInput{Measure: "percentile", Threshold: 90},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "differential", report["mode"])
	assert.Equal(t, []string{"short"}, excludedIDs(report))
}

func testkitNames(ids []core.KinaseID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
