package app

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinlib/adapters/stats/batch"
	"kinlib/adapters/stats/enrichment"
	"kinlib/adapters/stats/scoring"
	"kinlib/domain/core"
	domain "kinlib/domain/enrichment"
	"kinlib/domain/substrate"
	"kinlib/internal/testkit"
)

func newServices(t *testing.T) (*EnrichmentService, *ScanService, *testkit.TestKit) {
	t.Helper()
	kit, err := testkit.NewTestKit()
	if err != nil {
		t.Fatalf("Failed to create test kit: %v", err)
	}
	engine, err := scoring.NewEngine(kit.Library, kit.Background, scoring.DefaultOptions())
	require.NoError(t, err)
	processor := batch.NewProcessor(engine, 4)
	return NewEnrichmentService(enrichment.NewEngine(processor, kit.RNGAdapter())), NewScanService(processor), kit
}

func TestTwoGroupReportCoversBothTypes(t *testing.T) {
	svc, _, kit := newServices(t)
	fg := append(kit.MotifSubstrates(25, "PLK1", 1), kit.MotifSubstrates(25, "SRC", 2)...)
	bg := append(kit.RandomSubstrates(150, core.SerThr, 3), kit.RandomSubstrates(150, core.Tyrosine, 4)...)

	report, err := svc.TwoGroup(context.Background(), TwoGroupRequest{
		Foreground: fg,
		Background: bg,
		Criterion:  core.Criterion{Measure: core.MeasurePercentile, Threshold: 90},
	})
	require.NoError(t, err)

	require.NotNil(t, report.SerThr)
	require.NotNil(t, report.Tyrosine)
	assert.Len(t, report.SerThr.Results, len(testkit.SerThrKinases))
	assert.Len(t, report.Tyrosine.Results, len(testkit.TyrosineKinases))
	assert.Len(t, report.Combined, len(testkit.SerThrKinases)+len(testkit.TyrosineKinases))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, domain.ModeTwoGroup, report.Mode)

	for i := 1; i < len(report.Combined); i++ {
		assert.LessOrEqual(t, report.Combined[i-1].QValue, report.Combined[i].QValue)
	}
	top := map[core.KinaseID]bool{report.Combined[0].Kinase: true, report.Combined[1].Kinase: true}
	assert.True(t, top["PLK1"], "PLK1 among the two most significant")
	assert.True(t, top["SRC"], "SRC among the two most significant")

	for _, r := range report.Combined {
		assert.Equal(t, report.Section(r.Type).Type, r.Type)
	}
}

func TestTwoGroupSkipsMissingType(t *testing.T) {
	svc, _, kit := newServices(t)
	report, err := svc.TwoGroup(context.Background(), TwoGroupRequest{
		Foreground: kit.MotifSubstrates(10, "ERK2", 1),
		Background: kit.RandomSubstrates(50, core.SerThr, 2),
		Criterion:  core.Criterion{Measure: core.MeasureScore, Threshold: 3},
	})
	require.NoError(t, err)
	assert.NotNil(t, report.SerThr)
	assert.Nil(t, report.Tyrosine)

	_, err = svc.TwoGroup(context.Background(), TwoGroupRequest{
		Foreground: kit.MotifSubstrates(10, "ERK2", 1),
		Background: kit.RandomSubstrates(50, core.SerThr, 2),
		Types:      []core.KinaseType{core.Tyrosine},
		Criterion:  core.Criterion{Measure: core.MeasureScore, Threshold: 3},
	})
	assert.ErrorIs(t, err, core.ErrNoEligibleSites)
}

func TestRankedListSharesSeedAcrossTypes(t *testing.T) {
	svc, _, kit := newServices(t)
	var entries []domain.Entry
	for i, s := range kit.MotifSubstrates(15, "PKACA", 5) {
		entries = append(entries, domain.Entry{Substrate: s, Statistic: 4 - 0.1*float64(i)})
	}
	for i, s := range kit.RandomSubstrates(60, core.SerThr, 6) {
		entries = append(entries, domain.Entry{Substrate: s, Statistic: 1 - 0.05*float64(i)})
	}
	for i, s := range kit.RandomSubstrates(40, core.Tyrosine, 7) {
		entries = append(entries, domain.Entry{Substrate: s, Statistic: 2 - 0.1*float64(i)})
	}
	list, err := domain.NewRankedList(entries, false)
	require.NoError(t, err)

	opts := enrichment.DefaultMEAOptions()
	opts.Permutations = 50
	report, err := svc.RankedList(context.Background(), RankedListRequest{
		List:      list,
		Criterion: core.Criterion{Measure: core.MeasureScoreRank, Threshold: 1},
		Options:   opts,
	})
	require.NoError(t, err)
	assert.NotZero(t, report.Seed)
	assert.Equal(t, 50, report.Permutations)
	assert.NotNil(t, report.SerThr)
	assert.NotNil(t, report.Tyrosine)

	seen := false
	for _, r := range report.Combined {
		if !r.OK() {
			seen = true
			continue
		}
		assert.False(t, seen, "NA rows sort last")
		assert.GreaterOrEqual(t, r.QValue, r.PValue)
	}
}

// flatSerThrList ranks SRC motif sites above random tyrosine sites and gives
// every ser/thr site a zero statistic, so only the tyrosine run is testable
func flatSerThrList(t *testing.T, kit *testkit.TestKit) domain.RankedList {
	t.Helper()
	var entries []domain.Entry
	for i, s := range kit.MotifSubstrates(15, "SRC", 21) {
		entries = append(entries, domain.Entry{Substrate: s, Statistic: 3 - 0.1*float64(i)})
	}
	for i, s := range kit.RandomSubstrates(40, core.Tyrosine, 22) {
		entries = append(entries, domain.Entry{Substrate: s, Statistic: 1 - 0.02*float64(i)})
	}
	for _, s := range kit.RandomSubstrates(30, core.SerThr, 23) {
		entries = append(entries, domain.Entry{Substrate: s, Statistic: 0})
	}
	list, err := domain.NewRankedList(entries, false)
	require.NoError(t, err)
	return list
}

func TestRankedListSkipsTypesWithoutRequestedKinases(t *testing.T) {
	svc, _, kit := newServices(t)
	seed := int64(17)
	opts := enrichment.DefaultMEAOptions()
	opts.Permutations = 50
	opts.Seed = &seed

	report, err := svc.RankedList(context.Background(), RankedListRequest{
		List:      flatSerThrList(t, kit),
		Kinases:   []core.KinaseID{"SRC"},
		Criterion: core.Criterion{Measure: core.MeasureScoreRank, Threshold: 1},
		Options:   opts,
	})
	require.NoError(t, err)
	assert.Nil(t, report.SerThr, "no ser/thr kinase was requested")
	require.NotNil(t, report.Tyrosine)
	require.Len(t, report.Tyrosine.Results, 1)
	assert.Equal(t, core.KinaseID("SRC"), report.Tyrosine.Results[0].Kinase)
	assert.True(t, report.Tyrosine.Results[0].OK())
	assert.Len(t, report.Combined, 1)
}

func TestRankedListTypeFailureDegradesToNA(t *testing.T) {
	svc, _, kit := newServices(t)
	seed := int64(18)
	opts := enrichment.DefaultMEAOptions()
	opts.Permutations = 50
	opts.Seed = &seed
	list := flatSerThrList(t, kit)
	criterion := core.Criterion{Measure: core.MeasureScoreRank, Threshold: 1}

	report, err := svc.RankedList(context.Background(), RankedListRequest{
		List:      list,
		Criterion: criterion,
		Options:   opts,
	})
	require.NoError(t, err)

	require.NotNil(t, report.SerThr)
	require.Len(t, report.SerThr.Results, len(testkit.SerThrKinases))
	for _, r := range report.SerThr.Results {
		assert.False(t, r.OK(), "%s", r.Kinase)
		assert.ErrorIs(t, r.Err, core.ErrDegenerateStatistic)
	}
	require.NotNil(t, report.Tyrosine)
	assert.Len(t, report.Tyrosine.Results, len(testkit.TyrosineKinases))
	for _, r := range report.Tyrosine.Results {
		if r.Kinase == "SRC" {
			assert.True(t, r.OK(), "%v", r.Err)
			assert.Greater(t, r.ES, 0.0)
		}
	}

	_, err = svc.RankedList(context.Background(), RankedListRequest{
		List:      list,
		Types:     []core.KinaseType{core.SerThr},
		Criterion: criterion,
		Options:   opts,
	})
	assert.ErrorIs(t, err, core.ErrDegenerateStatistic, "a run where every type failed is an error")
}

func TestTwoGroupSkipsTypesWithoutRequestedKinases(t *testing.T) {
	svc, _, kit := newServices(t)
	fg := append(kit.MotifSubstrates(10, "ERK2", 1), kit.MotifSubstrates(10, "EGFR", 2)...)
	bg := append(kit.RandomSubstrates(50, core.SerThr, 3), kit.RandomSubstrates(50, core.Tyrosine, 4)...)

	report, err := svc.TwoGroup(context.Background(), TwoGroupRequest{
		Foreground: fg,
		Background: bg,
		Kinases:    []core.KinaseID{"EGFR"},
		Criterion:  core.Criterion{Measure: core.MeasurePercentile, Threshold: 90},
	})
	require.NoError(t, err)
	assert.Nil(t, report.SerThr)
	require.NotNil(t, report.Tyrosine)
	assert.Len(t, report.Combined, 1)

	_, err = svc.TwoGroup(context.Background(), TwoGroupRequest{
		Foreground: fg,
		Background: bg,
		Kinases:    []core.KinaseID{"NOPE"},
		Criterion:  core.Criterion{Measure: core.MeasurePercentile, Threshold: 90},
	})
	assert.ErrorIs(t, err, core.ErrUnknownKinase)
}

func TestDifferential(t *testing.T) {
	svc, _, kit := newServices(t)
	var sites []domain.DifferentialSite
	for _, s := range kit.MotifSubstrates(30, "CK2A1", 1) {
		sites = append(sites, domain.DifferentialSite{Substrate: s, LogFC: 2, PValue: 0.001})
	}
	for _, s := range kit.MotifSubstrates(30, "ERK2", 2) {
		sites = append(sites, domain.DifferentialSite{Substrate: s, LogFC: -2, PValue: 0.001})
	}
	for _, s := range kit.RandomSubstrates(200, core.SerThr, 3) {
		sites = append(sites, domain.DifferentialSite{Substrate: s, LogFC: 0.1, PValue: 0.8})
	}

	report, err := svc.Differential(context.Background(), DifferentialRequest{
		Sites:           sites,
		LogFCThreshold:  1,
		PValueThreshold: 0.05,
		Criterion:       core.Criterion{Measure: core.MeasurePercentile, Threshold: 90},
	})
	require.NoError(t, err)
	require.NotNil(t, report.SerThr)
	assert.Equal(t, domain.ModeDifferential, report.Mode)

	byKinase := map[core.KinaseID]domain.Result{}
	for _, r := range report.SerThr.Results {
		byKinase[r.Kinase] = r
	}
	assert.Equal(t, domain.Positive, byKinase["CK2A1"].Direction)
	assert.Greater(t, byKinase["CK2A1"].ES, 0.0)
	assert.Equal(t, domain.Negative, byKinase["ERK2"].Direction)
	assert.Less(t, byKinase["ERK2"].ES, 0.0)
	assert.Less(t, byKinase["ERK2"].PValue, 1e-6)
	assert.Len(t, report.SerThr.Results, len(testkit.SerThrKinases))
}

func TestSplitDifferential(t *testing.T) {
	mk := func(id string) substrate.Substrate {
		s, err := substrate.New(core.SubstrateID(id), "______RsP______", substrate.Options{})
		require.NoError(t, err)
		return s
	}
	sites := []domain.DifferentialSite{
		{Substrate: mk("up"), LogFC: 1.5, PValue: 0.01},
		{Substrate: mk("up-ns"), LogFC: 1.5, PValue: 0.5},
		{Substrate: mk("down"), LogFC: -3, PValue: math.NaN()},
		{Substrate: mk("flat"), LogFC: 0.2, PValue: 0.01},
	}

	up, down, unchanged := SplitDifferential(sites, 1, 0)
	assert.Len(t, up, 2)
	assert.Len(t, down, 1)
	assert.Len(t, unchanged, 1)

	up, down, unchanged = SplitDifferential(sites, 1, 0.05)
	assert.Len(t, up, 1)
	assert.Len(t, down, 0, "sites without a p-value fail a p-value filter")
	assert.Len(t, unchanged, 3)
}

func TestScan(t *testing.T) {
	_, scan, kit := newServices(t)
	subs := append(kit.MotifSubstrates(5, "HER2", 3), kit.RandomSubstrates(5, core.SerThr, 4)...)

	res, err := scan.Scan(context.Background(), ScanRequest{
		Substrates: subs,
		Criterion:  core.Criterion{Measure: core.MeasureScoreRank, Threshold: 1},
	})
	require.NoError(t, err)
	assert.Len(t, res.Table.Rows, len(subs))
	assert.GreaterOrEqual(t, len(res.Matches), len(subs))

	her2 := 0
	for _, m := range res.Matches {
		if m.Kinase == "HER2" {
			her2++
		}
	}
	assert.GreaterOrEqual(t, her2, 4)

	_, err = scan.Scan(context.Background(), ScanRequest{
		Substrates: subs,
		Criterion:  core.Criterion{Measure: core.MeasurePercentileRank, Threshold: 0.5},
	})
	assert.ErrorIs(t, err, core.ErrInvalidCriterion)
}

func TestPredict(t *testing.T) {
	_, scan, kit := newServices(t)
	pred, err := scan.Predict(context.Background(), kit.RandomSubstrates(4, core.Tyrosine, 8), []core.KinaseID{"EGFR"})
	require.NoError(t, err)
	for _, m := range core.Measures {
		require.Len(t, pred.Table(m).Rows, 4)
	}
}
