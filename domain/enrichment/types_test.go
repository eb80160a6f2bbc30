package enrichment

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinlib/domain/core"
	"kinlib/domain/substrate"
)

func TestSortResults(t *testing.T) {
	results := []Result{
		{Kinase: "CK2A1", Type: core.SerThr, PValue: 0.01, QValue: 0.04},
		NAResult("AAA", core.SerThr, errors.New("failed")),
		{Kinase: "AKT2", Type: core.SerThr, PValue: 0.02, QValue: 0.04},
		{Kinase: "EGFR", Type: core.Tyrosine, PValue: 0.001, QValue: 0.004},
		{Kinase: "AKT1", Type: core.SerThr, PValue: 0.02, QValue: 0.04},
		NAResult("ZZZ", core.Tyrosine, errors.New("failed")),
	}

	SortResults(results)

	var order []core.KinaseID
	for _, r := range results {
		order = append(order, r.Kinase)
	}
	assert.Equal(t, []core.KinaseID{"EGFR", "CK2A1", "AKT1", "AKT2", "AAA", "ZZZ"}, order)
}

func TestReportSections(t *testing.T) {
	report := &Report{Mode: ModeTwoGroup}
	report.SetSection(&Section{Type: core.Tyrosine, Results: []Result{{Kinase: "EGFR", Type: core.Tyrosine, PValue: 0.5, QValue: 0.5}}})
	report.SetSection(&Section{Type: core.SerThr, Results: []Result{{Kinase: "AKT1", Type: core.SerThr, PValue: 0.1, QValue: 0.2}}})

	require.NotNil(t, report.Section(core.SerThr))
	require.NotNil(t, report.Section(core.Tyrosine))
	assert.Nil(t, report.Section(core.KinaseType(7)))
	assert.Len(t, report.Sections(), 2)

	report.Combine()
	require.Len(t, report.Combined, 2)
	assert.Equal(t, core.KinaseID("AKT1"), report.Combined[0].Kinase)
}

func TestResultJSONHandlesNA(t *testing.T) {
	na := NAResult("AKT1", core.SerThr, core.ErrInsufficientHits)
	data, err := json.Marshal(na)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded["p_value"])
	assert.Equal(t, "ser_thr", decoded["type"])
	assert.Contains(t, decoded["error"], "hit set")

	ok := Result{Kinase: "EGFR", Type: core.Tyrosine, ES: 0.5, NES: 1.2, PValue: 0.01, QValue: 0.02, Direction: Positive}
	data, err = json.Marshal(ok)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 0.01, decoded["p_value"])
	assert.Equal(t, "positive", decoded["direction"])
}

func TestDirectionOf(t *testing.T) {
	assert.Equal(t, Positive, DirectionOf(0.3))
	assert.Equal(t, Positive, DirectionOf(0))
	assert.Equal(t, Negative, DirectionOf(-0.3))
	assert.Equal(t, DirectionNone, DirectionOf(math.NaN()))
}

func mustSub(t *testing.T, peptide string) substrate.Substrate {
	t.Helper()
	s, err := substrate.Parse("", peptide, substrate.Options{})
	require.NoError(t, err)
	return s
}

func TestNewRankedListOrdering(t *testing.T) {
	a, b, c := mustSub(t, "PLs*QE"), mustSub(t, "RRAs*LP"), mustSub(t, "EEy*EE")
	entries := []Entry{{a, 0.5}, {b, 2.0}, {c, 0.5}}

	list, err := NewRankedList(entries, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.0, 0.5, 0.5}, list.Statistics())
	assert.Equal(t, a.Window(), list.Substrates()[1].Window(), "ties keep input order")

	kept, err := NewRankedList(entries, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 2.0, 0.5}, kept.Statistics())

	st := list.ForType(core.SerThr)
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, 1, list.ForType(core.Tyrosine).Len())
}

func TestNewRankedListErrors(t *testing.T) {
	_, err := NewRankedList(nil, false)
	assert.ErrorIs(t, err, core.ErrEmptyRankedList)

	_, err = NewRankedList([]Entry{{mustSub(t, "PLs*QE"), math.NaN()}}, false)
	assert.ErrorIs(t, err, core.ErrMalformedSubstrate)
}
