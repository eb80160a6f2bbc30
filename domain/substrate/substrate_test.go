package substrate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinlib/domain/core"
)

func TestParsePadsMarkedSites(t *testing.T) {
	tests := []struct {
		peptide  string
		expected string
	}{
		{"PPLs*", "____PPLs_______"},
		{"PLs*QE", "_____PLsQE_____"},
		{"SVEPPLs*QEtFSD", "_SVEPPLsQETFSD_"},
	}

	for _, tt := range tests {
		t.Run(tt.peptide, func(t *testing.T) {
			sub, err := Parse("", tt.peptide, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sub.Window())
			assert.Equal(t, core.SerThr, sub.Type())
		})
	}
}

func TestNewNormalizesCase(t *testing.T) {
	sub, err := New("site-1", "PSVEPPLTQETFSDL", Options{})
	require.NoError(t, err)
	assert.Equal(t, "PSVEPPLtQETFSDL", sub.Window())
	assert.Equal(t, byte('t'), sub.Center())
	assert.Equal(t, core.SubstrateID("site-1"), sub.ID)

	primed, err := New("", "PSVEPPLtQEtFSDL", Options{PhosphoPriming: true})
	require.NoError(t, err)
	assert.Equal(t, "PSVEPPLtQEtFSDL", primed.Window())
	assert.Equal(t, core.SubstrateID("PSVEPPLtQEtFSDL"), primed.ID, "window doubles as ID when none given")

	unprimed, err := New("", "PSVEPPLtQEtFSDL", Options{})
	require.NoError(t, err)
	assert.Equal(t, "PSVEPPLtQETFSDL", unprimed.Window())
}

func TestNewRejectsMalformedWindows(t *testing.T) {
	for _, window := range []string{
		"PSVEPPLt",          // too short
		"PSVEPPLAQETFSDL",   // center not a phospho-acceptor
		"PSVEPPL_QETFSDL",   // center is padding
		"PSVEPP1tQETFSDL",   // digit
		"PSVEPPLtQETFSDLKK", // too long
	} {
		_, err := New("bad", window, Options{})
		assert.True(t, errors.Is(err, core.ErrMalformedSubstrate), "window %s: %v", window, err)
	}
}

func TestFromSequenceBounds(t *testing.T) {
	_, err := FromSequence("x", "PPLS", 0, Options{})
	assert.ErrorIs(t, err, core.ErrMalformedSubstrate)

	_, err = FromSequence("x", "PPLS", 5, Options{})
	assert.ErrorIs(t, err, core.ErrMalformedSubstrate)

	sub, err := FromSequence("x", "MAYK", 3, Options{})
	require.NoError(t, err)
	assert.Equal(t, "_____MAyK______", sub.Window())
	assert.Equal(t, core.Tyrosine, sub.Type())
}

func TestParseRejectsMultipleMarkers(t *testing.T) {
	_, err := Parse("x", "PLs*QEt*", Options{})
	assert.ErrorIs(t, err, core.ErrMalformedSubstrate)

	_, err = Parse("x", "*PLS", Options{})
	assert.ErrorIs(t, err, core.ErrMalformedSubstrate)
}

func TestAtAndCheckType(t *testing.T) {
	sub, err := Parse("x", "PLs*QE", Options{})
	require.NoError(t, err)

	assert.Equal(t, byte('L'), sub.At(-1))
	assert.Equal(t, byte('Q'), sub.At(1))
	assert.Equal(t, Padding, sub.At(-7))
	assert.Equal(t, Padding, sub.At(20))

	assert.NoError(t, sub.CheckType("AKT1", core.SerThr))
	assert.ErrorIs(t, sub.CheckType("EGFR", core.Tyrosine), core.ErrTypeMismatch)
	assert.ErrorIs(t, Substrate{}.CheckType("AKT1", core.SerThr), core.ErrMalformedSubstrate)
}
