package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinlib/adapters/stats/scoring"
	"kinlib/domain/core"
	"kinlib/internal/config"
	"kinlib/internal/errors"
	"kinlib/internal/testkit"
)

func TestNewFromTables(t *testing.T) {
	kit := testkit.MustNewTestKit()
	c, err := NewFromTables(kit.Library, kit.Background, scoring.DefaultOptions(), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, c.Processor.Workers())
	assert.NotNil(t, c.EnrichmentService)
	assert.NotNil(t, c.ScanService)

	_, err = NewFromTables(kit.Library, nil, scoring.DefaultOptions(), 1)
	assert.ErrorIs(t, err, core.ErrMissingBackground)
	assert.Equal(t, errors.CodeDataLoad, errors.GetCode(err))
}

func TestNewMissingFiles(t *testing.T) {
	cfg := &config.Config{
		Data:     config.DataConfig{SerThrMatrices: "/nonexistent/m.csv", SerThrBackground: "/nonexistent/b.csv"},
		Analysis: config.AnalysisConfig{Workers: 1, Permutations: 10},
	}
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDataLoad, errors.GetCode(err))
}
