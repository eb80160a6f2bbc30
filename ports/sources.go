package ports

import (
	"context"

	"kinlib/domain/core"
	"kinlib/domain/kinase"
)

// MatrixSource loads the kinase matrices of one kinase type
type MatrixSource interface {
	LoadMatrices(ctx context.Context, t core.KinaseType) ([]*kinase.KinaseMatrix, error)
}

// BackgroundSource loads the background score populations of one kinase type
type BackgroundSource interface {
	LoadBackgrounds(ctx context.Context, t core.KinaseType) (map[core.KinaseID][]float64, error)
}
