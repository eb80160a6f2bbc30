package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates the RNG for one numbered task of a named operation.
	// The same (name, seed, index) always yields the same stream, so permutation
	// results do not depend on which worker runs which task.
	Stream(ctx context.Context, name string, seed int64, index int) (*rand.Rand, error)
}
