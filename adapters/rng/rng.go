// Package rng implements ports.RNGPort with math/rand sources whose seeds are
// derived from the operation name, base seed and task index.
package rng

import (
	"context"
	"math/rand"
)

// Adapter implements the RNGPort interface
type Adapter struct{}

// New returns a seeded RNG adapter
func New() *Adapter {
	return &Adapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *Adapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(mix(hashString(name), uint64(seed)))), nil
}

// Stream creates the RNG for task index of a named operation
func (a *Adapter) Stream(ctx context.Context, name string, seed int64, index int) (*rand.Rand, error) {
	base := mix(hashString(name), uint64(seed))
	return rand.New(rand.NewSource(mix(uint64(base), uint64(index)+1))), nil
}

// hashString creates a simple hash for deterministic seeding (djb2)
func hashString(s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}

// mix combines two words with the splitmix64 finalizer so neighbouring task
// indexes get unrelated seeds.
func mix(a, b uint64) int64 {
	z := a ^ (b + 0x9e3779b97f4a7c15 + (a << 6) + (a >> 2))
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return int64(z)
}
