package testkit

import (
	"fmt"
	"math/rand"

	"kinlib/adapters/rng"
	"kinlib/domain/core"
	"kinlib/domain/kinase"
	"kinlib/domain/substrate"
	"kinlib/ports"
)

// Fixture kinases and the residues their matrices favour
var motifs = map[core.KinaseID]struct {
	kind  core.KinaseType
	motif map[int]byte
}{
	"AKT1":  {core.SerThr, map[int]byte{-5: 'R', -3: 'R', 1: 'F'}},
	"AKT2":  {core.SerThr, map[int]byte{-5: 'R', -3: 'R', -2: 'S'}},
	"CK2A1": {core.SerThr, map[int]byte{1: 'D', 2: 'E', 3: 'E'}},
	"ERK2":  {core.SerThr, map[int]byte{-2: 'P', 1: 'P'}},
	"PKACA": {core.SerThr, map[int]byte{-3: 'R', -2: 'R', 1: 'I'}},
	"PLK1":  {core.SerThr, map[int]byte{-2: 'D', 1: 'L', 2: 'F'}},
	"EGFR":  {core.Tyrosine, map[int]byte{-1: 'E', 1: 'V', 3: 'P'}},
	"HER2":  {core.Tyrosine, map[int]byte{-2: 'E', -1: 'E', 1: 'I'}},
	"SRC":   {core.Tyrosine, map[int]byte{-1: 'I', 1: 'E', 3: 'L'}},
}

// SerThrKinases lists the ser/thr fixture kinases
var SerThrKinases = []core.KinaseID{"AKT1", "AKT2", "CK2A1", "ERK2", "PKACA", "PLK1"}

// TyrosineKinases lists the tyrosine fixture kinases
var TyrosineKinases = []core.KinaseID{"EGFR", "HER2", "SRC"}

const (
	// MatrixRadius is the radius of the fixture matrices (-5..+5, +5 left empty)
	MatrixRadius = 5
	// BackgroundSize is the number of random peptides scored per kinase
	BackgroundSize = 2000
	// MotifWeight is the log2 weight of a motif residue
	MotifWeight = 2.0

	standardResidues = "PGACSTVILMFYWHKRQNDE"
	fixtureSeed      = 42
)

// TestKit provides deterministic kinase fixtures
type TestKit struct {
	Library    *kinase.Library
	Background *kinase.BackgroundIndex
}

// NewTestKit builds the fixture library and background index. Every call
// returns identical tables.
func NewTestKit() (*TestKit, error) {
	r := rand.New(rand.NewSource(fixtureSeed))

	var matrices []*kinase.KinaseMatrix
	for _, id := range append(append([]core.KinaseID{}, SerThrKinases...), TyrosineKinases...) {
		m, err := buildMatrix(id, r)
		if err != nil {
			return nil, err
		}
		matrices = append(matrices, m)
	}
	lib, err := kinase.NewLibrary(matrices...)
	if err != nil {
		return nil, err
	}

	populations := make(map[core.KinaseID][]float64, len(matrices))
	for _, m := range matrices {
		pop := make([]float64, BackgroundSize)
		for i := range pop {
			pop[i] = ReferenceScore(randomWindow(r, m.Type()), m)
		}
		populations[m.ID()] = pop
	}
	bg, err := kinase.NewBackgroundIndex(populations)
	if err != nil {
		return nil, err
	}

	return &TestKit{Library: lib, Background: bg}, nil
}

// MustNewTestKit panics if the fixtures cannot be built
func MustNewTestKit() *TestKit {
	kit, err := NewTestKit()
	if err != nil {
		panic(fmt.Sprintf("testkit: %v", err))
	}
	return kit
}

// RNGAdapter returns the seeded RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return rng.New()
}

// RandomSubstrates returns n random sites for kinase type kind
func (t *TestKit) RandomSubstrates(n int, kind core.KinaseType, seed int64) []substrate.Substrate {
	r := rand.New(rand.NewSource(seed))
	out := make([]substrate.Substrate, n)
	for i := range out {
		out[i] = mustSubstrate(fmt.Sprintf("%s-rand-%d", kind, i), randomWindow(r, kind))
	}
	return out
}

// MotifSubstrates returns n random sites carrying the fixture motif of kinase
func (t *TestKit) MotifSubstrates(n int, id core.KinaseID, seed int64) []substrate.Substrate {
	fixture, ok := motifs[id]
	if !ok {
		panic(fmt.Sprintf("testkit: no motif for %s", id))
	}
	r := rand.New(rand.NewSource(seed))
	out := make([]substrate.Substrate, n)
	for i := range out {
		w := []byte(randomWindow(r, fixture.kind))
		for pos, residue := range fixture.motif {
			w[substrate.WindowRadius+pos] = residue
		}
		out[i] = mustSubstrate(fmt.Sprintf("%s-motif-%d", id, i), string(w))
	}
	return out
}

// ReferenceScore is a direct sum of a matrix over a window's flanking
// positions, used to cross-check the scorer.
func ReferenceScore(window string, m *kinase.KinaseMatrix) float64 {
	total := 0.0
	for pos := -m.Radius(); pos <= m.Radius(); pos++ {
		if pos == 0 {
			continue
		}
		total += m.Weight(pos, window[substrate.WindowRadius+pos])
	}
	return total
}

func buildMatrix(id core.KinaseID, r *rand.Rand) (*kinase.KinaseMatrix, error) {
	fixture := motifs[id]
	weights := make(map[int]map[byte]float64)
	for pos := -MatrixRadius; pos < MatrixRadius; pos++ {
		row := make(map[byte]float64)
		for i := 0; i < len(standardResidues); i++ {
			row[standardResidues[i]] = r.NormFloat64() * 0.3
		}
		if pos == 0 {
			row['S'], row['T'], row['Y'] = 0.1, -0.1, 0
		}
		if residue, ok := fixture.motif[pos]; ok {
			row[residue] = MotifWeight
		}
		weights[pos] = row
	}
	return kinase.NewKinaseMatrix(id, fixture.kind, MatrixRadius, weights)
}

func randomWindow(r *rand.Rand, kind core.KinaseType) string {
	w := make([]byte, substrate.WindowLength)
	for i := range w {
		w[i] = standardResidues[r.Intn(len(standardResidues))]
	}
	centers := kind.CenterResidues()
	w[substrate.WindowRadius] = centers[r.Intn(len(centers))]
	return string(w)
}

func mustSubstrate(id, window string) substrate.Substrate {
	s, err := substrate.New(core.SubstrateID(id), window, substrate.Options{})
	if err != nil {
		panic(fmt.Sprintf("testkit: %v", err))
	}
	return s
}
