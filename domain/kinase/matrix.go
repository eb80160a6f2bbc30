// Package kinase holds the process-wide lookup tables: position-weight
// matrices and the background score populations used for percentiles.
package kinase

import (
	"fmt"
	"math"

	"kinlib/domain/core"
)

// Residues is the matrix column alphabet: the standard amino acids followed by
// the phosphorylated residues used for phospho-priming.
const Residues = "PGACSTVILMFYWHKRQNDEsty"

// NumResidues is the number of matrix columns
const NumResidues = len(Residues)

var residueIndex [256]int8

func init() {
	for i := range residueIndex {
		residueIndex[i] = -1
	}
	for i := 0; i < len(Residues); i++ {
		residueIndex[Residues[i]] = int8(i)
	}
}

// ResidueIndex returns the column of residue, or -1 for padding and unknown residues.
func ResidueIndex(residue byte) int {
	return int(residueIndex[residue])
}

// KinaseMatrix is an immutable position-weight matrix. Weights are log2-scaled
// so a window's score is the sum of its per-position weights.
type KinaseMatrix struct {
	id      core.KinaseID
	kind    core.KinaseType
	radius  int
	weights [][NumResidues]float64
}

// NewKinaseMatrix builds a matrix covering relative positions -radius..radius.
// Cells absent from weights are zero.
func NewKinaseMatrix(id core.KinaseID, kind core.KinaseType, radius int, weights map[int]map[byte]float64) (*KinaseMatrix, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty kinase id", core.ErrInvalidMatrix)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w %s: unknown kinase type %d", core.ErrInvalidMatrix, id, int(kind))
	}
	if radius < 1 {
		return nil, fmt.Errorf("%w %s: radius %d", core.ErrInvalidMatrix, id, radius)
	}

	m := &KinaseMatrix{
		id:      id,
		kind:    kind,
		radius:  radius,
		weights: make([][NumResidues]float64, 2*radius+1),
	}
	for pos, row := range weights {
		if pos < -radius || pos > radius {
			return nil, fmt.Errorf("%w %s: position %d outside radius %d", core.ErrInvalidMatrix, id, pos, radius)
		}
		for residue, w := range row {
			col := ResidueIndex(residue)
			if col < 0 {
				return nil, fmt.Errorf("%w %s: unknown residue %q at position %d", core.ErrInvalidMatrix, id, residue, pos)
			}
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("%w %s: non-finite weight at %d/%c", core.ErrInvalidMatrix, id, pos, residue)
			}
			m.weights[pos+radius][col] = w
		}
	}
	return m, nil
}

// ID returns the kinase identifier
func (m *KinaseMatrix) ID() core.KinaseID { return m.id }

// Type returns the kinase type
func (m *KinaseMatrix) Type() core.KinaseType { return m.kind }

// Radius returns the number of positions covered on each side of the site
func (m *KinaseMatrix) Radius() int { return m.radius }

// Weight returns the weight of residue at a relative position. Padding,
// unknown residues and positions beyond the radius weigh zero.
func (m *KinaseMatrix) Weight(pos int, residue byte) float64 {
	if pos < -m.radius || pos > m.radius {
		return 0
	}
	col := residueIndex[residue]
	if col < 0 {
		return 0
	}
	return m.weights[pos+m.radius][col]
}

// Weights returns a copy of the non-zero cells, keyed like NewKinaseMatrix input.
func (m *KinaseMatrix) Weights() map[int]map[byte]float64 {
	out := make(map[int]map[byte]float64)
	for i, row := range m.weights {
		for col, w := range row {
			if w == 0 {
				continue
			}
			pos := i - m.radius
			if out[pos] == nil {
				out[pos] = make(map[byte]float64)
			}
			out[pos][Residues[col]] = w
		}
	}
	return out
}

// Positions lists the covered relative positions in ascending order
func (m *KinaseMatrix) Positions() []int {
	positions := make([]int, 0, len(m.weights))
	for pos := -m.radius; pos <= m.radius; pos++ {
		positions = append(positions, pos)
	}
	return positions
}
