// Package kinasedata reads kinase matrices, background score populations and
// phosphosite tables from files and writes score tables and reports.
package kinasedata

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"kinlib/adapters/excel"
	"kinlib/domain/core"
	"kinlib/domain/kinase"
	"kinlib/ports"
)

// Column names of the long matrix format
const (
	ColumnKinase   = "kinase"
	ColumnPosition = "position"
	ColumnResidue  = "residue"
	ColumnWeight   = "weight"
)

// WeightScale tells how the weight column of a matrix file is expressed
type WeightScale int

const (
	// Log2Weights are used as read
	Log2Weights WeightScale = iota
	// LinearWeights are positive probabilities or odds, log2-transformed on load
	LinearWeights
)

// ParseWeightScale parses log2 or linear
func ParseWeightScale(s string) (WeightScale, error) {
	switch s {
	case "", "log2":
		return Log2Weights, nil
	case "linear":
		return LinearWeights, nil
	}
	return 0, fmt.Errorf("unknown weight scale %q (log2 or linear)", s)
}

func (s WeightScale) String() string {
	if s == LinearWeights {
		return "linear"
	}
	return "log2"
}

// FileSource loads matrices and backgrounds from one file per kinase type
type FileSource struct {
	Matrices    map[core.KinaseType]string
	Backgrounds map[core.KinaseType]string
	// Scale of the matrix weight columns
	Scale WeightScale
}

// LoadMatrices implements ports.MatrixSource
func (s *FileSource) LoadMatrices(ctx context.Context, t core.KinaseType) ([]*kinase.KinaseMatrix, error) {
	path, ok := s.Matrices[t]
	if !ok || path == "" {
		return nil, fmt.Errorf("%w: no %s matrix file configured", core.ErrMissingLibrary, t)
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMatrices(data, t, s.Scale)
}

// LoadBackgrounds implements ports.BackgroundSource
func (s *FileSource) LoadBackgrounds(ctx context.Context, t core.KinaseType) (map[core.KinaseID][]float64, error) {
	path, ok := s.Backgrounds[t]
	if !ok || path == "" {
		return nil, fmt.Errorf("%w: no %s background file configured", core.ErrMissingBackground, t)
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBackgrounds(data)
}

// ParseMatrices reads the long format: one kinase, position, residue and
// weight per row. Linear weights must be positive and are stored as log2.
// A kinase's radius is its largest |position|.
func ParseMatrices(data *excel.ExcelData, t core.KinaseType, scale WeightScale) ([]*kinase.KinaseMatrix, error) {
	for _, col := range []string{ColumnKinase, ColumnPosition, ColumnResidue, ColumnWeight} {
		if !data.HasColumn(col) {
			return nil, fmt.Errorf("%w: missing column %q", core.ErrInvalidMatrix, col)
		}
	}

	var order []core.KinaseID
	weights := make(map[core.KinaseID]map[int]map[byte]float64)
	radius := make(map[core.KinaseID]int)
	for i, row := range data.Rows {
		id, err := core.ParseKinaseID(row[ColumnKinase])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", core.ErrInvalidMatrix, i+2, err)
		}
		pos, err := strconv.Atoi(row[ColumnPosition])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: position %q", core.ErrInvalidMatrix, i+2, row[ColumnPosition])
		}
		residue := row[ColumnResidue]
		if len(residue) != 1 {
			return nil, fmt.Errorf("%w: row %d: residue %q", core.ErrInvalidMatrix, i+2, residue)
		}
		w, ok, err := data.Float(i, ColumnWeight)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidMatrix, err)
		}
		if !ok {
			continue
		}
		if scale == LinearWeights {
			if w <= 0 {
				return nil, fmt.Errorf("%w: row %d: linear weight %v must be positive", core.ErrInvalidMatrix, i+2, w)
			}
			w = math.Log2(w)
		}

		if _, seen := weights[id]; !seen {
			order = append(order, id)
			weights[id] = make(map[int]map[byte]float64)
		}
		if weights[id][pos] == nil {
			weights[id][pos] = make(map[byte]float64)
		}
		weights[id][pos][residue[0]] = w
		radius[id] = max(radius[id], abs(pos))
	}

	matrices := make([]*kinase.KinaseMatrix, 0, len(order))
	for _, id := range order {
		m, err := kinase.NewKinaseMatrix(id, t, radius[id], weights[id])
		if err != nil {
			return nil, err
		}
		matrices = append(matrices, m)
	}
	return matrices, nil
}

// ParseBackgrounds reads the wide format: one column per kinase, one
// background score per row. Blank cells are skipped.
func ParseBackgrounds(data *excel.ExcelData) (map[core.KinaseID][]float64, error) {
	out := make(map[core.KinaseID][]float64, len(data.Headers))
	for _, header := range data.Headers {
		if header == "" {
			continue
		}
		id, err := core.ParseKinaseID(header)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", core.ErrInvalidBackground, header, err)
		}
		values := make([]float64, 0, len(data.Rows))
		for i := range data.Rows {
			v, ok, err := data.Float(i, header)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", core.ErrInvalidBackground, err)
			}
			if ok {
				values = append(values, v)
			}
		}
		out[id] = values
	}
	return out, nil
}

// Load builds the library and background index for the given types
func Load(ctx context.Context, matrices ports.MatrixSource, backgrounds ports.BackgroundSource,
	types []core.KinaseType) (*kinase.Library, *kinase.BackgroundIndex, error) {
	var all []*kinase.KinaseMatrix
	populations := make(map[core.KinaseID][]float64)
	for _, t := range types {
		ms, err := matrices.LoadMatrices(ctx, t)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s matrices: %w", t, err)
		}
		all = append(all, ms...)

		bg, err := backgrounds.LoadBackgrounds(ctx, t)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s backgrounds: %w", t, err)
		}
		for id, v := range bg {
			populations[id] = v
		}
	}

	lib, err := kinase.NewLibrary(all...)
	if err != nil {
		return nil, nil, err
	}
	index, err := kinase.NewBackgroundIndex(populations)
	if err != nil {
		return nil, nil, err
	}
	return lib, index, nil
}

func readFile(path string) (*excel.ExcelData, error) {
	r, err := excel.NewDataReader(path)
	if err != nil {
		return nil, err
	}
	return r.ReadData()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
