package kinase

import (
	"fmt"
	"sort"

	"kinlib/domain/core"
)

// Library is the immutable collection of kinase matrices, partitioned by
// kinase type. Safe for concurrent reads.
type Library struct {
	matrices map[core.KinaseID]*KinaseMatrix
	byType   map[core.KinaseType][]core.KinaseID
}

// NewLibrary indexes matrices by id and type. Duplicate ids are rejected.
func NewLibrary(matrices ...*KinaseMatrix) (*Library, error) {
	lib := &Library{
		matrices: make(map[core.KinaseID]*KinaseMatrix, len(matrices)),
		byType:   make(map[core.KinaseType][]core.KinaseID),
	}
	for _, m := range matrices {
		if m == nil {
			return nil, fmt.Errorf("%w: nil matrix", core.ErrInvalidMatrix)
		}
		if _, dup := lib.matrices[m.ID()]; dup {
			return nil, fmt.Errorf("%w: duplicate kinase %s", core.ErrInvalidMatrix, m.ID())
		}
		lib.matrices[m.ID()] = m
		lib.byType[m.Type()] = append(lib.byType[m.Type()], m.ID())
	}
	for _, ids := range lib.byType {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return lib, nil
}

// Len returns the number of kinases across all types
func (l *Library) Len() int {
	return len(l.matrices)
}

// Load returns the matrices of one kinase type. The map is a copy; the
// matrices are shared.
func (l *Library) Load(t core.KinaseType) map[core.KinaseID]*KinaseMatrix {
	out := make(map[core.KinaseID]*KinaseMatrix, len(l.byType[t]))
	for _, id := range l.byType[t] {
		out[id] = l.matrices[id]
	}
	return out
}

// Kinases lists the kinase ids of one type in sorted order
func (l *Library) Kinases(t core.KinaseType) []core.KinaseID {
	return append([]core.KinaseID(nil), l.byType[t]...)
}

// Types lists the kinase types present in the library
func (l *Library) Types() []core.KinaseType {
	var types []core.KinaseType
	for _, t := range core.KinaseTypes {
		if len(l.byType[t]) > 0 {
			types = append(types, t)
		}
	}
	return types
}

// Get returns the matrix for id
func (l *Library) Get(id core.KinaseID) (*KinaseMatrix, error) {
	m, ok := l.matrices[id]
	if !ok {
		return nil, core.NewUnknownKinaseError(id)
	}
	return m, nil
}

// GetTyped returns the matrix for id, failing when it belongs to another type
func (l *Library) GetTyped(id core.KinaseID, t core.KinaseType) (*KinaseMatrix, error) {
	m, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	if m.Type() != t {
		return nil, fmt.Errorf("%w %s (is %s, wanted %s)", core.ErrUnknownKinase, id, m.Type(), t)
	}
	return m, nil
}

// Resolve returns the matrices for ids in the given order, or every kinase of
// type t when ids is empty.
func (l *Library) Resolve(ids []core.KinaseID, t core.KinaseType) ([]*KinaseMatrix, error) {
	if len(ids) == 0 {
		ids = l.byType[t]
	}
	out := make([]*KinaseMatrix, 0, len(ids))
	for _, id := range ids {
		m, err := l.GetTyped(id, t)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
