package core

import (
	"fmt"
	"strings"
)

// KinaseType partitions kinases by the residue they phosphorylate.
type KinaseType int

const (
	SerThr KinaseType = iota + 1
	Tyrosine
)

// KinaseTypes lists every kinase type in report order.
var KinaseTypes = []KinaseType{SerThr, Tyrosine}

func (t KinaseType) String() string {
	switch t {
	case SerThr:
		return "ser_thr"
	case Tyrosine:
		return "tyrosine"
	default:
		return fmt.Sprintf("kinase_type(%d)", int(t))
	}
}

// Valid reports whether t is one of the known kinase types
func (t KinaseType) Valid() bool {
	return t == SerThr || t == Tyrosine
}

// CenterResidues returns the lower-case phospho-acceptor residues for t
func (t KinaseType) CenterResidues() []byte {
	switch t {
	case SerThr:
		return []byte{'s', 't'}
	case Tyrosine:
		return []byte{'y'}
	default:
		return nil
	}
}

// Accepts reports whether residue is a valid center residue for t. Case-insensitive.
func (t KinaseType) Accepts(residue byte) bool {
	r := toLower(residue)
	for _, c := range t.CenterResidues() {
		if c == r {
			return true
		}
	}
	return false
}

// TypeForCenter maps a center residue to the kinase type that phosphorylates it.
func TypeForCenter(residue byte) (KinaseType, error) {
	switch toLower(residue) {
	case 's', 't':
		return SerThr, nil
	case 'y':
		return Tyrosine, nil
	default:
		return 0, fmt.Errorf("%w: center residue %q is not a phospho-acceptor", ErrMalformedSubstrate, residue)
	}
}

// ParseKinaseType accepts "ser_thr", "serthr", "st", "tyrosine", "tyr" or "y".
func ParseKinaseType(s string) (KinaseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ser_thr", "serthr", "ser/thr", "st":
		return SerThr, nil
	case "tyrosine", "tyr", "y":
		return Tyrosine, nil
	default:
		return 0, fmt.Errorf("unknown kinase type %q", s)
	}
}

// ParseKinaseTypes parses a list of kinase types. An empty list selects every type.
func ParseKinaseTypes(names []string) ([]KinaseType, error) {
	if len(names) == 0 {
		return append([]KinaseType(nil), KinaseTypes...), nil
	}
	types := make([]KinaseType, 0, len(names))
	seen := make(map[KinaseType]bool)
	for _, name := range names {
		t, err := ParseKinaseType(name)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	return types, nil
}

func toLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
