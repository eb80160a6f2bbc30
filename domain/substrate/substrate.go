// Package substrate models fixed-length peptide windows centered on a phospho-site.
package substrate

import (
	"fmt"
	"strings"

	"kinlib/domain/core"
)

const (
	// WindowRadius is the number of residues kept on each side of the site.
	WindowRadius = 7
	// WindowLength is the full window length including the site.
	WindowLength = 2*WindowRadius + 1
	// Padding fills positions beyond the ends of the protein sequence.
	Padding byte = '_'
)

// Options controls residue normalization
type Options struct {
	// PhosphoPriming keeps lower-case s/t/y at flanking positions as phosphorylated
	// residues. Otherwise every flanking residue is upper-cased.
	PhosphoPriming bool
}

// Substrate is an immutable, validated peptide window. The center residue is
// always a lower-case phospho-acceptor.
type Substrate struct {
	ID     core.SubstrateID
	window string
	kind   core.KinaseType
}

// New validates and normalizes an exact-length window.
func New(id core.SubstrateID, window string, opts Options) (Substrate, error) {
	if len(window) != WindowLength {
		return Substrate{}, core.NewMalformedSubstrateError(id,
			fmt.Sprintf("window length %d, expected %d", len(window), WindowLength))
	}

	buf := make([]byte, WindowLength)
	for i := 0; i < WindowLength; i++ {
		c, err := normalizeResidue(window[i], i == WindowRadius, opts)
		if err != nil {
			return Substrate{}, core.NewMalformedSubstrateError(id, err.Error())
		}
		buf[i] = c
	}

	kind, err := core.TypeForCenter(buf[WindowRadius])
	if err != nil {
		return Substrate{}, core.NewMalformedSubstrateError(id,
			fmt.Sprintf("center residue %q is not S, T or Y", buf[WindowRadius]))
	}

	if id == "" {
		id = core.SubstrateID(string(buf))
	}
	return Substrate{ID: id, window: string(buf), kind: kind}, nil
}

// FromSequence cuts a window around the 1-based position phosPos of sequence,
// padding with '_' where the window runs past either end.
func FromSequence(id core.SubstrateID, sequence string, phosPos int, opts Options) (Substrate, error) {
	if phosPos < 1 || phosPos > len(sequence) {
		return Substrate{}, core.NewMalformedSubstrateError(id,
			fmt.Sprintf("phospho position %d outside sequence of length %d", phosPos, len(sequence)))
	}

	site := phosPos - 1
	var b strings.Builder
	b.Grow(WindowLength)
	for offset := -WindowRadius; offset <= WindowRadius; offset++ {
		pos := site + offset
		if pos < 0 || pos >= len(sequence) {
			b.WriteByte(Padding)
			continue
		}
		b.WriteByte(sequence[pos])
	}
	return New(id, b.String(), opts)
}

// Parse accepts either a full window whose center is the site, or a peptide of
// any length marking the site with a trailing '*' (e.g. "PLs*QE").
func Parse(id core.SubstrateID, peptide string, opts Options) (Substrate, error) {
	peptide = strings.TrimSpace(peptide)
	switch strings.Count(peptide, "*") {
	case 0:
		return New(id, peptide, opts)
	case 1:
		marker := strings.IndexByte(peptide, '*')
		if marker == 0 {
			return Substrate{}, core.NewMalformedSubstrateError(id, "site marker '*' has no residue before it")
		}
		return FromSequence(id, strings.Replace(peptide, "*", "", 1), marker, opts)
	default:
		return Substrate{}, core.NewMalformedSubstrateError(id, "more than one site marker '*'")
	}
}

// Window returns the normalized window
func (s Substrate) Window() string {
	return s.window
}

// Center returns the phospho-acceptor residue (lower case)
func (s Substrate) Center() byte {
	return s.window[WindowRadius]
}

// At returns the residue at a relative offset from the site. Offsets outside
// the window read as padding.
func (s Substrate) At(offset int) byte {
	i := WindowRadius + offset
	if i < 0 || i >= len(s.window) {
		return Padding
	}
	return s.window[i]
}

// Type returns the kinase type eligible to phosphorylate this site
func (s Substrate) Type() core.KinaseType {
	return s.kind
}

// IsZero reports whether s was never constructed
func (s Substrate) IsZero() bool {
	return s.window == ""
}

// CheckType fails with ErrTypeMismatch when kinases of type t cannot
// phosphorylate this site.
func (s Substrate) CheckType(kinase core.KinaseID, t core.KinaseType) error {
	if s.IsZero() {
		return core.NewMalformedSubstrateError(s.ID, "empty substrate")
	}
	if !t.Accepts(s.Center()) {
		return core.NewTypeMismatchError(kinase, t, s.Center())
	}
	return nil
}

func (s Substrate) String() string {
	return s.window
}

func normalizeResidue(c byte, center bool, opts Options) (byte, error) {
	switch {
	case c == Padding || c == '-':
		if center {
			return 0, fmt.Errorf("center residue is padding")
		}
		return Padding, nil
	case c >= 'a' && c <= 'z':
		if center {
			return c, nil
		}
		if opts.PhosphoPriming && (c == 's' || c == 't' || c == 'y') {
			return c, nil
		}
		return c - ('a' - 'A'), nil
	case c >= 'A' && c <= 'Z':
		if center {
			return c + ('a' - 'A'), nil
		}
		return c, nil
	default:
		return 0, fmt.Errorf("invalid residue %q", c)
	}
}

// Exclusion records a substrate dropped from a batch and why
type Exclusion struct {
	Substrate core.SubstrateID `json:"substrate"`
	Reason    string           `json:"reason"`
}
