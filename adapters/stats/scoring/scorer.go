// Package scoring scores substrates against kinase matrices and places the
// scores within the background populations and among competing kinases.
package scoring

import (
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"

	"kinlib/domain/core"
	"kinlib/domain/kinase"
	"kinlib/domain/substrate"
)

// Options controls scoring and reporting precision
type Options struct {
	// CenterFavorability adds the matrix weight of the (upper-cased) center
	// residue at position 0 to the flanking sum.
	CenterFavorability bool
	// ScoreDecimals rounds scores; negative leaves them unrounded.
	ScoreDecimals int
	// PercentileDecimals rounds percentiles; negative leaves them unrounded.
	PercentileDecimals int
}

// DefaultOptions rounds scores to 4 and percentiles to 2 decimals
func DefaultOptions() Options {
	return Options{ScoreDecimals: 4, PercentileDecimals: 2}
}

// Score sums the matrix weights of every non-center window position. Padding
// and unknown residues weigh zero. Score is pure: identical inputs always
// produce identical output.
func Score(sub substrate.Substrate, m *kinase.KinaseMatrix, opts Options) (float64, error) {
	if m.Radius() > substrate.WindowRadius {
		return 0, core.NewMalformedSubstrateError(sub.ID,
			fmt.Sprintf("window radius %d shorter than %s matrix radius %d", substrate.WindowRadius, m.ID(), m.Radius()))
	}
	if err := sub.CheckType(m.ID(), m.Type()); err != nil {
		return 0, err
	}

	total := 0.0
	for pos := -m.Radius(); pos <= m.Radius(); pos++ {
		if pos == 0 {
			continue
		}
		total += m.Weight(pos, sub.At(pos))
	}
	if opts.CenterFavorability {
		total += m.Weight(0, upper(sub.Center()))
	}
	return round(total, opts.ScoreDecimals), nil
}

func round(v float64, decimals int) float64 {
	if decimals < 0 {
		return v
	}
	return scalar.Round(v, decimals)
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
