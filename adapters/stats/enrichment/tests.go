package enrichment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"

	"kinlib/domain/enrichment"
)

// Alternative selects the tail of the two-group test
type Alternative int

const (
	// Greater tests over-representation in the foreground
	Greater Alternative = iota
	// Less tests depletion in the foreground
	Less
	// TwoSided tests either
	TwoSided
)

func (a Alternative) String() string {
	switch a {
	case Greater:
		return "greater"
	case Less:
		return "less"
	case TwoSided:
		return "two-sided"
	default:
		return fmt.Sprintf("Alternative(%d)", int(a))
	}
}

// ParseAlternative parses greater, less or two-sided
func ParseAlternative(s string) (Alternative, error) {
	switch s {
	case "", "greater":
		return Greater, nil
	case "less":
		return Less, nil
	case "two-sided", "two_sided":
		return TwoSided, nil
	}
	return 0, fmt.Errorf("unknown alternative %q", s)
}

// TestMethod selects the contingency table test
type TestMethod int

const (
	// Exact is Fisher's exact test
	Exact TestMethod = iota
	// ChiSquare is Pearson's chi-square test with Yates correction
	ChiSquare
)

func (m TestMethod) String() string {
	switch m {
	case Exact:
		return "exact"
	case ChiSquare:
		return "chi2"
	default:
		return fmt.Sprintf("TestMethod(%d)", int(m))
	}
}

// ParseTestMethod parses exact or chi2
func ParseTestMethod(s string) (TestMethod, error) {
	switch s {
	case "", "exact", "fisher":
		return Exact, nil
	case "chi2", "chi-square", "chisquare":
		return ChiSquare, nil
	}
	return 0, fmt.Errorf("unknown test method %q", s)
}

// OddsRatio returns (a*d)/(b*c), adding 0.5 to every cell when any is zero
func OddsRatio(c enrichment.Contingency) float64 {
	a := float64(c.ForegroundHits)
	b := float64(c.ForegroundMisses())
	cc := float64(c.BackgroundHits)
	d := float64(c.BackgroundMisses())
	if a == 0 || b == 0 || cc == 0 || d == 0 {
		a, b, cc, d = a+0.5, b+0.5, cc+0.5, d+0.5
	}
	return (a * d) / (b * cc)
}

// FrequencyFactor is the foreground hit rate over the background hit rate,
// pseudo-counted so empty groups stay finite.
func FrequencyFactor(c enrichment.Contingency) float64 {
	fg := (float64(c.ForegroundHits) + 0.5) / (float64(c.ForegroundTotal) + 1)
	bg := (float64(c.BackgroundHits) + 0.5) / (float64(c.BackgroundTotal) + 1)
	return fg / bg
}

// FisherExact returns the hypergeometric p-value of the foreground hit count
func FisherExact(c enrichment.Contingency, alt Alternative) float64 {
	n := c.Total()
	k := c.Hits()
	draws := c.ForegroundTotal
	x := c.ForegroundHits
	if k == 0 || k == n || draws == 0 || draws == n {
		return 1
	}

	lo := max(0, draws-(n-k))
	hi := min(draws, k)
	logDenom := combin.LogGeneralizedBinomial(float64(n), float64(draws))
	pmf := func(i int) float64 {
		return math.Exp(combin.LogGeneralizedBinomial(float64(k), float64(i)) +
			combin.LogGeneralizedBinomial(float64(n-k), float64(draws-i)) - logDenom)
	}

	var p float64
	switch alt {
	case Greater:
		for i := x; i <= hi; i++ {
			p += pmf(i)
		}
	case Less:
		for i := lo; i <= x; i++ {
			p += pmf(i)
		}
	case TwoSided:
		observed := pmf(x) * (1 + 1e-7)
		for i := lo; i <= hi; i++ {
			if v := pmf(i); v <= observed {
				p += v
			}
		}
	}
	return clamp01(p)
}

// ChiSquareTest returns the Yates corrected chi-square p-value with one
// degree of freedom. One-sided alternatives halve the tail in the direction
// of the observed effect.
func ChiSquareTest(c enrichment.Contingency, alt Alternative) float64 {
	a := float64(c.ForegroundHits)
	b := float64(c.ForegroundMisses())
	cc := float64(c.BackgroundHits)
	d := float64(c.BackgroundMisses())
	n := a + b + cc + d
	margins := (a + b) * (cc + d) * (a + cc) * (b + d)
	if margins == 0 {
		return 1
	}

	diff := math.Abs(a*d-b*cc) - n/2
	if diff < 0 {
		diff = 0
	}
	stat := n * diff * diff / margins
	twoSided := distuv.ChiSquared{K: 1}.Survival(stat)

	enriched := a*d > b*cc
	switch alt {
	case Greater:
		if enriched {
			return clamp01(twoSided / 2)
		}
		return clamp01(1 - twoSided/2)
	case Less:
		if enriched {
			return clamp01(1 - twoSided/2)
		}
		return clamp01(twoSided / 2)
	default:
		return clamp01(twoSided)
	}
}
