package enrichment

import (
	"encoding/json"
	"math"
	"sort"

	"kinlib/domain/core"
	"kinlib/domain/substrate"
)

// Direction of an enrichment result
type Direction int

const (
	DirectionNone Direction = iota
	Positive
	Negative
)

func (d Direction) String() string {
	switch d {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return ""
	}
}

// MarshalJSON writes the direction name
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// DirectionOf returns the direction of a signed effect. Zero is positive.
func DirectionOf(effect float64) Direction {
	if math.IsNaN(effect) {
		return DirectionNone
	}
	if effect < 0 {
		return Negative
	}
	return Positive
}

// Mode identifies which test produced a report
type Mode string

const (
	ModeTwoGroup     Mode = "two_group"
	ModeRankedList   Mode = "ranked_list"
	ModeDifferential Mode = "differential"
)

// Contingency is the 2x2 table of the two-group test
type Contingency struct {
	ForegroundHits  int `json:"foreground_hits"`
	ForegroundTotal int `json:"foreground_total"`
	BackgroundHits  int `json:"background_hits"`
	BackgroundTotal int `json:"background_total"`
}

// ForegroundMisses returns foreground substrates that did not match
func (c Contingency) ForegroundMisses() int { return c.ForegroundTotal - c.ForegroundHits }

// BackgroundMisses returns background substrates that did not match
func (c Contingency) BackgroundMisses() int { return c.BackgroundTotal - c.BackgroundHits }

// Hits returns matches across both groups
func (c Contingency) Hits() int { return c.ForegroundHits + c.BackgroundHits }

// Total returns substrates across both groups
func (c Contingency) Total() int { return c.ForegroundTotal + c.BackgroundTotal }

// Result is one kinase's enrichment outcome. A non-nil Err marks an NA row
// whose numeric fields are NaN.
type Result struct {
	Kinase    core.KinaseID   `json:"kinase"`
	Type      core.KinaseType `json:"-"`
	ES        float64         `json:"es"`
	NES       float64         `json:"nes"`
	PValue    float64         `json:"p_value"`
	QValue    float64         `json:"q_value"`
	Direction Direction       `json:"direction"`

	// Two-group fields
	Table               *Contingency `json:"table,omitempty"`
	OddsRatio           float64      `json:"odds_ratio,omitempty"`
	Log2FrequencyFactor float64      `json:"log2_frequency_factor,omitempty"`

	// Ranked-list fields
	HitCount    int                `json:"hit_count,omitempty"`
	LeadingEdge []core.SubstrateID `json:"leading_edge,omitempty"`

	Err error `json:"-"`
}

// NAResult builds a degraded row for a kinase whose computation failed
func NAResult(kinase core.KinaseID, t core.KinaseType, err error) Result {
	nan := math.NaN()
	return Result{
		Kinase: kinase,
		Type:   t,
		ES:     nan,
		NES:    nan,
		PValue: nan,
		QValue: nan,
		Err:    err,
	}
}

// MarshalJSON writes NaN fields of NA rows as null and adds the error text
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		Type   string   `json:"type"`
		ES     *float64 `json:"es"`
		NES    *float64 `json:"nes"`
		PValue *float64 `json:"p_value"`
		QValue *float64 `json:"q_value"`
		Error  string   `json:"error,omitempty"`
	}{
		plain:  plain(r),
		Type:   r.Type.String(),
		ES:     finite(r.ES),
		NES:    finite(r.NES),
		PValue: finite(r.PValue),
		QValue: finite(r.QValue),
		Error:  errString(r.Err),
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// OK reports whether the row holds a computed result
func (r Result) OK() bool {
	return r.Err == nil
}

// Section holds the results of one kinase type
type Section struct {
	Type     core.KinaseType       `json:"-"`
	Results  []Result              `json:"results"`
	Excluded []substrate.Exclusion `json:"excluded,omitempty"`
}

// Report combines the per-type sections of one analysis run. Sections are
// named fields; Section selects them by the KinaseType tag.
type Report struct {
	RunID        core.RunID `json:"run_id"`
	Mode         Mode       `json:"mode"`
	Criterion    string     `json:"criterion"`
	Seed         int64      `json:"seed,omitempty"`
	Permutations int        `json:"permutations,omitempty"`

	SerThr   *Section `json:"ser_thr,omitempty"`
	Tyrosine *Section `json:"tyrosine,omitempty"`

	Combined []Result `json:"combined"`
	// Excluded lists input sites rejected before a kinase type could be
	// assigned, such as unparseable peptides
	Excluded []substrate.Exclusion `json:"excluded,omitempty"`
}

// Section returns the section for t, or nil
func (r *Report) Section(t core.KinaseType) *Section {
	switch t {
	case core.SerThr:
		return r.SerThr
	case core.Tyrosine:
		return r.Tyrosine
	default:
		return nil
	}
}

// SetSection stores s under its kinase type
func (r *Report) SetSection(s *Section) {
	switch s.Type {
	case core.SerThr:
		r.SerThr = s
	case core.Tyrosine:
		r.Tyrosine = s
	}
}

// Sections returns the populated sections in type order
func (r *Report) Sections() []*Section {
	var out []*Section
	for _, t := range core.KinaseTypes {
		if s := r.Section(t); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Combine unions every section's rows into Combined, sorted by significance
func (r *Report) Combine() {
	r.Combined = r.Combined[:0]
	for _, s := range r.Sections() {
		r.Combined = append(r.Combined, s.Results...)
	}
	SortResults(r.Combined)
}

// SortResults orders rows ascending by q-value, then p-value, then kinase
// name. NA rows go last, by name.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.OK() != b.OK() {
			return a.OK()
		}
		if a.OK() {
			if a.QValue != b.QValue {
				return a.QValue < b.QValue
			}
			if a.PValue != b.PValue {
				return a.PValue < b.PValue
			}
		}
		if a.Kinase != b.Kinase {
			return a.Kinase < b.Kinase
		}
		return a.Type < b.Type
	})
}
