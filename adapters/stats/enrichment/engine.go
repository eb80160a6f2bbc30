// Package enrichment tests whether a kinase's favoured substrates are
// over-represented in a foreground set or at the top of a ranked list.
package enrichment

import (
	"kinlib/adapters/stats/batch"
	"kinlib/domain/core"
	"kinlib/domain/substrate"
	"kinlib/internal"
	"kinlib/ports"
)

// Engine runs enrichment tests for one kinase type at a time
type Engine struct {
	processor *batch.Processor
	rng       ports.RNGPort
	logger    *internal.Logger
}

// NewEngine creates an enrichment engine. rng is only needed by MEA.
func NewEngine(processor *batch.Processor, rng ports.RNGPort) *Engine {
	return &Engine{
		processor: processor,
		rng:       rng,
		logger:    internal.DefaultLogger.Component("Enrichment"),
	}
}

// Processor returns the batch processor scoring the substrates
func (e *Engine) Processor() *batch.Processor { return e.processor }

// KinasesOfType keeps the ids of type t, or every kinase of t when ids is
// empty. Unknown ids fail.
func (e *Engine) KinasesOfType(ids []core.KinaseID, t core.KinaseType) ([]core.KinaseID, error) {
	lib := e.processor.Engine().Library()
	if len(ids) == 0 {
		return lib.Kinases(t), nil
	}
	var out []core.KinaseID
	for _, id := range ids {
		m, err := lib.Get(id)
		if err != nil {
			return nil, err
		}
		if m.Type() == t {
			out = append(out, id)
		}
	}
	return out, nil
}

// OfType returns the substrates whose center residue belongs to t
func OfType(subs []substrate.Substrate, t core.KinaseType) []substrate.Substrate {
	out := make([]substrate.Substrate, 0, len(subs))
	for _, s := range subs {
		if !s.IsZero() && s.Type() == t {
			out = append(out, s)
		}
	}
	return out
}
