package app

import (
	"context"
	"errors"
	"fmt"
	"math"

	"kinlib/adapters/stats/enrichment"
	"kinlib/domain/core"
	domain "kinlib/domain/enrichment"
	"kinlib/domain/substrate"
	"kinlib/internal"
)

// EnrichmentService runs enrichment tests per kinase type and merges the
// sections into one report
type EnrichmentService struct {
	engine *enrichment.Engine
	logger *internal.Logger
}

// NewEnrichmentService creates an enrichment service
func NewEnrichmentService(engine *enrichment.Engine) *EnrichmentService {
	return &EnrichmentService{
		engine: engine,
		logger: internal.DefaultLogger.Component("EnrichmentService"),
	}
}

// TwoGroupRequest defines a foreground versus background comparison
type TwoGroupRequest struct {
	Foreground []substrate.Substrate
	Background []substrate.Substrate
	Kinases    []core.KinaseID   // empty tests every kinase
	Types      []core.KinaseType // empty tests every loaded type
	Criterion  core.Criterion
	Options    enrichment.TwoGroupOptions
}

// RankedListRequest defines a ranked-list (MEA) run
type RankedListRequest struct {
	List      domain.RankedList
	Kinases   []core.KinaseID
	Types     []core.KinaseType
	Criterion core.Criterion
	Options   enrichment.MEAOptions
}

// DifferentialRequest defines a differential phosphorylation run. Sites
// with LogFC >= LogFCThreshold are upregulated, LogFC <= -LogFCThreshold
// downregulated. A positive PValueThreshold also requires PValue at or below
// it. The rest are unchanged and form the background unless
// BackgroundAll is set.
type DifferentialRequest struct {
	Sites           []domain.DifferentialSite
	LogFCThreshold  float64
	PValueThreshold float64
	BackgroundAll   bool
	Kinases         []core.KinaseID
	Types           []core.KinaseType
	Criterion       core.Criterion
	Options         enrichment.TwoGroupOptions
}

// TwoGroup runs the two-group test for every requested kinase type. Types
// with no foreground or background sites are skipped.
func (s *EnrichmentService) TwoGroup(ctx context.Context, req TwoGroupRequest) (*domain.Report, error) {
	report := s.newReport(domain.ModeTwoGroup, req.Criterion)
	for _, t := range s.types(req.Types) {
		ids, err := s.kinases(req.Kinases, t)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			continue
		}
		fg, bg := enrichment.OfType(req.Foreground, t), enrichment.OfType(req.Background, t)
		if len(fg) == 0 || len(bg) == 0 {
			s.logger.Warn("skipping %s: %d foreground, %d background sites", t, len(fg), len(bg))
			continue
		}
		section, err := s.engine.TwoGroup(ctx, t, fg, bg, ids, req.Criterion, req.Options)
		if err != nil {
			return nil, fmt.Errorf("%s two-group: %w", t, err)
		}
		report.SetSection(section)
	}
	return s.finish(report)
}

// RankedList runs MEA for every requested kinase type with one shared seed
func (s *EnrichmentService) RankedList(ctx context.Context, req RankedListRequest) (*domain.Report, error) {
	if req.List.Len() == 0 {
		return nil, core.ErrEmptyRankedList
	}
	opts := req.Options
	seed := enrichment.ResolveSeed(opts.Seed)
	if opts.Seed == nil {
		s.logger.Info("no seed supplied, using %d", seed)
	}
	opts.Seed = &seed

	report := s.newReport(domain.ModeRankedList, req.Criterion)
	report.Seed = seed
	report.Permutations = opts.Permutations
	var failed error
	tested := 0
	for _, t := range s.types(req.Types) {
		ids, err := s.kinases(req.Kinases, t)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			continue
		}
		if req.List.ForType(t).Len() == 0 {
			s.logger.Warn("skipping %s: no sites in ranked list", t)
			continue
		}
		section, _, err := s.engine.MEA(ctx, t, req.List, ids, req.Criterion, opts)
		switch {
		case isTypeFailure(err):
			s.logger.Warn("%s MEA failed, reporting NA rows: %v", t, err)
			failed = fmt.Errorf("%s MEA: %w", t, err)
			section = naSection(t, ids, err)
		case err != nil:
			return nil, fmt.Errorf("%s MEA: %w", t, err)
		default:
			tested++
		}
		report.SetSection(section)
	}
	if tested == 0 && failed != nil {
		return nil, failed
	}
	return s.finish(report)
}

// isTypeFailure reports errors that sink one kinase type's run without
// saying anything about the other types
func isTypeFailure(err error) bool {
	return errors.Is(err, core.ErrDegenerateStatistic) || errors.Is(err, core.ErrEmptyRankedList)
}

// naSection reports every kinase of a failed type as an NA row
func naSection(t core.KinaseType, ids []core.KinaseID, err error) *domain.Section {
	section := &domain.Section{Type: t}
	for _, id := range ids {
		section.Results = append(section.Results, domain.NAResult(id, t, err))
	}
	return section
}

// Differential tests upregulated and downregulated sites separately against
// the background and keeps, per kinase, the more significant side.
func (s *EnrichmentService) Differential(ctx context.Context, req DifferentialRequest) (*domain.Report, error) {
	if req.LogFCThreshold < 0 || math.IsNaN(req.LogFCThreshold) {
		return nil, fmt.Errorf("log fold change threshold must be >= 0, got %v", req.LogFCThreshold)
	}
	up, down, unchanged := SplitDifferential(req.Sites, req.LogFCThreshold, req.PValueThreshold)
	background := unchanged
	if req.BackgroundAll {
		background = make([]substrate.Substrate, 0, len(req.Sites))
		for _, site := range req.Sites {
			background = append(background, site.Substrate)
		}
	}
	s.logger.Info("differential split: %d up, %d down, %d background", len(up), len(down), len(background))

	report := s.newReport(domain.ModeDifferential, req.Criterion)
	for _, t := range s.types(req.Types) {
		ids, err := s.kinases(req.Kinases, t)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			continue
		}
		upT, downT, bgT := enrichment.OfType(up, t), enrichment.OfType(down, t), enrichment.OfType(background, t)
		if len(bgT) == 0 || len(upT)+len(downT) == 0 {
			s.logger.Warn("skipping %s: %d up, %d down, %d background sites", t, len(upT), len(downT), len(bgT))
			continue
		}

		var upSec, downSec *domain.Section
		if len(upT) > 0 {
			if upSec, err = s.engine.TwoGroup(ctx, t, upT, bgT, ids, req.Criterion, req.Options); err != nil {
				return nil, fmt.Errorf("%s upregulated: %w", t, err)
			}
		}
		if len(downT) > 0 {
			if downSec, err = s.engine.TwoGroup(ctx, t, downT, bgT, ids, req.Criterion, req.Options); err != nil {
				return nil, fmt.Errorf("%s downregulated: %w", t, err)
			}
		}
		report.SetSection(mergeDifferential(t, upSec, downSec))
	}
	return s.finish(report)
}

// SplitDifferential partitions sites into upregulated, downregulated and
// unchanged substrates.
func SplitDifferential(sites []domain.DifferentialSite, logFC, pvalue float64) (up, down, unchanged []substrate.Substrate) {
	for _, site := range sites {
		significant := pvalue <= 0 || (!math.IsNaN(site.PValue) && site.PValue <= pvalue)
		switch {
		case significant && site.LogFC >= logFC && site.LogFC > 0:
			up = append(up, site.Substrate)
		case significant && site.LogFC <= -logFC && site.LogFC < 0:
			down = append(down, site.Substrate)
		default:
			unchanged = append(unchanged, site.Substrate)
		}
	}
	return up, down, unchanged
}

// mergeDifferential keeps the more significant side per kinase. Down rows
// flip their effect sign so depletion toward downregulated sites reads as
// negative activity.
func mergeDifferential(t core.KinaseType, up, down *domain.Section) *domain.Section {
	out := &domain.Section{Type: t}
	index := make(map[core.KinaseID]int)
	add := func(r domain.Result) {
		if i, ok := index[r.Kinase]; ok {
			if better(r, out.Results[i]) {
				out.Results[i] = r
			}
			return
		}
		index[r.Kinase] = len(out.Results)
		out.Results = append(out.Results, r)
	}

	if up != nil {
		out.Excluded = append(out.Excluded, up.Excluded...)
		for _, r := range up.Results {
			r.Direction = domain.Positive
			add(r)
		}
	}
	if down != nil {
		out.Excluded = append(out.Excluded, down.Excluded...)
		for _, r := range down.Results {
			r.ES, r.NES = -r.ES, -r.NES
			r.Log2FrequencyFactor = -r.Log2FrequencyFactor
			r.Direction = domain.Negative
			add(r)
		}
	}
	return out
}

// better reports whether candidate is more significant than current. Ties
// keep current, so upregulated rows win ties.
func better(candidate, current domain.Result) bool {
	if candidate.OK() != current.OK() {
		return candidate.OK()
	}
	return candidate.PValue < current.PValue
}

// kinases resolves the requested kinases of type t. A type none of them
// belongs to is left out of the run.
func (s *EnrichmentService) kinases(requested []core.KinaseID, t core.KinaseType) ([]core.KinaseID, error) {
	ids, err := s.engine.KinasesOfType(requested, t)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		s.logger.Debug("skipping %s: no requested kinases of this type", t)
	}
	return ids, nil
}

func (s *EnrichmentService) types(requested []core.KinaseType) []core.KinaseType {
	if len(requested) > 0 {
		return requested
	}
	return s.engine.Processor().Engine().Library().Types()
}

func (s *EnrichmentService) newReport(mode domain.Mode, c core.Criterion) *domain.Report {
	return &domain.Report{
		RunID:     core.NewRunID(),
		Mode:      mode,
		Criterion: c.String(),
	}
}

// finish recomputes q-values over every kinase in the run and builds the
// combined view
func (s *EnrichmentService) finish(report *domain.Report) (*domain.Report, error) {
	sections := report.Sections()
	if len(sections) == 0 {
		return nil, core.ErrNoEligibleSites
	}

	var all []domain.Result
	for _, sec := range sections {
		all = append(all, sec.Results...)
	}
	enrichment.AssignQValues(all)
	i := 0
	for _, sec := range sections {
		copy(sec.Results, all[i:i+len(sec.Results)])
		i += len(sec.Results)
	}
	report.Combine()

	s.logger.Info("%s run %s: %d kinases across %d sections", report.Mode, report.RunID, len(report.Combined), len(sections))
	return report, nil
}
