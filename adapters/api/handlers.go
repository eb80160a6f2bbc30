package api

import (
	"fmt"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kinlib/adapters/stats/batch"
	"kinlib/adapters/stats/enrichment"
	"kinlib/app"
	"kinlib/domain/core"
	domain "kinlib/domain/enrichment"
	"kinlib/domain/substrate"
	"kinlib/internal/errors"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	lib := s.engine.Library()
	types := make([]string, 0, len(lib.Types()))
	for _, t := range lib.Types() {
		types = append(types, t.String())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"kinases": lib.Len(),
		"types":   types,
	})
}

func (s *Server) handleKinases(w http.ResponseWriter, r *http.Request) {
	t, err := core.ParseKinaseType(chi.URLParam(r, "type"))
	if err != nil {
		s.writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	kinases := s.engine.Library().Kinases(t)
	if len(kinases) == 0 {
		s.writeError(w, errors.NotFound(fmt.Sprintf("%s kinases", t)))
		return
	}
	writeJSON(w, http.StatusOK, KinasesResponse{Type: t.String(), Kinases: kinases})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	s.serveTable(w, r, func(TableRequest) (core.Measure, error) { return core.MeasureScore, nil })
}

func (s *Server) handlePercentile(w http.ResponseWriter, r *http.Request) {
	s.serveTable(w, r, func(TableRequest) (core.Measure, error) { return core.MeasurePercentile, nil })
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	s.serveTable(w, r, func(req TableRequest) (core.Measure, error) {
		switch req.Method {
		case "", "score":
			return core.MeasureScoreRank, nil
		case "percentile":
			return core.MeasurePercentileRank, nil
		default:
			return 0, errors.InvalidInput(fmt.Sprintf("unknown rank method %q", req.Method))
		}
	})
}

func (s *Server) serveTable(w http.ResponseWriter, r *http.Request, measureOf func(TableRequest) (core.Measure, error)) {
	var req TableRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	measure, err := measureOf(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sites, kinases, err := parseBatch(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	table, err := s.scan.Table(r.Context(), sites.subs, kinases, measure)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tableResponse(table, sites))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req TableRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	sites, kinases, err := parseBatch(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	pred, err := s.scan.Predict(r.Context(), sites.subs, kinases)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PredictResponse{
		Score:          tableResponse(pred.Score, sites),
		ScoreRank:      tableResponse(pred.ScoreRank, sites),
		Percentile:     tableResponse(pred.Percentile, sites),
		PercentileRank: tableResponse(pred.PercentileRank, sites),
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	criterion, err := parseCriterion(req.Criterion)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sites, kinases, err := parseBatch(req.TableRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.scan.Scan(r.Context(), app.ScanRequest{Substrates: sites.subs, Kinases: kinases, Criterion: criterion})
	if err != nil {
		s.writeError(w, err)
		return
	}
	matches := res.Matches
	if matches == nil {
		matches = []batch.Match{}
	}
	writeJSON(w, http.StatusOK, ScanResponse{
		Criterion: criterion.String(),
		Table:     tableResponse(res.Table, sites),
		Matches:   matches,
	})
}

func (s *Server) handleBackgroundRank(w http.ResponseWriter, r *http.Request) {
	var req BackgroundRankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if len(req.Sites) == 0 {
		s.writeError(w, errors.InvalidInput("no sites given"))
		return
	}
	id, err := core.ParseKinaseID(req.Kinase)
	if err != nil {
		s.writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	if _, err := s.engine.Library().Get(id); err != nil {
		s.writeError(w, err)
		return
	}

	sites := parseSites(req.Sites, req.PhosphoPriming)
	resp := BackgroundRankResponse{
		Kinase:         id,
		BackgroundSize: s.engine.Background().Size(id),
		Rows:           make([]BackgroundRankRow, 0, len(sites.subs)),
		Excluded:       sites.excluded,
	}
	for i, sub := range sites.subs {
		score, err := s.engine.Score(sub, id)
		if core.IsInputError(err) {
			resp.Excluded = append(resp.Excluded, substrate.Exclusion{Substrate: sub.ID, Reason: err.Error()})
			continue
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		percentile, err := s.engine.PercentileOf(score, id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		rank, err := s.engine.BackgroundRankOf(score, id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Rows = append(resp.Rows, BackgroundRankRow{
			Index:          sites.origin[i],
			Substrate:      sub.ID,
			Window:         sub.Window(),
			Score:          score,
			Percentile:     percentile,
			BackgroundRank: rank,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTwoGroup(w http.ResponseWriter, r *http.Request) {
	var req TwoGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	criterion, kinases, types, err := parseSelection(req.Criterion, req.Kinases, req.Types)
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts, err := parseTwoGroupOptions(req.Alternative, req.Method)
	if err != nil {
		s.writeError(w, err)
		return
	}
	fg := parseSites(req.Foreground, req.PhosphoPriming)
	bg := parseSites(req.Background, req.PhosphoPriming)

	report, err := s.enrichment.TwoGroup(r.Context(), app.TwoGroupRequest{
		Foreground: fg.subs,
		Background: bg.subs,
		Kinases:    kinases,
		Types:      types,
		Criterion:  criterion,
		Options:    opts,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	report.Excluded = append(append(report.Excluded, fg.excluded...), bg.excluded...)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMEA(w http.ResponseWriter, r *http.Request) {
	var req MEARequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	criterion, kinases, types, err := parseSelection(req.Criterion, req.Kinases, req.Types)
	if err != nil {
		s.writeError(w, err)
		return
	}

	inputs := make([]SiteInput, len(req.Sites))
	for i, site := range req.Sites {
		inputs[i] = site.SiteInput
	}
	sites := parseSites(inputs, req.PhosphoPriming)
	entries := make([]domain.Entry, len(sites.subs))
	for i, sub := range sites.subs {
		entries[i] = domain.Entry{Substrate: sub, Statistic: req.Sites[sites.origin[i]].Statistic}
	}
	list, err := domain.NewRankedList(entries, req.PreserveOrder)
	if err != nil {
		s.writeError(w, err)
		return
	}

	opts := enrichment.DefaultMEAOptions()
	if req.Permutations != 0 {
		opts.Permutations = req.Permutations
	}
	if req.Weight != nil {
		opts.Weight = *req.Weight
	}
	if req.MinSize > 0 {
		opts.MinSize = req.MinSize
	}
	opts.MaxSize = req.MaxSize
	opts.Seed = req.Seed

	report, err := s.enrichment.RankedList(r.Context(), app.RankedListRequest{
		List:      list,
		Kinases:   kinases,
		Types:     types,
		Criterion: criterion,
		Options:   opts,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	report.Excluded = append(report.Excluded, sites.excluded...)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDifferential(w http.ResponseWriter, r *http.Request) {
	var req DifferentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.LogFCThreshold < 0 {
		s.writeError(w, errors.InvalidInput(fmt.Sprintf("logfc_threshold must be >= 0, got %v", req.LogFCThreshold)))
		return
	}
	criterion, kinases, types, err := parseSelection(req.Criterion, req.Kinases, req.Types)
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts, err := parseTwoGroupOptions(req.Alternative, req.Method)
	if err != nil {
		s.writeError(w, err)
		return
	}

	inputs := make([]SiteInput, len(req.Sites))
	for i, site := range req.Sites {
		inputs[i] = site.SiteInput
	}
	parsed := parseSites(inputs, req.PhosphoPriming)
	sites := make([]domain.DifferentialSite, len(parsed.subs))
	for i, sub := range parsed.subs {
		in := req.Sites[parsed.origin[i]]
		pvalue := math.NaN()
		if in.PValue != nil {
			pvalue = *in.PValue
		}
		sites[i] = domain.DifferentialSite{Substrate: sub, LogFC: in.LogFC, PValue: pvalue}
	}

	report, err := s.enrichment.Differential(r.Context(), app.DifferentialRequest{
		Sites:           sites,
		LogFCThreshold:  req.LogFCThreshold,
		PValueThreshold: req.PValueThreshold,
		BackgroundAll:   req.BackgroundAll,
		Kinases:         kinases,
		Types:           types,
		Criterion:       criterion,
		Options:         opts,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	report.Excluded = append(report.Excluded, parsed.excluded...)
	writeJSON(w, http.StatusOK, report)
}

// parsedSites holds the sites of a request that parsed, the request position
// of each, and the ones that did not
type parsedSites struct {
	subs     []substrate.Substrate
	origin   []int
	excluded []substrate.Exclusion
}

func parseSites(in []SiteInput, priming bool) parsedSites {
	opts := substrate.Options{PhosphoPriming: priming}
	out := parsedSites{
		subs:   make([]substrate.Substrate, 0, len(in)),
		origin: make([]int, 0, len(in)),
	}
	for i, site := range in {
		sub, err := substrate.Parse(core.SubstrateID(site.ID), site.Peptide, opts)
		if err != nil {
			id := site.ID
			if id == "" {
				id = site.Peptide
			}
			out.excluded = append(out.excluded, substrate.Exclusion{Substrate: core.SubstrateID(id), Reason: err.Error()})
			continue
		}
		out.subs = append(out.subs, sub)
		out.origin = append(out.origin, i)
	}
	return out
}

func parseBatch(req TableRequest) (parsedSites, []core.KinaseID, error) {
	if len(req.Sites) == 0 {
		return parsedSites{}, nil, errors.InvalidInput("no sites given")
	}
	kinases, err := core.ParseKinaseIDs(req.Kinases)
	if err != nil {
		return parsedSites{}, nil, errors.InvalidInput(err.Error())
	}
	return parseSites(req.Sites, req.PhosphoPriming), kinases, nil
}

func parseCriterion(in CriterionInput) (core.Criterion, error) {
	measure, err := core.ParseMeasure(in.Measure)
	if err != nil {
		return core.Criterion{}, errors.InvalidInput(err.Error())
	}
	c := core.Criterion{Measure: measure, Threshold: in.Threshold}
	if err := c.Validate(); err != nil {
		return core.Criterion{}, err
	}
	return c, nil
}

func parseSelection(c CriterionInput, kinaseNames, typeNames []string) (core.Criterion, []core.KinaseID, []core.KinaseType, error) {
	criterion, err := parseCriterion(c)
	if err != nil {
		return core.Criterion{}, nil, nil, err
	}
	kinases, err := core.ParseKinaseIDs(kinaseNames)
	if err != nil {
		return core.Criterion{}, nil, nil, errors.InvalidInput(err.Error())
	}
	var types []core.KinaseType
	if len(typeNames) > 0 {
		if types, err = core.ParseKinaseTypes(typeNames); err != nil {
			return core.Criterion{}, nil, nil, errors.InvalidInput(err.Error())
		}
	}
	return criterion, kinases, types, nil
}

func parseTwoGroupOptions(alternative, method string) (enrichment.TwoGroupOptions, error) {
	alt, err := enrichment.ParseAlternative(alternative)
	if err != nil {
		return enrichment.TwoGroupOptions{}, errors.InvalidInput(err.Error())
	}
	m, err := enrichment.ParseTestMethod(method)
	if err != nil {
		return enrichment.TwoGroupOptions{}, errors.InvalidInput(err.Error())
	}
	return enrichment.TwoGroupOptions{Alternative: alt, Method: m}, nil
}
