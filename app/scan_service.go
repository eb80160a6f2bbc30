package app

import (
	"context"
	"slices"

	"kinlib/adapters/stats/batch"
	"kinlib/domain/core"
	"kinlib/domain/substrate"
	"kinlib/internal"
)

// ScanService predicts kinases for batches of sites
type ScanService struct {
	processor *batch.Processor
	logger    *internal.Logger
}

// NewScanService creates a scan service
func NewScanService(processor *batch.Processor) *ScanService {
	return &ScanService{
		processor: processor,
		logger:    internal.DefaultLogger.Component("ScanService"),
	}
}

// ScanRequest selects the sites, kinases and criterion of a scan
type ScanRequest struct {
	Substrates []substrate.Substrate
	Kinases    []core.KinaseID
	Criterion  core.Criterion
}

// ScanResult is the measure table of a scan and the pairs passing its criterion
type ScanResult struct {
	Table   *batch.Table
	Matches []batch.Match
}

// Scan scores every site against every kinase and lists the kinases whose
// value passes the criterion
func (s *ScanService) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if err := req.Criterion.Validate(); err != nil {
		return nil, err
	}
	table, err := s.processor.Table(ctx, req.Substrates, req.Kinases, req.Criterion.Measure)
	if err != nil {
		return nil, err
	}
	matches := slices.Collect(table.Matches(req.Criterion))

	s.logger.Info("scanned %d sites (%d excluded) against %d kinases: %d matches for %s",
		len(table.Rows), len(table.Excluded), len(table.Kinases), len(matches), req.Criterion)
	return &ScanResult{Table: table, Matches: matches}, nil
}

// Predict computes score, percentile and both ranks for every site
func (s *ScanService) Predict(ctx context.Context, subs []substrate.Substrate, kinases []core.KinaseID) (*batch.Prediction, error) {
	pred, err := s.processor.Predict(ctx, subs, kinases)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("predicted %d sites", len(pred.Score.Rows))
	return pred, nil
}

// Table computes one measure for every site and kinase
func (s *ScanService) Table(ctx context.Context, subs []substrate.Substrate, kinases []core.KinaseID, measure core.Measure) (*batch.Table, error) {
	table, err := s.processor.Table(ctx, subs, kinases, measure)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("%s table: %d rows, %d excluded", measure, len(table.Rows), len(table.Excluded))
	return table, nil
}
