package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"
	"flight-aggregator-service/pkg/logger"
	"flight-aggregator-service/pkg/metrics"
	"flight-aggregator-service/pkg/xlsx"
)

// RunReader exposes the current aggregation run
type RunReader interface {
	Current() entity.AggregationRun
}

// ExportService renders the current collection as a spreadsheet
type ExportService struct {
	runs    RunReader
	archive repository.ArtifactRepository
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewExportService creates a new export service. archive may be nil.
func NewExportService(runs RunReader, archive repository.ArtifactRepository, metrics *metrics.Metrics, logger logger.Logger) *ExportService {
	return &ExportService{
		runs:    runs,
		archive: archive,
		metrics: metrics,
		logger:  logger,
	}
}

// Export writes one worksheet with a header row and one row per flight in
// collection order. The collection itself is not modified.
func (s *ExportService) Export(ctx context.Context, w io.Writer) (int, error) {
	run := s.runs.Current()
	if len(run.Flights) == 0 {
		return 0, entity.ErrNoFlights
	}

	rows := make([][]interface{}, 0, len(run.Flights))
	for _, f := range run.Flights {
		rows = append(rows, entity.ToExportRecord(f).Values())
	}

	var buf bytes.Buffer
	if err := xlsx.Write(&buf, entity.ExportSheetName, entity.ExportHeaders(), rows); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("export").Inc()
		return 0, fmt.Errorf("%w: %v", entity.ErrExportFailure, err)
	}

	s.archiveWorkbook(ctx, run.ID, buf.Bytes())

	if _, err := w.Write(buf.Bytes()); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("export").Inc()
		return 0, fmt.Errorf("%w: %v", entity.ErrExportFailure, err)
	}

	s.logger.Info("Flights exported", "runId", run.ID, "rows", len(rows), "bytes", buf.Len())
	return len(rows), nil
}

func (s *ExportService) archiveWorkbook(ctx context.Context, runID string, body []byte) {
	if s.archive == nil {
		return
	}

	key := fmt.Sprintf("exports/%s/%s", runID, entity.ExportFileName)
	if err := s.archive.Put(ctx, key, xlsx.ContentType, body); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("export_archive").Inc()
		s.logger.Warn("Failed to archive export", "runId", runID, "key", key, "error", err)
	}
}
