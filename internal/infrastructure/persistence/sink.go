package persistence

import (
	"context"
	"fmt"

	"github.com/erp/salesreport/internal/application/report"
	"github.com/erp/salesreport/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
)

// DatabaseSink stores report rows in the sales_report_rows table
type DatabaseSink struct {
	repo   *SalesRowRepository
	logger *zap.Logger
}

// NewDatabaseSink creates a sink writing through repo
func NewDatabaseSink(repo *SalesRowRepository, logger *zap.Logger) *DatabaseSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatabaseSink{repo: repo, logger: logger}
}

// Name implements report.Sink
func (s *DatabaseSink) Name() string {
	return "postgres"
}

// Write implements report.Sink
func (s *DatabaseSink) Write(ctx context.Context, r *report.Report) (report.Artifact, error) {
	deleted, err := s.repo.ReplaceWindow(ctx, r.RunID, r.Window, r.Rows)
	if err != nil {
		return report.Artifact{}, err
	}

	s.logger.Info("Report rows stored",
		zap.String("run_id", r.RunID.String()),
		zap.Int("inserted", len(r.Rows)),
		zap.Int64("replaced", deleted),
	)
	return report.Artifact{
		Sink:     s.Name(),
		Location: fmt.Sprintf("%s?run_id=%s", models.SalesRowModel{}.TableName(), r.RunID),
	}, nil
}

var _ report.Sink = (*DatabaseSink)(nil)
