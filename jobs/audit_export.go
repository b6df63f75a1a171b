package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rounds-hq/rounds/internal/audit"
)

// ExportService provides the audit entries to be written out.
type ExportService interface {
	Export(ctx context.Context, targetPrincipalID int64, filters audit.HistoryFilters) ([]audit.Entry, error)
}

// CSVWriter renders audit entries as CSV.
type CSVWriter interface {
	WriteCSV(entries []audit.Entry) ([]byte, error)
}

// AuditExportJob writes requested audit exports into the export directory
// for compliance pickup.
type AuditExportJob struct {
	service ExportService
	writer  CSVWriter
	dir     string
	logger  *slog.Logger
}

// NewAuditExportJob constructs the job.
func NewAuditExportJob(service ExportService, writer CSVWriter, dir string, logger *slog.Logger) *AuditExportJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditExportJob{service: service, writer: writer, dir: dir, logger: logger}
}

// Handle processes one TaskAuditExport task.
func (j *AuditExportJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	entries, err := j.service.Export(ctx, payload.TargetPrincipalID, audit.HistoryFilters{
		Since: payload.Since,
		Until: payload.Until,
	})
	if err != nil {
		return fmt.Errorf("jobs: export audit history: %w", err)
	}
	data, err := j.writer.WriteCSV(entries)
	if err != nil {
		return fmt.Errorf("jobs: render audit csv: %w", err)
	}

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("jobs: create export dir: %w", err)
	}
	name := fmt.Sprintf("audit-%d-%s.csv", payload.TargetPrincipalID, time.Now().UTC().Format("20060102T150405"))
	path := filepath.Join(j.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("jobs: write export file: %w", err)
	}

	j.logger.Info("audit export written",
		slog.Int64("principal", payload.TargetPrincipalID),
		slog.String("path", path),
		slog.Int("entries", len(entries)))
	return nil
}
