package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/logger"
)

// LogPublisher writes the text report through the context logger.
type LogPublisher struct{}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Name() string { return "log" }

// Publish logs one line per report line.
func (p *LogPublisher) Publish(ctx context.Context, summary *domain.RunSummary) error {
	log := logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldRunID:  summary.RunID,
		logger.FieldStatus: string(summary.Status),
	})
	for _, line := range Render(summary) {
		log.Info(line)
	}
	return nil
}

// FilePublisher writes the summary as JSON to <dir>/<run_id>.json.
type FilePublisher struct {
	dir string
}

// NewFilePublisher creates a FilePublisher writing under dir.
func NewFilePublisher(dir string) *FilePublisher {
	return &FilePublisher{dir: dir}
}

func (p *FilePublisher) Name() string { return "file" }

// Path returns the report file path for a run.
func (p *FilePublisher) Path(runID string) string {
	return filepath.Join(p.dir, runID+".json")
}

// Publish writes the report atomically by renaming a temporary file.
func (p *FilePublisher) Publish(ctx context.Context, summary *domain.RunSummary) error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	path := p.Path(summary.RunID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	logger.CtxDebug(ctx, "Report written to %s", path)
	return nil
}
