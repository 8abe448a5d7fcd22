package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/logger"
	"github.com/timmy/orderbatch/internal/storage"
)

// ErrNotArchived is returned by Fetch when no report exists for the run.
var ErrNotArchived = errors.New("no archived report")

// ArchivePublisher uploads the JSON summary to object storage.
type ArchivePublisher struct {
	store storage.ObjectStorage
	key   func(runID string) string
}

// NewArchivePublisher creates an ArchivePublisher. key maps a run ID to its
// object key.
func NewArchivePublisher(store storage.ObjectStorage, key func(runID string) string) *ArchivePublisher {
	return &ArchivePublisher{store: store, key: key}
}

func (p *ArchivePublisher) Name() string { return "archive" }

// Publish uploads the summary as application/json.
func (p *ArchivePublisher) Publish(ctx context.Context, summary *domain.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	key := p.key(summary.RunID)
	if err := p.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("failed to archive report: %w", err)
	}
	logger.CtxInfo(ctx, "Report archived to %s", p.store.GetURL(key))
	return nil
}

// Fetch downloads an archived summary.
func (p *ArchivePublisher) Fetch(ctx context.Context, runID string) (*domain.RunSummary, error) {
	key := p.key(runID)
	ok, err := p.store.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: run %s", ErrNotArchived, runID)
	}

	body, err := p.store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var summary domain.RunSummary
	if err := json.NewDecoder(body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode archived report: %w", err)
	}
	return &summary, nil
}
