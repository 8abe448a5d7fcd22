// Package report observes runs and publishes an aggregate summary at run end.
package report

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/engine"
	"github.com/timmy/orderbatch/internal/logger"
)

// StatsQuerier is the read-only query capability over the persisted sinks.
// repository.ReportRepository implements it.
type StatsQuerier interface {
	CountProcessedOrders(ctx context.Context, runID string) (int64, error)
	CountConfirmedWrites(ctx context.Context, runID string) (int64, error)
	TotalRevenue(ctx context.Context, runID string) (decimal.Decimal, error)
	ProductAggregates(ctx context.Context, runID string) ([]domain.ProductAggregate, error)
}

// ConfirmedCounter counts SUCCESS rows of processed_orders for one run.
type ConfirmedCounter interface {
	CountConfirmedWrites(ctx context.Context, runID string) (int64, error)
}

// WithConfirmedWrites returns stats with CountConfirmedWrites answered by
// counter, for processed_orders rows kept in a different database.
func WithConfirmedWrites(stats StatsQuerier, counter ConfirmedCounter) StatsQuerier {
	if counter == nil {
		return stats
	}
	return &splitStats{StatsQuerier: stats, confirmed: counter}
}

type splitStats struct {
	StatsQuerier
	confirmed ConfirmedCounter
}

func (s *splitStats) CountConfirmedWrites(ctx context.Context, runID string) (int64, error) {
	return s.confirmed.CountConfirmedWrites(ctx, runID)
}

// Publisher delivers a finished run summary to one destination.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, summary *domain.RunSummary) error
}

// Reporter implements engine.Listener. It keeps the summary of every run it
// has seen so callers can fetch it after Run returns.
type Reporter struct {
	stats      StatsQuerier
	publishers []Publisher

	mu        sync.Mutex
	summaries map[string]*domain.RunSummary
}

// NewReporter creates a Reporter that queries stats and publishes to publishers.
func NewReporter(stats StatsQuerier, publishers ...Publisher) *Reporter {
	return &Reporter{
		stats:      stats,
		publishers: publishers,
		summaries:  make(map[string]*domain.RunSummary),
	}
}

// OnRunStart logs the run start.
func (r *Reporter) OnRunStart(ctx context.Context, runID string, start time.Time) {
	logger.CtxInfo(ctx, "### Run %s started at %s", runID, start.Format(time.RFC3339))
}

// OnStepBoundary logs the running counters after each committed chunk.
func (r *Reporter) OnStepBoundary(ctx context.Context, p engine.Progress) {
	logger.With(logger.Fields{logger.FieldChunkSeq: p.Seq}).
		WithCounters(p.Read, p.Written, p.Skipped).
		Debug(ctx, "Progress: read=%d write=%d skip=%d", p.Read, p.Written, p.Skipped)
}

// OnRunEnd builds the run summary and hands it to every publisher.
// Publisher failures are logged and do not affect the run. The run's ctx may
// already be cancelled, so queries and publishers run without its cancellation.
func (r *Reporter) OnRunEnd(ctx context.Context, result *engine.Result) {
	ctx = context.WithoutCancel(ctx)
	summary := FromResult(result)
	FillAggregates(ctx, r.stats, summary)

	r.mu.Lock()
	r.summaries[summary.RunID] = summary
	r.mu.Unlock()

	for _, p := range r.publishers {
		if err := p.Publish(ctx, summary); err != nil {
			logger.FromContext(ctx).WithError(err).
				WithField("publisher", p.Name()).
				Warn("Failed to publish run report")
		}
	}
}

// Summary returns the summary of a finished run.
func (r *Reporter) Summary(runID string) (*domain.RunSummary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.summaries[runID]
	return s, ok
}

// FromResult copies the engine counters into a new summary.
func FromResult(result *engine.Result) *domain.RunSummary {
	return &domain.RunSummary{
		RunID:             result.RunID,
		Status:            result.Status,
		Reason:            result.Reason,
		StartTime:         result.StartTime,
		EndTime:           result.EndTime,
		DurationMs:        result.Duration().Milliseconds(),
		Read:              result.Read,
		Written:           result.Written,
		Skipped:           result.Skipped,
		FailedUnaccounted: result.FailedUnaccounted,
		Commits:           result.Commits,
		TotalRevenue:      decimal.Zero,
		Products:          []domain.ProductAggregate{},
	}
}

// FillAggregates queries the sinks for the summary's run. A failed query
// leaves its aggregate at zero or empty.
func FillAggregates(ctx context.Context, stats StatsQuerier, summary *domain.RunSummary) {
	summary.TotalRevenue = decimal.Zero
	summary.Products = []domain.ProductAggregate{}
	if stats == nil {
		return
	}

	log := logger.FromContext(ctx).WithField(logger.FieldRunID, summary.RunID)

	if n, err := stats.CountProcessedOrders(ctx, summary.RunID); err != nil {
		log.WithError(err).Warn("Processed order count unavailable")
	} else {
		summary.ProcessedOrders = n
	}

	if n, err := stats.CountConfirmedWrites(ctx, summary.RunID); err != nil {
		log.WithError(err).Warn("Confirmed write count unavailable")
	} else {
		summary.ConfirmedWrites = n
	}

	if total, err := stats.TotalRevenue(ctx, summary.RunID); err != nil {
		log.WithError(err).Warn("Revenue total unavailable")
	} else {
		summary.TotalRevenue = total
	}

	if products, err := stats.ProductAggregates(ctx, summary.RunID); err != nil {
		log.WithError(err).Warn("Product aggregates unavailable")
	} else if products != nil {
		summary.Products = products
	}
}

var _ engine.Listener = (*Reporter)(nil)
