package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/orderbatch/internal/config"
	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/engine"
	"github.com/timmy/orderbatch/internal/storage"
)

type fakeStats struct {
	processed int64
	confirmed int64
	revenue   decimal.Decimal
	products  []domain.ProductAggregate
	err       error
}

func (f *fakeStats) CountProcessedOrders(ctx context.Context, _ string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.processed, f.err
}

func (f *fakeStats) CountConfirmedWrites(ctx context.Context, _ string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.confirmed, f.err
}

func (f *fakeStats) TotalRevenue(ctx context.Context, _ string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return f.revenue, f.err
}

func (f *fakeStats) ProductAggregates(ctx context.Context, _ string) ([]domain.ProductAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.products, f.err
}

type capturePublisher struct {
	got []*domain.RunSummary
	err error
}

func (p *capturePublisher) Name() string { return "capture" }

func (p *capturePublisher) Publish(ctx context.Context, s *domain.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.got = append(p.got, s)
	return p.err
}

type countOnly int64

func (c countOnly) CountConfirmedWrites(context.Context, string) (int64, error) {
	return int64(c), nil
}

func testResult() *engine.Result {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return &engine.Result{
		RunID:     "run-1",
		Status:    domain.RunStatusCompletedWithSkips,
		Counters:  engine.Counters{Read: 10, Written: 8, Skipped: 2, Commits: 1},
		StartTime: start,
		EndTime:   start.Add(1500 * time.Millisecond),
	}
}

func TestReporterPublishesSummary(t *testing.T) {
	stats := &fakeStats{
		processed: 8,
		confirmed: 8,
		revenue:   decimal.NewFromInt(11750000),
		products: []domain.ProductAggregate{
			{ProductName: "노트북", TotalQuantity: 2, TotalRevenue: decimal.NewFromInt(3000000)},
		},
	}
	failing := &capturePublisher{err: errors.New("unreachable")}
	capture := &capturePublisher{}
	r := NewReporter(stats, failing, capture)

	r.OnRunStart(context.Background(), "run-1", time.Now())
	r.OnStepBoundary(context.Background(), engine.Progress{RunID: "run-1", Seq: 1})
	r.OnRunEnd(context.Background(), testResult())

	require.Len(t, capture.got, 1, "a failing publisher must not stop the others")
	s := capture.got[0]
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, domain.RunStatusCompletedWithSkips, s.Status)
	assert.EqualValues(t, 1500, s.DurationMs)
	assert.Equal(t, 10, s.Read)
	assert.EqualValues(t, 8, s.ProcessedOrders)
	assert.True(t, s.TotalRevenue.Equal(decimal.NewFromInt(11750000)))
	require.Len(t, s.Products, 1)

	stored, ok := r.Summary("run-1")
	require.True(t, ok)
	assert.Same(t, s, stored)
}

func TestReporterCancelledRunKeepsAggregates(t *testing.T) {
	stats := &fakeStats{processed: 3, confirmed: 3, revenue: decimal.NewFromInt(4500)}
	pub := &capturePublisher{}
	r := NewReporter(stats, pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := testResult()
	result.Status = domain.RunStatusFailed
	result.Counters = engine.Counters{Read: 4, Written: 3, Commits: 1}
	r.OnRunEnd(ctx, result)

	require.Len(t, pub.got, 1)
	s := pub.got[0]
	assert.Equal(t, domain.RunStatusFailed, s.Status)
	assert.EqualValues(t, 3, s.ProcessedOrders)
	assert.EqualValues(t, 3, s.ConfirmedWrites)
	assert.True(t, s.TotalRevenue.Equal(decimal.NewFromInt(4500)))
}

func TestWithConfirmedWrites(t *testing.T) {
	ctx := context.Background()
	base := &fakeStats{processed: 8, confirmed: 0}

	split := WithConfirmedWrites(base, countOnly(8))
	n, err := split.CountConfirmedWrites(ctx, "run-1")
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)
	n, err = split.CountProcessedOrders(ctx, "run-1")
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)

	assert.Same(t, base, WithConfirmedWrites(base, nil))
}

func TestReporterQueryFailuresRenderZero(t *testing.T) {
	capture := &capturePublisher{}
	r := NewReporter(&fakeStats{err: errors.New("no such table: orders")}, capture)

	r.OnRunEnd(context.Background(), testResult())

	require.Len(t, capture.got, 1)
	s := capture.got[0]
	assert.Zero(t, s.ProcessedOrders)
	assert.Zero(t, s.ConfirmedWrites)
	assert.True(t, s.TotalRevenue.IsZero())
	assert.NotNil(t, s.Products)
	assert.Empty(t, s.Products)
}

func TestRender(t *testing.T) {
	s := FromResult(testResult())
	s.ProcessedOrders = 1234
	s.TotalRevenue = decimal.RequireFromString("11750000.40")
	s.Products = []domain.ProductAggregate{
		{ProductName: "의자", TotalQuantity: 10, TotalRevenue: decimal.NewFromInt(3000000)},
	}

	text := strings.Join(Render(s), "\n")

	assert.Contains(t, text, "Batch Run Report")
	assert.Contains(t, text, "Processed orders (orders): 1,234")
	assert.Contains(t, text, "Total revenue: 11,750,000")
	assert.Contains(t, text, "의자: 10 units, 3,000,000")
	assert.Contains(t, text, "Status: COMPLETED_WITH_SKIPS")
	assert.Contains(t, text, "Read/Written/Skipped/Failed: 10/8/2/0")
}

func TestRenderWithoutProducts(t *testing.T) {
	s := FromResult(testResult())
	s.Status = domain.RunStatusFailed
	s.Reason = "skip limit exceeded"

	text := strings.Join(Render(s), "\n")

	assert.NotContains(t, text, "Sales by product")
	assert.Contains(t, text, "Reason: skip limit exceeded")
	assert.Contains(t, text, "Total revenue: 0")
}

func TestLogPublisher(t *testing.T) {
	require.NoError(t, NewLogPublisher().Publish(context.Background(), FromResult(testResult())))
}

func TestFilePublisher(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePublisher(dir)
	s := FromResult(testResult())
	s.TotalRevenue = decimal.NewFromInt(42)

	require.NoError(t, p.Publish(context.Background(), s))

	data, err := os.ReadFile(p.Path("run-1"))
	require.NoError(t, err)
	var got domain.RunSummary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, got.TotalRevenue.Equal(decimal.NewFromInt(42)))
}

func TestWebhookPublisher(t *testing.T) {
	var (
		mu       sync.Mutex
		payload  map[string]interface{}
		gotToken string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotToken = r.Header.Get("X-Token")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := NewWebhookPublisher(&config.WebhookConfig{
		Enabled: true,
		URL:     srv.URL,
		Headers: map[string]string{"X-Token": "secret"},
	})
	require.NoError(t, p.Publish(context.Background(), FromResult(testResult())))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, "run.finished", payload["event"])
	assert.Equal(t, "success", payload["outcome"])
	summary, ok := payload["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-1", summary["run_id"])
}

func TestWebhookPublisherRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewWebhookPublisher(&config.WebhookConfig{Enabled: true, URL: srv.URL, Timeout: time.Second})
	err := p.Publish(context.Background(), FromResult(testResult()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type memoryStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Upload(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memoryStore) GetURL(key string) string { return "mem://" + key }

var _ storage.ObjectStorage = (*memoryStore)(nil)

func TestArchivePublisherRoundTrip(t *testing.T) {
	store := newMemoryStore()
	archive := config.ArchiveConfig{Prefix: "reports"}
	p := NewArchivePublisher(store, archive.Key)

	require.NoError(t, p.Publish(context.Background(), FromResult(testResult())))
	assert.Equal(t, "application/json", store.types["reports/run-1.json"])

	got, err := p.Fetch(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Written)

	_, err = p.Fetch(context.Background(), "run-2")
	assert.ErrorIs(t, err, ErrNotArchived)
}
