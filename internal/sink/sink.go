// Package sink commits validated chunks of orders to their destinations.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/logger"
)

// Sink names used by the order pipeline.
const (
	NameOrders          = "orders"
	NameProcessedOrders = "processed_orders"
)

// Chunk is an ordered group of validated orders committed as one unit.
// Seq starts at 1 and increases by one per commit within a run.
type Chunk struct {
	RunID  string
	Seq    int
	Orders []domain.Order
}

// Len returns the number of orders in the chunk.
func (c Chunk) Len() int {
	return len(c.Orders)
}

// Sink persists a whole chunk or fails.
type Sink interface {
	// Commit writes every order of chunk or none of them.
	Commit(ctx context.Context, chunk Chunk) error
}

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, chunk Chunk) error

// Commit calls f.
func (f Func) Commit(ctx context.Context, chunk Chunk) error {
	return f(ctx, chunk)
}

// CommitError reports a chunk that was not committed to every sink.
// Committed lists the sinks that had already accepted the chunk.
type CommitError struct {
	Seq       int
	Sink      string
	Committed []string
	Err       error
}

func (e *CommitError) Error() string {
	if e.Partial() {
		return fmt.Sprintf("chunk %d partially committed: sink %s failed after [%s]: %v",
			e.Seq, e.Sink, strings.Join(e.Committed, ", "), e.Err)
	}
	return fmt.Sprintf("chunk %d not committed: sink %s failed: %v", e.Seq, e.Sink, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Partial reports whether some sinks hold the chunk while others do not.
func (e *CommitError) Partial() bool {
	return len(e.Committed) > 0
}

type namedSink struct {
	name string
	sink Sink
}

// Set is an ordered collection of named sinks that all receive the same chunk.
type Set struct {
	sinks []namedSink
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{}
}

// Add appends a sink. Sinks are committed in the order they were added.
func (s *Set) Add(name string, sink Sink) *Set {
	s.sinks = append(s.sinks, namedSink{name: name, sink: sink})
	return s
}

// Names returns the sink names in commit order.
func (s *Set) Names() []string {
	names := make([]string, len(s.sinks))
	for i, ns := range s.sinks {
		names[i] = ns.name
	}
	return names
}

// Commit hands chunk to every sink in order and stops at the first failure.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - chunk: chunk to commit; an empty chunk is a no-op.
// Returns:
//   - error: *CommitError naming the failed sink and those already committed.
func (s *Set) Commit(ctx context.Context, chunk Chunk) error {
	if chunk.Len() == 0 {
		return nil
	}

	committed := make([]string, 0, len(s.sinks))
	for _, ns := range s.sinks {
		if err := ns.sink.Commit(ctx, chunk); err != nil {
			return &CommitError{
				Seq:       chunk.Seq,
				Sink:      ns.name,
				Committed: committed,
				Err:       err,
			}
		}
		committed = append(committed, ns.name)
		logger.CtxDebug(logger.WithField(ctx, logger.FieldSink, ns.name),
			"Chunk %d written (%d orders)", chunk.Seq, chunk.Len())
	}
	return nil
}
