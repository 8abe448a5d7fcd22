package engine

import (
	"time"

	"github.com/timmy/orderbatch/internal/domain"
)

// Config holds the chunk engine parameters.
type Config struct {
	// ChunkSize is the number of valid orders per commit.
	ChunkSize int
	// SkipLimit is the number of rejected records tolerated; the next one aborts the run.
	SkipLimit int
	// ValidateWorkers > 1 validates records of the current chunk in parallel.
	ValidateWorkers int
}

// DefaultConfig returns the default run parameters.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       10,
		SkipLimit:       10,
		ValidateWorkers: 1,
	}
}

func (c Config) normalized() Config {
	if c.ChunkSize < 1 {
		c.ChunkSize = 1
	}
	if c.SkipLimit < 0 {
		c.SkipLimit = 0
	}
	if c.ValidateWorkers < 1 {
		c.ValidateWorkers = 1
	}
	return c
}

// SkipAccounting tracks rejected records against the skip limit.
type SkipAccounting struct {
	Limit      int
	Count      int
	LastReason string
}

// record counts one rejection and reports whether the limit is now exceeded.
func (s *SkipAccounting) record(reason string) bool {
	s.Count++
	s.LastReason = reason
	return s.Count > s.Limit
}

// Counters is a snapshot of a run's progress.
type Counters struct {
	Read    int `json:"read"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
	Commits int `json:"commits"`
}

// RunContext holds everything that belongs to a single run. It is created per
// run and never shared between runs.
type RunContext struct {
	RunID     string
	StartTime time.Time

	// Seq is the sequence number of the last committed chunk, 0 before the first commit.
	Seq     int
	Read    int
	Written int
	Skips   SkipAccounting

	resumed bool
}

// NewRunContext creates the context for a fresh run.
func NewRunContext(runID string, skipLimit int) *RunContext {
	return &RunContext{
		RunID: runID,
		Skips: SkipAccounting{Limit: skipLimit},
	}
}

// RestoreRunContext rebuilds a run's context from its last execution log
// entry. The engine skips the first Read input records and numbers the next
// chunk Seq+1.
func RestoreRunContext(last domain.ChunkExecution, skipLimit int, startTime time.Time) *RunContext {
	return &RunContext{
		RunID:     last.RunID,
		StartTime: startTime,
		Seq:       last.Seq,
		Read:      last.ReadCount,
		Written:   last.WriteCount,
		Skips: SkipAccounting{
			Limit:      skipLimit,
			Count:      last.SkipCount,
			LastReason: last.LastSkipReason,
		},
		resumed: true,
	}
}

// Resumed reports whether the context was restored from a checkpoint.
func (rc *RunContext) Resumed() bool {
	return rc.resumed
}

// Counters returns the current counters.
func (rc *RunContext) Counters() Counters {
	return Counters{
		Read:    rc.Read,
		Written: rc.Written,
		Skipped: rc.Skips.Count,
		Commits: rc.Seq,
	}
}

// Progress is passed to listeners after every committed chunk.
type Progress struct {
	RunID     string
	Seq       int
	ChunkSize int
	Counters
}

// Result is the outcome of a run. It is returned for every run, including
// failed ones, so counters are always available.
type Result struct {
	RunID  string           `json:"run_id"`
	Status domain.RunStatus `json:"status"`
	Err    error            `json:"-"`
	Reason string           `json:"reason,omitempty"`
	Counters
	FailedUnaccounted int       `json:"failed_unaccounted"`
	LastSkipReason    string    `json:"last_skip_reason,omitempty"`
	Resumed           bool      `json:"resumed"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
