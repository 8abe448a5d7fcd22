package domain

import "time"

// RunStatus represents the status of a batch run.
// A run is STARTED until it reaches one of the terminal statuses.
type RunStatus string

const (
	RunStatusStarted            RunStatus = "STARTED"
	RunStatusCompleted          RunStatus = "COMPLETED"
	RunStatusCompletedWithSkips RunStatus = "COMPLETED_WITH_SKIPS"
	RunStatusFailed             RunStatus = "FAILED"
)

// IsTerminal reports whether the run has finished.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusCompletedWithSkips || s == RunStatusFailed
}

// IsSuccess reports whether the run finished without a fatal error.
func (s RunStatus) IsSuccess() bool {
	return s == RunStatusCompleted || s == RunStatusCompletedWithSkips
}

// BatchRun represents one execution of the order pipeline and its counters.
type BatchRun struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	SourceID    string     `gorm:"type:text;not null;index" json:"source_id"`
	InputPath   string     `gorm:"type:text;not null" json:"input_path"`
	ChunkSize   int        `gorm:"not null" json:"chunk_size"`
	SkipLimit   int        `gorm:"not null" json:"skip_limit"`
	Status      RunStatus  `gorm:"type:text;default:STARTED;index" json:"status"`
	ReadCount   int        `gorm:"default:0" json:"read_count"`
	WriteCount  int        `gorm:"default:0" json:"write_count"`
	SkipCount   int        `gorm:"default:0" json:"skip_count"`
	CommitCount int        `gorm:"default:0" json:"commit_count"`
	Reason      string     `json:"reason,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for BatchRun.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (BatchRun) TableName() string {
	return "batch_runs"
}

// ChunkExecution is one entry of the append-only execution log. It is written
// after a chunk is committed to every sink and records the run counters at
// that point, which is what a resumed run restarts from.
type ChunkExecution struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID          string    `gorm:"type:text;not null;uniqueIndex:idx_chunk_exec_run_seq,priority:1" json:"run_id"`
	Seq            int       `gorm:"not null;uniqueIndex:idx_chunk_exec_run_seq,priority:2" json:"seq"`
	Size           int       `gorm:"not null" json:"size"`
	ReadCount      int       `gorm:"not null" json:"read_count"`
	WriteCount     int       `gorm:"not null" json:"write_count"`
	SkipCount      int       `gorm:"not null" json:"skip_count"`
	LastSkipReason string    `json:"last_skip_reason,omitempty"`
	CommittedAt    time.Time `gorm:"not null" json:"committed_at"`
}

// TableName returns the database table name for ChunkExecution.
func (ChunkExecution) TableName() string {
	return "chunk_executions"
}
