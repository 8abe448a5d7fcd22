package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields. These are attached to the context logger and propagate
// through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldRunID is the batch run ID
	FieldRunID = "run_id"

	// FieldChunkSeq is the 1-based chunk sequence number within a run
	FieldChunkSeq = "chunk_seq"

	// FieldSink is the sink name a chunk is committed to
	FieldSink = "sink"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldSource is the record source identifier
	FieldSource = "source"
)

// Metric fields, used on Entry for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes (HTTP response bodies)
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldRead, FieldWritten and FieldSkipped carry run counters
	FieldRead    = "read"
	FieldWritten = "written"
	FieldSkipped = "skipped"
)
