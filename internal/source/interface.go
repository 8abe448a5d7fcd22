package source

import (
	"context"
	"errors"
	"fmt"
)

// Configuration errors. They are returned by constructors before any record
// is produced and always match ErrConfig with errors.Is.
var (
	ErrConfig        = errors.New("source configuration error")
	ErrEmptyPath     = fmt.Errorf("%w: input path is empty", ErrConfig)
	ErrInputNotFound = fmt.Errorf("%w: input file not found", ErrConfig)
	ErrMissingColumn = fmt.Errorf("%w: required column missing from header", ErrConfig)
)

// Source defines the interface for finite, ordered record sources.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// Next returns the next record in input order.
	// Parameters:
	//   - ctx: context for cancellation.
	// Returns:
	//   - RawRecord: the record, valid only when ok is true.
	//   - ok: false once the source is exhausted; exhaustion is not an error.
	//   - err: a *RecordError for a single unreadable record (the source can
	//     continue), any other error is fatal.
	Next(ctx context.Context) (rec RawRecord, ok bool, err error)

	// Close releases the underlying input.
	Close() error
}

// RecordError reports one record that could not be parsed into fields.
// The source stays usable after returning it.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("Malformed record at line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
