// Package csvfile reads order records from a delimited file with a header row.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/timmy/orderbatch/internal/source"
)

const utf8BOM = "\ufeff"

// Option configures an Adapter.
type Option func(*Adapter)

// WithRequiredColumns makes Open fail with source.ErrMissingColumn when the
// header lacks any of the given columns.
func WithRequiredColumns(columns ...string) Option {
	return func(a *Adapter) {
		a.required = append(a.required, columns...)
	}
}

// WithComma sets the field delimiter. Defaults to ','.
func WithComma(r rune) Option {
	return func(a *Adapter) {
		a.comma = r
	}
}

// Adapter implements source.Source over a CSV file.
type Adapter struct {
	path     string
	file     *os.File
	reader   *csv.Reader
	header   []string
	required []string
	comma    rune
	done     bool
}

// Open opens path and reads its header row.
// Parameters:
//   - path: input file path.
//   - opts: adapter options.
// Returns:
//   - *Adapter: source positioned at the first data record.
//   - error: source.ErrEmptyPath, source.ErrInputNotFound, source.ErrMissingColumn
//     or an I/O error.
func Open(path string, opts ...Option) (*Adapter, error) {
	if strings.TrimSpace(path) == "" {
		return nil, source.ErrEmptyPath
	}

	a := &Adapter{path: path, comma: ','}
	for _, opt := range opts {
		opt(a)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", source.ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("failed to open input %s: %w", path, err)
	}
	a.file = f

	r := csv.NewReader(f)
	r.Comma = a.comma
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.FieldsPerRecord = 0
	a.reader = r

	header, err := r.Read()
	if err == io.EOF {
		a.done = true
		return a, nil
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		header[i] = strings.TrimSpace(h)
	}
	a.header = header

	for _, col := range a.required {
		if !containsColumn(header, col) {
			f.Close()
			return nil, fmt.Errorf("%w: %q in %s", source.ErrMissingColumn, col, path)
		}
	}

	return a, nil
}

// GetSourceID returns the unique identifier for this source.
// Parameters: none.
// Returns:
//   - string: source identifier with "csv:" prefix.
func (a *Adapter) GetSourceID() string {
	return "csv:" + a.path
}

// Header returns the normalized header row.
func (a *Adapter) Header() []string {
	out := make([]string, len(a.header))
	copy(out, a.header)
	return out
}

// Next returns the next data record. Rows whose field count differs from the
// header are reported as *source.RecordError and reading continues.
func (a *Adapter) Next(ctx context.Context) (source.RawRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return source.RawRecord{}, false, err
	}
	if a.done {
		return source.RawRecord{}, false, nil
	}

	fields, err := a.reader.Read()
	if err == io.EOF {
		a.done = true
		return source.RawRecord{}, false, nil
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return source.RawRecord{}, false, &source.RecordError{Line: perr.StartLine, Err: perr.Err}
		}
		return source.RawRecord{}, false, fmt.Errorf("failed to read %s: %w", a.path, err)
	}

	line, _ := a.reader.FieldPos(0)
	return source.NewRawRecord(line, a.header, fields), true, nil
}

// Close closes the underlying file.
func (a *Adapter) Close() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

func containsColumn(header []string, col string) bool {
	for _, h := range header {
		if h == col {
			return true
		}
	}
	return false
}

var _ source.Source = (*Adapter)(nil)
