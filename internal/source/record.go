package source

// RawRecord is an ordered mapping from field name to raw string value, as
// read from the input. It is never modified after construction.
type RawRecord struct {
	line   int
	names  []string
	values []string
}

// NewRawRecord builds a record from parallel name/value slices. Values beyond
// the last name are dropped and missing values read as empty.
func NewRawRecord(line int, names, values []string) RawRecord {
	n := make([]string, len(names))
	copy(n, names)
	v := make([]string, len(names))
	copy(v, values)
	return RawRecord{line: line, names: n, values: v}
}

// Line is the 1-based input line the record started on, or 0 if unknown.
func (r RawRecord) Line() int {
	return r.line
}

// Get returns the value of the named field, or "" if the field is absent.
func (r RawRecord) Get(name string) string {
	v, _ := r.Lookup(name)
	return v
}

// Lookup returns the value of the named field and whether it exists.
func (r RawRecord) Lookup(name string) (string, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return "", false
}
