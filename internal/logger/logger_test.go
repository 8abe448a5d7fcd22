package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func newBufferLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "orderbatch-test"})

	prev := GetDefault()
	SetDefaultLogger(l)
	t.Cleanup(func() { SetDefaultLogger(prev) })
	return l, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("invalid log line %q: %v", buf.String(), err)
	}
	buf.Reset()
	return m
}

func TestContextFieldsPropagate(t *testing.T) {
	l, buf := newBufferLogger(t)

	ctx := l.WithContext(context.Background())
	ctx = SetRunID(ctx, "run-1")
	ctx = SetChunkSeq(ctx, 3)

	if got, _ := GetField(ctx, FieldRunID); got != "run-1" {
		t.Errorf("GetField(run_id) = %v, want run-1", got)
	}

	CtxInfo(ctx, "chunk %d committed", 3)
	line := decodeLine(t, buf)

	if line["run_id"] != "run-1" {
		t.Errorf("run_id = %v", line["run_id"])
	}
	if line["chunk_seq"] != float64(3) {
		t.Errorf("chunk_seq = %v", line["chunk_seq"])
	}
	if line["service"] != "orderbatch-test" {
		t.Errorf("service = %v", line["service"])
	}
	if line["message"] != "chunk 3 committed" {
		t.Errorf("message = %v", line["message"])
	}
}

func TestEntryCounters(t *testing.T) {
	_, buf := newBufferLogger(t)

	With(Fields{FieldSize: 10}).
		WithCounters(12, 10, 2).
		WithStatus("COMPLETED_WITH_SKIPS").
		Info(context.Background(), "Run finished")
	line := decodeLine(t, buf)

	tests := []struct {
		key  string
		want interface{}
	}{
		{FieldRead, float64(12)},
		{FieldWritten, float64(10)},
		{FieldSkipped, float64(2)},
		{FieldSize, float64(10)},
		{FieldStatus, "COMPLETED_WITH_SKIPS"},
	}
	for _, tt := range tests {
		if got := line[tt.key]; got != tt.want {
			t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "warn", Format: "text", Output: &buf})

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	l.Warn("shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Fatalf("warn not logged: %q", buf.String())
	}
}
