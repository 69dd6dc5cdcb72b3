package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Writer reports upload results.
//
// Implementations must be safe for concurrent use from multiple
// goroutines. Each Write* call emits one complete line.
type Writer interface {
	// WriteUpload emits an upload confirmation.
	WriteUpload(ctx context.Context, up *UploadRecord) error

	// WriteError emits an error report.
	WriteError(ctx context.Context, err *ErrorRecord) error

	// WriteSummary emits a summary.
	WriteSummary(ctx context.Context, sum *SummaryRecord) error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// Output formats accepted by NewWriter.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewWriter returns the writer for format, or an error for an unknown format.
func NewWriter(format string, w io.Writer, jobID, provider string) (Writer, error) {
	switch format {
	case "", FormatText:
		return NewTextWriter(w), nil
	case FormatJSON, "jsonl":
		return NewJSONLWriter(w, jobID, provider), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (use text or json)", format)
	}
}

// TextWriter prints one human-readable line per record.
type TextWriter struct {
	w      io.Writer
	mu     sync.Mutex
	closed bool
}

// NewTextWriter creates a text writer over w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// WriteUpload prints "Uploaded <path> to <bucket>/<key>".
func (tw *TextWriter) WriteUpload(ctx context.Context, up *UploadRecord) error {
	return tw.printf(ctx, "Uploaded %s to %s/%s\n", up.Path, up.Bucket, up.Key)
}

// WriteError prints "Error: <message>".
func (tw *TextWriter) WriteError(ctx context.Context, e *ErrorRecord) error {
	return tw.printf(ctx, "Error: %s\n", e.Message)
}

// WriteSummary is a no-op for text output; the per-file lines are the report.
func (tw *TextWriter) WriteSummary(ctx context.Context, _ *SummaryRecord) error {
	return ctx.Err()
}

// Close marks the writer as closed.
func (tw *TextWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.closed = true
	return nil
}

func (tw *TextWriter) printf(ctx context.Context, format string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line := []byte(fmt.Sprintf(format, args...))

	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return ErrWriterClosed
	}
	if err := writeAll(tw.w, line); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
//
// JSONLWriter is safe for concurrent use. Writes are serialized using
// a mutex to ensure atomic line writes (no interleaved output).
type JSONLWriter struct {
	w        io.Writer
	jobID    string
	provider string
	mu       sync.Mutex

	// closed indicates the writer has been closed.
	closed bool
}

// NewJSONLWriter creates a new JSONL writer.
//
// Parameters:
//   - w: The underlying writer (stdout, file, etc.)
//   - jobID: Correlation ID for this invocation
//   - provider: Storage provider identifier (e.g., "s3")
func NewJSONLWriter(w io.Writer, jobID, provider string) *JSONLWriter {
	return &JSONLWriter{
		w:        w,
		jobID:    jobID,
		provider: provider,
	}
}

// WriteUpload emits an upload record.
func (jw *JSONLWriter) WriteUpload(ctx context.Context, up *UploadRecord) error {
	return jw.writeRecord(ctx, TypeUpload, up)
}

// WriteError emits an error record.
func (jw *JSONLWriter) WriteError(ctx context.Context, err *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, err)
}

// WriteSummary emits a summary record.
func (jw *JSONLWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, sum)
}

// Close marks the writer as closed.
//
// If the underlying writer implements io.Closer, it is NOT closed.
// The caller is responsible for closing the underlying writer.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	jw.closed = true
	return nil
}

// writeRecord marshals data and writes a complete record line while holding
// the mutex, so concurrent callers never interleave.
func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}

	record := Record{
		Type:     recordType,
		TS:       time.Now().UTC(),
		JobID:    jw.jobID,
		Provider: jw.provider,
		Data:     dataBytes,
	}

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}

	return nil
}

// writeAll writes all bytes to w, handling short writes.
//
// io.Writer.Write may return n < len(p) with a nil error; a truncated line
// would corrupt JSONL output.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// Compile-time checks.
var (
	_ Writer = (*JSONLWriter)(nil)
	_ Writer = (*TextWriter)(nil)
)
