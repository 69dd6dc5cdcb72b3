package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer

	w, err := NewWriter("", &buf, "job-1", "s3")
	require.NoError(t, err)
	assert.IsType(t, &TextWriter{}, w)

	w, err = NewWriter(FormatJSON, &buf, "job-1", "s3")
	require.NoError(t, err)
	assert.IsType(t, &JSONLWriter{}, w)

	_, err = NewWriter("yaml", &buf, "job-1", "s3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaml")
}

func TestTextWriter_WriteUpload(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf)

	err := w.WriteUpload(context.Background(), &UploadRecord{
		Path:   "/tmp/x/a.txt",
		Bucket: "my-bucket",
		Key:    "a.txt",
		Size:   3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Uploaded /tmp/x/a.txt to my-bucket/a.txt\n", buf.String())
}

func TestTextWriter_WriteError(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf)

	err := w.WriteError(context.Background(), &ErrorRecord{Code: ErrCodeInvalidPath, Message: "missing.txt is not a valid file."})
	require.NoError(t, err)
	assert.Equal(t, "Error: missing.txt is not a valid file.\n", buf.String())
}

func TestTextWriter_SummaryIsSilent(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf)

	require.NoError(t, w.WriteSummary(context.Background(), &SummaryRecord{Files: 2}))
	assert.Empty(t, buf.String())
}

func TestTextWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf)
	require.NoError(t, w.Close())

	err := w.WriteUpload(context.Background(), &UploadRecord{Key: "a"})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriter_WriteUpload(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	err := w.WriteUpload(context.Background(), &UploadRecord{
		Path:        "/data/report.pdf",
		Bucket:      "docs",
		Key:         "report.pdf",
		Size:        1048576,
		ContentType: "application/pdf",
	})
	require.NoError(t, err)

	var record Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, TypeUpload, record.Type)
	assert.Equal(t, "job-123", record.JobID)
	assert.Equal(t, "s3", record.Provider)
	assert.False(t, record.TS.IsZero())

	var up UploadRecord
	require.NoError(t, json.Unmarshal(record.Data, &up))
	assert.Equal(t, "/data/report.pdf", up.Path)
	assert.Equal(t, "docs", up.Bucket)
	assert.Equal(t, "report.pdf", up.Key)
	assert.Equal(t, int64(1048576), up.Size)
	assert.Equal(t, "application/pdf", up.ContentType)
}

func TestJSONLWriter_WriteErrorAndSummary(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")
	ctx := context.Background()

	require.NoError(t, w.WriteError(ctx, &ErrorRecord{Code: ErrCodeAccessDenied, Message: "denied", Key: "a.txt"}))
	require.NoError(t, w.WriteSummary(ctx, &SummaryRecord{Files: 2, Bytes: 10, Duration: time.Second, DurationHuman: "1s"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, TypeError, first.Type)
	assert.Equal(t, TypeSummary, second.Type)

	var sum SummaryRecord
	require.NoError(t, json.Unmarshal(second.Data, &sum))
	assert.Equal(t, int64(2), sum.Files)
	assert.Equal(t, "1s", sum.DurationHuman)
}

func TestJSONLWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")
	require.NoError(t, w.Close())

	err := w.WriteUpload(context.Background(), &UploadRecord{Key: "a"})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	const numWriters = 8
	const writesPerWriter = 50

	var wg sync.WaitGroup
	wg.Add(numWriters)

	for i := 0; i < numWriters; i++ {
		go func(writerID int) {
			defer wg.Done()
			for j := 0; j < writesPerWriter; j++ {
				_ = w.WriteUpload(context.Background(), &UploadRecord{
					Key:  "file.txt",
					Size: int64(writerID*writesPerWriter + j),
				})
			}
		}(i)
	}

	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, numWriters*writesPerWriter)

	for i, line := range lines {
		var record Record
		assert.NoError(t, json.Unmarshal([]byte(line), &record), "line %d should be valid JSON: %s", i, line)
	}
}

func TestJSONLWriter_ContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WriteUpload(ctx, &UploadRecord{Key: "file.txt"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())
}

func TestJSONLWriter_WriteFailure(t *testing.T) {
	w := NewJSONLWriter(&failingWriter{err: errors.New("disk full")}, "job-123", "s3")

	err := w.WriteUpload(context.Background(), &UploadRecord{Key: "file.txt"})
	require.Error(t, err)

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "write", writeErr.Op)
}

// failingWriter is an io.Writer that always returns an error.
type failingWriter struct {
	err error
}

func (f *failingWriter) Write(p []byte) (n int, err error) {
	return 0, f.err
}

func TestJSONLWriter_ShortWrite(t *testing.T) {
	sw := &shortWriteWriter{bytesPerWrite: 10}
	w := NewJSONLWriter(sw, "job-123", "s3")

	require.NoError(t, w.WriteUpload(context.Background(), &UploadRecord{Key: "data/file.parquet", Size: 1048576}))

	lines := strings.Split(strings.TrimSpace(sw.buf.String()), "\n")
	require.Len(t, lines, 1)

	var record Record
	assert.NoError(t, json.Unmarshal([]byte(lines[0]), &record), "output should be valid JSON despite short writes")
	assert.Equal(t, TypeUpload, record.Type)
}

func TestJSONLWriter_ZeroWrite(t *testing.T) {
	w := NewJSONLWriter(&zeroWriteWriter{}, "job-123", "s3")

	err := w.WriteUpload(context.Background(), &UploadRecord{Key: "file.txt"})
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

// shortWriteWriter writes at most bytesPerWrite bytes per call, returning nil error.
type shortWriteWriter struct {
	buf           bytes.Buffer
	bytesPerWrite int
}

func (sw *shortWriteWriter) Write(p []byte) (n int, err error) {
	toWrite := len(p)
	if toWrite > sw.bytesPerWrite {
		toWrite = sw.bytesPerWrite
	}
	return sw.buf.Write(p[:toWrite])
}

// zeroWriteWriter always returns 0 bytes written with nil error.
type zeroWriteWriter struct{}

func (zw *zeroWriteWriter) Write(p []byte) (n int, err error) {
	return 0, nil
}

func TestWriteError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &WriteError{Op: "marshal", Err: underlying}

	assert.Equal(t, "output: marshal: underlying error", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestUploadRecord_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(&UploadRecord{Key: "a"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "content_type")
}

func BenchmarkJSONLWriter_WriteUpload(b *testing.B) {
	w := NewJSONLWriter(io.Discard, "job-123", "s3")
	up := &UploadRecord{
		Path:        "/data/2024/01/15/file.parquet",
		Bucket:      "lake",
		Key:         "file.parquet",
		Size:        1048576,
		ContentType: "application/vnd.apache.parquet",
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.WriteUpload(ctx, up)
	}
}
