// Package output reports upload results.
//
// Two renderings are provided: plain confirmation lines for terminals and
// JSONL record envelopes for machines. Each JSONL line is a self-contained
// JSON object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: nimbusup.<type>.v<version>
const (
	// TypeUpload identifies a completed single-object upload.
	TypeUpload = "nimbusup.upload.v1"

	// TypeError identifies error records.
	TypeError = "nimbusup.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "nimbusup.summary.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g., "nimbusup.upload.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID for this invocation.
	JobID string `json:"job_id"`

	// Provider identifies the storage provider (e.g., "s3").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// UploadRecord is the data payload for a completed upload.
type UploadRecord struct {
	// Path is the local file that was read.
	Path string `json:"path"`

	// Bucket is the destination bucket.
	Bucket string `json:"bucket"`

	// Key is the destination object key.
	Key string `json:"key"`

	// Size is the number of bytes sent.
	Size int64 `json:"size"`

	// ContentType is the MIME type stored with the object.
	ContentType string `json:"content_type,omitempty"`
}

// ErrorRecord is the data payload for errors.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Path is the local path related to this error, if applicable.
	Path string `json:"path,omitempty"`

	// Key is the object key related to this error, if applicable.
	Key string `json:"key,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeInvalidPath         = "INVALID_PATH"
	ErrCodeConfig              = "CONFIG"
	ErrCodeAccessDenied        = "ACCESS_DENIED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeBucketNotFound      = "BUCKET_NOT_FOUND"
	ErrCodeThrottled           = "THROTTLED"
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrCodeTooLarge            = "ENTITY_TOO_LARGE"
	ErrCodeCanceled            = "CANCELED"
	ErrCodeProvider            = "PROVIDER_ERROR"
	ErrCodeInternal            = "INTERNAL"
)

// SummaryRecord is the data payload for the final summary.
type SummaryRecord struct {
	// Files is the number of objects written.
	Files int64 `json:"files"`

	// Bytes is the cumulative size of uploaded files.
	Bytes int64 `json:"bytes"`

	// Duration is the total upload duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
