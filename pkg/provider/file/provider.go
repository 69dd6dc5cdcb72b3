// Package file provides a local-directory destination with the same
// overwrite semantics as an object store.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/3leaps/nimbusup/pkg/provider"
)

// Provider writes objects to BaseDir/<bucket>/<key>.
//
// The bucket directory must already exist, mirroring an object store where
// PUT into a missing bucket fails.
type Provider struct {
	baseDir string
	bucket  string
}

var _ provider.Provider = (*Provider)(nil)

// Config configures a local-directory provider.
type Config struct {
	// BaseDir holds one subdirectory per bucket.
	BaseDir string

	// Bucket is the subdirectory objects are written into.
	Bucket string
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return fmt.Errorf("bucket name is required")
	}
	if strings.ContainsAny(c.Bucket, `/\`) || c.Bucket == "." || c.Bucket == ".." {
		return fmt.Errorf("invalid bucket name %q", c.Bucket)
	}
	return nil
}

// New creates a local-directory provider.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Provider{baseDir: filepath.Clean(cfg.BaseDir), bucket: cfg.Bucket}, nil
}

// Bucket returns the bucket name.
func (p *Provider) Bucket() string { return p.bucket }

// Close is a no-op.
func (p *Provider) Close() error { return nil }

// PutObject writes body to the key's path, replacing any existing file.
//
// The body is staged in a temporary file in the bucket directory and renamed
// into place, so readers never see a partial object. contentType is not
// stored.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bucketDir := filepath.Join(p.baseDir, p.bucket)
	st, err := os.Stat(bucketDir)
	if err != nil || !st.IsDir() {
		return p.wrapError("PutObject", key, provider.ErrBucketNotFound)
	}

	full, err := p.fullPath(key)
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return p.wrapError("PutObject", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".nimbusup-put-*")
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	n, err := io.Copy(tmp, body)
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if contentLength >= 0 && n != contentLength {
		return p.wrapError("PutObject", key, fmt.Errorf("short body: wrote %d of %d bytes", n, contentLength))
	}
	if err := tmp.Close(); err != nil {
		return p.wrapError("PutObject", key, err)
	}

	if err := os.Rename(tmpName, full); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	return nil
}

func (p *Provider) fullPath(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	// Prevent path traversal.
	clean := strings.TrimPrefix(filepath.Clean("/"+key), "/")
	if clean == "" || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path %q", key)
	}
	return filepath.Join(p.baseDir, p.bucket, filepath.FromSlash(clean)), nil
}

func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Bucket: p.bucket, Key: key, Err: err}
	if os.IsPermission(err) {
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}
