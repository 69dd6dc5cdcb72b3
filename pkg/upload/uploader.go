// Package upload sends local files to an object store bucket.
//
// An Uploader writes either a single file or every regular file directly
// inside a directory, one PUT per file. Keys are chosen by the caller for
// single files and are the base name for directory entries. Nothing is
// retried: the first failure ends the operation, and objects already written
// stay in the bucket.
package upload

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/3leaps/nimbusup/pkg/output"
	"github.com/3leaps/nimbusup/pkg/provider"
)

// Config configures uploader behavior.
type Config struct {
	// Bucket is the destination bucket name, used in confirmations.
	Bucket string

	// Concurrency is the number of files uploaded at once by UploadDirectory.
	// 1 uploads in enumeration order and stops at the first failure.
	// Larger values use a bounded worker pool; confirmations arrive in
	// completion order.
	// Default: 1
	Concurrency int

	// RateLimit is the maximum PUT requests per second.
	// Zero means unlimited.
	// Default: 0
	RateLimit float64

	// Filter limits which directory entries UploadDirectory sends.
	// UploadFile ignores it. Nil uploads every regular file.
	Filter *Filter
}

// DefaultConfig returns the default uploader configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 1,
		RateLimit:   0,
	}
}

// Summary contains aggregate statistics from completed uploads.
type Summary struct {
	// Files is the number of objects written.
	Files int64

	// Bytes is the cumulative size of uploaded files.
	Bytes int64

	// Duration is the time since the uploader was created.
	Duration time.Duration
}

// Uploader puts local files into a bucket through an ObjectPutter.
type Uploader struct {
	putter  provider.ObjectPutter
	writer  output.Writer
	config  Config
	limiter *rate.Limiter
	started time.Time

	files atomic.Int64
	bytes atomic.Int64
}

// New creates a new uploader.
//
// Parameters:
//   - p: Destination for PUT requests
//   - w: Receives one confirmation per uploaded file
//   - cfg: Uploader configuration (use DefaultConfig() as base)
func New(p provider.ObjectPutter, w output.Writer, cfg Config) *Uploader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}

	u := &Uploader{
		putter:  p,
		writer:  w,
		config:  cfg,
		started: time.Now(),
	}

	if cfg.RateLimit > 0 {
		u.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return u
}

// UploadFile sends the full contents of path as object key, replacing any
// existing object, then emits a confirmation.
func (u *Uploader) UploadFile(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return &FileError{Op: "open", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return &FileError{Op: "stat", Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &FileError{Op: "open", Path: path, Err: ErrNotRegular}
	}

	contentType, err := detectContentType(f, path)
	if err != nil {
		return &FileError{Op: "read", Path: path, Err: err}
	}

	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if err := u.putter.PutObject(ctx, key, f, info.Size(), contentType); err != nil {
		return err
	}

	u.files.Add(1)
	u.bytes.Add(info.Size())

	// The object is stored; confirm it even if a sibling or a signal has
	// since canceled ctx.
	return u.writer.WriteUpload(context.WithoutCancel(ctx), &output.UploadRecord{
		Path:        path,
		Bucket:      u.config.Bucket,
		Key:         key,
		Size:        info.Size(),
		ContentType: contentType,
	})
}

// UploadDirectory uploads every regular file directly inside dir, keyed by
// base name. Subdirectories and special files are skipped without error.
// Symlinks are followed and uploaded when they resolve to a regular file.
//
// The first failure stops the walk; files not yet started are not attempted.
func (u *Uploader) UploadDirectory(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &FileError{Op: "readdir", Path: dir, Err: err}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.config.Concurrency)

	var walkErr error
	for _, entry := range entries {
		if gctx.Err() != nil {
			break
		}

		path := filepath.Join(dir, entry.Name())
		ok, err := isRegularFile(entry, path)
		if err != nil {
			walkErr = &FileError{Op: "stat", Path: path, Err: err}
			break
		}
		if !ok || !u.config.Filter.Match(entry.Name()) {
			continue
		}

		key := entry.Name()
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return u.UploadFile(gctx, path, key)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if walkErr != nil {
		return walkErr
	}
	return ctx.Err()
}

// Summary returns totals for uploads completed so far.
func (u *Uploader) Summary() Summary {
	return Summary{
		Files:    u.files.Load(),
		Bytes:    u.bytes.Load(),
		Duration: time.Since(u.started),
	}
}

// isRegularFile reports whether a directory entry should be uploaded.
func isRegularFile(entry fs.DirEntry, path string) (bool, error) {
	if entry.Type().IsRegular() {
		return true, nil
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		// Dangling links are skipped like any other non-file entry.
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// rewind returns r to its start after content sniffing.
func rewind(r io.Seeker) error {
	_, err := r.Seek(0, io.SeekStart)
	return err
}
