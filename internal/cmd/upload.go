package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusup/internal/config"
	"github.com/3leaps/nimbusup/internal/observability"
	"github.com/3leaps/nimbusup/pkg/output"
	"github.com/3leaps/nimbusup/pkg/provider"
	"github.com/3leaps/nimbusup/pkg/provider/s3"
	"github.com/3leaps/nimbusup/pkg/upload"
)

// uploadOptions holds the root command's upload flags.
type uploadOptions struct {
	bucket   string
	file     string
	dir      string
	includes []string
	excludes []string
}

func addUploadFlags(cmd *cobra.Command, up *uploadOptions) {
	f := cmd.Flags()
	f.StringVar(&up.bucket, "bucket", "", "Destination bucket name (required)")
	f.StringVar(&up.file, "file", "", "Upload a single file (takes precedence over --dir)")
	f.StringVar(&up.dir, "dir", "", "Upload every regular file directly inside this directory")
	f.StringArrayVar(&up.includes, "include", nil, "Glob on base names; with --dir, upload only matching files (repeatable)")
	f.StringArrayVar(&up.excludes, "exclude", nil, "Glob on base names; with --dir, skip matching files (repeatable)")
	f.Int("workers", 1, "Concurrent uploads in --dir mode (1 preserves directory order)")
	f.Float64("rate-limit", 0, "Maximum PUT requests per second (0 = unlimited)")
	_ = cmd.MarkFlagRequired("bucket")
}

// uploadSource is the validated local path to upload.
type uploadSource struct {
	path  string
	isDir bool
}

// sourceError reports an unusable --file or --dir value.
type sourceError struct {
	Path    string
	Message string
}

func (e *sourceError) Error() string {
	return e.Message
}

// resolveSource picks the upload mode. --file wins when both are given.
func resolveSource(file, dir string) (uploadSource, error) {
	switch {
	case file != "":
		info, err := os.Stat(file)
		if err != nil || !info.Mode().IsRegular() {
			return uploadSource{}, &sourceError{Path: file, Message: fmt.Sprintf("%s is not a valid file.", file)}
		}
		return uploadSource{path: file}, nil
	case dir != "":
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return uploadSource{}, &sourceError{Path: dir, Message: fmt.Sprintf("%s is not a valid directory.", dir)}
		}
		return uploadSource{path: dir, isDir: true}, nil
	default:
		return uploadSource{}, &sourceError{Message: "Provide either --file or --dir argument."}
	}
}

// s3ConfigFor builds the provider configuration for bucket.
func s3ConfigFor(cfg *config.Config, bucket string) s3.Config {
	return s3.Config{
		Bucket:          bucket,
		Region:          cfg.S3.Region(),
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKey,
		SecretAccessKey: cfg.S3.SecretKey,
		ForcePathStyle:  cfg.S3.ForcePathStyle && cfg.S3.Endpoint != "",
	}
}

func runUpload(cmd *cobra.Command, sess *session, up *uploadOptions) error {
	ctx := cmd.Context()
	// Failure reports are written even after an interrupt.
	reportCtx := context.WithoutCancel(ctx)

	jobID := uuid.New().String()
	logger := observability.CLILogger.With(zap.String("job_id", jobID))

	cfg := sess.cfg
	writer, err := output.NewWriter(sess.opts.output, cmd.OutOrStdout(), jobID, providerTypeFor(cfg).String())
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid output format", err)
	}
	defer func() { _ = writer.Close() }()

	if up.file != "" && up.dir != "" {
		logger.Debug("Both --file and --dir given, --dir is ignored", zap.String("file", up.file), zap.String("dir", up.dir))
	}

	src, err := resolveSource(up.file, up.dir)
	if err != nil {
		var srcErr *sourceError
		path := ""
		if errors.As(err, &srcErr) {
			path = srcErr.Path
		}
		_ = writer.WriteError(reportCtx, &output.ErrorRecord{
			Code:    output.ErrCodeInvalidPath,
			Message: err.Error(),
			Path:    path,
		})
		return exitError(foundry.ExitInvalidArgument, "Invalid upload source", err)
	}

	filter, err := upload.NewFilter(up.includes, up.excludes)
	if err != nil {
		_ = writer.WriteError(reportCtx, &output.ErrorRecord{Code: output.ErrCodeConfig, Message: err.Error()})
		return exitError(foundry.ExitInvalidArgument, "Invalid filter pattern", err)
	}

	if err := cfg.Validate(); err != nil {
		_ = writer.WriteError(reportCtx, &output.ErrorRecord{Code: output.ErrCodeConfig, Message: err.Error()})
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	prov, err := providerFactory(ctx, cfg, up.bucket)
	if err != nil {
		_ = writer.WriteError(reportCtx, &output.ErrorRecord{Code: output.ErrCodeConfig, Message: err.Error()})
		var s3CfgErr *s3.ConfigError
		if errors.As(err, &s3CfgErr) {
			return exitError(foundry.ExitInvalidArgument, "Invalid S3 configuration", err)
		}
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to create storage provider", err)
	}
	defer func() { _ = prov.Close() }()

	uploader := upload.New(prov, writer, upload.Config{
		Bucket:      up.bucket,
		Concurrency: cfg.Workers,
		RateLimit:   cfg.RateLimit,
		Filter:      filter,
	})

	logger.Debug("Starting upload",
		zap.String("source", src.path),
		zap.Bool("directory", src.isDir),
		zap.String("bucket", prov.Bucket()),
		zap.Int("workers", cfg.Workers))

	if src.isDir {
		err = uploader.UploadDirectory(ctx, src.path)
	} else {
		err = uploader.UploadFile(ctx, src.path, filepath.Base(src.path))
	}

	summary := uploader.Summary()
	if err != nil {
		code, errCode := classifyUploadError(err)
		record := &output.ErrorRecord{Code: errCode, Message: err.Error()}
		var fileErr *upload.FileError
		if errors.As(err, &fileErr) {
			record.Path = fileErr.Path
		}
		var provErr *provider.ProviderError
		if errors.As(err, &provErr) {
			record.Key = provErr.Key
		}
		_ = writer.WriteError(reportCtx, record)

		logger.Debug("Upload stopped",
			zap.Int64("files", summary.Files),
			zap.Int64("bytes", summary.Bytes))
		return exitError(code, "Upload failed", err)
	}

	if err := writer.WriteSummary(ctx, &output.SummaryRecord{
		Files:         summary.Files,
		Bytes:         summary.Bytes,
		Duration:      summary.Duration,
		DurationHuman: summary.Duration.String(),
	}); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write summary", err)
	}

	logger.Debug("Upload complete",
		zap.Int64("files", summary.Files),
		zap.Int64("bytes", summary.Bytes),
		zap.Duration("duration", summary.Duration))
	return nil
}
