package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusup/internal/config"
	"github.com/3leaps/nimbusup/internal/observability"
	"github.com/3leaps/nimbusup/pkg/provider"
	"github.com/3leaps/nimbusup/pkg/provider/s3"
)

// fakeProvider records PUTs instead of sending them.
type fakeProvider struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	types   map[string]string
	order   []string
	failOn  string
	err     error
	closed  bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (f *fakeProvider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.order = append(f.order, key)
	if f.err != nil && (f.failOn == "" || f.failOn == key) {
		return f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeProvider) Bucket() string { return f.bucket }

func (f *fakeProvider) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeProvider) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// useFakeProvider swaps providerFactory for the duration of the test and
// records the S3 configuration each call would have used.
func useFakeProvider(t *testing.T, fp *fakeProvider) *[]s3.Config {
	t.Helper()
	var calls []s3.Config
	orig := providerFactory
	providerFactory = func(ctx context.Context, cfg *config.Config, bucket string) (provider.Provider, error) {
		calls = append(calls, s3ConfigFor(cfg, bucket))
		fp.bucket = bucket
		return fp, nil
	}
	t.Cleanup(func() { providerFactory = orig })
	return &calls
}

// isolate runs the test in an empty working directory with the consulted
// variables cleared.
func isolate(t *testing.T) string {
	t.Helper()
	for _, name := range []string{
		"S3_ENDPOINT", "ACCESS_KEY", "SECRET_KEY",
		config.EnvPrefix + "_FORCE_PATH_STYLE",
		config.EnvPrefix + "_LOG_LEVEL",
		config.EnvPrefix + "_WORKERS",
		config.EnvPrefix + "_RATE_LIMIT",
	} {
		t.Setenv(name, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

// execute runs the CLI with args and captures both streams.
func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	observability.SetOutput(&stderr)
	orig := observability.CLILogger
	t.Cleanup(func() {
		observability.SetOutput(nil)
		observability.CLILogger = orig
	})

	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	code := run(context.Background(), root, args, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestSetVersionInfo(t *testing.T) {
	orig := versionInfo
	defer func() { versionInfo = orig }()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{name: "set all values", version: "1.0.0", commit: "abc123", buildDate: "2024-01-15"},
		{name: "set dev version", version: "dev", commit: "HEAD", buildDate: "unknown"},
		{name: "set empty values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestRootCmd_MissingBucket(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		setup func(t *testing.T)
	}{
		{
			name: "file selector",
			args: []string{"--file", "anything.txt"},
		},
		{
			name: "before env file loading",
			args: []string{"--file", "a.txt", "--env-file", "missing.env"},
		},
		{
			name: "before config loading",
			args: []string{"--file", "a.txt"},
			setup: func(t *testing.T) {
				t.Setenv("NIMBUSUP_WORKERS", "abc")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if tt.setup != nil {
				tt.setup(t)
			}
			calls := useFakeProvider(t, newFakeProvider())

			code, stdout, stderr := execute(t, tt.args...)

			assert.Equal(t, foundry.ExitInvalidArgument, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, `required flag(s) "bucket" not set`)
			assert.NotContains(t, stderr, "Failed to load")
			assert.Empty(t, *calls)
		})
	}
}

func TestRootCmd_RejectsPositionalArgs(t *testing.T) {
	isolate(t)
	useFakeProvider(t, newFakeProvider())

	code, _, stderr := execute(t, "--bucket", "media", "stray")

	assert.Equal(t, foundry.ExitInvalidArgument, code)
	assert.Contains(t, stderr, "Error:")
}

func TestRootCmd_UnknownOutputFormat(t *testing.T) {
	dir := isolate(t)
	writeTestFile(t, dir, "a.txt", "a")
	calls := useFakeProvider(t, newFakeProvider())

	code, stdout, _ := execute(t, "--bucket", "media", "--file", "a.txt", "--output", "xml")

	assert.Equal(t, foundry.ExitInvalidArgument, code)
	assert.Empty(t, stdout)
	assert.Empty(t, *calls)
}

func TestRootCmd_ExplicitEnvFileMissing(t *testing.T) {
	isolate(t)
	useFakeProvider(t, newFakeProvider())

	code, _, stderr := execute(t, "--bucket", "media", "--file", "a.txt", "--env-file", "custom.env")

	assert.Equal(t, foundry.ExitInvalidArgument, code)
	assert.Contains(t, stderr, "Failed to load env file")
}

func TestFlagOverrides(t *testing.T) {
	t.Run("only explicit flags", func(t *testing.T) {
		root := NewRootCmd()
		require.NoError(t, root.ParseFlags([]string{"--bucket", "media"}))
		assert.Empty(t, flagOverrides(root))
	})

	t.Run("workers and rate limit", func(t *testing.T) {
		root := NewRootCmd()
		require.NoError(t, root.ParseFlags([]string{"--workers", "4", "--rate-limit", "2.5"}))
		assert.Equal(t, map[string]any{"workers": 4, "rate_limit": 2.5}, flagOverrides(root))
	})
}

func TestVersionCmd(t *testing.T) {
	orig := versionInfo
	defer func() { versionInfo = orig }()
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")

	t.Run("short", func(t *testing.T) {
		code, stdout, _ := execute(t, "version", "--short")
		assert.Equal(t, 0, code)
		assert.Equal(t, "1.2.3\n", stdout)
	})

	t.Run("full", func(t *testing.T) {
		code, stdout, _ := execute(t, "version")
		assert.Equal(t, 0, code)
		assert.Contains(t, stdout, "nimbusup 1.2.3 (commit abc123, built 2026-01-01")
	})

	t.Run("skips environment loading", func(t *testing.T) {
		isolate(t)
		code, _, _ := execute(t, "version", "--env-file", "missing.env")
		assert.Equal(t, 0, code)
	})
}

func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, 0, exitCodeOf(nil))
	assert.Equal(t, foundry.ExitFileReadError,
		exitCodeOf(exitError(foundry.ExitFileReadError, "read", errors.New("boom"))))
	assert.Equal(t, foundry.ExitInvalidArgument, exitCodeOf(errors.New("unknown flag: --nope")))
}

func TestExitError(t *testing.T) {
	inner := errors.New("boom")
	err := exitError(foundry.ExitExternalServiceUnavailable, "Upload failed", inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "Upload failed: boom (exit code")
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
