// Package cmd implements the nimbusup command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusup/internal/config"
	"github.com/3leaps/nimbusup/internal/observability"
	"github.com/3leaps/nimbusup/pkg/output"
	"github.com/3leaps/nimbusup/pkg/provider"
	"github.com/3leaps/nimbusup/pkg/provider/file"
	"github.com/3leaps/nimbusup/pkg/provider/s3"
)

const appName = "nimbusup"

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

var versionInfo = VersionInfo{
	Version:   "dev",
	Commit:    "none",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected via ldflags.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// providerFactory builds the destination provider. Tests substitute a fake.
var providerFactory = newProvider

// newProvider returns a local-directory provider for file:// endpoints and an
// S3 provider otherwise.
func newProvider(ctx context.Context, cfg *config.Config, bucket string) (provider.Provider, error) {
	if dir, ok := cfg.S3.LocalDir(); ok {
		return file.New(file.Config{BaseDir: dir, Bucket: bucket})
	}
	return s3.New(ctx, s3ConfigFor(cfg, bucket))
}

func providerTypeFor(cfg *config.Config) provider.ProviderType {
	if _, ok := cfg.S3.LocalDir(); ok {
		return provider.ProviderFile
	}
	return provider.ProviderS3
}

// globalOptions are flags shared by every command.
type globalOptions struct {
	verbose bool
	envFile string
	output  string
}

// session is the state resolved once per invocation and handed to commands.
type session struct {
	opts globalOptions
	cfg  *config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	sess := &session{}
	up := &uploadOptions{}

	rootCmd := &cobra.Command{
		Use:   appName + " --bucket <name> [--file <path> | --dir <path>]",
		Short: "Upload files to an S3-compatible bucket",
		Long: `Upload a single file, or every file directly inside a directory, to an
S3-compatible object store bucket. Objects are named after the local file's
base name and overwrite any existing object with the same key.

Credentials are read from S3_ENDPOINT, ACCESS_KEY and SECRET_KEY. A .env file
in the working directory is applied first when present; it never overrides
variables that are already set.

Examples:
  nimbusup --bucket media --file ./logo.png
  nimbusup --bucket media --dir ./public
  nimbusup --bucket media --dir ./public --workers 8 --output json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return sess.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, sess, up)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&sess.opts.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&sess.opts.envFile, "env-file", "", "Dotenv file to apply before reading the environment (default .env when present)")
	pf.StringVarP(&sess.opts.output, "output", "o", output.FormatText, "Output format (text|json)")

	addUploadFlags(rootCmd, up)

	rootCmd.AddCommand(newDoctorCmd(sess))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// init applies the env file, loads configuration and configures logging.
//
// Required flags are checked first so a missing --bucket is reported before
// the process environment is touched.
func (s *session) init(cmd *cobra.Command) error {
	if err := cmd.ValidateRequiredFlags(); err != nil {
		return err
	}

	explicit := cmd.Flags().Changed("env-file")
	applied, err := config.LoadEnvFile(s.opts.envFile, explicit)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to load env file", err)
	}

	cfg, err := config.Load(cmd.Context(), flagOverrides(cmd))
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to load configuration", err)
	}
	cfg.EnvFile = applied
	s.cfg = cfg

	observability.InitCLILoggerWithLevel(appName, cfg.Logging.Level, s.opts.verbose)
	observability.CLILogger.Debug("Configuration loaded",
		zap.String("env_file", applied),
		zap.String("endpoint", cfg.S3.Endpoint),
		zap.String("region", cfg.S3.Region()),
		zap.Int("workers", cfg.Workers),
		zap.Float64("rate_limit", cfg.RateLimit))
	return nil
}

// flagOverrides returns config overrides for flags the user set explicitly.
func flagOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	if f := cmd.Flags().Lookup("workers"); f != nil && f.Changed {
		if n, err := cmd.Flags().GetInt("workers"); err == nil {
			overrides["workers"] = n
		}
	}
	if f := cmd.Flags().Lookup("rate-limit"); f != nil && f.Changed {
		if r, err := cmd.Flags().GetFloat64("rate-limit"); err == nil {
			overrides["rate_limit"] = r
		}
	}
	return overrides
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, NewRootCmd(), os.Args[1:], os.Stderr)
}

// run executes cmd with args and converts the outcome to an exit code.
func run(ctx context.Context, cmd *cobra.Command, args []string, stderr io.Writer) int {
	observability.InitCLILogger(appName, false)
	defer observability.Sync()

	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		observability.CLILogger.Error(exitErr.Message,
			zap.Error(exitErr.Err),
			zap.Int("exit_code", exitErr.Code))
		return exitErr.Code
	}

	// Flag parsing failures, including a missing --bucket.
	_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	_, _ = fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", appName)
	return exitCodeOf(err)
}
