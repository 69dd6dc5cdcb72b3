package cmd

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusup/internal/config"
	"github.com/3leaps/nimbusup/internal/observability"
)

// credentialTimeout bounds credential resolution so a missing instance
// metadata service does not stall the report.
const credentialTimeout = 5 * time.Second

func newDoctorCmd(sess *session) *cobra.Command {
	var resolveCreds bool

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks",
		Long: `Run diagnostic checks on the upload environment and suggest fixes for
common issues. No objects are written.

Examples:
  nimbusup doctor                         # Environment and configuration checks
  nimbusup doctor --resolve-credentials   # Also resolve credentials through the SDK`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), sess.cfg, resolveCreds)
		},
	}
	doctorCmd.Flags().BoolVar(&resolveCreds, "resolve-credentials", false, "Resolve credentials through the AWS SDK")

	return doctorCmd
}

func runDoctor(ctx context.Context, cfg *config.Config, resolveCreds bool) error {
	log := observability.CLILogger
	log.Info("=== " + appName + " doctor ===")
	log.Info("")
	log.Info("Running diagnostic checks...")
	log.Info("")

	allChecks := true
	checkNum := 1
	totalChecks := 5
	if resolveCreds {
		totalChecks++
	}

	// Check 1: Environment
	log.Info(fmt.Sprintf("[%d/%d] Checking environment... ✅ %s/%s %s", checkNum, totalChecks, runtime.GOOS, runtime.GOARCH, runtime.Version()),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH),
		zap.String("go_version", runtime.Version()))
	checkNum++

	// Check 2: Env file
	if cfg.EnvFile != "" {
		log.Info(fmt.Sprintf("[%d/%d] Checking env file... ✅ %s", checkNum, totalChecks, cfg.EnvFile),
			zap.String("env_file", cfg.EnvFile))
	} else {
		log.Info(fmt.Sprintf("[%d/%d] Checking env file... ✅ none (using process environment)", checkNum, totalChecks))
	}
	checkNum++

	// Check 3: Endpoint
	if cfg.S3.Endpoint != "" {
		log.Info(fmt.Sprintf("[%d/%d] Checking S3_ENDPOINT... ✅ %s", checkNum, totalChecks, cfg.S3.Endpoint),
			zap.String("endpoint", cfg.S3.Endpoint),
			zap.Bool("path_style", cfg.S3.ForcePathStyle))
	} else {
		log.Warn(fmt.Sprintf("[%d/%d] Checking S3_ENDPOINT... ⚠️  not set (using the AWS default endpoint)", checkNum, totalChecks))
	}
	checkNum++

	// Check 4: Static credentials
	switch {
	case cfg.HasStaticCredentials():
		log.Info(fmt.Sprintf("[%d/%d] Checking ACCESS_KEY/SECRET_KEY... ✅ Found credentials", checkNum, totalChecks),
			zap.String("access_key", maskAccessKey(cfg.S3.AccessKey)))
	case cfg.S3.AccessKey == "" && cfg.S3.SecretKey == "":
		log.Warn(fmt.Sprintf("[%d/%d] Checking ACCESS_KEY/SECRET_KEY... ⚠️  not set (using the AWS default credential chain)", checkNum, totalChecks))
	default:
		log.Error(fmt.Sprintf("[%d/%d] Checking ACCESS_KEY/SECRET_KEY... ❌ only one of the pair is set", checkNum, totalChecks))
		printCredentialsHelp()
		allChecks = false
	}
	checkNum++

	// Check 5: Full configuration
	if err := cfg.Validate(); err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking configuration... ❌ %v", checkNum, totalChecks, err),
			zap.Error(err))
		allChecks = false
	} else {
		log.Info(fmt.Sprintf("[%d/%d] Checking configuration... ✅ region %s, %d worker(s)", checkNum, totalChecks, cfg.S3.Region(), cfg.Workers),
			zap.String("region", cfg.S3.Region()),
			zap.Int("workers", cfg.Workers),
			zap.Float64("rate_limit", cfg.RateLimit))
	}
	checkNum++

	if resolveCreds {
		if !checkCredentialResolution(ctx, cfg, checkNum, totalChecks) {
			allChecks = false
		}
	}

	log.Info("")
	if allChecks {
		log.Info("✅ All checks passed! Ready to upload.")
	} else {
		log.Warn("⚠️  Some checks failed. Review the output above for details.")
	}
	log.Info("")
	log.Info("=== End Diagnostics ===")

	if !allChecks {
		return exitError(foundry.ExitInvalidArgument, "Diagnostics failed", fmt.Errorf("one or more checks failed"))
	}
	return nil
}

// checkCredentialResolution resolves credentials the same way uploads do.
func checkCredentialResolution(ctx context.Context, cfg *config.Config, checkNum, totalChecks int) bool {
	log := observability.CLILogger

	ctx, cancel := context.WithTimeout(ctx, credentialTimeout)
	defer cancel()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3.Region()),
	}
	if cfg.HasStaticCredentials() {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Resolving credentials... ❌ Cannot load AWS config", checkNum, totalChecks),
			zap.Error(err))
		printCredentialsHelp()
		return false
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Resolving credentials... ❌ Cannot retrieve credentials", checkNum, totalChecks),
			zap.Error(err))
		printCredentialsHelp()
		return false
	}

	log.Info(fmt.Sprintf("[%d/%d] Resolving credentials... ✅ %s", checkNum, totalChecks, credentialSource(creds)),
		zap.String("access_key", maskAccessKey(creds.AccessKeyID)),
		zap.String("source", credentialSource(creds)))
	return true
}

func credentialSource(creds aws.Credentials) string {
	if creds.Source == "" {
		return "unknown"
	}
	return creds.Source
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// printCredentialsHelp prints help for configuring credentials.
func printCredentialsHelp() {
	log := observability.CLILogger
	log.Info("")
	log.Info("To configure credentials:")
	log.Info("  1. Set ACCESS_KEY and SECRET_KEY in the environment, or")
	log.Info("  2. Put them in a .env file in the working directory, or")
	log.Info("  3. Leave both unset to use the AWS default credential chain")
	log.Info("")
	log.Info("For S3-compatible storage (Cloudflare R2, MinIO, etc.), also set:")
	log.Info("  - S3_ENDPOINT, e.g. https://<account>.r2.cloudflarestorage.com")
	log.Info("")
}
