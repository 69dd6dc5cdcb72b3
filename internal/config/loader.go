package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	envEndpoint  = "S3_ENDPOINT"
	envAccessKey = "ACCESS_KEY"
	envSecretKey = "SECRET_KEY"
)

// envSpec maps an environment variable to a config path.
type envSpec struct {
	Name string
	Path string
}

// getEnvSpecs lists every environment variable Load consults.
func getEnvSpecs() []envSpec {
	return []envSpec{
		{Name: envEndpoint, Path: "s3.endpoint"},
		{Name: envAccessKey, Path: "s3.access_key"},
		{Name: envSecretKey, Path: "s3.secret_key"},
		{Name: EnvPrefix + "_FORCE_PATH_STYLE", Path: "s3.force_path_style"},
		{Name: EnvPrefix + "_LOG_LEVEL", Path: "logging.level"},
		{Name: EnvPrefix + "_WORKERS", Path: "workers"},
		{Name: EnvPrefix + "_RATE_LIMIT", Path: "rate_limit"},
	}
}

// setDefaults registers default values on v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.force_path_style", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("workers", 1)
	v.SetDefault("rate_limit", 0.0)
}

// LoadEnvFile applies a dotenv file to the process environment. Variables
// that are already set keep their values.
//
// A missing file is ignored unless required is true. It returns the path that
// was applied, or "" when nothing was loaded.
func LoadEnvFile(path string, required bool) (string, error) {
	if path == "" {
		path = DefaultEnvFile
	}

	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return "", nil
		}
		return "", &ConfigError{Field: "env-file", Message: fmt.Sprintf("cannot load %s: %v", path, err)}
	}
	return path, nil
}

// Load resolves configuration from defaults, the environment and optional
// runtime overrides. Overrides are nested maps keyed like the mapstructure
// tags (e.g. {"s3": {"endpoint": "..."}}) and win over everything else.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "unmarshal", Message: err.Error()}
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))

	return &cfg, nil
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}
