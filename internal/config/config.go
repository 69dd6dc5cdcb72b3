// Package config resolves nimbusup settings from the environment.
//
// Credentials and the endpoint come from S3_ENDPOINT, ACCESS_KEY and
// SECRET_KEY, optionally pre-populated from a .env file. Tool settings use the
// NIMBUSUP_ prefix. Precedence is runtime overrides > environment > .env file
// > defaults; a .env value never replaces a variable that is already set.
package config

import (
	"net/url"
)

// Region is sent with every request. It is fixed, not configurable.
const Region = "enam"

// EnvPrefix prefixes tool settings in the environment.
const EnvPrefix = "NIMBUSUP"

// DefaultEnvFile is read from the working directory when present.
const DefaultEnvFile = ".env"

// Config is the resolved configuration. It is built once per process and not
// modified afterwards.
type Config struct {
	S3      S3Config      `mapstructure:"s3"`
	Logging LoggingConfig `mapstructure:"logging"`

	// Workers bounds concurrent uploads for directory mode.
	Workers int `mapstructure:"workers"`

	// RateLimit caps PUT requests per second. Zero is unlimited.
	RateLimit float64 `mapstructure:"rate_limit"`

	// EnvFile is the dotenv file that was applied, empty if none.
	EnvFile string `mapstructure:"-"`
}

// S3Config holds endpoint and credentials for the object store.
type S3Config struct {
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// LoggingConfig controls the CLI logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Region returns the fixed request region.
func (c S3Config) Region() string {
	return Region
}

// Validate checks the S3 settings before any request is made.
//
// ACCESS_KEY and SECRET_KEY must be set together. When both are absent the
// SDK default credential chain applies and a missing credential surfaces on
// the first request.
func (c *Config) Validate() error {
	if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
		missing := envAccessKey
		if c.S3.SecretKey == "" {
			missing = envSecretKey
		}
		return &ConfigError{Field: missing, Message: "must be set together with " + pairOf(missing)}
	}

	if c.S3.Endpoint != "" && !validEndpoint(c.S3.Endpoint) {
		return &ConfigError{Field: envEndpoint, Message: "must be an absolute http(s) URL or a file:// directory, got " + c.S3.Endpoint}
	}

	if c.Workers < 1 {
		return &ConfigError{Field: "workers", Message: "must be at least 1"}
	}
	if c.RateLimit < 0 {
		return &ConfigError{Field: "rate_limit", Message: "must not be negative"}
	}

	return nil
}

func validEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "file":
		return u.Path != ""
	default:
		return false
	}
}

// LocalDir returns the directory named by a file:// endpoint. Buckets are
// its subdirectories.
func (c S3Config) LocalDir() (string, bool) {
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", false
	}
	return u.Path, true
}

// HasStaticCredentials reports whether ACCESS_KEY/SECRET_KEY were provided.
func (c *Config) HasStaticCredentials() bool {
	return c.S3.AccessKey != "" && c.S3.SecretKey != ""
}

func pairOf(name string) string {
	if name == envAccessKey {
		return envSecretKey
	}
	return envAccessKey
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}
