package config

import (
	"errors"
	"fmt"
	"time"

	"memento-client/pkg/env"
	apperrors "memento-client/pkg/errors"
	"memento-client/pkg/password"
)

// Config holds all configuration for the client and the stub server
type Config struct {
	Environment string // development, staging, production
	Client      ClientConfig
	Stub        StubConfig
	Log         LogConfig
	Metrics     MetricsConfig
}

// ClientConfig holds the memento call-list client configuration
type ClientConfig struct {
	Server             string
	User               string
	Username           string
	Password           string
	SchemaPath         string // empty uses the bundled schema
	Encoding           string
	Timeout            time.Duration
	InsecureSkipVerify bool
	Debug              bool
}

// StubConfig holds the stub call-list server configuration
type StubConfig struct {
	Port         int
	Username     string
	PasswordHash string
	CallListDir  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string // debug, info, warn, error
	Format   string // json, text
	Output   string // stdout, stderr, file
	FilePath string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	TextfilePath string // node exporter textfile written after a fetch; empty disables it
}

var supportedEncodings = map[string]bool{"gzip": true, "deflate": true, "identity": true}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Environment: env.GetString("ENV", "development"),
		Client: ClientConfig{
			Server:             env.GetString("MEMENTO_SERVER", ""),
			User:               env.GetString("MEMENTO_USER", ""),
			Username:           env.GetString("MEMENTO_USERNAME", ""),
			Password:           env.GetStringFromFile("MEMENTO_PASSWORD", ""),
			SchemaPath:         env.GetString("MEMENTO_SCHEMA_PATH", ""),
			Encoding:           env.GetString("MEMENTO_ENCODING", "gzip"),
			Timeout:            env.GetDuration("MEMENTO_TIMEOUT", 30*time.Second),
			InsecureSkipVerify: env.GetBool("MEMENTO_INSECURE_SKIP_VERIFY", false),
			Debug:              env.GetBool("MEMENTO_DEBUG", false),
		},
		Stub: StubConfig{
			Port:         env.GetInt("STUB_PORT", 8080),
			Username:     env.GetString("STUB_USERNAME", ""),
			PasswordHash: env.GetStringFromFile("STUB_PASSWORD_HASH", ""),
			CallListDir:  env.GetString("STUB_CALL_LIST_DIR", "./call-lists"),
		},
		Log: LogConfig{
			Level:    env.GetString("LOG_LEVEL", "info"),
			Format:   env.GetString("LOG_FORMAT", "text"),
			Output:   env.GetString("LOG_OUTPUT", "stderr"),
			FilePath: env.GetString("LOG_FILE_PATH", ""),
		},
		Metrics: MetricsConfig{
			TextfilePath: env.GetString("METRICS_TEXTFILE", ""),
		},
	}
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ValidateClient checks everything the client needs, reporting every problem at once
func (c *Config) ValidateClient() error {
	var errs []error
	if c.Client.Server == "" {
		errs = append(errs, errors.New("MEMENTO_SERVER must be set"))
	}
	if c.Client.User == "" {
		errs = append(errs, errors.New("MEMENTO_USER must be set"))
	}
	if c.Client.Username == "" {
		errs = append(errs, errors.New("MEMENTO_USERNAME must be set"))
	}
	if !supportedEncodings[c.Client.Encoding] {
		errs = append(errs, fmt.Errorf("MEMENTO_ENCODING %q is not one of gzip, deflate, identity", c.Client.Encoding))
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, errors.New("MEMENTO_TIMEOUT must be positive"))
	}
	if c.IsProduction() && c.Client.InsecureSkipVerify {
		errs = append(errs, errors.New("MEMENTO_INSECURE_SKIP_VERIFY must not be set in production"))
	}
	return joined(errs)
}

// ValidateStub checks everything the stub server needs
func (c *Config) ValidateStub() error {
	var errs []error
	if c.Stub.Port <= 0 || c.Stub.Port > 65535 {
		errs = append(errs, fmt.Errorf("STUB_PORT %d is out of range", c.Stub.Port))
	}
	if c.Stub.Username == "" {
		errs = append(errs, errors.New("STUB_USERNAME must be set"))
	}
	if !password.IsHash(c.Stub.PasswordHash) {
		errs = append(errs, errors.New("STUB_PASSWORD_HASH must be a bcrypt hash"))
	}
	if c.Stub.CallListDir == "" {
		errs = append(errs, errors.New("STUB_CALL_LIST_DIR must be set"))
	}
	return joined(errs)
}

func joined(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return apperrors.ConfigError("invalid configuration", errors.Join(errs...))
}
