package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Defaults applied by Load and by Config.Validate when fields are zero.
const (
	DefaultBaseURL        = "https://api.mixpanel.com"
	DefaultBatchSize      = 50
	DefaultBatchTimeout   = 5 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxRetries     = 4
)

// Configuration errors raised at load time.
var (
	ErrMissingToken             = errors.New("project token is required")
	ErrIncompleteServiceAccount = errors.New("service account requires username, password and project id")
)

// ServiceAccount holds the credentials required for historical import.
// It is optional; live tracking authenticates with the project token alone.
type ServiceAccount struct {
	Username  string `envconfig:"SERVICE_ACCOUNT_USER"`
	Password  string `envconfig:"SERVICE_ACCOUNT_PASS"`
	ProjectID string `envconfig:"PROJECT_ID"`
}

// Configured reports whether any service-account field is set.
func (sa ServiceAccount) Configured() bool {
	return sa.Username != "" || sa.Password != "" || sa.ProjectID != ""
}

// Complete reports whether all service-account fields are set.
func (sa ServiceAccount) Complete() bool {
	return sa.Username != "" && sa.Password != "" && sa.ProjectID != ""
}

// Config holds all process-wide client settings. It is constructed once at
// startup and injected into every component that needs it; nothing mutates
// it afterwards.
type Config struct {
	Token          string         `envconfig:"TOKEN" required:"true"`
	BaseURL        string         `envconfig:"BASE_URL" default:"https://api.mixpanel.com"`
	Environment    string         `envconfig:"ENVIRONMENT" default:"development"`
	BatchSize      int            `envconfig:"BATCH_SIZE" default:"50"`
	BatchTimeout   time.Duration  `envconfig:"BATCH_TIMEOUT" default:"5s"`
	RequestTimeout time.Duration  `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	MaxRetries     int            `envconfig:"MAX_RETRIES" default:"4"`
	ServiceAccount ServiceAccount `ignored:"true"`
}

// Load reads configuration from MIXGO_-prefixed environment variables and
// fails fast on anything malformed.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("mixgo", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	// Processed separately so the optional credentials keep flat MIXGO_ names.
	if err := envconfig.Process("mixgo", &cfg.ServiceAccount); err != nil {
		return nil, fmt.Errorf("failed to process service account: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies defaults to zero-valued fields and rejects settings the
// client cannot run with. Programmatic construction should call this before
// handing the config to the SDK.
func (c *Config) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = DefaultBatchTimeout
	}
	if c.BatchTimeout < 0 {
		return fmt.Errorf("batch timeout must be positive, got %v", c.BatchTimeout)
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.ServiceAccount.Configured() && !c.ServiceAccount.Complete() {
		return ErrIncompleteServiceAccount
	}
	return nil
}
