package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete loginguard configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Guard   GuardConfig   `yaml:"guard"`
	Jail    JailConfig    `yaml:"jail"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	ListenAddress string        `yaml:"listen_address" validate:"required"`
	ReadTimeout   time.Duration `yaml:"read_timeout,omitempty" validate:"gte=0"`
	WriteTimeout  time.Duration `yaml:"write_timeout,omitempty" validate:"gte=0"`
}

type AuthConfig struct {
	Enabled         bool             `yaml:"enabled"`
	LocalhostBypass bool             `yaml:"localhost_bypass"`
	Passwords       []PasswordConfig `yaml:"passwords" validate:"dive"`
	JWT             JWTConfig        `yaml:"jwt"`
}

type PasswordConfig struct {
	Name           string        `yaml:"name" validate:"required"`
	PasswordHash   string        `yaml:"password_hash" validate:"required"`
	TokenTTL       string        `yaml:"token_ttl"`
	TokenTTLParsed time.Duration `yaml:"-"`
}

type JWTConfig struct {
	SecretFile string `yaml:"secret_file"`
}

// GuardConfig tunes scripted-login detection. Fixed at startup.
type GuardConfig struct {
	// Two attempts from one address closer together than this are scripted
	HumanPlausibilityThreshold time.Duration `yaml:"human_plausibility_threshold" validate:"gt=0"`
	// How long an investigation survives after it starts
	InvestigationLifespan time.Duration `yaml:"investigation_lifespan" validate:"gt=0"`
	SweepInterval         time.Duration `yaml:"sweep_interval" validate:"gt=0"`
	BanSentence           time.Duration `yaml:"ban_sentence" validate:"gt=0"`
	BanIdentifierSuffix   string        `yaml:"ban_identifier_suffix" validate:"required"`
}

type JailConfig struct {
	ReapInterval time.Duration `yaml:"reap_interval" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"` // json or text
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults for the guard, matching the behaviour the login page has always had
const (
	DefaultHumanPlausibilityThreshold = time.Second
	DefaultInvestigationLifespan      = 10 * time.Second
	DefaultSweepInterval              = 10 * time.Second
	DefaultBanSentence                = 10 * time.Second
	DefaultBanIdentifierSuffix        = "_brute_forcing_login"
	DefaultReapInterval               = 30 * time.Second
	DefaultTokenTTL                   = 7 * 24 * time.Hour
)

// Default returns a configuration usable without a config file
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	expandedPath := ExpandPath(path)

	data, err := os.ReadFile(expandedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Parse duration strings
	for i := range cfg.Auth.Passwords {
		if cfg.Auth.Passwords[i].TokenTTL != "" {
			ttl, err := time.ParseDuration(cfg.Auth.Passwords[i].TokenTTL)
			if err != nil {
				return nil, fmt.Errorf("invalid token_ttl for password %s: %w", cfg.Auth.Passwords[i].Name, err)
			}
			cfg.Auth.Passwords[i].TokenTTLParsed = ttl
		} else {
			cfg.Auth.Passwords[i].TokenTTLParsed = DefaultTokenTTL
		}
	}

	// Expand paths in config
	if cfg.Auth.JWT.SecretFile != "" {
		cfg.Auth.JWT.SecretFile = ExpandPath(cfg.Auth.JWT.SecretFile)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills zero values. Negative values are left alone so that
// Validate can reject them.
func (c *Config) applyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Guard.HumanPlausibilityThreshold == 0 {
		c.Guard.HumanPlausibilityThreshold = DefaultHumanPlausibilityThreshold
	}
	if c.Guard.InvestigationLifespan == 0 {
		c.Guard.InvestigationLifespan = DefaultInvestigationLifespan
	}
	if c.Guard.SweepInterval == 0 {
		c.Guard.SweepInterval = DefaultSweepInterval
	}
	if c.Guard.BanSentence == 0 {
		c.Guard.BanSentence = DefaultBanSentence
	}
	if c.Guard.BanIdentifierSuffix == "" {
		c.Guard.BanIdentifierSuffix = DefaultBanIdentifierSuffix
	}
	if c.Jail.ReapInterval == 0 {
		c.Jail.ReapInterval = DefaultReapInterval
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Auth.Enabled {
		if len(c.Auth.Passwords) == 0 {
			return fmt.Errorf("auth enabled but no passwords configured")
		}

		if c.Auth.JWT.SecretFile == "" {
			return fmt.Errorf("jwt.secret_file is required when auth is enabled")
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}
