package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	str := strings.TrimSpace(value.Value)
	if str == "" {
		d.Duration = 0
		return nil
	}

	parsed, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", str, err)
	}

	d.Duration = parsed
	return nil
}

// Config represents the root of the service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Jenkins      JenkinsConfig      `yaml:"jenkins"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig controls the REST surface.
type ServerConfig struct {
	ListenAddr   string   `yaml:"listen_addr"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`

	// APIKey protects every route except the health check via the
	// X-API-Key header. Empty means the server runs unauthenticated,
	// which is logged loudly at startup.
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// JenkinsConfig contains Jenkins connection settings.
type JenkinsConfig struct {
	BaseURL       string   `yaml:"base_url"`
	User          string   `yaml:"user"`
	UserEnv       string   `yaml:"user_env"`
	APIToken      string   `yaml:"api_token"`
	APITokenEnv   string   `yaml:"api_token_env"`
	SkipTLSVerify bool     `yaml:"skip_tls_verify"`
	Timeout       Duration `yaml:"timeout"`
}

// OrchestratorConfig controls queue tracking and listing behaviour.
type OrchestratorConfig struct {
	QueueWaitTimeout  Duration `yaml:"queue_wait_timeout"`
	QueuePollInterval Duration `yaml:"queue_poll_interval"`
	RecentBuildsLimit int      `yaml:"recent_builds_limit"`
}

// LoggingConfig customises slog configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from the provided path.
func Load(path string) (*Config, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout = Duration{Duration: 15 * time.Second}
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout = Duration{Duration: 30 * time.Second}
	}
	if c.Server.IdleTimeout.Duration == 0 {
		c.Server.IdleTimeout = Duration{Duration: 60 * time.Second}
	}

	if c.Jenkins.Timeout.Duration == 0 {
		c.Jenkins.Timeout = Duration{Duration: 30 * time.Second}
	}

	if c.Orchestrator.QueueWaitTimeout.Duration == 0 {
		c.Orchestrator.QueueWaitTimeout = Duration{Duration: 60 * time.Second}
	}
	if c.Orchestrator.QueuePollInterval.Duration == 0 {
		c.Orchestrator.QueuePollInterval = Duration{Duration: 2 * time.Second}
	}
	if c.Orchestrator.RecentBuildsLimit <= 0 {
		c.Orchestrator.RecentBuildsLimit = 5
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Jenkins.BaseURL == "" {
		return errors.New("jenkins.base_url is required")
	}
	if c.Orchestrator.QueuePollInterval.Duration >= c.Orchestrator.QueueWaitTimeout.Duration {
		return fmt.Errorf("orchestrator.queue_poll_interval (%s) must be shorter than queue_wait_timeout (%s)",
			c.Orchestrator.QueuePollInterval.Duration, c.Orchestrator.QueueWaitTimeout.Duration)
	}
	return nil
}

// ResolveCredentials returns Jenkins user/token from config or environment.
func (c *JenkinsConfig) ResolveCredentials() (string, string, error) {
	user := c.User
	token := c.APIToken
	if user == "" && c.UserEnv != "" {
		user = strings.TrimSpace(os.Getenv(c.UserEnv))
	}
	if token == "" && c.APITokenEnv != "" {
		token = strings.TrimSpace(os.Getenv(c.APITokenEnv))
	}
	if user == "" {
		return "", "", errors.New("jenkins user or user_env must be provided")
	}
	if token == "" {
		return "", "", errors.New("jenkins api_token or api_token_env must be provided")
	}
	return user, token, nil
}

// ResolveAPIKey returns the REST API key from config or environment. An
// empty result is allowed and means the server runs unauthenticated.
func (c *ServerConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(c.APIKeyEnv))
	}
	return ""
}
