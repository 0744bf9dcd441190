package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the audit-sentry service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Notifier   NotifierConfig   `yaml:"notifier"`
	Filter     FilterConfig     `yaml:"filter"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls the ingress HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ClassifierConfig configures the semantic classification capability.
type ClassifierConfig struct {
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// NotifierConfig configures the alert delivery sink.
type NotifierConfig struct {
	SMTPHost   string        `yaml:"smtpHost"`
	SMTPPort   int           `yaml:"smtpPort"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	From       string        `yaml:"from"`
	Recipients []string      `yaml:"recipients"`
	Timeout    time.Duration `yaml:"timeout"`
}

// FilterConfig extends the built-in relevance keyword set.
type FilterConfig struct {
	ExtraKeywords []string `yaml:"extraKeywords"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AUDIT_SENTRY_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Validate enforces the credentials the pipeline cannot run without. Their
// absence is a permanent configuration error surfaced once at startup, never
// per event.
func (c *Config) Validate() error {
	var missing []string
	if c.Classifier.APIKey == "" {
		missing = append(missing, "classifier.apiKey")
	}
	if c.Notifier.Username == "" {
		missing = append(missing, "notifier.username")
	}
	if c.Notifier.Password == "" {
		missing = append(missing, "notifier.password")
	}
	if len(c.Notifier.Recipients) == 0 {
		missing = append(missing, "notifier.recipients")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Classifier: ClassifierConfig{
			Model:   "gemini-2.0-flash",
			Timeout: 30 * time.Second,
		},
		Notifier: NotifierConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
			Timeout:  15 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUDIT_SENTRY_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("AUDIT_SENTRY_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Classifier.APIKey = v
	}
	if v := os.Getenv("AUDIT_SENTRY_GEMINI_MODEL"); v != "" {
		cfg.Classifier.Model = v
	}
	if v := os.Getenv("AUDIT_SENTRY_GEMINI_BASE_URL"); v != "" {
		cfg.Classifier.BaseURL = v
	}
	if v := os.Getenv("AUDIT_SENTRY_CLASSIFY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Classifier.Timeout = d
		}
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Notifier.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Notifier.SMTPPort = port
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Notifier.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Notifier.Password = v
	}
	if v := os.Getenv("FROM_EMAIL"); v != "" {
		cfg.Notifier.From = v
	}
	if v := os.Getenv("ALERT_EMAILS"); v != "" {
		cfg.Notifier.Recipients = splitList(v)
	}
	if v := os.Getenv("AUDIT_SENTRY_FILTER_KEYWORDS"); v != "" {
		cfg.Filter.ExtraKeywords = splitList(v)
	}
	if v := os.Getenv("AUDIT_SENTRY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AUDIT_SENTRY_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
