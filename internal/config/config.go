// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Ollama  OllamaConfig  `mapstructure:"ollama"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the webhook HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
	MaxConnLifeMins int    `mapstructure:"max_conn_life_minutes"`
}

// OllamaConfig points at the local inference server.
type OllamaConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SMTPConfig holds outbound mail credentials. Username doubles as the
// sender address when From is unset.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// MonitorConfig governs the polling loop and the per-page fetch.
type MonitorConfig struct {
	IntervalSeconds     int    `mapstructure:"interval_seconds"`
	JobDelaySeconds     int    `mapstructure:"job_delay_seconds"`
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds"`
	MaxSnapshotChars    int    `mapstructure:"max_snapshot_chars"`
	MaxPromptChars      int    `mapstructure:"max_prompt_chars"`
	UserAgent           string `mapstructure:"user_agent"`
}

// WebhookConfig fixes the payment-provider contract.
type WebhookConfig struct {
	Plan string `mapstructure:"plan"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key with Viper. Keys that have no real
// default still get an empty one so AutomaticEnv can populate them during
// Unmarshal; Viper only consults the environment for keys it knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4242)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_life_minutes", 60)
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.2:3b")
	v.SetDefault("ollama.timeout_seconds", 500)
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("monitor.interval_seconds", 3600)
	v.SetDefault("monitor.job_delay_seconds", 5)
	v.SetDefault("monitor.fetch_timeout_seconds", 15)
	v.SetDefault("monitor.max_snapshot_chars", 3000)
	v.SetDefault("monitor.max_prompt_chars", 2000)
	v.SetDefault("monitor.user_agent", "intel-agent/0.1")
	v.SetDefault("webhook.plan", "premium_50")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. A missing DSN is
// fatal: the process must not start without storage credentials.
func (c Config) Validate() error {
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama.base_url is required")
	}
	if c.Ollama.Model == "" {
		return fmt.Errorf("ollama.model is required")
	}
	if c.Monitor.IntervalSeconds <= 0 {
		return fmt.Errorf("monitor.interval_seconds must be > 0")
	}
	if c.Monitor.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("monitor.fetch_timeout_seconds must be > 0")
	}
	if c.Monitor.MaxSnapshotChars <= 0 {
		return fmt.Errorf("monitor.max_snapshot_chars must be > 0")
	}
	return nil
}

// Interval returns the batch sleep between orchestrator passes.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// JobDelay returns the pause between jobs within one batch.
func (c Config) JobDelay() time.Duration {
	return time.Duration(c.Monitor.JobDelaySeconds) * time.Second
}

// FetchTimeout bounds a single page fetch.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Monitor.FetchTimeoutSeconds) * time.Second
}

// InferenceTimeout bounds one summarizer call. Local inference is slow, so
// this is deliberately generous.
func (c Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Ollama.TimeoutSeconds) * time.Second
}

// MaxConnLifetime converts the pool lifetime knob to a duration.
func (c Config) MaxConnLifetime() time.Duration {
	return time.Duration(c.DB.MaxConnLifeMins) * time.Minute
}
