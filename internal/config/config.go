// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Dedupe   DedupeConfig   `yaml:"dedupe" mapstructure:"dedupe"`
	Scorer   ScorerConfig   `yaml:"scorer" mapstructure:"scorer"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres | sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FetchConfig configures the circuit-protected fetch layer.
type FetchConfig struct {
	MaxRetries              int     `yaml:"max_retries" mapstructure:"max_retries"`
	InitialDelayMs          int     `yaml:"initial_delay_ms" mapstructure:"initial_delay_ms"`
	MaxDelayMs              int     `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	BackoffMultiplier       float64 `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	JitterFraction          float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	RequestTimeoutMs        int     `yaml:"request_timeout_ms" mapstructure:"request_timeout_ms"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitCooldownMs       int     `yaml:"circuit_cooldown_ms" mapstructure:"circuit_cooldown_ms"`
	MaxConcurrent           int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	UserAgent               string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// DedupeConfig configures the deduplication engine.
type DedupeConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	WindowDays          int     `yaml:"window_days" mapstructure:"window_days"`
}

// ScorerConfig configures qualification scoring. Thresholds are the
// canonical rule set; all of them are tunable without code changes.
type ScorerConfig struct {
	MinScore     int `yaml:"min_score" mapstructure:"min_score"`
	ScoreWorkers int `yaml:"score_workers" mapstructure:"score_workers"`

	Project  ProjectRules  `yaml:"project" mapstructure:"project"`
	Funding  FundingRules  `yaml:"funding" mapstructure:"funding"`
	Resource ResourceRules `yaml:"resource" mapstructure:"resource"`
}

// ProjectRules holds project-category thresholds.
type ProjectRules struct {
	MaxTeamSize      int   `yaml:"max_team_size" mapstructure:"max_team_size"`
	MaxFundingRaised int64 `yaml:"max_funding_raised" mapstructure:"max_funding_raised"`
	MinLaunchYear    int   `yaml:"min_launch_year" mapstructure:"min_launch_year"`
}

// FundingRules holds funding-category thresholds.
type FundingRules struct {
	MinDeadlineDays int `yaml:"min_deadline_days" mapstructure:"min_deadline_days"`
}

// ResourceRules holds resource-category thresholds.
type ResourceRules struct {
	MaxPrice float64 `yaml:"max_price" mapstructure:"max_price"`
}

// PipelineConfig configures the orchestrator.
type PipelineConfig struct {
	RunDeadlineMs int `yaml:"run_deadline_ms" mapstructure:"run_deadline_ms"`
}

// ServerConfig configures the trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SourcesConfig points at the source registry file.
type SourcesConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CURATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "curator.db")
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.initial_delay_ms", 1000)
	v.SetDefault("fetch.max_delay_ms", 10000)
	v.SetDefault("fetch.backoff_multiplier", 2.0)
	v.SetDefault("fetch.jitter_fraction", 0.0)
	v.SetDefault("fetch.request_timeout_ms", 30000)
	v.SetDefault("fetch.circuit_failure_threshold", 5)
	v.SetDefault("fetch.circuit_cooldown_ms", 60000)
	v.SetDefault("fetch.max_concurrent", 8)
	v.SetDefault("fetch.user_agent", "curator/1.0")
	v.SetDefault("dedupe.similarity_threshold", 0.7)
	v.SetDefault("dedupe.window_days", 30)
	v.SetDefault("scorer.min_score", 40)
	v.SetDefault("scorer.score_workers", 4)
	v.SetDefault("scorer.project.max_team_size", 10)
	v.SetDefault("scorer.project.max_funding_raised", 500000)
	v.SetDefault("scorer.project.min_launch_year", 2020)
	v.SetDefault("scorer.funding.min_deadline_days", 7)
	v.SetDefault("scorer.resource.max_price", 50.0)
	v.SetDefault("pipeline.run_deadline_ms", 300000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("sources.file", "sources.yaml")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
