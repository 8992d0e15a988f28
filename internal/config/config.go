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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Models     ModelsConfig     `yaml:"models" mapstructure:"models"`
	Admission  AdmissionConfig  `yaml:"admission" mapstructure:"admission"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Confidence ConfidenceConfig `yaml:"confidence" mapstructure:"confidence"`
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP intake server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AnthropicConfig holds inference service credentials and call settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// PerplexityConfig holds web search credentials.
type PerplexityConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	Model         string `yaml:"model" mapstructure:"model"`
	RatePerMinute int    `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
}

// ModelsConfig names the model used by each inference stage.
type ModelsConfig struct {
	Visual   string `yaml:"visual" mapstructure:"visual"`
	Enriched string `yaml:"enriched" mapstructure:"enriched"`
	Fallback string `yaml:"fallback" mapstructure:"fallback"`
	Summary  string `yaml:"summary" mapstructure:"summary"`
}

// AdmissionConfig bounds concurrent inference calls across workers.
type AdmissionConfig struct {
	Limit       int `yaml:"limit" mapstructure:"limit"`
	MaxWaitMs   int `yaml:"max_wait_ms" mapstructure:"max_wait_ms"`
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseWaitMs  int `yaml:"base_wait_ms" mapstructure:"base_wait_ms"`
	CapWaitMs   int `yaml:"cap_wait_ms" mapstructure:"cap_wait_ms"`
}

// RetryConfig sets the default retry schedule for external calls.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
}

// ConfidenceConfig holds the three ascending band thresholds.
type ConfidenceConfig struct {
	Low    float64 `yaml:"low" mapstructure:"low"`
	Medium float64 `yaml:"medium" mapstructure:"medium"`
	High   float64 `yaml:"high" mapstructure:"high"`
}

// EnrichmentConfig toggles web enrichment.
type EnrichmentConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	MaxFileBytes     int64 `yaml:"max_file_bytes" mapstructure:"max_file_bytes"`
	StageTimeoutSecs int   `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentFiles int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
}

func newViper(path string) *viper.Viper {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("FONTINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "fontintel.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.temperature", 0.2)
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("perplexity.rate_per_minute", 30)
	v.SetDefault("models.visual", "claude-sonnet-4-5-20250929")
	v.SetDefault("models.enriched", "claude-sonnet-4-5-20250929")
	v.SetDefault("models.fallback", "claude-haiku-4-5-20251001")
	v.SetDefault("models.summary", "claude-haiku-4-5-20251001")
	v.SetDefault("admission.limit", 4)
	v.SetDefault("admission.max_wait_ms", 30000)
	v.SetDefault("admission.max_attempts", 10)
	v.SetDefault("admission.base_wait_ms", 1000)
	v.SetDefault("admission.cap_wait_ms", 5000)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 1000)
	v.SetDefault("retry.max_delay_ms", 30000)
	v.SetDefault("confidence.low", 0.5)
	v.SetDefault("confidence.medium", 0.7)
	v.SetDefault("confidence.high", 0.85)
	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("pipeline.max_file_bytes", 20<<20)
	v.SetDefault("pipeline.stage_timeout_secs", 120)
	v.SetDefault("batch.max_concurrent_files", 4)

	return v
}

// Load reads configuration from ./config.yaml (optional) and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path, or from ./config.yaml when path is
// empty. A missing default file is not an error.
func LoadFile(path string) (*Config, error) {
	v := newViper(path)
	if err := readConfig(v); err != nil {
		return nil, err
	}
	return decode(v)
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return eris.Wrap(err, "config: read file")
		}
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// Validate checks values the pipeline cannot run without.
func (c *Config) Validate() error {
	t := c.Confidence
	if t.Low < 0 || t.High > 1 || !(t.Low < t.Medium && t.Medium < t.High) {
		return eris.Errorf("config: confidence thresholds must be ascending within [0,1], got %.2f/%.2f/%.2f", t.Low, t.Medium, t.High)
	}
	if c.Admission.Limit <= 0 {
		return eris.New("config: admission.limit must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		return eris.New("config: retry.max_attempts must be positive")
	}
	if c.Batch.MaxConcurrentFiles <= 0 {
		return eris.New("config: batch.max_concurrent_files must be positive")
	}
	if c.Pipeline.MaxFileBytes <= 0 {
		return eris.New("config: pipeline.max_file_bytes must be positive")
	}
	for name, m := range map[string]string{
		"visual":   c.Models.Visual,
		"enriched": c.Models.Enriched,
		"fallback": c.Models.Fallback,
		"summary":  c.Models.Summary,
	} {
		if strings.TrimSpace(m) == "" {
			return eris.Errorf("config: models.%s is required", name)
		}
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	return nil
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
