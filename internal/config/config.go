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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Mapping   MappingConfig   `yaml:"mapping" mapstructure:"mapping"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Narrative NarrativeConfig `yaml:"narrative" mapstructure:"narrative"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Archive   ArchiveConfig   `yaml:"archive" mapstructure:"archive"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MappingConfig points at a source mapping table. Empty uses the embedded
// default.
type MappingConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// NarrativeConfig bounds each narrative request.
type NarrativeConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs  int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
}

// Narrative failure policies.
const (
	OnErrorDegrade = "degrade"
	OnErrorAbort   = "abort"
)

// BatchConfig configures the full-analysis run.
type BatchConfig struct {
	Limit            int    `yaml:"limit" mapstructure:"limit"`
	Concurrency      int    `yaml:"concurrency" mapstructure:"concurrency"`
	OnNarrativeError string `yaml:"on_narrative_error" mapstructure:"on_narrative_error"`
}

// CacheConfig configures the dashboard read cache. An empty RedisURL keeps
// the cache in process.
type CacheConfig struct {
	TTLSecs  int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	Size     int    `yaml:"size" mapstructure:"size"`
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
}

// ServerConfig configures the dashboard HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ArchiveConfig enables uploading each published set to S3.
type ArchiveConfig struct {
	S3Bucket string `yaml:"s3_bucket" mapstructure:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix" mapstructure:"s3_prefix"`
	Region   string `yaml:"region" mapstructure:"region"`
	// Endpoint overrides the S3 endpoint for compatible stores such as MinIO.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envOnlyKeys have no default and must still be settable from VISTA360_*.
var envOnlyKeys = []string{
	"store.max_conns",
	"store.min_conns",
	"mapping.path",
	"anthropic.key",
	"anthropic.base_url",
	"cache.redis_url",
	"archive.s3_bucket",
	"archive.region",
	"archive.endpoint",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VISTA360")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "vista360.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("narrative.timeout_secs", 60)
	v.SetDefault("narrative.max_attempts", 3)
	v.SetDefault("narrative.initial_backoff_ms", 500)
	v.SetDefault("narrative.max_backoff_ms", 30000)
	v.SetDefault("narrative.requests_per_second", 0)
	v.SetDefault("narrative.temperature", 0.3)
	v.SetDefault("batch.limit", 10)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.on_narrative_error", OnErrorDegrade)
	v.SetDefault("cache.ttl_secs", 300)
	v.SetDefault("cache.size", 16)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("archive.s3_prefix", "vista360")

	// Keys without a default are only seen by Unmarshal once bound.
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

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
