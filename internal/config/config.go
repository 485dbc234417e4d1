package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sitelens/photo-ingest/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	S3       S3Config       `yaml:"s3" mapstructure:"s3"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Weather  WeatherConfig  `yaml:"weather" mapstructure:"weather"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// S3Config configures the object storage backend.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Region    string `yaml:"region" mapstructure:"region"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	URL  string           `yaml:"url" mapstructure:"url"`
	Pool store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// WeatherConfig holds the historical weather provider credentials.
type WeatherConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	Units  string `yaml:"units" mapstructure:"units"`
}

// GeocodeConfig holds the reverse geocoding provider credentials.
type GeocodeConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// AnalysisConfig configures the vision analysis stage.
type AnalysisConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	BatchLimit  int    `yaml:"batch_limit" mapstructure:"batch_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SITELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("database.pool.max_conns", 4)
	v.SetDefault("database.pool.min_conns", 1)
	v.SetDefault("weather.units", "metric")
	v.SetDefault("analysis.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("analysis.max_tokens", 2048)
	v.SetDefault("analysis.concurrency", 2)
	v.SetDefault("analysis.batch_limit", 50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// ValidateIngest checks the credentials the ingest pipeline needs.
// Missing provider keys are fatal here, at startup, never mid-batch.
func (c *Config) ValidateIngest() error {
	if c.S3.Endpoint == "" || c.S3.Bucket == "" {
		return eris.New("config: s3 endpoint and bucket are required")
	}
	if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
		return eris.New("config: s3 credentials are required")
	}
	if c.Database.URL == "" {
		return eris.New("config: database url is required")
	}
	if c.Weather.APIKey == "" {
		return eris.New("config: weather api key is required")
	}
	if c.Geocode.APIKey == "" {
		return eris.New("config: geocode api key is required")
	}
	return nil
}

// ValidateAnalysis checks the credentials the analysis stage needs.
func (c *Config) ValidateAnalysis() error {
	if c.Database.URL == "" {
		return eris.New("config: database url is required")
	}
	if c.S3.Endpoint == "" || c.S3.Bucket == "" {
		return eris.New("config: s3 endpoint and bucket are required")
	}
	if c.Analysis.APIKey == "" {
		return eris.New("config: analysis api key is required")
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
