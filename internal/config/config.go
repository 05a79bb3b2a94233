// Package config loads application configuration from config.yaml and
// MATCH_-prefixed environment variables, and owns the global zap logger.
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
	Files    FilesConfig    `yaml:"files" mapstructure:"files"`
	OCR      OCRConfig      `yaml:"ocr" mapstructure:"ocr"`
	OpenAI   OpenAIConfig   `yaml:"openai" mapstructure:"openai"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Matching MatchingConfig `yaml:"matching" mapstructure:"matching"`
	Feed     FeedConfig     `yaml:"feed" mapstructure:"feed"`
	Prompts  PromptsConfig  `yaml:"prompts" mapstructure:"prompts"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// FilesConfig configures where uploaded CV files are stored.
type FilesConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// OpenAIConfig holds OpenAI API settings for completions and embeddings.
type OpenAIConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	ChatModel      string  `yaml:"chat_model" mapstructure:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model" mapstructure:"embedding_model"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec     float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// GeocodeConfig holds settings for the PDOK and Nominatim geocoders.
type GeocodeConfig struct {
	PDOKBaseURL      string  `yaml:"pdok_base_url" mapstructure:"pdok_base_url"`
	NominatimBaseURL string  `yaml:"nominatim_base_url" mapstructure:"nominatim_base_url"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// PipelineConfig configures CV processing behavior.
type PipelineConfig struct {
	CVTextLimit      int `yaml:"cv_text_limit" mapstructure:"cv_text_limit"`
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryBackoffSecs int `yaml:"retry_backoff_secs" mapstructure:"retry_backoff_secs"`
	BulkDelayMs      int `yaml:"bulk_delay_ms" mapstructure:"bulk_delay_ms"`
}

// MatchingConfig configures the matching engine.
type MatchingConfig struct {
	TopK          int `yaml:"top_k" mapstructure:"top_k"`
	EmbeddingDims int `yaml:"embedding_dims" mapstructure:"embedding_dims"`
}

// FeedConfig configures the vacancy XML feed.
type FeedConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PromptsConfig configures prompt seeding.
type PromptsConfig struct {
	SeedPath string `yaml:"seed_path" mapstructure:"seed_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("files.dir", "uploads")
	v.SetDefault("ocr.provider", "pdftotext")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.chat_model", "gpt-3.5-turbo")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.timeout_secs", 60)
	v.SetDefault("openai.rate_per_sec", 3)
	v.SetDefault("geocode.pdok_base_url", "https://api.pdok.nl/bzk/locatieserver/search/v3_1")
	v.SetDefault("geocode.nominatim_base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "match-cli/1.0")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.rate_per_sec", 1)
	v.SetDefault("pipeline.cv_text_limit", 4000)
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.retry_backoff_secs", 60)
	v.SetDefault("pipeline.bulk_delay_ms", 500)
	v.SetDefault("matching.top_k", 250)
	v.SetDefault("matching.embedding_dims", 1536)
	v.SetDefault("feed.timeout_secs", 30)
	v.SetDefault("server.port", 8080)
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

// Validate checks that the configuration satisfies the named mode:
// "store" for commands that only touch the database, "pipeline" for CV
// processing, "feed" for vacancy sync, "serve" for the API server.
func (c *Config) Validate(mode string) error {
	var problems []string

	store := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required (MATCH_STORE_DATABASE_URL)")
			}
		case "sqlite":
			// file path defaults are fine
		default:
			problems = append(problems, "store.driver must be postgres or sqlite")
		}
	}
	pipeline := func() {
		store()
		if c.OpenAI.Key == "" {
			problems = append(problems, "openai.key is required (MATCH_OPENAI_KEY)")
		}
		if c.Matching.EmbeddingDims <= 0 {
			problems = append(problems, "matching.embedding_dims must be > 0")
		}
	}

	switch mode {
	case "store":
		store()
	case "pipeline":
		pipeline()
	case "feed":
		store()
		if c.Feed.URL == "" {
			problems = append(problems, "feed.url is required (MATCH_FEED_URL)")
		}
	case "matching":
		store()
		if c.Matching.TopK <= 0 {
			problems = append(problems, "matching.top_k must be > 0")
		}
	case "serve":
		pipeline()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %s", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
