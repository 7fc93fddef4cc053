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
	Subject      SubjectConfig      `yaml:"subject" mapstructure:"subject"`
	Competitors  []string           `yaml:"competitors" mapstructure:"competitors"`
	Aliases      AliasConfig        `yaml:"aliases" mapstructure:"aliases"`
	PageSpeed    PageSpeedConfig    `yaml:"pagespeed" mapstructure:"pagespeed"`
	Places       PlacesConfig       `yaml:"places" mapstructure:"places"`
	OpenPageRank OpenPageRankConfig `yaml:"openpagerank" mapstructure:"openpagerank"`
	Plausible    PlausibleConfig    `yaml:"plausible" mapstructure:"plausible"`
	Scoring      ScoringConfig      `yaml:"scoring" mapstructure:"scoring"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// SubjectConfig identifies the business the dashboard belongs to.
type SubjectConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// Domain is the subject's canonical web domain.
	Domain string `yaml:"domain" mapstructure:"domain"`
	// Substrings mark a display name as the subject during resolution,
	// taking precedence over the competitor alias table.
	Substrings []string `yaml:"substrings" mapstructure:"substrings"`
}

// AliasConfig configures competitor display-name resolution.
type AliasConfig struct {
	// Path points to the curated YAML alias table. Empty uses the
	// built-in table shipped with the engine.
	Path string `yaml:"path" mapstructure:"path"`
}

// PageSpeedConfig holds PageSpeed Insights API settings.
type PageSpeedConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OpenPageRankConfig holds Open PageRank API settings.
type OpenPageRankConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PlausibleConfig holds Plausible Stats API settings. Analytics exist only
// for the subject's own site; competitors never have a traffic metric.
type PlausibleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	SiteID  string `yaml:"site_id" mapstructure:"site_id"`
}

// ScoringConfig holds category weights and fallback constants. These values
// materially affect ranking outcomes, so they are configuration rather than
// literals.
type ScoringConfig struct {
	Weights WeightConfig `yaml:"weights" mapstructure:"weights"`
	// AssumedPerformance substitutes for an unavailable performance audit
	// (0-100). Performance is the most expensive category to fetch, so an
	// outage degrades to this estimate instead of excluding the entity.
	AssumedPerformance float64 `yaml:"assumed_performance" mapstructure:"assumed_performance"`
}

// WeightConfig holds per-category composite weights. Must total 1.0.
type WeightConfig struct {
	Local       float64 `yaml:"local" mapstructure:"local"`
	Authority   float64 `yaml:"authority" mapstructure:"authority"`
	Performance float64 `yaml:"performance" mapstructure:"performance"`
	Traffic     float64 `yaml:"traffic" mapstructure:"traffic"`
}

// MetricsConfig configures the fan-out pass.
type MetricsConfig struct {
	AdapterTimeoutSecs   int `yaml:"adapter_timeout_secs" mapstructure:"adapter_timeout_secs"`
	MaxConcurrentTargets int `yaml:"max_concurrent_targets" mapstructure:"max_concurrent_targets"`
}

// CacheConfig configures the snapshot cache backend.
type CacheConfig struct {
	// Driver is one of: sqlite, postgres, memory.
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TTLSeconds  int    `yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
	// Key scopes cached snapshots; one dashboard uses one key.
	Key string `yaml:"key" mapstructure:"key"`
}

// ServerConfig configures the dashboard API server.
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
	v.SetEnvPrefix("VISIBILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("subject.name", "Imbue Salon & Spa")
	v.SetDefault("subject.domain", "imbuesalon.com")
	v.SetDefault("subject.substrings", []string{"imbue", "lmbue"})
	v.SetDefault("competitors", []string{
		"Bond Street Salon",
		"Salon Sora",
		"Rov Hair Salon",
		"One Aveda",
		"Salon Trace",
	})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("pagespeed.base_url", "https://www.googleapis.com/pagespeedonline/v5")
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("openpagerank.base_url", "https://openpagerank.com/api/v1.0")
	v.SetDefault("plausible.base_url", "https://plausible.io/api/v1")
	v.SetDefault("scoring.weights.local", 0.40)
	v.SetDefault("scoring.weights.authority", 0.20)
	v.SetDefault("scoring.weights.performance", 0.40)
	v.SetDefault("scoring.weights.traffic", 0.0)
	v.SetDefault("scoring.assumed_performance", 70)
	v.SetDefault("metrics.adapter_timeout_secs", 12)
	v.SetDefault("metrics.max_concurrent_targets", 4)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.database_url", "visibility.db")
	v.SetDefault("cache.ttl_seconds", 900)
	v.SetDefault("cache.key", "dashboard-default")

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

	if err := cfg.Scoring.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

const weightTolerance = 1e-6

// Validate checks weight totals and fallback constant bounds.
func (s ScoringConfig) Validate() error {
	sum := s.Weights.Local + s.Weights.Authority + s.Weights.Performance + s.Weights.Traffic
	if sum < 1.0-weightTolerance || sum > 1.0+weightTolerance {
		return eris.Errorf("config: scoring weights must total 1.0, got %.4f", sum)
	}
	if s.AssumedPerformance < 0 || s.AssumedPerformance > 100 {
		return eris.Errorf("config: assumed_performance must be in [0,100], got %.1f", s.AssumedPerformance)
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
