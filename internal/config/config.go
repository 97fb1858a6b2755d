// Package config loads and validates job tracker configuration via Viper.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobsight/jobtracker/internal/jobs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	SmartStop SmartStopConfig `mapstructure:"smart_stop"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Export    ExportConfig    `mapstructure:"export"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Sites     []jobs.Site     `mapstructure:"sites"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScraperConfig governs the scrape coordinator.
type ScraperConfig struct {
	Concurrency    int     `mapstructure:"concurrency"`
	MaxPages       int     `mapstructure:"max_pages"`
	QueueDepth     int     `mapstructure:"queue_depth"`
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RespectRobots  bool    `mapstructure:"respect_robots"`
	// PageRPS paces listing page fetches per host. Zero disables pacing.
	PageRPS float64 `mapstructure:"page_rps"`
	// RenderJS promotes script-built listing pages to a headless Chrome
	// render when the static fetch yields nothing.
	RenderJS         bool `mapstructure:"render_js"`
	HeadlessParallel int  `mapstructure:"headless_parallel"`
}

// SmartStopConfig controls early termination of a site's crawl scope.
type SmartStopConfig struct {
	Threshold int `mapstructure:"threshold"`
}

// DedupConfig holds the duplicate resolver thresholds and weights.
type DedupConfig struct {
	TitleSimilarityMin    float64 `mapstructure:"title_similarity_min"`
	LocationSimilarityMin float64 `mapstructure:"location_similarity_min"`
	CombinedSimilarityMin float64 `mapstructure:"combined_similarity_min"`
	TitleWeight           float64 `mapstructure:"title_weight"`
	LocationWeight        float64 `mapstructure:"location_weight"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory stores.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for run completion notifications. An empty
// project ID selects the in-memory publisher.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ExportConfig controls run report export. An empty backend disables it;
// "local" writes under Dir, "gcs" uploads to Bucket.
type ExportConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBTRACKER")
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scraper.concurrency", 3)
	v.SetDefault("scraper.max_pages", 100)
	v.SetDefault("scraper.queue_depth", 64)
	v.SetDefault("scraper.user_agent", "jobtracker-bot/0.1")
	v.SetDefault("scraper.timeout_seconds", 15)
	v.SetDefault("scraper.respect_robots", false)
	v.SetDefault("scraper.page_rps", 3.0)
	v.SetDefault("scraper.render_js", false)
	v.SetDefault("scraper.headless_parallel", 2)
	v.SetDefault("smart_stop.threshold", 5)
	v.SetDefault("export.backend", "")
	v.SetDefault("dedup.title_similarity_min", 0.85)
	v.SetDefault("dedup.location_similarity_min", 0.90)
	v.SetDefault("dedup.combined_similarity_min", 0.80)
	v.SetDefault("dedup.title_weight", 0.7)
	v.SetDefault("dedup.location_weight", 0.3)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("pubsub.topic_name", "jobtracker-runs")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.Concurrency <= 0 {
		return fmt.Errorf("scraper.concurrency must be > 0")
	}
	if c.Scraper.MaxPages <= 0 {
		return fmt.Errorf("scraper.max_pages must be > 0")
	}
	if c.SmartStop.Threshold <= 0 {
		return fmt.Errorf("smart_stop.threshold must be > 0")
	}
	for _, th := range []struct {
		name  string
		value float64
	}{
		{"dedup.title_similarity_min", c.Dedup.TitleSimilarityMin},
		{"dedup.location_similarity_min", c.Dedup.LocationSimilarityMin},
		{"dedup.combined_similarity_min", c.Dedup.CombinedSimilarityMin},
	} {
		if th.value <= 0 || th.value > 1 {
			return fmt.Errorf("%s must be in (0, 1]", th.name)
		}
	}
	if math.Abs(c.Dedup.TitleWeight+c.Dedup.LocationWeight-1.0) > 1e-9 {
		return fmt.Errorf("dedup.title_weight and dedup.location_weight must sum to 1.0")
	}
	switch c.Export.Backend {
	case "":
	case "local":
		if c.Export.Dir == "" {
			return fmt.Errorf("export.dir is required for the local backend")
		}
	case "gcs":
		if c.Export.Bucket == "" {
			return fmt.Errorf("export.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("export.backend must be empty, local, or gcs")
	}
	for i, site := range c.Sites {
		if site.Company == "" || site.BaseURL == "" {
			return fmt.Errorf("sites[%d] must set company and base_url", i)
		}
	}
	return nil
}

// ScrapeTimeout converts the fetch timeout into a duration.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}
