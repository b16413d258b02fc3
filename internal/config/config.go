package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
)

type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`       // per request, default 30s
	UserAgent    string        `yaml:"user_agent"`    // sent on every request
	RequestDelay time.Duration `yaml:"request_delay"` // min gap between requests to one source, default 1s
}

type CrawlConfig struct {
	MaxPages int `yaml:"max_pages"` // hard ceiling for paginated indexes, default 25
}

// SourceConfig overrides the defaults for one source key.
type SourceConfig struct {
	Disabled     bool          `yaml:"disabled"`      // skipped by "run all"
	RequestDelay time.Duration `yaml:"request_delay"` // overrides http.request_delay
	MaxPages     int           `yaml:"max_pages"`     // overrides crawl.max_pages
	MaxKeywords  int           `yaml:"max_keywords"`  // overrides the source's own cap
	URLs         []string      `yaml:"urls"`          // replaces a curated page list
}

type MetricsConfig struct {
	Textfile    string `yaml:"textfile"`    // node_exporter textfile collector path, optional
	Pushgateway string `yaml:"pushgateway"` // e.g. http://pushgateway:9091, optional
	Job         string `yaml:"job"`         // default: compliance-ingester
}

type LokiConfig struct {
	URL      string        `yaml:"url"`       // http://loki:3100
	TenantID string        `yaml:"tenant_id"` // optional multi-tenancy
	Job      string        `yaml:"job"`       // stream label, default: compliance-ingester
	Timeout  time.Duration `yaml:"timeout"`   // request timeout
}

type VictoriaConfig struct {
	URL     string        `yaml:"url"`     // http://victoria-metrics:8428
	Timeout time.Duration `yaml:"timeout"` // request timeout
}

// PublishConfig lists where a persisted run's record changes are pushed.
// Both are optional.
type PublishConfig struct {
	Loki     LokiConfig     `yaml:"loki"`
	Victoria VictoriaConfig `yaml:"victoria"`
}

type JournalConfig struct {
	Path string `yaml:"path"` // sqlite file; empty disables the run history
}

type Config struct {
	Output           string                  `yaml:"output"`      // canonical dataset, default data/charity_policies.csv
	StagingDir       string                  `yaml:"staging_dir"` // raw payloads, default data/staging
	HTTP             HTTPConfig              `yaml:"http"`
	Crawl            CrawlConfig             `yaml:"crawl"`
	PlaceholderDates []string                `yaml:"placeholder_dates"`
	Sources          map[string]SourceConfig `yaml:"sources"`
	FixedDates       map[string]string       `yaml:"fixed_dates"` // record id -> verified YYYY-MM-DD
	Metrics          MetricsConfig           `yaml:"metrics"`
	Journal          JournalConfig           `yaml:"journal"`
	Publish          PublishConfig           `yaml:"publish"`
}

const DefaultUserAgent = "Mozilla/5.0 (compatible; charity-compliance-tracker/1.0; +https://github.com/Boakye-20/charity-compliance-tracker)"

// Default returns a config with every default filled in.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Output == "" {
		c.Output = filepath.Join("data", "charity_policies.csv")
	}
	if c.StagingDir == "" {
		c.StagingDir = filepath.Join("data", "staging")
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = DefaultUserAgent
	}
	if c.HTTP.RequestDelay <= 0 {
		c.HTTP.RequestDelay = time.Second
	}
	if c.Crawl.MaxPages <= 0 {
		c.Crawl.MaxPages = 25
	}
	if len(c.PlaceholderDates) == 0 {
		c.PlaceholderDates = []string{"1970-01-01", "2025-01-01", "2025-12-31"}
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "compliance-ingester"
	}
	if c.Publish.Loki.Job == "" {
		c.Publish.Loki.Job = "compliance-ingester"
	}
}

// Load reads path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eris.Wrap(err, "read config")
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, eris.Wrap(err, "parse config")
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	for id, d := range c.FixedDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return eris.Errorf("fixed_dates[%s]: %q is not YYYY-MM-DD", id, d)
		}
	}
	for _, d := range c.PlaceholderDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return eris.Errorf("placeholder_dates: %q is not YYYY-MM-DD", d)
		}
	}
	return nil
}

// Source returns the overrides for key (zero value when none).
func (c Config) Source(key string) SourceConfig {
	return c.Sources[key]
}

// DelayFor is the inter-request delay for key.
func (c Config) DelayFor(key string) time.Duration {
	if d := c.Source(key).RequestDelay; d > 0 {
		return d
	}
	return c.HTTP.RequestDelay
}

// MaxPagesFor is the crawl ceiling for key.
func (c Config) MaxPagesFor(key string) int {
	if n := c.Source(key).MaxPages; n > 0 {
		return n
	}
	return c.Crawl.MaxPages
}

// IsPlaceholder reports whether d is one of the configured sentinel dates.
// The date the pipeline stamps on undated records always counts.
func (c Config) IsPlaceholder(d string) bool {
	if d == model.PlaceholderDate {
		return true
	}
	for _, p := range c.PlaceholderDates {
		if d == p {
			return true
		}
	}
	return false
}
