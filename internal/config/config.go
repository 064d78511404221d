// Package config loads clientpulse settings: defaults, then an optional YAML
// file, then CLIENTPULSE_* environment variables. Command-line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no explicit config path is given.
const DefaultPath = "clientpulse.yaml"

// Config holds all clientpulse configuration.
type Config struct {
	Source       SourceConfig        `yaml:"source"`
	Columns      map[string][]string `yaml:"columns"`
	Segmentation SegmentationConfig  `yaml:"segmentation"`
	Status       StatusConfig        `yaml:"status"`
	Synthetic    SyntheticConfig     `yaml:"synthetic"`
	Demo         DemoConfig          `yaml:"demo"`
	Cleaning     CleaningConfig      `yaml:"cleaning"`
	Output       OutputConfig        `yaml:"output"`
	Server       ServerConfig        `yaml:"server"`
	Log          LogConfig           `yaml:"log"`
}

// SourceConfig selects and parameterizes the input provider.
type SourceConfig struct {
	Provider      string        `yaml:"provider"` // csv, http, demo
	Path          string        `yaml:"path"`
	URL           string        `yaml:"url"`
	Token         string        `yaml:"token"`
	Encoding      string        `yaml:"encoding"`
	Delimiter     string        `yaml:"delimiter"`
	Limit         int           `yaml:"limit"` // negative: no limit
	Rows          int           `yaml:"rows"`  // demo provider
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// SegmentationConfig overrides individual segmentation thresholds.
// Unset fields keep the built-in defaults.
type SegmentationConfig struct {
	ChurnLowScore       *int     `yaml:"churn_low_score"`
	ChurnNewTenureDays  *int     `yaml:"churn_new_tenure_days"`
	ChurnCriticalScore  *int     `yaml:"churn_critical_score"`
	ChurnAgedScore      *int     `yaml:"churn_aged_score"`
	LongTenureDays      *int     `yaml:"long_tenure_days"`
	ChurnQuota          *float64 `yaml:"churn_quota"`
	ChurnQuantile       *float64 `yaml:"churn_quantile"`
	UpsellHighScore     *int     `yaml:"upsell_high_score"`
	UpsellValueQuantile *float64 `yaml:"upsell_value_quantile"`
	UpsellAgedQuantile  *float64 `yaml:"upsell_aged_quantile"`
	UpsellPromoterScore *int     `yaml:"upsell_promoter_score"`
	UpsellQuota         *float64 `yaml:"upsell_quota"`
	UpsellQuantile      *float64 `yaml:"upsell_quantile"`
}

// StatusConfig replaces the status vocabularies. Empty lists keep the defaults.
type StatusConfig struct {
	ActiveKeywords []string `yaml:"active_keywords"`
	Cancelled      []string `yaml:"cancelled"`
	Synthetic      []string `yaml:"synthetic"`
}

// SyntheticConfig controls the generated substitutes for missing columns.
type SyntheticConfig struct {
	Seed         int64   `yaml:"seed"`
	ValueMin     float64 `yaml:"value_min"`
	ValueMax     float64 `yaml:"value_max"`
	DateSpanDays int     `yaml:"date_span_days"`
}

// DemoConfig switches on showcase metric inflation. Zero floors keep the defaults.
type DemoConfig struct {
	InflateMetrics bool `yaml:"inflate_metrics"`
	MinTotal       int  `yaml:"min_total"`
	MinActive      int  `yaml:"min_active"`
}

// CleaningConfig controls raw-row cleanup before normalization.
type CleaningConfig struct {
	Dedup        bool     `yaml:"dedup"`
	DedupColumns []string `yaml:"dedup_columns"` // empty: whole row
}

// OutputConfig lists report sinks.
type OutputConfig struct {
	Sinks     []SinkConfig `yaml:"sinks"`
	Verbosity string       `yaml:"verbosity"` // summary, standard, full
	Pretty    bool         `yaml:"pretty"`
	Async     bool         `yaml:"async"` // buffer sinks in watch mode
}

// SinkConfig describes one report destination.
type SinkConfig struct {
	Type      string            `yaml:"type"` // stdout, file, csv, sqlite, webhook
	Path      string            `yaml:"path"`
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
	Verbosity string            `yaml:"verbosity"` // overrides OutputConfig.Verbosity
	MaxSize   int64             `yaml:"max_size"`  // file: rotation threshold in bytes
	Delimiter string            `yaml:"delimiter"` // csv
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	TopN int    `yaml:"top_n"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SinkTypes lists every supported sink type.
var SinkTypes = []string{"stdout", "file", "csv", "sqlite", "webhook"}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Provider:      "csv",
			Encoding:      "utf-8",
			WatchDebounce: 500 * time.Millisecond,
		},
		Synthetic: SyntheticConfig{
			Seed:         42,
			ValueMin:     1000,
			ValueMax:     100000,
			DateSpanDays: 1000,
		},
		Cleaning: CleaningConfig{Dedup: true},
		Output: OutputConfig{
			Sinks:     []SinkConfig{{Type: "stdout"}},
			Verbosity: "summary",
		},
		Server: ServerConfig{Addr: ":8080", TopN: 10},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error when path is DefaultPath or empty.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != "" && path != DefaultPath
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("CLIENTPULSE_SOURCE"); v != "" {
		c.Source.Provider = v
	}
	if v := os.Getenv("CLIENTPULSE_PATH"); v != "" {
		c.Source.Path = v
	}
	if v := os.Getenv("CLIENTPULSE_URL"); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv("CLIENTPULSE_TOKEN"); v != "" {
		c.Source.Token = v
	}
	if v := os.Getenv("CLIENTPULSE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: CLIENTPULSE_LIMIT: %w", err)
		}
		c.Source.Limit = n
	}
	if v := os.Getenv("CLIENTPULSE_OUTPUT"); v != "" {
		sinks, err := ParseSinks(v)
		if err != nil {
			return fmt.Errorf("config: CLIENTPULSE_OUTPUT: %w", err)
		}
		c.Output.Sinks = sinks
	}
	if v := os.Getenv("CLIENTPULSE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CLIENTPULSE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CLIENTPULSE_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: CLIENTPULSE_SEED: %w", err)
		}
		c.Synthetic.Seed = n
	}
	if v := os.Getenv("CLIENTPULSE_DEMO_INFLATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: CLIENTPULSE_DEMO_INFLATE: %w", err)
		}
		c.Demo.InflateMetrics = b
	}
	return nil
}

// ParseSinks parses a comma-separated list of "type" or "type:target"
// entries. The target is the URL for webhook and the path for every other
// type that writes to disk.
func ParseSinks(s string) ([]SinkConfig, error) {
	var sinks []SinkConfig
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		typ, target, _ := strings.Cut(part, ":")
		sink := SinkConfig{Type: strings.ToLower(typ)}
		if sink.Type == "webhook" {
			sink.URL = target
		} else {
			sink.Path = target
		}
		sinks = append(sinks, sink)
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("no sinks in %q", s)
	}
	return sinks, nil
}

// Validate rejects settings no run could honor. All problems are reported together.
func (c Config) Validate() error {
	var errs []error

	switch c.Source.Provider {
	case "csv":
		if c.Source.Path == "" {
			errs = append(errs, errors.New("source.path is required for the csv provider"))
		}
	case "http":
		if c.Source.URL == "" {
			errs = append(errs, errors.New("source.url is required for the http provider"))
		}
	}
	if c.Source.Delimiter != "" && c.Source.Delimiter != "tab" && c.Source.Delimiter != `\t` &&
		len([]rune(c.Source.Delimiter)) != 1 {
		errs = append(errs, fmt.Errorf("source.delimiter %q must be a single character", c.Source.Delimiter))
	}

	s := c.Segmentation
	for _, q := range []struct {
		name string
		v    *float64
	}{
		{"churn_quota", s.ChurnQuota},
		{"churn_quantile", s.ChurnQuantile},
		{"upsell_value_quantile", s.UpsellValueQuantile},
		{"upsell_aged_quantile", s.UpsellAgedQuantile},
		{"upsell_quota", s.UpsellQuota},
		{"upsell_quantile", s.UpsellQuantile},
	} {
		if q.v != nil && (*q.v < 0 || *q.v > 1) {
			errs = append(errs, fmt.Errorf("segmentation.%s %v outside [0, 1]", q.name, *q.v))
		}
	}

	if c.Synthetic.ValueMin < 0 || c.Synthetic.ValueMin >= c.Synthetic.ValueMax {
		errs = append(errs, fmt.Errorf("synthetic value range [%v, %v] is invalid", c.Synthetic.ValueMin, c.Synthetic.ValueMax))
	}
	if c.Synthetic.DateSpanDays < 2 {
		errs = append(errs, fmt.Errorf("synthetic.date_span_days %d must be at least 2", c.Synthetic.DateSpanDays))
	}

	if !validVerbosity(c.Output.Verbosity) {
		errs = append(errs, fmt.Errorf("output.verbosity %q is unknown", c.Output.Verbosity))
	}
	for i, sink := range c.Output.Sinks {
		if err := sink.validate(); err != nil {
			errs = append(errs, fmt.Errorf("output.sinks[%d]: %w", i, err))
		}
	}

	if c.Server.TopN < 0 {
		errs = append(errs, fmt.Errorf("server.top_n %d is negative", c.Server.TopN))
	}
	return errors.Join(errs...)
}

func (s SinkConfig) validate() error {
	switch s.Type {
	case "stdout":
	case "file", "csv", "sqlite":
		if s.Path == "" {
			return fmt.Errorf("%s sink requires a path", s.Type)
		}
	case "webhook":
		if s.URL == "" {
			return errors.New("webhook sink requires a url")
		}
	default:
		return fmt.Errorf("unknown sink type %q (want one of %s)", s.Type, strings.Join(SinkTypes, ", "))
	}
	if s.Verbosity != "" && !validVerbosity(s.Verbosity) {
		return fmt.Errorf("verbosity %q is unknown", s.Verbosity)
	}
	return nil
}

func validVerbosity(v string) bool {
	switch strings.ToLower(v) {
	case "", "summary", "standard", "full":
		return true
	}
	return false
}
