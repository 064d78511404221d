package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/clientpulse/internal/config"
	"github.com/crimson-sun/clientpulse/internal/engine"
	"github.com/crimson-sun/clientpulse/internal/engine/aggregator"
	"github.com/crimson-sun/clientpulse/internal/engine/coercer"
	"github.com/crimson-sun/clientpulse/internal/engine/dedup"
	"github.com/crimson-sun/clientpulse/internal/engine/resolver"
	"github.com/crimson-sun/clientpulse/internal/engine/segmenter"
	"github.com/crimson-sun/clientpulse/internal/engine/taxonomy"
	"github.com/crimson-sun/clientpulse/internal/logging"
	"github.com/crimson-sun/clientpulse/internal/output"
	"github.com/crimson-sun/clientpulse/internal/output/async"
	"github.com/crimson-sun/clientpulse/internal/output/csvtable"
	"github.com/crimson-sun/clientpulse/internal/output/file"
	"github.com/crimson-sun/clientpulse/internal/output/multi"
	"github.com/crimson-sun/clientpulse/internal/output/sqlite"
	"github.com/crimson-sun/clientpulse/internal/output/stdout"
	"github.com/crimson-sun/clientpulse/internal/output/webhook"
	"github.com/crimson-sun/clientpulse/internal/source"
	"github.com/crimson-sun/clientpulse/internal/source/csvfile"
)

// runFlags are the command-line overrides applied after file and env.
type runFlags struct {
	provider    string
	path        string
	url         string
	limit       int
	cluster     string
	output      string
	verbosity   string
	pretty      bool
	demoInflate bool
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	fs := cmd.Flags()
	fs.StringVar(&f.provider, "source", "", "source provider: csv, http or demo")
	fs.StringVarP(&f.path, "path", "p", "", "input CSV file (csv source)")
	fs.StringVar(&f.url, "url", "", "input CSV URL (http source)")
	fs.IntVar(&f.limit, "limit", 0, "maximum rows to load (negative: no limit)")
	fs.StringVar(&f.cluster, "cluster", "All", "aggregate only this cluster: All, Regular, ChurnRisk, UpsellPotential")
	fs.StringVarP(&f.output, "output", "o", "", "comma-separated sinks, type[:target] (stdout, file, csv, sqlite, webhook)")
	fs.StringVar(&f.verbosity, "verbosity", "", "summary, standard or full")
	fs.BoolVar(&f.pretty, "pretty", false, "indent JSON written to stdout")
	fs.BoolVar(&f.demoInflate, "demo-inflate", false, "inflate client counts for showcase demos (metrics are marked synthetic)")
}

// loadConfig reads file and env, applies the flags the user set, validates
// and initializes logging.
func loadConfig(cmd *cobra.Command, g *globalFlags, f *runFlags) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if f != nil {
		if err := f.apply(cmd, &cfg); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration:\n%w", err)
	}
	logging.Init(writesStdout(cfg.Output.Sinks), logging.ParseLevel(cfg.Log.Level))
	return cfg, nil
}

func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	if fs.Changed("source") {
		cfg.Source.Provider = f.provider
	}
	if fs.Changed("path") {
		cfg.Source.Path = f.path
		if !fs.Changed("source") {
			cfg.Source.Provider = "csv"
		}
	}
	if fs.Changed("url") {
		cfg.Source.URL = f.url
		if !fs.Changed("source") {
			cfg.Source.Provider = "http"
		}
	}
	if fs.Changed("limit") {
		cfg.Source.Limit = f.limit
	}
	if fs.Changed("output") {
		sinks, err := config.ParseSinks(f.output)
		if err != nil {
			return fmt.Errorf("--output: %w", err)
		}
		cfg.Output.Sinks = sinks
	}
	if fs.Changed("verbosity") {
		cfg.Output.Verbosity = f.verbosity
	}
	if fs.Changed("pretty") {
		cfg.Output.Pretty = f.pretty
	}
	if fs.Changed("demo-inflate") {
		cfg.Demo.InflateMetrics = f.demoInflate
	}
	return nil
}

func writesStdout(sinks []config.SinkConfig) bool {
	for _, s := range sinks {
		if s.Type == "stdout" {
			return true
		}
	}
	return false
}

func buildEngine(cfg config.Config) *engine.Engine {
	tax := taxonomy.New(
		orDefault(cfg.Status.ActiveKeywords, taxonomy.DefaultActiveKeywords()),
		orDefault(cfg.Status.Cancelled, taxonomy.DefaultCancelled()),
		orDefault(cfg.Status.Synthetic, taxonomy.DefaultSynthetic()),
	)
	coe := coercer.New(
		coercer.WithSeed(cfg.Synthetic.Seed),
		coercer.WithStatuses(tax.Synthetic()),
		coercer.WithValueRange(cfg.Synthetic.ValueMin, cfg.Synthetic.ValueMax),
		coercer.WithDateSpan(cfg.Synthetic.DateSpanDays),
	)

	var opts []engine.Option
	if cfg.Cleaning.Dedup {
		opts = append(opts, engine.WithDedup(dedup.New(dedup.Config{Columns: cfg.Cleaning.DedupColumns})))
	}
	if cfg.Demo.InflateMetrics {
		floor := aggregator.DefaultDemoFloor()
		if cfg.Demo.MinTotal > 0 {
			floor.MinTotal = cfg.Demo.MinTotal
		}
		if cfg.Demo.MinActive > 0 {
			floor.MinActive = cfg.Demo.MinActive
		}
		opts = append(opts, engine.WithDemoInflation(floor))
	}

	return engine.New(
		resolver.DefaultAliases().Merge(cfg.Columns),
		coe,
		segmenter.New(segmentRules(cfg.Segmentation)),
		aggregator.New(tax),
		opts...,
	)
}

// segmentRules overlays the configured thresholds on the defaults.
func segmentRules(s config.SegmentationConfig) segmenter.Rules {
	r := segmenter.DefaultRules()
	setInt(&r.ChurnLowScore, s.ChurnLowScore)
	setInt(&r.ChurnNewTenureDays, s.ChurnNewTenureDays)
	setInt(&r.ChurnCriticalScore, s.ChurnCriticalScore)
	setInt(&r.ChurnAgedScore, s.ChurnAgedScore)
	setInt(&r.LongTenureDays, s.LongTenureDays)
	setFloat(&r.ChurnQuota, s.ChurnQuota)
	setFloat(&r.ChurnQuantile, s.ChurnQuantile)
	setInt(&r.UpsellHighScore, s.UpsellHighScore)
	setFloat(&r.UpsellValueQuantile, s.UpsellValueQuantile)
	setFloat(&r.UpsellAgedQuantile, s.UpsellAgedQuantile)
	setInt(&r.UpsellPromoterScore, s.UpsellPromoterScore)
	setFloat(&r.UpsellQuota, s.UpsellQuota)
	setFloat(&r.UpsellQuantile, s.UpsellQuantile)
	return r
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

func buildSource(cfg config.Config) (source.Source, source.Config, error) {
	ctor, err := source.Get(cfg.Source.Provider)
	if err != nil {
		return nil, source.Config{}, err
	}
	return ctor(), source.Config{
		Provider:  cfg.Source.Provider,
		Path:      cfg.Source.Path,
		URL:       cfg.Source.URL,
		Token:     cfg.Source.Token,
		Encoding:  cfg.Source.Encoding,
		Delimiter: cfg.Source.Delimiter,
		Rows:      cfg.Source.Rows,
		Seed:      cfg.Synthetic.Seed,
	}, nil
}

// buildOutput opens every configured sink. stdout sinks write to w.
// With buffered set, each sink is wrapped so a slow destination never
// stalls the next run.
func buildOutput(cfg config.Config, w io.Writer, buffered bool) (output.Output, error) {
	var outs []output.Output
	closeAll := func() {
		for _, o := range outs {
			o.Close()
		}
	}

	for _, s := range cfg.Output.Sinks {
		verbosity, err := output.ParseVerbosity(firstNonEmpty(s.Verbosity, cfg.Output.Verbosity))
		if err != nil {
			closeAll()
			return nil, err
		}

		var o output.Output
		switch s.Type {
		case "stdout":
			o = stdout.NewWriter(w, verbosity, cfg.Output.Pretty)
		case "file":
			o, err = file.New(s.Path, verbosity, file.WithMaxSize(s.MaxSize))
		case "csv":
			var delim rune
			delim, err = csvfile.ParseDelimiter(s.Delimiter)
			if err == nil {
				o, err = csvtable.New(s.Path, csvtable.WithDelimiter(orComma(delim)))
			}
		case "sqlite":
			o, err = sqlite.New(s.Path)
		case "webhook":
			o = webhook.New(s.URL, webhook.WithHeaders(s.Headers), webhook.WithVerbosity(verbosity))
		default:
			err = fmt.Errorf("unknown sink type %q", s.Type)
		}
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("output %s: %w", s.Type, err)
		}
		if buffered && s.Type != "stdout" {
			o = async.New(o, async.WithDropOnFull())
		}
		outs = append(outs, o)
	}

	if len(outs) == 1 {
		return outs[0], nil
	}
	return multi.New(outs...), nil
}

func orComma(r rune) rune {
	if r == 0 {
		return ','
	}
	return r
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
