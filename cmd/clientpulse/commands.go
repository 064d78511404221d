package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/clientpulse/internal/config"
	"github.com/crimson-sun/clientpulse/internal/model"
	"github.com/crimson-sun/clientpulse/internal/pipeline"
	"github.com/crimson-sun/clientpulse/internal/server"
	"github.com/crimson-sun/clientpulse/internal/source/csvfile"
	"github.com/crimson-sun/clientpulse/internal/source/demo"
	"github.com/crimson-sun/clientpulse/internal/watcher"
)

func newReportCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Load, segment and aggregate once, writing the report to every sink",
		Example: `  clientpulse report --path contratos.csv
  clientpulse report --path contratos.csv --cluster ChurnRisk --output stdout,csv:out/annotated.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g, f)
			if err != nil {
				return err
			}
			filter, err := model.ParseFilter(f.cluster)
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			_, runErr := p.Run(cmd.Context(), filter)
			return errors.Join(runErr, p.Close())
		},
	}
	addRunFlags(cmd, f)
	return cmd
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report once, then again every time the input file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g, f)
			if err != nil {
				return err
			}
			filter, err := model.ParseFilter(f.cluster)
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg, cmd.OutOrStdout(), cfg.Output.Async)
			if err != nil {
				return err
			}
			defer p.Close()

			if _, err := p.Run(cmd.Context(), filter); err != nil {
				slog.Error("initial run failed", "error", err)
			}
			return ignoreCanceled(watchInput(cmd.Context(), cfg, p, filter))
		},
	}
	addRunFlags(cmd, f)
	return cmd
}

func newServeCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	var addr string
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics and client lists over HTTP for the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g, f)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			src, srcCfg, err := buildSource(cfg)
			if err != nil {
				return err
			}
			p := pipeline.New(src, srcCfg, buildEngine(cfg), nil,
				pipeline.WithCache(pipeline.NewCache()),
				pipeline.WithLimit(cfg.Source.Limit),
			)
			ctx := cmd.Context()
			if _, err := p.Load(ctx); err != nil {
				return err
			}

			srv := server.New(p, server.WithTopN(cfg.Server.TopN))
			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error { return srv.Run(ctx, cfg.Server.Addr) })
			if watch {
				eg.Go(func() error { return watchInput(ctx, cfg, p, model.FilterAll) })
			}
			return ignoreCanceled(eg.Wait())
		},
	}
	addRunFlags(cmd, f)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the dataset when the input file changes")
	return cmd
}

func newDemoCmd() *cobra.Command {
	var (
		out       string
		rows      int
		seed      int64
		delimiter string
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write a synthetic contract export shaped like the real one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			delim, err := csvfile.ParseDelimiter(delimiter)
			if err != nil {
				return err
			}
			t := demo.Generate(rows, seed, time.Now())

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				fh, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("demo: %w", err)
				}
				defer fh.Close()
				w = fh
			}
			if err := csvfile.Encode(w, t, orComma(delim)); err != nil {
				return fmt.Errorf("demo: %w", err)
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", t.Len(), out)
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	fs.IntVar(&rows, "rows", demo.DefaultRows, "number of rows")
	fs.Int64Var(&seed, "seed", demo.DefaultSeed, "random seed")
	fs.StringVar(&delimiter, "delimiter", ";", "field delimiter")
	return cmd
}

func newPipeline(cfg config.Config, w io.Writer, buffered bool) (*pipeline.Pipeline, error) {
	src, srcCfg, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}
	out, err := buildOutput(cfg, w, buffered)
	if err != nil {
		return nil, err
	}
	return pipeline.New(src, srcCfg, buildEngine(cfg), out,
		pipeline.WithCache(pipeline.NewCache()),
		pipeline.WithLimit(cfg.Source.Limit),
	), nil
}

// watchInput reruns p whenever the configured input file changes.
func watchInput(ctx context.Context, cfg config.Config, p *pipeline.Pipeline, filter model.Filter) error {
	if cfg.Source.Provider != "csv" {
		return fmt.Errorf("watch needs a local file, source is %q", cfg.Source.Provider)
	}
	w, err := watcher.New(cfg.Source.Path, watcher.WithDebounce(cfg.Source.WatchDebounce))
	if err != nil {
		return err
	}
	defer w.Close()

	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	slog.Info("watching input", "path", w.Path())
	return p.Watch(ctx, changes, filter)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
