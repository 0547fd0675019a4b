package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/logging"
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/plugins"
	"github.com/born-ml/synth/internal/store"
)

type fitOptions struct {
	plugins     []string
	data        string
	target      string
	timeToEvent string
	params      []string
	seed        int64
	out         string
	jobs        int
}

type fitResult struct {
	plugin string
	record store.Record
	file   string
}

func newFitCmd(a *app) *cobra.Command {
	var opts fitOptions
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit one or more plugins on a CSV table and store the models",
		Long: `Fit one or more plugins on a CSV table and store the models.

The table is read as generic data, or as survival data when --time-to-event
is set. Time series plugins need sequence data and are rejected.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := a.context(cmd.Context())
			getOpts, err := a.getOptions(opts.params, cmd.Flags().Changed("seed"), opts.seed)
			if err != nil {
				return err
			}
			results, err := a.fit(ctx, opts, getOpts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%s\t%s", r.plugin, r.record.ID)
				if r.file != "" {
					fmt.Fprintf(out, "\t%s", r.file)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&opts.plugins, "plugin", "p", nil, "Plugin to fit (repeatable)")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "CSV training table")
	cmd.Flags().StringVar(&opts.target, "target", "", "Target column")
	cmd.Flags().StringVar(&opts.timeToEvent, "time-to-event", "", "Time-to-event column; selects a survival loader")
	cmd.Flags().StringArrayVar(&opts.params, "param", nil, "Plugin parameter as name=value (repeatable)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random state, overrides the configured seed")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Also write each model to this directory")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "Plugins fitted concurrently (0 = all)")
	_ = cmd.MarkFlagRequired("plugin")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// getOptions builds the plugin parameters from the configuration, then the
// --param overrides.
func (a *app) getOptions(raw []string, seedSet bool, seed int64) ([]plugins.GetOption, error) {
	opts := []plugins.GetOption{
		plugins.WithStrict(a.cfg.Strict),
		plugins.WithParam(plugin.ParamSamplingPatience, a.cfg.SamplingPatience),
		plugins.WithSeed(a.cfg.Seed),
	}
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: want name=value", kv)
		}
		opts = append(opts, plugins.WithParam(name, strings.TrimSpace(value)))
	}
	if seedSet {
		opts = append(opts, plugins.WithSeed(seed))
	}
	return opts, nil
}

func (a *app) readLoader(path, target, timeToEvent string) (dataloader.DataLoader, error) {
	f, err := a.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	frame, err := dataloader.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if timeToEvent != "" {
		return dataloader.NewSurvivalAnalysis(frame, target, timeToEvent)
	}
	return dataloader.NewGeneric(frame, target)
}

func (a *app) fit(ctx context.Context, opts fitOptions, getOpts []plugins.GetOption) ([]fitResult, error) {
	view := plugins.New()
	instances := make([]plugin.Plugin, len(opts.plugins))
	for i, name := range opts.plugins {
		p, err := view.Get(name, getOpts...)
		if err != nil {
			return nil, err
		}
		// A CSV table has no sequence structure.
		if p.Category() == plugin.TimeSeries {
			return nil, fmt.Errorf("%w: %s is a time series plugin and cannot be fitted from a CSV table; use the Go API with a time series loader", plugin.ErrUnsupportedData, name)
		}
		instances[i] = p
	}

	loader, err := a.readLoader(opts.data, opts.target, opts.timeToEvent)
	if err != nil {
		return nil, err
	}
	models, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if opts.out != "" {
		if err := a.fs.MkdirAll(opts.out, 0o755); err != nil {
			return nil, err
		}
	}

	logger := logging.FromContext(ctx)
	results := make([]fitResult, len(instances))
	g, gctx := errgroup.WithContext(ctx)
	if opts.jobs > 0 {
		g.SetLimit(opts.jobs)
	}
	for i, p := range instances {
		g.Go(func() error {
			start := time.Now()
			if err := p.Fit(gctx, loader); err != nil {
				return fmt.Errorf("fit %s: %w", p.Name(), err)
			}
			data, err := plugin.SaveContext(gctx, p)
			if err != nil {
				return err
			}
			rec, err := models.Put(gctx, store.Record{}, data)
			if err != nil {
				return fmt.Errorf("store %s: %w", p.Name(), err)
			}
			results[i] = fitResult{plugin: p.Name(), record: rec}
			if opts.out != "" {
				file := filepath.Join(opts.out, rec.ID.String()+".synth")
				if err := afero.WriteFile(a.fs, file, data, 0o644); err != nil {
					return err
				}
				results[i].file = file
			}
			logger.InfoContext(gctx, "model stored",
				"plugin", p.Name(), "id", rec.ID, "bytes", rec.Size, "elapsed", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
