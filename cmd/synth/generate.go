package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/born-ml/synth/internal/dataloader"
	"github.com/born-ml/synth/internal/logging"
	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/plugins"
	"github.com/born-ml/synth/internal/store"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		model       string
		count       int
		out         string
		constraints []string
		seed        int64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate rows from a stored or saved model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := a.context(cmd.Context())

			var genOpts []plugin.GenerateOption
			if len(constraints) > 0 {
				var c plugin.Constraints
				for _, s := range constraints {
					r, err := plugin.ParseRule(s)
					if err != nil {
						return err
					}
					c.Rules = append(c.Rules, r)
				}
				genOpts = append(genOpts, plugin.WithConstraints(c))
			}
			if cmd.Flags().Changed("seed") {
				genOpts = append(genOpts, plugin.WithSeed(seed))
			}

			p, err := a.loadModel(ctx, model)
			if err != nil {
				return err
			}
			generated, err := p.Generate(ctx, count, genOpts...)
			if err != nil {
				return fmt.Errorf("generate %s: %w", p.Name(), err)
			}
			frame := generated.Frame()
			logging.FromContext(ctx).InfoContext(ctx, "rows generated",
				"plugin", p.Name(), "requested", count, "rows", frame.Len())

			if out == "" || out == "-" {
				return dataloader.WriteCSV(cmd.OutOrStdout(), frame)
			}
			f, err := a.fs.Create(out)
			if err != nil {
				return err
			}
			if err := dataloader.WriteCSV(f, frame); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Stored model id or path to a saved model file")
	cmd.Flags().IntVarP(&count, "count", "n", 100, "Rows to generate")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output CSV file (default stdout)")
	cmd.Flags().StringArrayVar(&constraints, "constraint", nil, `Constraint such as "age >= 18" (repeatable)`)
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for this call only")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

// loadModel resolves ref as a file first, then as a store id.
func (a *app) loadModel(ctx context.Context, ref string) (plugin.Plugin, error) {
	data, err := a.readModel(ctx, ref)
	if err != nil {
		return nil, err
	}
	return plugins.New().LoadContext(ctx, data)
}

func (a *app) readModel(ctx context.Context, ref string) ([]byte, error) {
	if ok, _ := afero.Exists(a.fs, ref); ok {
		f, err := a.fs.Open(ref)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	id, err := store.ParseID(ref)
	if err != nil {
		return nil, fmt.Errorf("model %q is neither a file nor a stored id", ref)
	}
	models, err := a.openStore()
	if err != nil {
		return nil, err
	}
	_, data, err := models.Get(ctx, id)
	return data, err
}
