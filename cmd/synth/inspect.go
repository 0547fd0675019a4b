package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/synth/internal/serialization"
)

func newInspectCmd(a *app) *cobra.Command {
	var attributes bool
	cmd := &cobra.Command{
		Use:   "inspect <model>",
		Short: "Print a saved model's header as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd.Context())
			data, err := a.readModel(ctx, args[0])
			if err != nil {
				return err
			}
			env, err := serialization.Load(data)
			if err != nil {
				return err
			}
			doc := inspection{
				Version:   env.Version,
				Plugin:    env.Plugin,
				Category:  env.Category,
				CreatedAt: env.CreatedAt.Format(time.RFC3339),
				Bytes:     len(data),
				Metadata:  env.Metadata,
			}
			for _, name := range env.Keys() {
				if t, ok := env.Tensors[name]; ok {
					doc.Tensors = append(doc.Tensors, tensorInfo{Name: name, DType: t.DType().String(), Shape: t.Shape()})
					continue
				}
				if attributes {
					doc.Attributes = append(doc.Attributes, fmt.Sprintf("%s (%d bytes)", name, len(env.Attributes[name])))
				}
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVarP(&attributes, "attributes", "a", false, "Also list attribute keys")
	return cmd
}

type inspection struct {
	Version    string            `yaml:"version"`
	Plugin     string            `yaml:"plugin"`
	Category   string            `yaml:"category"`
	CreatedAt  string            `yaml:"created_at"`
	Bytes      int               `yaml:"bytes"`
	Tensors    []tensorInfo      `yaml:"tensors,omitempty"`
	Attributes []string          `yaml:"attributes,omitempty"`
	Metadata   map[string]string `yaml:"metadata,omitempty"`
}

type tensorInfo struct {
	Name  string `yaml:"name"`
	DType string `yaml:"dtype"`
	Shape []int  `yaml:"shape,flow"`
}
