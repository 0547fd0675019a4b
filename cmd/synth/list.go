package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/plugins"
	_ "github.com/born-ml/synth/internal/plugins/all"
)

func newListCmd(_ *app) *cobra.Command {
	var (
		categories []string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cats []plugin.Category
			for _, c := range categories {
				cat, err := plugin.ParseCategory(c)
				if err != nil {
					return err
				}
				cats = append(cats, cat)
			}

			out := cmd.OutOrStdout()
			heading := color.New(color.FgCyan, color.Bold)
			name := color.New(color.FgGreen)
			muted := color.New(color.Faint)

			var opts []plugins.Option
			if len(cats) > 0 {
				opts = append(opts, plugins.WithCategories(cats...))
			}
			view := plugins.New(opts...)
			defs := view.Definitions()
			for _, cat := range view.Categories() {
				var inCat []plugin.Definition
				for _, def := range defs {
					if def.Category == cat {
						inCat = append(inCat, def)
					}
				}
				if len(inCat) == 0 {
					continue
				}
				heading.Fprintln(out, cat)
				for _, def := range inCat {
					fmt.Fprintf(out, "  %s  %s\n", name.Sprint(def.Name), def.Description)
					if verbose {
						for _, spec := range def.Space {
							muted.Fprintf(out, "      %s\n", describeParam(spec))
						}
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Only list these categories")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show plugin parameters")
	return cmd
}

func describeParam(spec plugin.ParamSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, default %v", spec.Name, spec.Kind, spec.Default)
	switch {
	case len(spec.Choices) > 0:
		fmt.Fprintf(&b, ", one of %s", strings.Join(spec.Choices, "|"))
	case spec.Min < spec.Max:
		fmt.Fprintf(&b, ", range %v..%v", spec.Min, spec.Max)
	}
	b.WriteString(")")
	return b.String()
}
