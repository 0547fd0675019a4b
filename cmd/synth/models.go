package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/born-ml/synth/internal/store"
)

func newModelsCmd(a *app) *cobra.Command {
	var filter store.Filter
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List stored models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := a.context(cmd.Context())
			models, err := a.openStore()
			if err != nil {
				return err
			}
			records, err := models.List(ctx, filter)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPLUGIN\tCATEGORY\tVERSION\tSIZE\tCREATED")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.Plugin, r.Category, r.Version, r.Size, r.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.Plugin, "plugin", "", "Only list models of this plugin")
	cmd.Flags().StringVar(&filter.Category, "category", "", "Only list models of this category")
	cmd.AddCommand(newModelsRmCmd(a))
	return cmd
}

func newModelsRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete stored models",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd.Context())
			models, err := a.openStore()
			if err != nil {
				return err
			}
			for _, arg := range args {
				id, err := store.ParseID(arg)
				if err != nil {
					return err
				}
				if err := models.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "deleted", id)
			}
			return nil
		},
	}
}
