package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/born-ml/synth/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the software version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:\t\t%s\n", appName)
			fmt.Fprintf(out, "Version:\t%s\n", version.Version)
			fmt.Fprintf(out, "Model format:\t%s\n", version.MajorVersion())
			fmt.Fprintf(out, "Go:\t\t%s\n", runtime.Version())
		},
	}
}
