package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "analyzers",
		Short: "List the registered analyzers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tECOSYSTEM")
			for _, a := range registryFactory().Analyzers() {
				fmt.Fprintf(w, "%s\t%s\n", a.Name(), a.Ecosystem())
			}
			w.Flush()
		},
	})
}
