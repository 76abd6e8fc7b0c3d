package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deusflow/aznews/internal/config"
	"github.com/deusflow/aznews/internal/sources"
)

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the available sources and their configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := config.LoadSources(config.SourcesPath())
			if err != nil {
				return err
			}
			configured := make(map[string]config.Source, len(list))
			for _, s := range list {
				configured[strings.ToLower(s.Name)] = s
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tENABLED\tPAGES")
			for _, name := range sources.Names() {
				s, ok := configured[strings.ToLower(name)]
				if !ok {
					fmt.Fprintf(w, "%s\tno\t-\n", name)
					continue
				}
				enabled := "no"
				if s.Enabled {
					enabled = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", name, enabled, s.Pages)
			}
			return w.Flush()
		},
	}
}
