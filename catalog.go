package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/evolve/config"
	"github.com/pthm-cable/evolve/neural"
)

func newCatalogCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the neurons available to genomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tROLE\tWEIGHT\tDESCRIPTION")
			for _, n := range neural.NewCatalog(cfg.Genome.Hidden).All() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\n", n.ID, n.Label(), n.Role(), n.Weight(), n.Tooltip())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (empty = use defaults)")
	return cmd
}
