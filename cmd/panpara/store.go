package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/panpara/internal/duckdb"
)

func openStore(cmd *cobra.Command) (*duckdb.Store, error) {
	path, _ := cmd.Flags().GetString("cache")
	if path == "" {
		path = viper.GetString("cache.path")
	}
	if path == "" {
		return nil, usageError{fmt.Errorf("--cache is required (or set cache.path)")}
	}
	return duckdb.Open(path)
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Short:   "List the stages recorded in a run store",
		Example: `  panpara status --cache out/panpara.duckdb`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			stages, err := store.Stages()
			if err != nil {
				return err
			}
			if len(stages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stages recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ITER\tSTAGE\tCOMPLETED\tRUN\tOUTPUT")
			for _, s := range stages {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
					s.Iteration, s.Stage, s.CompletedAt.Local().Format(time.DateTime), s.RunID, s.Output)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("cache", "", "Stage store path")
	return cmd
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <gene>",
		Short: "Find the paralog rows that list a gene",
		Example: `  panpara query --cache out/panpara.duckdb Glyma.01G000100
  panpara query --cache out/panpara.duckdb --iteration 1 r1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			iteration, _ := cmd.Flags().GetInt("iteration")
			if iteration == 0 {
				if iteration, err = store.LatestIteration(); err != nil {
					return err
				}
			}

			rows, err := store.SearchByGene(iteration, args[0])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("gene %s not found in iteration %d", args[0], iteration)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REF\tGENOME\tMEMBERS")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Ref, r.Genome, strings.Join(r.Members, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("cache", "", "Stage store path")
	cmd.Flags().Int("iteration", 0, "Iteration to search (default: latest)")
	return cmd
}
