package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/panpara/internal/blast"
	"github.com/inodb/panpara/internal/collinearity"
	"github.com/inodb/panpara/internal/coords"
	"github.com/inodb/panpara/internal/paralog"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Run one paralog matching step on existing alignments",
		Long: `Build or extend a paralog table from coordinate tables and tabular alignments.

Without --bed the reference genome is clustered against itself and a new table
is written. With --bed and --table the new genome is merged into the table as
column --name.`,
		Example: `  # first table from a self comparison
  panpara match --ref-bed g1.bed --blast g1_self.blast --name g1 -o match/

  # extend it with a second genome
  panpara match --ref-bed match/ref.bed --table match/para.csv \
    --bed g2.bed --blast g2_vs_ref.blast --self-blast g2_self.blast --name g2 -o match2/`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "ref-bed", "blast", "name", "output"); err != nil {
				return err
			}
			return bindFlags(cmd, map[string]string{
				"identity": "identity",
				"coverage": "coverage",
			})
		},
		RunE: runMatch,
	}

	f := cmd.Flags()
	f.String("ref-bed", "", "Reference coordinate table")
	f.String("bed", "", "Coordinate table of the genome to add (omit for a self comparison)")
	f.String("table", "", "Existing paralog table to extend")
	f.String("blast", "", "Tabular alignments (reference vs new genome, or self)")
	f.String("self-blast", "", "Self alignments of the new genome, used for unmatched genes")
	f.String("weights", "", "MCScanX .collinearity report for --blast")
	f.String("self-weights", "", "MCScanX .collinearity report for --self-blast")
	f.String("name", "", "Genome name of the new table column")
	f.StringP("output", "o", "", "Output directory for para.csv and ref.bed")
	f.Float64P("identity", "d", 0.8, "Minimum alignment identity (fraction)")
	f.Float64P("coverage", "c", 0.8, "Minimum alignment coverage (fraction)")

	return cmd
}

func readWeights(path string) (collinearity.Weights, error) {
	if path == "" {
		return nil, nil
	}
	return collinearity.ReadFile(path)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	flags := cmd.Flags()
	refBed, _ := flags.GetString("ref-bed")
	qryBed, _ := flags.GetString("bed")
	tablePath, _ := flags.GetString("table")
	blastPath, _ := flags.GetString("blast")
	selfBlastPath, _ := flags.GetString("self-blast")
	weightsPath, _ := flags.GetString("weights")
	selfWeightsPath, _ := flags.GetString("self-weights")
	name, _ := flags.GetString("name")
	outDir, _ := flags.GetString("output")

	engine, err := paralog.NewEngine(paralog.Thresholds{
		Identity: viper.GetFloat64("identity"),
		Coverage: viper.GetFloat64("coverage"),
	})
	if err != nil {
		return usageError{err}
	}
	engine.SetLogger(logger)

	in := paralog.Input{Column: name}
	if in.Reference, err = coords.ReadFile(refBed); err != nil {
		return err
	}
	if qryBed != "" {
		in.Mode = paralog.ModeCross
		if in.Query, err = coords.ReadFile(qryBed); err != nil {
			return err
		}
	}
	if tablePath != "" {
		if in.Prior, err = paralog.ReadTableFile(tablePath); err != nil {
			return err
		}
	}
	if in.Weights, err = readWeights(weightsPath); err != nil {
		return err
	}
	if in.SelfWeights, err = readWeights(selfWeightsPath); err != nil {
		return err
	}

	alignments, err := blast.NewParser(blastPath)
	if err != nil {
		return err
	}
	defer alignments.Close()
	in.Alignments = alignments

	if selfBlastPath != "" {
		selfAlignments, err := blast.NewParser(selfBlastPath)
		if err != nil {
			return err
		}
		defer selfAlignments.Close()
		in.SelfAlignments = selfAlignments
	}

	res, err := engine.Run(in)
	if err != nil {
		return err
	}

	table := filepath.Join(outDir, "para.csv")
	if err := res.Table.WriteFile(table); err != nil {
		return err
	}
	if err := coords.WriteFile(filepath.Join(outDir, "ref.bed"), res.Reference); err != nil {
		return err
	}

	logger.Info("paralog table written",
		zap.String("mode", in.Mode.String()),
		zap.String("table", table),
		zap.Int("rows", len(res.Table.Rows)),
		zap.Int("seeded", res.Seeded),
		zap.Strings("missing", res.Missing))
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", table)
	return nil
}
