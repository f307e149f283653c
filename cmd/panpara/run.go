package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/panpara/internal/collinearity"
	"github.com/inodb/panpara/internal/duckdb"
	"github.com/inodb/panpara/internal/paralog"
	"github.com/inodb/panpara/internal/pipeline"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the pan-genome paralog table for a list of samples",
		Long: `Run every iteration for the samples in --list. The first sample seeds the
reference; each later sample is aligned to the previous iteration's reference
CDS. Finished stages are recorded in a DuckDB store and skipped on rerun while
their inputs are unchanged.`,
		Example: `  panpara run -l samples.txt -s cds/ -b bed/ -o out/
  panpara run -l samples.txt -s cds/ -b bed/ -o out/ -t 12 --no-collinearity`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "list", "cds", "bed", "output"); err != nil {
				return err
			}
			return bindFlags(cmd, map[string]string{
				"identity":             "identity",
				"coverage":             "coverage",
				"threads":              "threads",
				"blast.program":        "program",
				"blast.evalue":         "evalue",
				"blast.num_alignments": "num-alignments",
				"blast.bin_dir":        "blast-bin",
				"mcscanx.binary":       "mcscanx",
				"cache.path":           "cache",
			})
		},
		RunE: runPipeline,
	}

	f := cmd.Flags()
	f.StringP("list", "l", "", "Sample list, one name per line; the first is the initial reference")
	f.StringP("cds", "s", "", "Directory of <sample>.cds files")
	f.StringP("bed", "b", "", "Directory of <sample>.bed files")
	f.StringP("output", "o", "", "Output directory")
	f.Float64P("identity", "d", 0.8, "Minimum alignment identity (fraction)")
	f.Float64P("coverage", "c", 0.8, "Minimum alignment coverage (fraction)")
	f.IntP("threads", "t", 6, "BLAST threads")
	f.String("program", "blastn", "BLAST program: blastn or blastp")
	f.String("evalue", "1e-3", "BLAST e-value cutoff")
	f.Int("num-alignments", 0, "BLAST -num_alignments (0 keeps all)")
	f.String("blast-bin", "", "Directory holding makeblastdb and blast binaries (default: PATH)")
	f.String("mcscanx", "MCScanX", "MCScanX binary")
	f.Bool("no-collinearity", false, "Skip MCScanX; every gene keeps weight 1")
	f.String("cache", "", "Stage store path (default: <output>/panpara.duckdb)")
	f.Bool("force", false, "Rerun every stage")

	return cmd
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	listPath, _ := cmd.Flags().GetString("list")
	samples, err := pipeline.ReadSamples(listPath)
	if err != nil {
		return err
	}

	cdsDir, _ := cmd.Flags().GetString("cds")
	bedDir, _ := cmd.Flags().GetString("bed")
	outDir, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")

	aligner, err := pipeline.NewBlastRunner(pipeline.BlastConfig{
		Program:       viper.GetString("blast.program"),
		EValue:        viper.GetString("blast.evalue"),
		NumAlignments: viper.GetInt("blast.num_alignments"),
		Threads:       viper.GetInt("threads"),
		BinDir:        viper.GetString("blast.bin_dir"),
	})
	if err != nil {
		return usageError{err}
	}
	aligner.SetLogger(logger.Named("blast"))

	var detector collinearity.Detector = collinearity.NopDetector{}
	if noCol, _ := cmd.Flags().GetBool("no-collinearity"); !noCol && viper.GetBool("mcscanx.enabled") {
		m := collinearity.NewMCScanX(viper.GetString("mcscanx.binary"))
		m.SetLogger(logger.Named("mcscanx"))
		detector = m
	}

	storePath := viper.GetString("cache.path")
	if storePath == "" {
		storePath = filepath.Join(outDir, "panpara.duckdb")
	}
	store, err := duckdb.Open(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := pipeline.Config{
		Samples: samples,
		CDSDir:  cdsDir,
		BedDir:  bedDir,
		OutDir:  outDir,
		Thresholds: paralog.Thresholds{
			Identity: viper.GetFloat64("identity"),
			Coverage: viper.GetFloat64("coverage"),
		},
		AlignParams: aligner.Params(),
		Force:       force,
	}
	driver, err := pipeline.NewDriver(cfg, aligner, detector, store)
	if err != nil {
		return usageError{err}
	}
	driver.SetLogger(logger)

	sum, err := driver.Run(cmd.Context())
	if err != nil {
		return err
	}

	for _, it := range sum.Iterations {
		logger.Info("iteration summary",
			zap.Int("iteration", it.Iteration),
			zap.String("sample", it.Sample),
			zap.Int("rows", it.Rows),
			zap.Int("seeded", it.Seeded),
			zap.Int("missing", it.Missing),
			zap.Strings("skipped", it.Skipped))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", sum.Final)
	return nil
}
