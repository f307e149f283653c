// Package pipeline runs the iterative pan-genome paralog workflow: align each
// sample against the growing reference, match paralogs and carry the reference
// forward, skipping stages whose inputs have not changed.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inodb/panpara/internal/blast"
	"github.com/inodb/panpara/internal/collinearity"
	"github.com/inodb/panpara/internal/coords"
	"github.com/inodb/panpara/internal/duckdb"
	"github.com/inodb/panpara/internal/paralog"
	"github.com/inodb/panpara/internal/seqio"
)

// FinalTable is the file name of the last iteration's table in the output directory.
const FinalTable = "final.csv"

// IterationResult summarizes one iteration.
type IterationResult struct {
	Iteration int
	Sample    string
	Dir       string
	Table     string
	Rows      int
	Seeded    int
	Missing   int
	Skipped   []string // stages reused from an earlier run
}

// Summary is the outcome of a full run.
type Summary struct {
	RunID      string
	Iterations []IterationResult
	Final      string
}

// Driver runs the iterations of one pan-genome paralog analysis.
type Driver struct {
	cfg      Config
	aligner  Aligner
	detector collinearity.Detector
	store    *duckdb.Store
	engine   *paralog.Engine
	runID    string
	logger   *zap.Logger
}

// NewDriver creates a driver. A nil detector disables collinearity weighting;
// a nil store disables stage skipping.
func NewDriver(cfg Config, aligner Aligner, detector collinearity.Detector, store *duckdb.Store) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if aligner == nil {
		return nil, fmt.Errorf("an aligner is required")
	}
	engine, err := paralog.NewEngine(cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	if detector == nil {
		detector = collinearity.NopDetector{}
	}
	return &Driver{
		cfg:      cfg,
		aligner:  aligner,
		detector: detector,
		store:    store,
		engine:   engine,
		runID:    uuid.NewString(),
		logger:   zap.NewNop(),
	}, nil
}

// SetLogger sets the logger for the driver and its engine.
func (d *Driver) SetLogger(l *zap.Logger) {
	d.logger = l
	d.engine.SetLogger(l)
}

// RunID identifies this run in the stage store.
func (d *Driver) RunID() string {
	return d.runID
}

// iteration holds the paths of one iteration directory.
type iteration struct {
	index     int
	sample    string
	dir       string
	cds, bed  string
	blast     string
	selfBlast string
	table     string
	refBed    string
	refCDS    string
}

func newIteration(cfg Config, index int, sample string) *iteration {
	name := fmt.Sprintf("iter1_%s_%s", sample, sample)
	if index > 1 {
		name = fmt.Sprintf("iter%d_ref%d_%s", index, index-1, sample)
	}
	dir := filepath.Join(cfg.OutDir, name)
	match := filepath.Join(dir, "match")
	return &iteration{
		index:     index,
		sample:    sample,
		dir:       dir,
		cds:       cfg.cdsPath(sample),
		bed:       cfg.bedPath(sample),
		blast:     filepath.Join(dir, fmt.Sprintf("iter%d.blast", index)),
		selfBlast: filepath.Join(dir, fmt.Sprintf("iter%d_qry_self.blast", index)),
		table:     filepath.Join(match, "para.csv"),
		refBed:    filepath.Join(match, "ref.bed"),
		refCDS:    filepath.Join(match, "ref.cds"),
	}
}

// Run executes every iteration and writes the final table.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	if err := os.MkdirAll(d.cfg.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if d.cfg.Force && d.store != nil {
		if err := d.store.ClearStages(); err != nil {
			return nil, fmt.Errorf("clear stages: %w", err)
		}
	}

	cdsFiles, err := seqio.CDSFiles(d.cfg.CDSDir)
	if err != nil {
		return nil, err
	}

	d.logger.Info("starting run",
		zap.String("run_id", d.runID),
		zap.Int("samples", len(d.cfg.Samples)),
		zap.String("output", d.cfg.OutDir))

	sum := &Summary{RunID: d.runID}
	var prev *iteration
	for i, sample := range d.cfg.Samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		it := newIteration(d.cfg, i+1, sample)
		res, err := d.runIteration(ctx, it, prev, cdsFiles)
		if err != nil {
			return nil, fmt.Errorf("iteration %d (%s): %w", it.index, sample, err)
		}
		sum.Iterations = append(sum.Iterations, *res)
		prev = it
	}

	tbl, err := paralog.ReadTableFile(prev.table)
	if err != nil {
		return nil, err
	}
	sum.Final = filepath.Join(d.cfg.OutDir, FinalTable)
	if err := tbl.WriteFile(sum.Final); err != nil {
		return nil, err
	}
	if d.store != nil {
		if err := d.store.WriteParalogTable(prev.index, tbl); err != nil {
			return nil, fmt.Errorf("store final table: %w", err)
		}
	}

	d.logger.Info("run finished", zap.String("final", sum.Final), zap.Int("rows", len(tbl.Rows)))
	return sum, nil
}

func (d *Driver) runIteration(ctx context.Context, it, prev *iteration, cdsFiles []string) (*IterationResult, error) {
	if err := os.MkdirAll(filepath.Dir(it.table), 0755); err != nil {
		return nil, fmt.Errorf("create iteration directory: %w", err)
	}
	d.logger.Info("starting iteration",
		zap.Int("iteration", it.index),
		zap.String("sample", it.sample),
		zap.String("dir", it.dir))

	res := &IterationResult{Iteration: it.index, Sample: it.sample, Dir: it.dir, Table: it.table}
	step := func(stage string, inputs, params []string, output string, run func() error) error {
		skipped, err := d.stage(it, stage, inputs, params, output, run)
		if skipped {
			res.Skipped = append(res.Skipped, stage)
		}
		return err
	}

	if prev == nil {
		if err := step(duckdb.StageBlast, []string{it.cds}, d.cfg.AlignParams, it.blast, func() error {
			return d.aligner.Align(ctx, it.cds, it.cds, it.blast)
		}); err != nil {
			return nil, err
		}
		if err := step(duckdb.StageMatch, []string{it.bed, it.blast}, d.matchParams(), it.table, func() error {
			return d.matchSelf(ctx, it, res)
		}); err != nil {
			return nil, err
		}
	} else {
		if err := step(duckdb.StageBlast, []string{it.cds, prev.refCDS}, d.cfg.AlignParams, it.blast, func() error {
			return d.aligner.Align(ctx, it.cds, prev.refCDS, it.blast)
		}); err != nil {
			return nil, err
		}
		if err := step(duckdb.StageSelfBlast, []string{it.cds}, d.cfg.AlignParams, it.selfBlast, func() error {
			return d.aligner.Align(ctx, it.cds, it.cds, it.selfBlast)
		}); err != nil {
			return nil, err
		}
		inputs := []string{prev.refBed, prev.table, it.bed, it.blast, it.selfBlast}
		if err := step(duckdb.StageMatch, inputs, d.matchParams(), it.table, func() error {
			return d.matchCross(ctx, it, prev, res)
		}); err != nil {
			return nil, err
		}
	}

	inputs := append([]string{it.refBed}, cdsFiles...)
	if err := step(duckdb.StageRefCDS, inputs, nil, it.refCDS, func() error {
		return d.writeReferenceCDS(it, cdsFiles)
	}); err != nil {
		return nil, err
	}

	tbl, err := paralog.ReadTableFile(it.table)
	if err != nil {
		return nil, err
	}
	res.Rows = len(tbl.Rows)
	return res, nil
}

// stage runs fn unless the store holds a record for the same inputs and the
// output is still on disk.
func (d *Driver) stage(it *iteration, stage string, inputs, params []string, output string, fn func() error) (bool, error) {
	fp, err := duckdb.Fingerprint(inputs, params...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", stage, err)
	}

	if d.store != nil {
		done, err := d.store.StageDone(it.index, stage, fp)
		if err != nil {
			return false, err
		}
		if _, statErr := os.Stat(output); done && statErr == nil {
			d.logger.Info("stage finished before, skipping",
				zap.Int("iteration", it.index), zap.String("stage", stage))
			return true, nil
		}
	}

	d.logger.Info("running stage", zap.Int("iteration", it.index), zap.String("stage", stage))
	if err := fn(); err != nil {
		return false, fmt.Errorf("%s: %w", stage, err)
	}

	if d.store != nil {
		if err := d.store.MarkStage(duckdb.StageRecord{
			RunID:       d.runID,
			Iteration:   it.index,
			Stage:       stage,
			Fingerprint: fp,
			Output:      output,
		}); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (d *Driver) matchParams() []string {
	th := d.engine.Thresholds()
	return []string{
		strconv.FormatFloat(th.Identity, 'g', -1, 64),
		strconv.FormatFloat(th.Coverage, 'g', -1, 64),
		fmt.Sprintf("%T", d.detector),
	}
}

func (d *Driver) matchSelf(ctx context.Context, it *iteration, res *IterationResult) error {
	genes, err := coords.ReadFile(it.bed)
	if err != nil {
		return err
	}
	w, err := d.detector.Detect(ctx, collinearity.DetectInput{
		Genes:      genes,
		BlastFiles: []string{it.blast},
		WorkDir:    filepath.Join(it.dir, "msx"),
	})
	if err != nil {
		return fmt.Errorf("detect collinearity: %w", err)
	}

	alignments, err := blast.NewParser(it.blast)
	if err != nil {
		return err
	}
	defer alignments.Close()

	r, err := d.engine.Run(paralog.Input{
		Column:     it.sample,
		Reference:  genes,
		Alignments: alignments,
		Weights:    w,
	})
	if err != nil {
		return err
	}
	return d.writeMatch(it, r, res)
}

func (d *Driver) matchCross(ctx context.Context, it, prev *iteration, res *IterationResult) error {
	refGenes, err := coords.ReadFile(prev.refBed)
	if err != nil {
		return err
	}
	qryGenes, err := coords.ReadFile(it.bed)
	if err != nil {
		return err
	}
	prior, err := paralog.ReadTableFile(prev.table)
	if err != nil {
		return err
	}

	all := make([]coords.Gene, 0, len(refGenes)+len(qryGenes))
	all = append(append(all, refGenes...), qryGenes...)
	w, err := d.detector.Detect(ctx, collinearity.DetectInput{
		Genes:      all,
		BlastFiles: []string{it.blast, it.selfBlast},
		WorkDir:    filepath.Join(it.dir, "msx"),
	})
	if err != nil {
		return fmt.Errorf("detect collinearity: %w", err)
	}
	selfW, err := d.detector.Detect(ctx, collinearity.DetectInput{
		Genes:      qryGenes,
		BlastFiles: []string{it.selfBlast},
		WorkDir:    filepath.Join(it.dir, "msx_self"),
	})
	if err != nil {
		return fmt.Errorf("detect self collinearity: %w", err)
	}

	alignments, err := blast.NewParser(it.blast)
	if err != nil {
		return err
	}
	defer alignments.Close()
	selfAlignments, err := blast.NewParser(it.selfBlast)
	if err != nil {
		return err
	}
	defer selfAlignments.Close()

	r, err := d.engine.Run(paralog.Input{
		Mode:           paralog.ModeCross,
		Column:         it.sample,
		Reference:      refGenes,
		Query:          qryGenes,
		Prior:          prior,
		Alignments:     alignments,
		SelfAlignments: selfAlignments,
		Weights:        w,
		SelfWeights:    selfW,
	})
	if err != nil {
		return err
	}
	return d.writeMatch(it, r, res)
}

// writeMatch persists ref.bed before para.csv, so an existing table implies
// a complete match directory.
func (d *Driver) writeMatch(it *iteration, r *paralog.Result, res *IterationResult) error {
	if err := coords.WriteFile(it.refBed, r.Reference); err != nil {
		return err
	}
	if err := r.Table.WriteFile(it.table); err != nil {
		return err
	}
	if d.store != nil {
		if err := d.store.WriteParalogTable(it.index, r.Table); err != nil {
			return fmt.Errorf("store paralog table: %w", err)
		}
	}
	res.Seeded = r.Seeded
	res.Missing = len(r.Missing)
	return nil
}

func (d *Driver) writeReferenceCDS(it *iteration, cdsFiles []string) error {
	genes, err := coords.ReadFile(it.refBed)
	if err != nil {
		return err
	}
	ids := make([]string, len(genes))
	for i, g := range genes {
		ids[i] = g.ID
	}
	n, err := seqio.ExtractReference(cdsFiles, ids, it.refCDS)
	if err != nil {
		return err
	}
	if n < len(ids) {
		d.logger.Warn("reference genes without a coding sequence",
			zap.Int("iteration", it.index), zap.Int("missing", len(ids)-n))
	}
	return nil
}
