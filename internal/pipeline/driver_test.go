package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/panpara/internal/collinearity"
	"github.com/inodb/panpara/internal/duckdb"
	"github.com/inodb/panpara/internal/paralog"
)

// fakeAligner writes canned alignments chosen by the input file names.
type fakeAligner struct {
	calls int
	fail  error
}

func (a *fakeAligner) Align(_ context.Context, query, reference, out string) error {
	a.calls++
	if a.fail != nil {
		return a.fail
	}
	var rows string
	switch {
	case filepath.Base(reference) == "ref.cds":
		rows = "q1\tr1\t90.0\t300\t400\n"
	case filepath.Base(query) == "g1.cds":
		rows = "r1\tr2\t90.0\t300\t400\n"
	default:
		rows = "q2\tq3\t90.0\t250\t300\n"
	}
	return os.WriteFile(out, []byte(rows), 0644)
}

type fakeDetector struct {
	workDirs []string
}

func (d *fakeDetector) Detect(_ context.Context, in collinearity.DetectInput) (collinearity.Weights, error) {
	d.workDirs = append(d.workDirs, in.WorkDir)
	return collinearity.Weights{}, nil
}

type fixture struct {
	cfg   Config
	store *duckdb.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cdsDir := filepath.Join(root, "cds")
	bedDir := filepath.Join(root, "bed")
	require.NoError(t, os.MkdirAll(cdsDir, 0755))
	require.NoError(t, os.MkdirAll(bedDir, 0755))

	write := func(path, content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	write(filepath.Join(cdsDir, "g1.cds"), ">r1\nATGAAA\n>r2\nATGTTT\n")
	write(filepath.Join(cdsDir, "g2.cds"), ">q1\nATGCCC\n>q2\nATGGGG\n>q3\nATGTAA\n")
	write(filepath.Join(bedDir, "g1.bed"), "chr1\t1\t300\tr1\nchr1\t1001\t1300\tr2\n")
	write(filepath.Join(bedDir, "g2.bed"), "chr1\t1\t300\tq1\nchr1\t1001\t1400\tq2\nchr1\t2001\t2200\tq3\n")

	store, err := duckdb.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &fixture{
		cfg: Config{
			Samples:     []string{"g1", "g2"},
			CDSDir:      cdsDir,
			BedDir:      bedDir,
			OutDir:      filepath.Join(root, "out"),
			Thresholds:  paralog.DefaultThresholds(),
			AlignParams: []string{"blastn", "1e-3", "0"},
		},
		store: store,
	}
}

func (f *fixture) run(t *testing.T, aligner Aligner, detector collinearity.Detector) *Summary {
	t.Helper()
	d, err := NewDriver(f.cfg, aligner, detector, f.store)
	require.NoError(t, err)
	sum, err := d.Run(context.Background())
	require.NoError(t, err)
	return sum
}

func readString(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestDriverRun(t *testing.T) {
	f := newFixture(t)
	aligner := &fakeAligner{}
	detector := &fakeDetector{}
	sum := f.run(t, aligner, detector)

	assert.Equal(t, 3, aligner.calls)
	require.Len(t, sum.Iterations, 2)
	assert.NotEmpty(t, sum.RunID)

	first := sum.Iterations[0]
	assert.Equal(t, filepath.Join(f.cfg.OutDir, "iter1_g1_g1"), first.Dir)
	assert.Equal(t, 1, first.Rows)
	assert.Empty(t, first.Skipped)
	assert.Equal(t, "#REF,g1\nr1,r1|r2\n", readString(t, first.Table))
	assert.Equal(t, "chr1\t1\t300\tr1\n", readString(t, filepath.Join(first.Dir, "match", "ref.bed")))
	assert.Equal(t, ">r1\nATGAAA\n", readString(t, filepath.Join(first.Dir, "match", "ref.cds")))

	second := sum.Iterations[1]
	assert.Equal(t, filepath.Join(f.cfg.OutDir, "iter2_ref1_g2"), second.Dir)
	assert.Equal(t, 2, second.Rows)
	assert.Equal(t, 1, second.Seeded)
	assert.Equal(t, "chr1\t1\t300\tr1\nchr1\t1001\t1400\tq2\n", readString(t, filepath.Join(second.Dir, "match", "ref.bed")))
	assert.Equal(t, ">r1\nATGAAA\n>q2\nATGGGG\n", readString(t, filepath.Join(second.Dir, "match", "ref.cds")))

	assert.Equal(t, filepath.Join(f.cfg.OutDir, FinalTable), sum.Final)
	assert.Equal(t, "#REF,g1,g2\nr1,r1|r2,q1\nq2,,q2|q3\n", readString(t, sum.Final))

	assert.Equal(t, []string{
		filepath.Join(first.Dir, "msx"),
		filepath.Join(second.Dir, "msx"),
		filepath.Join(second.Dir, "msx_self"),
	}, detector.workDirs)

	members, err := f.store.ParalogMembers(2, "r1")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"g1": {"r1", "r2"}, "g2": {"q1"}}, members)

	stages, err := f.store.Stages()
	require.NoError(t, err)
	assert.Len(t, stages, 7)
}

func TestDriverRun_SkipsFinishedStages(t *testing.T) {
	f := newFixture(t)
	aligner := &fakeAligner{}
	f.run(t, aligner, nil)
	final := readString(t, filepath.Join(f.cfg.OutDir, FinalTable))

	sum := f.run(t, aligner, nil)
	assert.Equal(t, 3, aligner.calls, "no alignment reruns")
	assert.Equal(t, []string{duckdb.StageBlast, duckdb.StageMatch, duckdb.StageRefCDS}, sum.Iterations[0].Skipped)
	assert.Equal(t, []string{duckdb.StageBlast, duckdb.StageSelfBlast, duckdb.StageMatch, duckdb.StageRefCDS}, sum.Iterations[1].Skipped)
	assert.Equal(t, final, readString(t, sum.Final))
}

func TestDriverRun_ChangedInputRerunsDownstream(t *testing.T) {
	f := newFixture(t)
	aligner := &fakeAligner{}
	f.run(t, aligner, nil)

	// q4 matches nothing and becomes a new row.
	bed := filepath.Join(f.cfg.BedDir, "g2.bed")
	require.NoError(t, os.WriteFile(bed, []byte(
		"chr1\t1\t300\tq1\nchr1\t1001\t1400\tq2\nchr1\t2001\t2200\tq3\nchr1\t3001\t3300\tq4\n"), 0644))

	sum := f.run(t, aligner, nil)
	assert.Equal(t, 3, aligner.calls)
	assert.Len(t, sum.Iterations[0].Skipped, 3)
	assert.Equal(t, []string{duckdb.StageBlast, duckdb.StageSelfBlast}, sum.Iterations[1].Skipped)
	assert.Equal(t, "#REF,g1,g2\nr1,r1|r2,q1\nq2,,q2|q3\nq4,,q4\n", readString(t, sum.Final))
}

func TestDriverRun_Force(t *testing.T) {
	f := newFixture(t)
	aligner := &fakeAligner{}
	f.run(t, aligner, nil)

	f.cfg.Force = true
	sum := f.run(t, aligner, nil)
	assert.Equal(t, 6, aligner.calls)
	assert.Empty(t, sum.Iterations[0].Skipped)
	assert.Empty(t, sum.Iterations[1].Skipped)
}

func TestDriverRun_WithoutStore(t *testing.T) {
	f := newFixture(t)
	aligner := &fakeAligner{}
	for i := 0; i < 2; i++ {
		d, err := NewDriver(f.cfg, aligner, nil, nil)
		require.NoError(t, err)
		_, err = d.Run(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 6, aligner.calls)
}

func TestDriverRun_SingleSample(t *testing.T) {
	f := newFixture(t)
	f.cfg.Samples = []string{"g1"}
	sum := f.run(t, &fakeAligner{}, nil)
	assert.Equal(t, "#REF,g1\nr1,r1|r2\n", readString(t, sum.Final))
}

func TestDriverRun_AlignerFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("blast exploded")
	d, err := NewDriver(f.cfg, &fakeAligner{fail: boom}, nil, f.store)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	assert.ErrorIs(t, err, boom)

	done, err := f.store.StageDone(1, duckdb.StageBlast, "")
	require.NoError(t, err)
	assert.False(t, done)
	stages, err := f.store.Stages()
	require.NoError(t, err)
	assert.Empty(t, stages)
}

func TestDriverRun_MissingSampleFiles(t *testing.T) {
	f := newFixture(t)
	f.cfg.Samples = []string{"g1", "g9"}
	d, err := NewDriver(f.cfg, &fakeAligner{}, nil, f.store)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iteration 2 (g9)")
}

func TestDriverRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	d, err := NewDriver(f.cfg, &fakeAligner{}, nil, f.store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDriver_Validation(t *testing.T) {
	f := newFixture(t)

	cfg := f.cfg
	cfg.Samples = nil
	_, err := NewDriver(cfg, &fakeAligner{}, nil, nil)
	assert.ErrorIs(t, err, ErrNoSamples)

	cfg = f.cfg
	cfg.Thresholds.Identity = 2
	_, err = NewDriver(cfg, &fakeAligner{}, nil, nil)
	assert.Error(t, err)

	cfg = f.cfg
	cfg.OutDir = ""
	_, err = NewDriver(cfg, &fakeAligner{}, nil, nil)
	assert.Error(t, err)

	cfg = f.cfg
	cfg.Samples = []string{"g1", "g2", "g1"}
	_, err = NewDriver(cfg, &fakeAligner{}, nil, nil)
	assert.ErrorIs(t, err, paralog.ErrDuplicateColumn)

	_, err = NewDriver(f.cfg, nil, nil, nil)
	assert.Error(t, err)
}

func TestReadSamples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "samples.txt")
	require.NoError(t, os.WriteFile(path, []byte("g1\n\n  g2  \n\ng3\n"), 0644))

	samples, err := ReadSamples(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2", "g3"}, samples)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0644))
	_, err = ReadSamples(empty)
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = ReadSamples(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
