package collinearity

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/panpara/internal/coords"
)

const report = `############### Parameters ###############
# MATCH_SCORE: 50
# Number of collinear genes: 6, Percentage: 40.00
## Alignment 0: score=250.0 e_value=1.2e-10 N=5 at1&at2 plus
  0-  0:	geneA	geneX	  2e-50
  0-  1:	geneB	geneY	  1e-40
## Alignment 1: score=400.0 e_value=3e-20 N=8 at1&at3 plus
  1-  0:	geneA	geneZ	  0
999-1000:	geneC	geneW	  0
`

func TestParseCollinearity(t *testing.T) {
	w, err := ParseCollinearity(strings.NewReader(report))
	require.NoError(t, err)

	assert.Equal(t, 400.0, w["geneA"], "highest block score wins")
	assert.Equal(t, 250.0, w["geneX"])
	assert.Equal(t, 250.0, w["geneB"])
	assert.Equal(t, 250.0, w["geneY"])
	assert.Equal(t, 400.0, w["geneZ"])
	assert.Equal(t, 400.0, w["geneC"], "collapsed index padding")
	assert.Equal(t, 400.0, w["geneW"])
	assert.Len(t, w, 7)
}

func TestParseCollinearity_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"pair before header", "  0-  0:\tgeneA\tgeneB\t0\n"},
		{"header without score", "## Alignment 0: e_value=0 N=5\n"},
		{"bad score", "## Alignment 0: score=abc N=5\n"},
		{"truncated pair", "## Alignment 0: score=5 N=5\n  0-  0:\tgeneA\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCollinearity(strings.NewReader(tt.input))
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
		})
	}
}

func TestWeights(t *testing.T) {
	w := Weights{"a": 2.5, "b": 0}
	assert.Equal(t, 2.5, w.Weight("a"))
	assert.Equal(t, 0.0, w.Weight("b"), "explicit zero is kept")
	assert.Equal(t, 1.0, w.Weight("missing"))

	var empty Weights
	assert.Equal(t, 1.0, empty.Weight("x"))

	sub := w.Restrict(map[string]bool{"a": true, "c": true})
	assert.Equal(t, Weights{"a": 2.5}, sub)
}

func TestNopDetector(t *testing.T) {
	w, err := NopDetector{}.Detect(context.Background(), DetectInput{})
	require.NoError(t, err)
	assert.Empty(t, w)
}

func TestMCScanX_Detect(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a POSIX shell")
	}
	dir := t.TempDir()

	// The stub records its prefix argument and emits a fixed report.
	stub := filepath.Join(dir, "fake-mcscanx")
	script := "#!/bin/sh\n" +
		"cat > \"$1.collinearity\" <<'EOF'\n" +
		"## Alignment 0: score=120.0 e_value=0 N=5 at1&at1 plus\n" +
		"  0-  0:\tg1\tg2\t  0\n" +
		"EOF\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0755))

	blastFile := filepath.Join(dir, "self.blast")
	require.NoError(t, os.WriteFile(blastFile, []byte("g1\tg2\t99\t100\t250\n"), 0644))

	m := NewMCScanX(stub)
	work := filepath.Join(dir, "msx")
	w, err := m.Detect(context.Background(), DetectInput{
		Genes: []coords.Gene{
			{Chrom: "Chr01", Start: 1, End: 100, ID: "g1"},
			{Chrom: "Chr01", Start: 200, End: 300, ID: "g2"},
		},
		BlastFiles: []string{blastFile},
		WorkDir:    work,
	})
	require.NoError(t, err)
	assert.Equal(t, Weights{"g1": 120, "g2": 120}, w)

	gff, err := os.ReadFile(filepath.Join(work, "xyz.gff"))
	require.NoError(t, err)
	assert.Equal(t, "r01\tg1\t1\t100\nr01\tg2\t200\t300\n", string(gff))

	blast, err := os.ReadFile(filepath.Join(work, "xyz.blast"))
	require.NoError(t, err)
	assert.Equal(t, "g1\tg2\t99\t100\t250\n", string(blast))
}

func TestMCScanX_BinaryFailure(t *testing.T) {
	m := NewMCScanX(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := m.Detect(context.Background(), DetectInput{WorkDir: t.TempDir()})
	require.Error(t, err)
}

func TestNewMCScanX_DefaultBinary(t *testing.T) {
	assert.Equal(t, "MCScanX", NewMCScanX("").Binary)
}
