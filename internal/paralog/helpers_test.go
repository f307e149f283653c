package paralog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inodb/panpara/internal/blast"
	"github.com/inodb/panpara/internal/coords"
)

// gene places a gene of the given length on chr1 starting at start.
func gene(id string, start, length int64) coords.Gene {
	return coords.Gene{Chrom: "chr1", Start: start, End: start + length - 1, ID: id}
}

func rec(q, s string, identity float64, alignLength int, bitScore float64) blast.Record {
	return blast.Record{QueryID: q, SubjectID: s, Identity: identity, AlignLength: alignLength, BitScore: bitScore}
}

func src(records ...blast.Record) blast.Source {
	return blast.NewSliceSource(records)
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultThresholds())
	require.NoError(t, err)
	return e
}

// queryIDs maps the best-query set of subject back to gene ids.
func queryIDs(t *testing.T, best BestMatches, idx *coords.Index, subject string) []string {
	t.Helper()
	si, ok := idx.Lookup(subject)
	require.True(t, ok, subject)
	m, ok := best[si]
	require.True(t, ok, "no match for %s", subject)
	out := make([]string, len(m.Queries))
	for i, q := range m.Queries {
		out[i] = idx.ID(q)
	}
	return out
}
