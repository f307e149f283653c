package blast

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outfmt6 = "geneA\tgeneB\t95.00\t280\t10\t2\t1\t280\t5\t284\t1e-120\t500\n" +
	"geneB\tgeneA\t95.00\t280\t10\t2\t5\t284\t1\t280\t1e-120\t500\n"

func TestParser_Outfmt6(t *testing.T) {
	p := NewParserFromReader(strings.NewReader(outfmt6))

	r, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "geneA", r.QueryID)
	assert.Equal(t, "geneB", r.SubjectID)
	assert.InDelta(t, 0.95, r.Identity, 1e-12)
	assert.Equal(t, 280, r.AlignLength)
	assert.Equal(t, 500.0, r.BitScore)

	r, err = p.Next()
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "geneB", r.QueryID)

	r, err = p.Next()
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, 2, p.LineNumber())
}

func TestParser_FiveColumns(t *testing.T) {
	p := NewParserFromReader(strings.NewReader("q s 80 100 42.5"))
	r, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 42.5, r.BitScore, "bit score is the last column")
	assert.InDelta(t, 0.8, r.Identity, 1e-12)
}

func TestPercentToFraction(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"80.10", 0.801},
		{"81.10", 0.811},
		{"80.02", 0.8002},
		{"81.74", 0.8174},
		{"100.000", 1},
		{"100", 1},
		{"80.", 0.8},
		{"5.5", 0.055},
		{".5", 0.005},
		{"0", 0},
		{"-12.5", -0.125},
		{"9.5e1", 0.95},
	}
	for _, tt := range tests {
		got, err := percentToFraction(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := percentToFraction("eighty")
	assert.Error(t, err)
}

func TestParser_IdentityMatchesDecimalLiteral(t *testing.T) {
	records, err := Collect(NewParserFromReader(strings.NewReader(
		"a\td\t80.10\t300\t100\n" +
			"a\td\t81.10\t300\t100\n")))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0.801, records[0].Identity)
	assert.Equal(t, 0.811, records[1].Identity)
}

func TestParser_SkipsBlankAndComments(t *testing.T) {
	input := "# BLASTN 2.14\n\n" + outfmt6 + "\n"
	records, err := Collect(NewParserFromReader(strings.NewReader(input)))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestParser_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"too few columns", "a\tb\t90\t100\n", "expected at least 5 columns"},
		{"bad identity", "a\tb\tx\t100\t50\n", "invalid percent identity"},
		{"bad length", "a\tb\t90\t1.5\t50\n", "invalid alignment length"},
		{"zero length", "a\tb\t90\t0\t50\n", "must be positive"},
		{"bad bit score", "a\tb\t90\t100\tNA\n", "invalid bit score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Collect(NewParserFromReader(strings.NewReader(tt.input)))
			require.Error(t, err)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, 1, pe.Line)
			assert.Contains(t, pe.Error(), tt.message)
		})
	}
}

func TestNewParser_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iter1.blast")
	require.NoError(t, os.WriteFile(path, []byte(outfmt6), 0644))

	p, err := NewParser(path)
	require.NoError(t, err)
	defer p.Close()

	records, err := Collect(p)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestNewParser_Missing(t *testing.T) {
	_, err := NewParser(filepath.Join(t.TempDir(), "nope.blast"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource([]Record{{QueryID: "a"}, {QueryID: "b"}})
	records, err := Collect(src)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1].QueryID)

	r, err := src.Next()
	require.NoError(t, err)
	assert.Nil(t, r)
}
