// Package coords provides gene coordinate table parsing and positional indexing.
package coords

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Gene is a single row of a coordinate table.
type Gene struct {
	Chrom string
	Start int64
	End   int64
	ID    string
}

// Length returns the gene length in bases, |End-Start|+1.
func (g Gene) Length() int64 {
	if g.End >= g.Start {
		return g.End - g.Start + 1
	}
	return g.Start - g.End + 1
}

// less orders genes by (chrom, start, end, id).
func less(a, b Gene) bool {
	if a.Chrom != b.Chrom {
		return a.Chrom < b.Chrom
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.End != b.End {
		return a.End < b.End
	}
	return a.ID < b.ID
}

// Write writes genes as tab-separated chrom, start, end, id rows.
func Write(w io.Writer, genes []Gene) error {
	bw := bufio.NewWriter(w)
	for _, g := range genes {
		line := g.Chrom + "\t" +
			strconv.FormatInt(g.Start, 10) + "\t" +
			strconv.FormatInt(g.End, 10) + "\t" +
			g.ID + "\n"
		if _, err := bw.WriteString(line); err != nil {
			return fmt.Errorf("write gene %s: %w", g.ID, err)
		}
	}
	return bw.Flush()
}

// WriteFile writes genes to path through a temporary file.
func WriteFile(path string, genes []Gene) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create coordinate table: %w", err)
	}
	if err := Write(f, genes); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close coordinate table: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename coordinate table: %w", err)
	}
	return nil
}
