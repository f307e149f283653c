// Package seqio builds the reference CDS file carried from one iteration to the next.
package seqio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// CDSExt is the file extension of coding-sequence FASTA files.
const CDSExt = ".cds"

func init() {
	// Gene models may contain IUPAC codes or stop symbols.
	seq.ValidateSeq = false
}

// CDSFiles lists the coding-sequence files in dir, sorted by name.
func CDSFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list cds directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), CDSExt) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ReadSequences loads every record of the given FASTA files keyed by id.
// A later file overrides an id seen in an earlier one.
func ReadSequences(files []string) (map[string][]byte, error) {
	seqs := make(map[string][]byte)
	for _, file := range files {
		if err := readFile(file, seqs); err != nil {
			return nil, err
		}
	}
	return seqs, nil
}

func readFile(file string, seqs map[string][]byte) error {
	reader, err := fastx.NewReader(nil, file, "")
	if err != nil {
		return fmt.Errorf("open sequence file %s: %w", file, err)
	}
	defer reader.Close()

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read sequence file %s: %w", file, err)
		}
		// the reader reuses its buffers
		seqs[string(record.ID)] = append([]byte(nil), record.Seq.Seq...)
	}
}

// ExtractReference writes the sequences of ids, in the order given, from the
// cds files to out. Ids without a sequence are skipped. It returns the number of
// sequences written.
func ExtractReference(cdsFiles, ids []string, out string) (int, error) {
	seqs, err := ReadSequences(cdsFiles)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	tmp := out + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create reference cds: %w", err)
	}

	n, err := writeRecords(f, ids, seqs)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close reference cds: %w", cerr)
	}
	if err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("rename reference cds: %w", err)
	}
	return n, nil
}

func writeRecords(w io.Writer, ids []string, seqs map[string][]byte) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0
	for _, id := range ids {
		s, ok := seqs[id]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(bw, ">%s\n%s\n", id, s); err != nil {
			return n, fmt.Errorf("write reference cds: %w", err)
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("write reference cds: %w", err)
	}
	return n, nil
}
