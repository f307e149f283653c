package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inodb/panpara/internal/paralog"
	"github.com/inodb/panpara/internal/seqio"
)

// ErrNoSamples is returned when the sample list names no genome.
var ErrNoSamples = errors.New("sample list is empty")

// BedExt is the file extension of gene coordinate tables.
const BedExt = ".bed"

// Config describes one pan-genome paralog run.
type Config struct {
	Samples    []string // first sample seeds the reference
	CDSDir     string   // <sample>.cds for every sample
	BedDir     string   // <sample>.bed for every sample
	OutDir     string
	Thresholds paralog.Thresholds

	// AlignParams are folded into alignment stage fingerprints so a change
	// of aligner settings reruns those stages.
	AlignParams []string

	// Force discards recorded stages before running.
	Force bool
}

// Validate checks that the configuration can start a run.
func (c Config) Validate() error {
	if len(c.Samples) == 0 {
		return ErrNoSamples
	}
	if c.CDSDir == "" || c.BedDir == "" {
		return fmt.Errorf("cds and bed directories are required")
	}
	if c.OutDir == "" {
		return fmt.Errorf("output directory is required")
	}
	seen := make(map[string]bool, len(c.Samples))
	for _, s := range c.Samples {
		if seen[s] {
			return fmt.Errorf("sample %s listed twice: %w", s, paralog.ErrDuplicateColumn)
		}
		seen[s] = true
	}
	return c.Thresholds.Validate()
}

func (c Config) cdsPath(sample string) string {
	return filepath.Join(c.CDSDir, sample+seqio.CDSExt)
}

func (c Config) bedPath(sample string) string {
	return filepath.Join(c.BedDir, sample+BedExt)
}

// ReadSamples reads one sample name per line, skipping blank lines.
func ReadSamples(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample list: %w", err)
	}
	defer f.Close()

	var samples []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			samples = append(samples, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sample list: %w", err)
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	return samples, nil
}
