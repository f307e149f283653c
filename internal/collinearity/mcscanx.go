package collinearity

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/inodb/panpara/internal/coords"
)

// DetectInput describes one synteny detection job.
type DetectInput struct {
	Genes      []coords.Gene // genes of every genome involved
	BlastFiles []string      // tabular alignments, concatenated as-is
	WorkDir    string
}

// Detector computes collinearity weights from gene positions and alignments.
type Detector interface {
	Detect(ctx context.Context, in DetectInput) (Weights, error)
}

// NopDetector yields no collinearity signal; every gene keeps weight 1.
type NopDetector struct{}

// Detect implements Detector.
func (NopDetector) Detect(context.Context, DetectInput) (Weights, error) {
	return Weights{}, nil
}

// MCScanX runs the MCScanX binary and parses its .collinearity report.
type MCScanX struct {
	Binary string
	logger *zap.Logger
}

// NewMCScanX creates a detector invoking binary ("MCScanX" if empty).
func NewMCScanX(binary string) *MCScanX {
	if binary == "" {
		binary = "MCScanX"
	}
	return &MCScanX{Binary: binary, logger: zap.NewNop()}
}

// SetLogger sets the logger for progress messages.
func (m *MCScanX) SetLogger(l *zap.Logger) {
	m.logger = l
}

// Detect writes xyz.gff and xyz.blast into WorkDir, runs MCScanX on the xyz prefix
// and returns the weights parsed from xyz.collinearity.
func (m *MCScanX) Detect(ctx context.Context, in DetectInput) (Weights, error) {
	if err := os.MkdirAll(in.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("create mcscanx directory: %w", err)
	}

	prefix := filepath.Join(in.WorkDir, "xyz")
	if err := writeGFF(prefix+".gff", in.Genes); err != nil {
		return nil, err
	}
	if err := concatFiles(prefix+".blast", in.BlastFiles); err != nil {
		return nil, err
	}

	m.logger.Info("running mcscanx", zap.String("binary", m.Binary), zap.String("prefix", prefix))
	cmd := exec.CommandContext(ctx, m.Binary, prefix)
	logFile, err := os.Create(filepath.Join(in.WorkDir, "mcscanx.log"))
	if err != nil {
		return nil, fmt.Errorf("create mcscanx log: %w", err)
	}
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w", m.Binary, err)
	}

	w, err := ReadFile(prefix + ".collinearity")
	if err != nil {
		return nil, err
	}
	m.logger.Info("collinearity weights loaded", zap.Int("genes", len(w)))
	return w, nil
}

// mcscanxChrom shortens a chromosome label to its last three characters,
// the form MCScanX expects for the gff sequence column.
func mcscanxChrom(chrom string) string {
	if len(chrom) <= 3 {
		return chrom
	}
	return chrom[len(chrom)-3:]
}

func writeGFF(path string, genes []coords.Gene) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mcscanx gff: %w", err)
	}
	bw := bufio.NewWriter(f)
	for _, g := range genes {
		line := mcscanxChrom(g.Chrom) + "\t" + g.ID + "\t" +
			strconv.FormatInt(g.Start, 10) + "\t" + strconv.FormatInt(g.End, 10) + "\n"
		if _, err := bw.WriteString(line); err != nil {
			f.Close()
			return fmt.Errorf("write mcscanx gff: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write mcscanx gff: %w", err)
	}
	return f.Close()
}

func concatFiles(dst string, srcs []string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create mcscanx blast: %w", err)
	}
	for _, src := range srcs {
		in, err := os.Open(src)
		if err != nil {
			out.Close()
			return fmt.Errorf("open alignment file: %w", err)
		}
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			out.Close()
			return fmt.Errorf("copy alignment file %s: %w", src, err)
		}
	}
	return out.Close()
}
