package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Aligner produces a tabular alignment file of query against reference.
type Aligner interface {
	Align(ctx context.Context, query, reference, out string) error
}

// BlastConfig holds the BLAST+ invocation settings.
type BlastConfig struct {
	Program       string // blastn or blastp
	EValue        string
	NumAlignments int // 0 keeps every alignment
	Threads       int
	BinDir        string // directory holding the binaries; empty uses PATH
}

// DefaultBlastConfig returns blastn with e-value 1e-3 on 6 threads.
func DefaultBlastConfig() BlastConfig {
	return BlastConfig{Program: "blastn", EValue: "1e-3", Threads: 6}
}

// BlastRunner aligns sequences with makeblastdb followed by blastn or blastp.
type BlastRunner struct {
	cfg    BlastConfig
	logger *zap.Logger
}

// NewBlastRunner validates cfg and returns a runner.
func NewBlastRunner(cfg BlastConfig) (*BlastRunner, error) {
	if cfg.Program != "blastn" && cfg.Program != "blastp" {
		return nil, fmt.Errorf("unsupported blast program %q (want blastn or blastp)", cfg.Program)
	}
	if cfg.EValue == "" {
		cfg.EValue = "1e-3"
	}
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	return &BlastRunner{cfg: cfg, logger: zap.NewNop()}, nil
}

// SetLogger sets the logger for command lines.
func (b *BlastRunner) SetLogger(l *zap.Logger) {
	b.logger = l
}

// Params lists the settings that change alignment output.
func (b *BlastRunner) Params() []string {
	return []string{
		b.cfg.Program,
		b.cfg.EValue,
		strconv.Itoa(b.cfg.NumAlignments),
	}
}

func (b *BlastRunner) dbType() string {
	if b.cfg.Program == "blastp" {
		return "prot"
	}
	return "nucl"
}

func (b *BlastRunner) binary(name string) string {
	if b.cfg.BinDir == "" {
		return name
	}
	return filepath.Join(b.cfg.BinDir, name)
}

// Align builds a database from reference next to out and writes outfmt 6
// alignments of query to out. A failed run leaves no out file.
func (b *BlastRunner) Align(ctx context.Context, query, reference, out string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("create alignment directory: %w", err)
	}
	db := out + ".db"

	if err := b.run(ctx, out+".makeblastdb.log", "makeblastdb",
		"-in", reference, "-dbtype", b.dbType(), "-out", db); err != nil {
		return err
	}

	tmp := out + ".tmp"
	args := []string{
		"-query", query,
		"-db", db,
		"-out", tmp,
		"-evalue", b.cfg.EValue,
		"-outfmt", "6",
		"-num_threads", strconv.Itoa(b.cfg.Threads),
	}
	if b.cfg.NumAlignments > 0 {
		args = append(args, "-num_alignments", strconv.Itoa(b.cfg.NumAlignments))
	}
	if err := b.run(ctx, out+".log", b.cfg.Program, args...); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, out); err != nil {
		return fmt.Errorf("rename alignments: %w", err)
	}
	return nil
}

func (b *BlastRunner) run(ctx context.Context, logPath, name string, args ...string) error {
	bin := b.binary(name)
	b.logger.Info("running command", zap.String("cmd", bin+" "+strings.Join(args, " ")))

	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create %s log: %w", name, err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s (see %s): %w", name, logPath, err)
	}
	return nil
}
