// Package paralog matches genes against their best alignment partners, clusters
// paralogs with union-find and grows the cross-genome paralog table.
package paralog

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/panpara/internal/blast"
	"github.com/inodb/panpara/internal/collinearity"
	"github.com/inodb/panpara/internal/coords"
)

// Mode selects between building the first table and extending an existing one.
type Mode int

const (
	// ModeSelf compares one genome against itself.
	ModeSelf Mode = iota
	// ModeCross compares a new genome against the current reference set.
	ModeCross
)

func (m Mode) String() string {
	if m == ModeCross {
		return "cross"
	}
	return "self"
}

// Input is everything one matching invocation consumes.
type Input struct {
	Mode      Mode
	Column    string        // genome name for the new table column
	Reference []coords.Gene // reference genome (self mode: the only genome)
	Query     []coords.Gene // new genome, cross mode only; may be empty
	Prior     *Table        // required in cross mode, forbidden in self mode

	Alignments     blast.Source // reference vs new genome, or self alignments
	SelfAlignments blast.Source // new genome vs itself, for unmatched genes

	Weights     collinearity.Weights
	SelfWeights collinearity.Weights
}

// Result is the updated table and the reference genes carried forward.
type Result struct {
	Table     *Table
	Reference []coords.Gene
	Groups    int // self mode: number of paralog groups
	Seeded    int // cross mode: rows created from unmatched genes
	Missing   []string
}

// Engine runs paralog matching with fixed thresholds.
// An Engine holds no state between runs.
type Engine struct {
	th     Thresholds
	logger *zap.Logger
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(th Thresholds) (*Engine, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Engine{th: th, logger: zap.NewNop()}, nil
}

// SetLogger sets the logger for progress and warning messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Thresholds returns the engine's thresholds.
func (e *Engine) Thresholds() Thresholds {
	return e.th
}

// Run performs one matching invocation.
func (e *Engine) Run(in Input) (*Result, error) {
	if in.Alignments == nil {
		in.Alignments = blast.NewSliceSource(nil)
	}
	switch in.Mode {
	case ModeSelf:
		if in.Prior != nil {
			return nil, ErrSelfAppend
		}
		return e.runSelf(in)
	default:
		if in.Prior.Empty() {
			return nil, ErrNoPriorTable
		}
		return e.runCross(in)
	}
}

func (e *Engine) runSelf(in Input) (*Result, error) {
	idx := coords.NewIndex(in.Reference)
	e.logger.Info("indexed genome", zap.String("genome", in.Column), zap.Int("genes", idx.Len()))

	best, err := SelectSelf(in.Alignments, idx, in.Weights, e.th)
	if err != nil {
		return nil, fmt.Errorf("select paralogs: %w", err)
	}

	groups := Cluster(best, idx)
	res := &Result{
		Table:  &Table{Genomes: []string{in.Column}},
		Groups: len(groups),
	}
	for _, g := range groups {
		res.Table.Rows = append(res.Table.Rows, Row{
			Ref:   idx.ID(g.Representative),
			Cells: [][]string{ids(idx, g.Members())},
		})
		res.Reference = append(res.Reference, idx.Gene(g.Representative))
	}

	e.logger.Info("clustered paralogs",
		zap.String("genome", in.Column),
		zap.Int("matched", len(best)),
		zap.Int("groups", len(groups)))
	return res, nil
}

func (e *Engine) runCross(in Input) (*Result, error) {
	ref := coords.NewIndex(in.Reference)
	qry := coords.NewIndex(in.Query)
	e.logger.Info("indexed genomes",
		zap.Int("reference_genes", ref.Len()),
		zap.String("genome", in.Column),
		zap.Int("genes", qry.Len()))

	best, err := SelectCross(in.Alignments, ref, qry, in.Weights, e.th)
	if err != nil {
		return nil, fmt.Errorf("select best matches: %w", err)
	}

	merged, err := e.Merge(in.Prior, best, ref, qry, in.Column, SeedInput{
		Alignments: in.SelfAlignments,
		Weights:    in.SelfWeights,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Table:     merged.Table,
		Reference: merged.Reference,
		Seeded:    merged.Seeded,
		Missing:   merged.Missing,
	}, nil
}
