package paralog

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/panpara/internal/blast"
	"github.com/inodb/panpara/internal/collinearity"
	"github.com/inodb/panpara/internal/coords"
)

// SeedInput feeds the self comparison of genes that matched no reference gene.
type SeedInput struct {
	Alignments blast.Source // self alignments of the new genome; nil means none
	Weights    collinearity.Weights
}

// MergeResult is the extended table and the reference genes for the next round.
type MergeResult struct {
	Table     *Table
	Reference []coords.Gene
	Claimed   int      // new-genome genes assigned to existing rows
	Seeded    int      // rows created from unmatched genes
	Missing   []string // prior reference genes absent from the reference index
}

type candidate struct {
	gene  int
	score float64
}

// Merge appends column to a copy of prior.
//
// Existing rows receive the new-genome genes whose best match is their reference
// gene, best score first; a gene goes to the first row that claims it. Rows are
// never dropped. New-genome genes that matched nothing and were not claimed are
// clustered among themselves and each group becomes a new row.
func (e *Engine) Merge(prior *Table, best BestMatches, ref, qry *coords.Index, column string, seed SeedInput) (*MergeResult, error) {
	if prior.Empty() {
		return nil, ErrNoPriorTable
	}
	if prior.Column(column) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, column)
	}

	res := &MergeResult{
		Table: &Table{Genomes: append(append([]string(nil), prior.Genomes...), column)},
	}

	byRef := make(map[int][]candidate)
	for subject, m := range best {
		for _, q := range m.Queries {
			byRef[q] = append(byRef[q], candidate{gene: subject, score: m.Score})
		}
	}
	for _, cands := range byRef {
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].score != cands[j].score {
				return cands[i].score > cands[j].score
			}
			li, lj := qry.Length(cands[i].gene), qry.Length(cands[j].gene)
			if li != lj {
				return li > lj
			}
			return cands[i].gene < cands[j].gene
		})
	}

	claimed := make(map[int]bool)
	old := prior.Clone()
	for _, row := range old.Rows {
		var cell []string
		fi, ok := ref.Lookup(row.Ref)
		if !ok {
			res.Missing = append(res.Missing, row.Ref)
			e.logger.Warn("reference gene missing from coordinate table",
				zap.String("gene", row.Ref), zap.String("column", column))
		} else {
			res.Reference = append(res.Reference, ref.Gene(fi))
			for _, c := range byRef[fi] {
				if claimed[c.gene] {
					continue
				}
				claimed[c.gene] = true
				cell = append(cell, qry.ID(c.gene))
			}
		}
		cells := make([][]string, len(res.Table.Genomes))
		copy(cells, row.Cells[:min(len(row.Cells), len(prior.Genomes))])
		cells[len(cells)-1] = cell
		res.Table.Rows = append(res.Table.Rows, Row{Ref: row.Ref, Cells: cells})
	}
	res.Claimed = len(claimed)

	unmatched := make(map[string]bool)
	for i := 0; i < qry.Len(); i++ {
		if _, matched := best[i]; matched || claimed[i] {
			continue
		}
		unmatched[qry.ID(i)] = true
	}

	groups, sub, err := e.seedGroups(unmatched, qry, seed)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		cells := make([][]string, len(res.Table.Genomes))
		cells[len(cells)-1] = ids(sub, g.Members())
		res.Table.Rows = append(res.Table.Rows, Row{Ref: sub.ID(g.Representative), Cells: cells})
		res.Reference = append(res.Reference, sub.Gene(g.Representative))
	}
	res.Seeded = len(groups)

	e.logger.Info("merged genome into paralog table",
		zap.String("column", column),
		zap.Int("rows", len(old.Rows)),
		zap.Int("claimed", res.Claimed),
		zap.Int("unmatched", len(unmatched)),
		zap.Int("seeded", res.Seeded),
		zap.Int("missing", len(res.Missing)))

	return res, nil
}

// seedGroups clusters the unmatched genes using only alignments among themselves.
func (e *Engine) seedGroups(unmatched map[string]bool, qry *coords.Index, seed SeedInput) ([]Group, *coords.Index, error) {
	sub := qry.Restrict(unmatched)
	if sub.Len() == 0 {
		return nil, sub, nil
	}

	best := BestMatches{}
	if seed.Alignments != nil {
		var err error
		best, err = SelectSelf(seed.Alignments, sub, seed.Weights.Restrict(unmatched), e.th)
		if err != nil {
			return nil, nil, fmt.Errorf("select unmatched paralogs: %w", err)
		}
	} else {
		e.logger.Info("no self alignments for unmatched genes; seeding singletons", zap.Int("genes", sub.Len()))
	}
	return Cluster(best, sub), sub, nil
}

func ids(idx *coords.Index, members []int) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = idx.ID(m)
	}
	return out
}
