package paralog

import (
	"fmt"
	"sort"

	"github.com/inodb/panpara/internal/blast"
	"github.com/inodb/panpara/internal/collinearity"
	"github.com/inodb/panpara/internal/coords"
)

// Match is the best score seen for one subject gene and every query reaching it.
type Match struct {
	Score   float64
	Queries []int // ascending
}

// BestMatches maps a subject gene index to its best-scoring queries.
type BestMatches map[int]*Match

// Subjects returns the subject indices in ascending order.
func (b BestMatches) Subjects() []int {
	out := make([]int, 0, len(b))
	for s := range b {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// accumulator tracks the running maximum per subject.
// Ties are kept by exact float equality.
type accumulator struct {
	score   map[int]float64
	queries map[int]map[int]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		score:   make(map[int]float64),
		queries: make(map[int]map[int]struct{}),
	}
}

func (a *accumulator) offer(subject, query int, score float64) {
	best, seen := a.score[subject]
	switch {
	case !seen || score > best:
		a.score[subject] = score
		a.queries[subject] = map[int]struct{}{query: {}}
	case score == best:
		a.queries[subject][query] = struct{}{}
	}
}

func (a *accumulator) result() BestMatches {
	out := make(BestMatches, len(a.score))
	for s, score := range a.score {
		qs := make([]int, 0, len(a.queries[s]))
		for q := range a.queries[s] {
			qs = append(qs, q)
		}
		sort.Ints(qs)
		out[s] = &Match{Score: score, Queries: qs}
	}
	return out
}

// score is bit score per aligned base scaled by both genes' collinearity weights.
func score(r *blast.Record, w collinearity.Weights) float64 {
	return r.BitScore / float64(r.AlignLength) * w.Weight(r.QueryID) * w.Weight(r.SubjectID)
}

// covers reports whether the alignment spans enough of both genes.
func covers(alignLength int, lenA, lenB int64, threshold float64) bool {
	return float64(alignLength)*2/float64(lenA+lenB) >= threshold
}

// SelectSelf finds, for every gene of one genome, the genes of the same genome
// that align to it with the highest score. The record's subject column is the
// aggregation key.
func SelectSelf(src blast.Source, idx *coords.Index, w collinearity.Weights, th Thresholds) (BestMatches, error) {
	acc := newAccumulator()
	for {
		r, err := src.Next()
		if err != nil {
			return nil, fmt.Errorf("read alignment: %w", err)
		}
		if r == nil {
			break
		}

		if r.QueryID == r.SubjectID || r.Identity < th.Identity {
			continue
		}
		qi, ok := idx.Lookup(r.QueryID)
		if !ok {
			continue
		}
		si, ok := idx.Lookup(r.SubjectID)
		if !ok {
			continue
		}
		if !covers(r.AlignLength, idx.Length(qi), idx.Length(si), th.Coverage) {
			continue
		}

		acc.offer(si, qi, score(r, w))
	}
	return acc.result(), nil
}

// SelectCross finds, for every gene of the new genome qry, the genes of the
// reference genome ref that align to it with the highest score. Records may list
// either genome first; pairs inside one genome are ignored.
func SelectCross(src blast.Source, ref, qry *coords.Index, w collinearity.Weights, th Thresholds) (BestMatches, error) {
	acc := newAccumulator()
	for {
		r, err := src.Next()
		if err != nil {
			return nil, fmt.Errorf("read alignment: %w", err)
		}
		if r == nil {
			break
		}

		if r.Identity < th.Identity {
			continue
		}

		qInRef, qInQry := ref.Contains(r.QueryID), qry.Contains(r.QueryID)
		sInRef, sInQry := ref.Contains(r.SubjectID), qry.Contains(r.SubjectID)
		if (!qInRef && !qInQry) || (!sInRef && !sInQry) {
			continue
		}
		if (qInRef && sInRef) || (qInQry && sInQry) {
			continue
		}

		var refID, qryID string
		if qInRef {
			refID, qryID = r.QueryID, r.SubjectID
		} else {
			refID, qryID = r.SubjectID, r.QueryID
		}
		fi, _ := ref.Lookup(refID)
		si, _ := qry.Lookup(qryID)

		if !covers(r.AlignLength, ref.Length(fi), qry.Length(si), th.Coverage) {
			continue
		}

		acc.offer(si, fi, score(r, w))
	}
	return acc.result(), nil
}
