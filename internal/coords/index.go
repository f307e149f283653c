package coords

import "sort"

// Index assigns each unique gene a dense integer by sorted genomic position.
// Indices are only meaningful within one Index.
type Index struct {
	genes []Gene
	byID  map[string]int
}

// NewIndex sorts genes by (chrom, start, end, id) and numbers them from 0.
// When an id repeats, only its first occurrence in sort order is kept.
func NewIndex(genes []Gene) *Index {
	sorted := make([]Gene, len(genes))
	copy(sorted, genes)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	idx := &Index{
		genes: make([]Gene, 0, len(sorted)),
		byID:  make(map[string]int, len(sorted)),
	}
	for _, g := range sorted {
		if _, dup := idx.byID[g.ID]; dup {
			continue
		}
		idx.byID[g.ID] = len(idx.genes)
		idx.genes = append(idx.genes, g)
	}
	return idx
}

// Len returns the number of indexed genes.
func (x *Index) Len() int {
	return len(x.genes)
}

// Lookup returns the index of a gene id.
func (x *Index) Lookup(id string) (int, bool) {
	i, ok := x.byID[id]
	return i, ok
}

// Contains reports whether id is indexed.
func (x *Index) Contains(id string) bool {
	_, ok := x.byID[id]
	return ok
}

// ID returns the gene id at index i.
func (x *Index) ID(i int) string {
	return x.genes[i].ID
}

// Gene returns the gene record at index i.
func (x *Index) Gene(i int) Gene {
	return x.genes[i]
}

// Length returns the length of the gene at index i.
func (x *Index) Length(i int) int64 {
	return x.genes[i].Length()
}

// Genes returns the indexed genes in index order.
func (x *Index) Genes() []Gene {
	out := make([]Gene, len(x.genes))
	copy(out, x.genes)
	return out
}

// Restrict builds a fresh index over the subset of genes whose ids are in keep.
// Ids not present in x are ignored.
func (x *Index) Restrict(keep map[string]bool) *Index {
	subset := make([]Gene, 0, len(keep))
	for _, g := range x.genes {
		if keep[g.ID] {
			subset = append(subset, g)
		}
	}
	return NewIndex(subset)
}
