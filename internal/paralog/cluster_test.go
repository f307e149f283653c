package paralog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inodb/panpara/internal/coords"
)

func TestCluster(t *testing.T) {
	idx := coords.NewIndex([]coords.Gene{
		gene("a", 1, 300),
		gene("b", 1001, 300),
		gene("c", 2001, 400),
		gene("d", 3001, 100),
		gene("e", 4001, 200),
	})

	tests := []struct {
		name string
		best BestMatches
		want []Group
	}{
		{
			name: "no matches gives singletons",
			best: BestMatches{},
			want: []Group{
				{Representative: 0, Paralogs: []int{}},
				{Representative: 1, Paralogs: []int{}},
				{Representative: 2, Paralogs: []int{}},
				{Representative: 3, Paralogs: []int{}},
				{Representative: 4, Paralogs: []int{}},
			},
		},
		{
			name: "transitive chain joins one group",
			best: BestMatches{
				1: {Score: 1, Queries: []int{0}}, // a -> b
				2: {Score: 1, Queries: []int{1}}, // b -> c
			},
			want: []Group{
				{Representative: 2, Paralogs: []int{0, 1}},
				{Representative: 3, Paralogs: []int{}},
				{Representative: 4, Paralogs: []int{}},
			},
		},
		{
			name: "tied queries all join",
			best: BestMatches{
				4: {Score: 2, Queries: []int{0, 3}},
			},
			want: []Group{
				{Representative: 0, Paralogs: []int{4, 3}},
				{Representative: 1, Paralogs: []int{}},
				{Representative: 2, Paralogs: []int{}},
			},
		},
		{
			name: "equal lengths pick lower index",
			best: BestMatches{
				0: {Score: 1, Queries: []int{1}},
			},
			want: []Group{
				{Representative: 0, Paralogs: []int{1}},
				{Representative: 2, Paralogs: []int{}},
				{Representative: 3, Paralogs: []int{}},
				{Representative: 4, Paralogs: []int{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cluster(tt.best, idx)
			assert.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Representative, got[i].Representative, "group %d", i)
				assert.ElementsMatch(t, tt.want[i].Paralogs, got[i].Paralogs, "group %d", i)
				if len(tt.want[i].Paralogs) > 0 {
					assert.Equal(t, tt.want[i].Paralogs, got[i].Paralogs, "paralog order, group %d", i)
				}
			}
		})
	}
}

func TestCluster_EveryGeneInExactlyOneGroup(t *testing.T) {
	genes := make([]coords.Gene, 20)
	for i := range genes {
		genes[i] = gene(string(rune('a'+i)), int64(i*1000+1), int64(100+i%3*50))
	}
	idx := coords.NewIndex(genes)
	best := BestMatches{
		1:  {Queries: []int{0}},
		5:  {Queries: []int{4, 6}},
		7:  {Queries: []int{5}},
		12: {Queries: []int{19}},
	}

	seen := make(map[int]int)
	for _, g := range Cluster(best, idx) {
		for _, m := range g.Members() {
			seen[m]++
		}
	}
	assert.Len(t, seen, idx.Len())
	for i, n := range seen {
		assert.Equal(t, 1, n, "gene %d", i)
	}
}

func TestCluster_EmptyIndex(t *testing.T) {
	assert.Empty(t, Cluster(BestMatches{}, coords.NewIndex(nil)))
}

func TestGroupMembers(t *testing.T) {
	g := Group{Representative: 3, Paralogs: []int{1, 2}}
	assert.Equal(t, []int{3, 1, 2}, g.Members())
	assert.Equal(t, []int{7}, Group{Representative: 7}.Members())
}
