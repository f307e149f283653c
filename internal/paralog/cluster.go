package paralog

import (
	"sort"

	"github.com/inodb/panpara/internal/coords"
	"github.com/inodb/panpara/internal/unionfind"
)

// Group is one connected set of paralogous genes.
type Group struct {
	Representative int
	Paralogs       []int // descending length, then ascending index
}

// Members returns the representative followed by its paralogs.
func (g Group) Members() []int {
	out := make([]int, 0, len(g.Paralogs)+1)
	out = append(out, g.Representative)
	return append(out, g.Paralogs...)
}

// Cluster joins every subject with each of its best queries and collapses the
// resulting components. Every index of idx ends up in exactly one group; genes
// without matches form singleton groups. The longest gene of a component is its
// representative, ties going to the lower index. Groups are ordered by
// representative index.
func Cluster(best BestMatches, idx *coords.Index) []Group {
	uf := unionfind.New(idx.Len())
	for subject, m := range best {
		for _, q := range m.Queries {
			uf.Union(subject, q)
		}
	}

	components := uf.Groups()
	groups := make([]Group, 0, len(components))
	for _, members := range components {
		sort.SliceStable(members, func(i, j int) bool {
			li, lj := idx.Length(members[i]), idx.Length(members[j])
			if li != lj {
				return li > lj
			}
			return members[i] < members[j]
		})
		groups = append(groups, Group{
			Representative: members[0],
			Paralogs:       members[1:],
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Representative < groups[j].Representative
	})
	return groups
}
