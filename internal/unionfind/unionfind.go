// Package unionfind implements a disjoint-set forest over a fixed range of integers.
package unionfind

// UnionFind partitions the integers [0, n) into disjoint sets.
type UnionFind struct {
	parent []int
}

// New returns n singleton sets.
func New(n int) *UnionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &UnionFind{parent: parent}
}

// Len returns the size of the universe.
func (u *UnionFind) Len() int {
	return len(u.parent)
}

// Find returns the root of x's set, pointing every node on the path directly at it.
func (u *UnionFind) Find(x int) int {
	root := x
	for root != u.parent[root] {
		root = u.parent[root]
	}
	for x != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets of x and y. The root of y's set is attached under x's root.
func (u *UnionFind) Union(x, y int) {
	rx, ry := u.Find(x), u.Find(y)
	if rx != ry {
		u.parent[ry] = rx
	}
}

// Connected reports whether x and y are in the same set.
func (u *UnionFind) Connected(x, y int) bool {
	return u.Find(x) == u.Find(y)
}

// Groups returns the members of every set keyed by root.
// Members are listed in ascending order.
func (u *UnionFind) Groups() map[int][]int {
	groups := make(map[int][]int)
	for i := range u.parent {
		r := u.Find(i)
		groups[r] = append(groups[r], i)
	}
	return groups
}
