package rating

// unionFind is a disjoint-set forest over integer-indexed teams.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
		u.size[i] = 1
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}

// assignComponents labels each team with its connected component in the
// cohort schedule graph. Opponents without a row in the table are not
// nodes; playing one creates no edge. Component ids are assigned in team
// id order starting at 1, so reruns label identically. Returns the
// augmented slice and the component count.
func assignComponents(stats []TeamStat) ([]TeamStat, int) {
	out := make([]TeamStat, len(stats))
	copy(out, stats)

	index := make(map[uint]int, len(out))
	for i := range out {
		index[out[i].TeamID] = i
	}

	uf := newUnionFind(len(out))
	for i := range out {
		for _, g := range out[i].Games {
			if j, ok := index[g.OpponentID]; ok {
				uf.union(i, j)
			}
		}
	}

	componentIDs := make(map[int]int)
	next := 1
	for i := range out {
		root := uf.find(i)
		id, ok := componentIDs[root]
		if !ok {
			id = next
			componentIDs[root] = id
			next++
		}
		out[i].ComponentID = id
		out[i].ComponentSize = uf.size[root]
	}
	return out, len(componentIDs)
}
