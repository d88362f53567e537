package layout

import "sort"

// layeredNode is either a real node or a dummy on a long edge.
type layeredNode struct {
	real    int // index into inputGraph.nodes, -1 for virtual
	virtual bool
	rank    int
	width   float64
	height  float64
	up      []int // neighbours in rank-1
	down    []int // neighbours in rank+1
}

type layeredGraph struct {
	nodes    []layeredNode
	numRanks int
	roots    []int // layered ids of the real nodes, by input index
	ids      []string
}

func (lg *layeredGraph) idOf(v int) string {
	return lg.ids[lg.nodes[v].real]
}

func buildLayered(g *inputGraph, ranks []int) *layeredGraph {
	lg := &layeredGraph{roots: make([]int, len(g.nodes))}
	for i, n := range g.nodes {
		lg.ids = append(lg.ids, n.ID)
		lg.roots[i] = len(lg.nodes)
		lg.nodes = append(lg.nodes, layeredNode{
			real:   i,
			rank:   ranks[i],
			width:  n.Width,
			height: n.Height,
		})
		if ranks[i]+1 > lg.numRanks {
			lg.numRanks = ranks[i] + 1
		}
	}

	link := func(upper, lower int) {
		lg.nodes[upper].down = append(lg.nodes[upper].down, lower)
		lg.nodes[lower].up = append(lg.nodes[lower].up, upper)
	}

	for ei := range g.edges {
		from, to := g.forward(ei)
		prev := lg.roots[from]
		for r := ranks[from] + 1; r < ranks[to]; r++ {
			v := len(lg.nodes)
			lg.nodes = append(lg.nodes, layeredNode{real: -1, virtual: true, rank: r})
			link(prev, v)
			prev = v
		}
		link(prev, lg.roots[to])
	}
	return lg
}

// initialOrder walks the layered graph breadth first from the rank-0 nodes
// in input order, appending each node to its rank as it is reached.
func (lg *layeredGraph) initialOrder() [][]int {
	order := make([][]int, lg.numRanks)
	seen := make([]bool, len(lg.nodes))
	var queue []int
	for _, v := range lg.roots {
		if lg.nodes[v].rank == 0 {
			seen[v] = true
			queue = append(queue, v)
		}
	}
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		order[lg.nodes[v].rank] = append(order[lg.nodes[v].rank], v)
		for _, w := range lg.nodes[v].down {
			if !seen[w] {
				seen[w] = true
				queue = append(queue, w)
			}
		}
	}
	// Every node descends from a rank-0 node, so nothing is left behind;
	// the loop below only guards against that assumption breaking.
	for v := range lg.nodes {
		if !seen[v] {
			order[lg.nodes[v].rank] = append(order[lg.nodes[v].rank], v)
		}
	}
	return order
}

// order runs alternating barycenter sweeps and returns the ordering with
// the fewest crossings seen, together with its crossing count.
func (lg *layeredGraph) order(maxSweeps int) ([][]int, int) {
	current := lg.initialOrder()
	best := cloneOrder(current)
	bestCrossings := lg.crossings(current)

	const patience = 4
	stale := 0
	for sweep := 0; sweep < maxSweeps && bestCrossings > 0; sweep++ {
		pos := positionsOf(current, len(lg.nodes))
		if sweep%2 == 0 {
			for r := 1; r < lg.numRanks; r++ {
				lg.reorder(current[r], pos, true)
				for i, v := range current[r] {
					pos[v] = i
				}
			}
		} else {
			for r := lg.numRanks - 2; r >= 0; r-- {
				lg.reorder(current[r], pos, false)
				for i, v := range current[r] {
					pos[v] = i
				}
			}
		}

		c := lg.crossings(current)
		if c < bestCrossings {
			bestCrossings = c
			best = cloneOrder(current)
			stale = 0
			continue
		}
		stale++
		if stale >= patience {
			break
		}
	}
	return best, bestCrossings
}

// reorder sorts row by the mean position of each node's neighbours in the
// fixed adjacent rank. Nodes without neighbours keep their slot value.
func (lg *layeredGraph) reorder(row []int, pos []int, useUp bool) {
	bary := make(map[int]float64, len(row))
	for i, v := range row {
		adj := lg.nodes[v].down
		if useUp {
			adj = lg.nodes[v].up
		}
		if len(adj) == 0 {
			bary[v] = float64(i)
			continue
		}
		sum := 0
		for _, w := range adj {
			sum += pos[w]
		}
		bary[v] = float64(sum) / float64(len(adj))
	}
	sort.SliceStable(row, func(a, b int) bool {
		return bary[row[a]] < bary[row[b]]
	})
}

// crossings counts pairwise crossings between every pair of adjacent ranks.
func (lg *layeredGraph) crossings(order [][]int) int {
	pos := positionsOf(order, len(lg.nodes))
	total := 0
	for r := 0; r+1 < len(order); r++ {
		type seg struct{ upper, lower int }
		var segs []seg
		for _, v := range order[r] {
			for _, w := range lg.nodes[v].down {
				segs = append(segs, seg{pos[v], pos[w]})
			}
		}
		sort.Slice(segs, func(a, b int) bool {
			if segs[a].upper != segs[b].upper {
				return segs[a].upper < segs[b].upper
			}
			return segs[a].lower < segs[b].lower
		})

		// Inversions of the lower endpoints, counted with a Fenwick tree.
		tree := make([]int, len(order[r+1])+1)
		inserted := 0
		for _, s := range segs {
			greater := inserted - prefix(tree, s.lower+1)
			total += greater
			for i := s.lower + 1; i < len(tree); i += i & -i {
				tree[i]++
			}
			inserted++
		}
	}
	return total
}

func prefix(tree []int, i int) int {
	sum := 0
	for ; i > 0; i -= i & -i {
		sum += tree[i]
	}
	return sum
}

func positionsOf(order [][]int, n int) []int {
	pos := make([]int, n)
	for _, row := range order {
		for i, v := range row {
			pos[v] = i
		}
	}
	return pos
}

func cloneOrder(order [][]int) [][]int {
	out := make([][]int, len(order))
	for i, row := range order {
		out[i] = append([]int(nil), row...)
	}
	return out
}
