package layout

// inputEdge is an edge between node indices.
type inputEdge struct {
	from, to int
	back     bool
}

type inputGraph struct {
	nodes []Node
	edges []inputEdge
	out   [][]int // edge indices leaving a node, in input order
	in    []int   // in-degree over non-self edges
}

func newInputGraph(nodes []Node, edges []Edge) *inputGraph {
	g := &inputGraph{}
	index := make(map[string]int, len(nodes))
	for _, n := range nodes {
		if _, dup := index[n.ID]; dup {
			continue
		}
		index[n.ID] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}
	g.out = make([][]int, len(g.nodes))
	g.in = make([]int, len(g.nodes))

	for _, e := range edges {
		from, ok1 := index[e.Source]
		to, ok2 := index[e.Target]
		if !ok1 || !ok2 || from == to {
			continue
		}
		g.out[from] = append(g.out[from], len(g.edges))
		g.in[to]++
		g.edges = append(g.edges, inputEdge{from: from, to: to})
	}
	return g
}

// findBackEdges runs an iterative DFS, sources first, and flags every edge
// that reaches a node still on the stack.
func (g *inputGraph) findBackEdges() []int {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(g.nodes))
	var back []int

	type frame struct {
		node int
		next int
	}

	visit := func(root int) {
		stack := []frame{{node: root}}
		color[root] = grey
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(g.out[top.node]) {
				color[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			ei := g.out[top.node][top.next]
			top.next++
			to := g.edges[ei].to
			switch color[to] {
			case grey:
				g.edges[ei].back = true
				back = append(back, ei)
			case white:
				color[to] = grey
				stack = append(stack, frame{node: to})
			}
		}
	}

	for v := range g.nodes {
		if g.in[v] == 0 && color[v] == white {
			visit(v)
		}
	}
	for v := range g.nodes {
		if color[v] == white {
			visit(v)
		}
	}
	return back
}

// forward returns the edge oriented along the acyclic projection.
func (g *inputGraph) forward(ei int) (int, int) {
	e := g.edges[ei]
	if e.back {
		return e.to, e.from
	}
	return e.from, e.to
}

// longestPathRanks assigns rank = length of the longest path from any
// source, walking the acyclic projection in topological order.
func (g *inputGraph) longestPathRanks() []int {
	n := len(g.nodes)
	indeg := make([]int, n)
	succ := make([][]int, n)
	for ei, e := range g.edges {
		if e.back {
			// Back edges do not constrain ranks.
			continue
		}
		from, to := g.forward(ei)
		succ[from] = append(succ[from], to)
		indeg[to]++
	}

	rank := make([]int, n)
	queue := make([]int, 0, n)
	for v := 0; v < n; v++ {
		if indeg[v] == 0 {
			queue = append(queue, v)
		}
	}
	for head := 0; head < len(queue); head++ {
		u := queue[head]
		for _, v := range succ[u] {
			if rank[u]+1 > rank[v] {
				rank[v] = rank[u] + 1
			}
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
	return rank
}
