// Package layout computes layered (top-to-bottom) positions for a scenario
// graph.
//
// Compute is a pure function of its input: it keeps no state between calls,
// ignores any previous positions and returns the same result for the same
// node/edge lists and Config. The pipeline is the classic layered drawing:
//
//  1. acyclic projection: DFS back edges are reversed (self-loops dropped)
//  2. ranking: longest path from the sources
//  3. normalization: long edges are split with virtual nodes
//  4. ordering: barycenter sweeps, keeping the ordering with fewest crossings
//  5. placement: ranks stacked vertically, each rank centered horizontally
package layout

import (
	"github.com/aretw0/sceneweaver/pkg/domain"
)

// Node is a box to place. Width and Height are its nominal size.
type Node struct {
	ID     string
	Width  float64
	Height float64
}

// Edge is a directed connection. Slot information is irrelevant here.
type Edge struct {
	Source string
	Target string
}

// Config holds the separation parameters.
type Config struct {
	// NodeSep is the horizontal gap between neighbours in a rank.
	NodeSep float64
	// RankSep is the vertical gap between consecutive ranks.
	RankSep float64
	// EdgeSep is the horizontal gap between two adjacent long-edge bends.
	EdgeSep float64
	// MarginX and MarginY offset the whole drawing.
	MarginX float64
	MarginY float64
	// MaxSweeps bounds the number of ordering sweeps.
	MaxSweeps int
}

// DefaultConfig mirrors the spacing the canvas has always used.
func DefaultConfig() Config {
	return Config{
		NodeSep:   50,
		RankSep:   50,
		EdgeSep:   10,
		MaxSweeps: 24,
	}
}

// Result is the output of Compute.
type Result struct {
	// Positions maps node id to its top-left corner.
	Positions map[string]domain.Position
	// Ranks lists the real node ids of every rank, left to right.
	Ranks [][]string
	// BackEdges are the edges ignored for ranking because they close a cycle.
	BackEdges []Edge
	// Crossings is the number of edge crossings of the chosen ordering.
	Crossings int
}

// Rank returns the rank index of id, or -1.
func (r Result) Rank(id string) int {
	for i, rank := range r.Ranks {
		for _, n := range rank {
			if n == id {
				return i
			}
		}
	}
	return -1
}

// Compute lays out nodes and edges. Edges whose endpoints are unknown are
// skipped; duplicate node ids keep the first occurrence.
func Compute(nodes []Node, edges []Edge, cfg Config) Result {
	res := Result{Positions: make(map[string]domain.Position)}
	if len(nodes) == 0 {
		return res
	}
	if cfg.MaxSweeps <= 0 {
		cfg.MaxSweeps = DefaultConfig().MaxSweeps
	}

	g := newInputGraph(nodes, edges)
	back := g.findBackEdges()
	for _, ei := range back {
		e := g.edges[ei]
		res.BackEdges = append(res.BackEdges, Edge{Source: g.nodes[e.from].ID, Target: g.nodes[e.to].ID})
	}

	ranks := g.longestPathRanks()
	lg := buildLayered(g, ranks)
	order, crossings := lg.order(cfg.MaxSweeps)
	res.Crossings = crossings

	lg.place(order, cfg, res.Positions)
	for _, row := range order {
		var ids []string
		for _, v := range row {
			if n := lg.nodes[v]; !n.virtual {
				ids = append(ids, g.nodes[n.real].ID)
			}
		}
		res.Ranks = append(res.Ranks, ids)
	}
	return res
}
