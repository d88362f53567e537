package layout

import "github.com/aretw0/sceneweaver/pkg/domain"

// place stacks ranks top to bottom and centers every rank on the widest one.
// Only real nodes are written to out.
func (lg *layeredGraph) place(order [][]int, cfg Config, out map[string]domain.Position) {
	rowWidth := make([]float64, len(order))
	rowHeight := make([]float64, len(order))
	maxWidth := 0.0
	for r, row := range order {
		w := 0.0
		for i, v := range row {
			n := lg.nodes[v]
			w += n.width
			if i > 0 {
				w += lg.gap(row[i-1], v, cfg)
			}
			if n.height > rowHeight[r] {
				rowHeight[r] = n.height
			}
		}
		rowWidth[r] = w
		if w > maxWidth {
			maxWidth = w
		}
	}

	y := cfg.MarginY
	for r, row := range order {
		x := cfg.MarginX + (maxWidth-rowWidth[r])/2
		for i, v := range row {
			n := lg.nodes[v]
			if i > 0 {
				x += lg.gap(row[i-1], v, cfg)
			}
			if !n.virtual {
				out[lg.idOf(v)] = domain.Position{
					X: x,
					Y: y + (rowHeight[r]-n.height)/2,
				}
			}
			x += n.width
		}
		y += rowHeight[r] + cfg.RankSep
	}
}

func (lg *layeredGraph) gap(a, b int, cfg Config) float64 {
	if lg.nodes[a].virtual && lg.nodes[b].virtual {
		return cfg.EdgeSep
	}
	return cfg.NodeSep
}
