package plotting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const arrowWing = 0.06

// RenderNetwork draws a directed graph on a circular layout: one dot
// per node, labels just outside the circle, edges as lines with a
// small arrowhead at the target end.
func RenderNetwork(nodes []string, edges [][2]string, title, path string) error {
	if len(nodes) == 0 {
		return fmt.Errorf("no nodes to draw")
	}
	position := make(map[string]plotter.XY, len(nodes))
	for i, node := range nodes {
		angle := 2 * math.Pi * float64(i) / float64(len(nodes))
		position[node] = plotter.XY{X: math.Cos(angle), Y: math.Sin(angle)}
	}

	p := plot.New()
	p.Title.Text = title
	p.HideAxes()

	edgeColor := plotutil.Color(0)
	for _, edge := range edges {
		from, ok := position[edge[0]]
		if !ok {
			return fmt.Errorf("edge references unknown node %s", edge[0])
		}
		to, ok := position[edge[1]]
		if !ok {
			return fmt.Errorf("edge references unknown node %s", edge[1])
		}

		segment, err := plotter.NewLine(plotter.XYs{from, to})
		if err != nil {
			return fmt.Errorf("building edge %s -> %s: %w", edge[0], edge[1], err)
		}
		segment.Color = edgeColor
		p.Add(segment)

		for _, wing := range arrowWings(from, to) {
			line, err := plotter.NewLine(wing)
			if err != nil {
				return fmt.Errorf("building arrowhead %s -> %s: %w", edge[0], edge[1], err)
			}
			line.Color = edgeColor
			p.Add(line)
		}
	}

	dots := make(plotter.XYs, len(nodes))
	labels := make([]string, len(nodes))
	labelPts := make(plotter.XYs, len(nodes))
	for i, node := range nodes {
		pos := position[node]
		dots[i] = pos
		labels[i] = node
		labelPts[i] = plotter.XY{X: pos.X * 1.12, Y: pos.Y * 1.12}
	}
	scatter, err := plotter.NewScatter(dots)
	if err != nil {
		return fmt.Errorf("building node markers: %w", err)
	}
	scatter.GlyphStyle.Color = plotutil.Color(2)
	scatter.GlyphStyle.Radius = vg.Points(6)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)

	nodeLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelPts, Labels: labels})
	if err != nil {
		return fmt.Errorf("building node labels: %w", err)
	}
	p.Add(nodeLabels)

	// Keep the circle and its labels inside the frame.
	p.X.Min, p.X.Max = -1.5, 1.5
	p.Y.Min, p.Y.Max = -1.5, 1.5

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	if err := p.Save(7*vg.Inch, 7*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save network plot %s: %w", path, err)
	}
	return nil
}

// arrowWings builds the two short segments of an arrowhead sitting on
// the target end of the edge, pulled back a little so the node dot
// does not swallow it.
func arrowWings(from, to plotter.XY) []plotter.XYs {
	dx := to.X - from.X
	dy := to.Y - from.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil
	}
	ux, uy := dx/length, dy/length
	tip := plotter.XY{X: to.X - 0.08*ux, Y: to.Y - 0.08*uy}

	wings := make([]plotter.XYs, 0, 2)
	for _, rotation := range []float64{math.Pi * 5 / 6, -math.Pi * 5 / 6} {
		cos, sin := math.Cos(rotation), math.Sin(rotation)
		wx := ux*cos - uy*sin
		wy := ux*sin + uy*cos
		end := plotter.XY{X: tip.X + arrowWing*wx, Y: tip.Y + arrowWing*wy}
		wings = append(wings, plotter.XYs{tip, end})
	}
	return wings
}
