package plotting

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

var closeLineColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}

// RenderRegimes draws the close price of a cleaned split as a line
// and overlays one colored marker set per decoded regime, with the
// share of days each regime occupied in the legend. The cleaned split
// and the state table are inner-joined on date; sharing no dates is
// an error.
func RenderRegimes(cleaned, table *dataset.Frame, states int, title, path string) error {
	if states < 1 {
		return fmt.Errorf("invalid state count %d", states)
	}
	closes, err := cleaned.Column(dataset.ColClose)
	if err != nil {
		return err
	}
	regimes, err := table.Column(dataset.ColRegime)
	if err != nil {
		return err
	}

	idxCleaned, idxTable := dataset.AlignDates(cleaned, table)
	if len(idxCleaned) == 0 {
		return fmt.Errorf("cleaned data and state table share no dates")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "date"
	p.Y.Label.Text = "close"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Legend.Top = true

	line := make(plotter.XYs, len(idxCleaned))
	for k := range idxCleaned {
		line[k].X = float64(cleaned.Date(idxCleaned[k]).Unix())
		line[k].Y = closes[idxCleaned[k]]
	}
	closeLine, err := plotter.NewLine(line)
	if err != nil {
		return fmt.Errorf("building close line: %w", err)
	}
	closeLine.Color = closeLineColor
	p.Add(closeLine)
	p.Legend.Add("close", closeLine)

	total := float64(len(idxCleaned))
	for s := 0; s < states; s++ {
		var pts plotter.XYs
		for k := range idxCleaned {
			if int(regimes[idxTable[k]]) != s {
				continue
			}
			pts = append(pts, plotter.XY{
				X: float64(cleaned.Date(idxCleaned[k]).Unix()),
				Y: closes[idxCleaned[k]],
			})
		}
		if len(pts) == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("building regime %d markers: %w", s, err)
		}
		scatter.GlyphStyle.Color = plotutil.Color(s)
		scatter.GlyphStyle.Radius = vg.Points(2.5)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("regime %d (%.1f%% of days)", s, 100*float64(len(pts))/total), scatter)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	if err := p.Save(12*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save regime plot %s: %w", path, err)
	}
	return nil
}
