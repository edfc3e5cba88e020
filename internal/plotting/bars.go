package plotting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

// RenderErrorBars draws grouped validation/test error-rate bars, one
// group per model.
func RenderErrorBars(rows []domain.EvaluationRow, title, path string) error {
	if len(rows) == 0 {
		return fmt.Errorf("no evaluation rows to draw")
	}

	seen := make(map[string]bool)
	var models []string
	for _, row := range rows {
		if !seen[row.Model] {
			seen[row.Model] = true
			models = append(models, row.Model)
		}
	}
	sort.Strings(models)

	validation := make(plotter.Values, len(models))
	test := make(plotter.Values, len(models))
	for _, row := range rows {
		idx := sort.SearchStrings(models, row.Model)
		switch row.Split {
		case string(domain.SplitValidation):
			validation[idx] = row.ErrorRate
		case string(domain.SplitTest):
			test[idx] = row.ErrorRate
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "error rate"

	width := vg.Points(16)
	valBars, err := plotter.NewBarChart(validation, width)
	if err != nil {
		return fmt.Errorf("building validation bars: %w", err)
	}
	valBars.Color = plotutil.Color(0)
	valBars.Offset = -width / 2

	testBars, err := plotter.NewBarChart(test, width)
	if err != nil {
		return fmt.Errorf("building test bars: %w", err)
	}
	testBars.Color = plotutil.Color(1)
	testBars.Offset = width / 2

	p.Add(valBars, testBars)
	p.Legend.Add(string(domain.SplitValidation), valBars)
	p.Legend.Add(string(domain.SplitTest), testBars)
	p.Legend.Top = true
	p.NominalX(models...)

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save comparison plot %s: %w", path, err)
	}
	return nil
}
