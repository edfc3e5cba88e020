package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

// Model names as they appear in the comparison table and bar chart.
const (
	ModelBayesian = "bayesian"
	ModelMarkov   = "markov"
)

// StageMetrics holds whichever stage reports were found on disk. A nil
// field means that stage has not run; its name is recorded in Missing.
type StageMetrics struct {
	HMM      *domain.HMMReport
	Bayesian *domain.BayesianReport
	Markov   *domain.MarkovReport
	Missing  []string
}

// LoadStageMetrics reads the stage metrics files from dir. Missing
// files are tolerated, a directory with no metrics at all is not.
func LoadStageMetrics(dir string) (*StageMetrics, error) {
	metrics := &StageMetrics{}

	var hmmReport domain.HMMReport
	found, err := loadReport(filepath.Join(dir, domain.HMMMetricsFile), &hmmReport)
	if err != nil {
		return nil, err
	}
	if found {
		metrics.HMM = &hmmReport
	} else {
		metrics.Missing = append(metrics.Missing, "hmm")
	}

	var bayesReport domain.BayesianReport
	found, err = loadReport(filepath.Join(dir, domain.BayesianMetricsFile), &bayesReport)
	if err != nil {
		return nil, err
	}
	if found {
		metrics.Bayesian = &bayesReport
	} else {
		metrics.Missing = append(metrics.Missing, ModelBayesian)
	}

	var markovReport domain.MarkovReport
	found, err = loadReport(filepath.Join(dir, domain.MarkovMetricsFile), &markovReport)
	if err != nil {
		return nil, err
	}
	if found {
		metrics.Markov = &markovReport
	} else {
		metrics.Missing = append(metrics.Missing, ModelMarkov)
	}

	if metrics.HMM == nil && metrics.Bayesian == nil && metrics.Markov == nil {
		return nil, fmt.Errorf("no stage metrics found in %s", dir)
	}
	return metrics, nil
}

func loadReport(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read metrics file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to parse metrics file %s: %w", path, err)
	}
	return true, nil
}

// BuildReport ranks the error-bearing models by validation error and
// assembles the comparison rows, best model first. The HMM report has
// no forecast error of its own (its regimes feed the other two models)
// so it contributes to the workbook only.
func BuildReport(runID string, metrics *StageMetrics) (*domain.EvaluationReport, error) {
	type scoredModel struct {
		name            string
		validationError float64
		rows            []domain.EvaluationRow
	}

	var models []scoredModel
	if r := metrics.Bayesian; r != nil {
		detail := fmt.Sprintf("method=%s max_iter=%d", r.BestMethod, r.BestMaxIter)
		models = append(models, scoredModel{
			name:            ModelBayesian,
			validationError: r.ValidationError,
			rows: []domain.EvaluationRow{
				{
					Model:     ModelBayesian,
					Split:     string(domain.SplitValidation),
					ErrorRate: r.ValidationError,
					Accuracy:  1 - r.ValidationError,
					Detail:    detail,
				},
			},
		})
	}
	if r := metrics.Markov; r != nil {
		detail := fmt.Sprintf("states=%d smoothing=%g", r.States, r.Smoothing)
		models = append(models, scoredModel{
			name:            ModelMarkov,
			validationError: r.ValidationError,
			rows: []domain.EvaluationRow{
				{
					Model:     ModelMarkov,
					Split:     string(domain.SplitValidation),
					ErrorRate: r.ValidationError,
					Accuracy:  1 - r.ValidationError,
					Detail:    detail,
				},
				{
					Model:     ModelMarkov,
					Split:     string(domain.SplitTest),
					ErrorRate: r.TestError,
					Accuracy:  1 - r.TestError,
					Detail:    detail,
				},
			},
		})
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no model errors to compare")
	}

	sort.SliceStable(models, func(i, j int) bool {
		if models[i].validationError != models[j].validationError {
			return models[i].validationError < models[j].validationError
		}
		return models[i].name < models[j].name
	})

	report := &domain.EvaluationReport{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		BestModel:   models[0].name,
	}
	for _, model := range models {
		report.Rows = append(report.Rows, model.rows...)
	}
	return report, nil
}

// BestBySplit returns the lowest-error model per split.
func BestBySplit(rows []domain.EvaluationRow) map[string]string {
	best := make(map[string]string)
	lowest := make(map[string]float64)
	for _, row := range rows {
		if current, ok := lowest[row.Split]; !ok || row.ErrorRate < current {
			lowest[row.Split] = row.ErrorRate
			best[row.Split] = row.Model
		}
	}
	return best
}
