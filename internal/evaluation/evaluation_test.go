package evaluation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

func TestShiftedMismatch(t *testing.T) {
	tests := []struct {
		name      string
		actual    []int
		predicted []int
		want      float64
	}{
		{
			name:      "identical sequences still shift",
			actual:    []int{0, 1, 1, 0},
			predicted: []int{0, 1, 1, 0},
			want:      0.5,
		},
		{
			name:      "perfect one step ahead forecast",
			actual:    []int{0, 1, 0, 1, 1},
			predicted: []int{1, 0, 1, 1, 0},
			want:      0,
		},
		{
			name:      "all wrong",
			actual:    []int{0, 0, 0},
			predicted: []int{1, 1, 1},
			want:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShiftedMismatch(tt.actual, tt.predicted)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestShiftedMismatchErrors(t *testing.T) {
	_, err := ShiftedMismatch(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no observations")

	_, err = ShiftedMismatch([]int{0, 1}, []int{0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 observations")
}

func writeMetricsFile(t *testing.T, dir, name string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func testHMMReport() *domain.HMMReport {
	return &domain.HMMReport{
		RunID:         "run-1",
		GeneratedAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		States:        3,
		Features:      []string{"LogReturn", "Volatility", "VolumeChange"},
		TrainRows:     700,
		LogLikelihood: -812.4,
		BIC:           1742.9,
		Iterations:    63,
		Converged:     true,
	}
}

func testBayesianReport() *domain.BayesianReport {
	return &domain.BayesianReport{
		RunID:           "run-1",
		GeneratedAt:     time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC),
		BestMethod:      "bdeu",
		BestMaxIter:     10,
		BestScore:       -1510.2,
		Nodes:           []string{"Close", "Forecast", "Regime"},
		Edges:           [][2]string{{"Regime", "Close"}, {"Close", "Forecast"}},
		ValidationError: 0.38,
	}
}

func testMarkovReport() *domain.MarkovReport {
	return &domain.MarkovReport{
		RunID:           "run-1",
		GeneratedAt:     time.Date(2024, 6, 1, 12, 10, 0, 0, time.UTC),
		States:          3,
		Smoothing:       1,
		ValidationError: 0.52,
		TestError:       0.49,
	}
}

func TestLoadStageMetrics(t *testing.T) {
	dir := t.TempDir()
	writeMetricsFile(t, dir, domain.MarkovMetricsFile, testMarkovReport())

	metrics, err := LoadStageMetrics(dir)
	require.NoError(t, err)

	assert.Nil(t, metrics.HMM)
	assert.Nil(t, metrics.Bayesian)
	require.NotNil(t, metrics.Markov)
	assert.InDelta(t, 0.52, metrics.Markov.ValidationError, 1e-12)
	assert.ElementsMatch(t, []string{"hmm", "bayesian"}, metrics.Missing)
}

func TestLoadStageMetricsErrors(t *testing.T) {
	_, err := LoadStageMetrics(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stage metrics")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.HMMMetricsFile), []byte("{broken"), 0644))
	_, err = LoadStageMetrics(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestBuildReport(t *testing.T) {
	metrics := &StageMetrics{
		HMM:      testHMMReport(),
		Bayesian: testBayesianReport(),
		Markov:   testMarkovReport(),
	}

	report, err := BuildReport("run-1", metrics)
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, ModelBayesian, report.BestModel, "lower validation error wins")
	require.Len(t, report.Rows, 3)

	assert.Equal(t, ModelBayesian, report.Rows[0].Model)
	assert.Equal(t, string(domain.SplitValidation), report.Rows[0].Split)
	assert.InDelta(t, 0.38, report.Rows[0].ErrorRate, 1e-12)
	assert.InDelta(t, 0.62, report.Rows[0].Accuracy, 1e-12)
	assert.Contains(t, report.Rows[0].Detail, "method=bdeu")

	assert.Equal(t, ModelMarkov, report.Rows[1].Model)
	assert.Equal(t, string(domain.SplitValidation), report.Rows[1].Split)
	assert.Equal(t, ModelMarkov, report.Rows[2].Model)
	assert.Equal(t, string(domain.SplitTest), report.Rows[2].Split)
	assert.InDelta(t, 0.49, report.Rows[2].ErrorRate, 1e-12)
}

func TestBuildReportMarkovOnly(t *testing.T) {
	report, err := BuildReport("run-2", &StageMetrics{Markov: testMarkovReport()})
	require.NoError(t, err)
	assert.Equal(t, ModelMarkov, report.BestModel)
	require.Len(t, report.Rows, 2)
}

func TestBuildReportRequiresAScoredModel(t *testing.T) {
	_, err := BuildReport("run-3", &StageMetrics{HMM: testHMMReport()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model errors")
}

func TestBestBySplit(t *testing.T) {
	rows := []domain.EvaluationRow{
		{Model: ModelBayesian, Split: string(domain.SplitValidation), ErrorRate: 0.38},
		{Model: ModelMarkov, Split: string(domain.SplitValidation), ErrorRate: 0.52},
		{Model: ModelMarkov, Split: string(domain.SplitTest), ErrorRate: 0.49},
	}

	best := BestBySplit(rows)
	assert.Equal(t, ModelBayesian, best[string(domain.SplitValidation)])
	assert.Equal(t, ModelMarkov, best[string(domain.SplitTest)])
}

func TestWriteComparisonCSV(t *testing.T) {
	metrics := &StageMetrics{Bayesian: testBayesianReport(), Markov: testMarkovReport()}
	report, err := BuildReport("run-1", metrics)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "reports", "evaluation.csv")
	require.NoError(t, WriteComparisonCSV(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Model,Split,ErrorRate,Accuracy,Detail")
	assert.Contains(t, content, "bayesian,validation,0.380000,0.620000")
	assert.Contains(t, content, "markov,test,0.490000")

	lines := strings.Split(strings.TrimSpace(content), "\n")
	assert.Len(t, lines, 4, "header plus three rows")
}

func TestWriteWorkbook(t *testing.T) {
	metrics := &StageMetrics{
		Bayesian: testBayesianReport(),
		Markov:   testMarkovReport(),
		Missing:  []string{"hmm"},
	}
	report, err := BuildReport("run-1", metrics)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "reports", "evaluation.xlsx")
	require.NoError(t, WriteWorkbook(path, report, metrics))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.NotEmpty(t, summary)
	assert.Equal(t, []string{"Model", "Split", "Error rate", "Accuracy", "Detail"}, summary[0])
	assert.Equal(t, ModelBayesian, summary[1][0])

	last := summary[len(summary)-1]
	assert.Equal(t, "Best model", last[0])
	assert.Equal(t, ModelBayesian, last[1])

	metricRows, err := f.GetRows(metricsSheet)
	require.NoError(t, err)
	var hmmStatus string
	for _, row := range metricRows {
		if len(row) >= 3 && row[0] == "hmm" && row[1] == "status" {
			hmmStatus = row[2]
		}
	}
	assert.Equal(t, "not run", hmmStatus)
}
