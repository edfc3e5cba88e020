package domain

import "time"

// Metric file names under reports/metrics. The evaluation stage
// discovers stage outputs by these names.
const (
	HMMMetricsFile      = "hmm.json"
	BayesianMetricsFile = "bayesian.json"
	MarkovMetricsFile   = "markov.json"
)

// HMMReport summarises a fitted regime model. Written by the HMM
// stage and consumed by the evaluation stage.
type HMMReport struct {
	RunID         string            `json:"run_id" validate:"required"`
	GeneratedAt   time.Time         `json:"generated_at"`
	States        int               `json:"states" validate:"min=2"`
	Features      []string          `json:"features" validate:"required,min=1"`
	TrainRows     int               `json:"train_rows" validate:"min=1"`
	LogLikelihood float64           `json:"log_likelihood"`
	BIC           float64           `json:"bic"`
	Iterations    int               `json:"iterations" validate:"min=1"`
	Converged     bool              `json:"converged"`
	Candidates    []HMMCandidate    `json:"candidates,omitempty"`
	RegimeCounts  map[string][]int  `json:"regime_counts"` // split name -> count per state
	StateSummary  []HMMStateSummary `json:"state_summary"`
}

// HMMCandidate records one state count tried during model selection.
type HMMCandidate struct {
	States        int     `json:"states"`
	LogLikelihood float64 `json:"log_likelihood"`
	BIC           float64 `json:"bic"`
	Selected      bool    `json:"selected"`
}

// HMMStateSummary describes one hidden state after volatility ordering.
type HMMStateSummary struct {
	State          int     `json:"state"`
	MeanReturn     float64 `json:"mean_return"`
	MeanVolatility float64 `json:"mean_volatility"`
	Occupancy      float64 `json:"occupancy"` // share of train rows decoded into this state
}

// BayesianReport summarises structure search and validation scoring
// for the Bayesian network stage.
type BayesianReport struct {
	RunID           string              `json:"run_id" validate:"required"`
	GeneratedAt     time.Time           `json:"generated_at"`
	BestMethod      string              `json:"best_method" validate:"required"`
	BestMaxIter     int                 `json:"best_max_iter" validate:"min=1"`
	BestScore       float64             `json:"best_score"`
	Nodes           []string            `json:"nodes"`
	Edges           [][2]string         `json:"edges"`
	ValidationError float64             `json:"validation_error" validate:"min=0,max=1"`
	Candidates      []BayesianCandidate `json:"candidates,omitempty"`
}

// BayesianCandidate records one (score method, iteration cap) pair
// tried during structure search.
type BayesianCandidate struct {
	Method   string  `json:"method"`
	MaxIter  int     `json:"max_iter"`
	Score    float64 `json:"score"`
	Edges    int     `json:"edges"`
	Selected bool    `json:"selected"`
}

// MarkovReport summarises the first-order regime chain fitted on the
// decoded HMM states.
type MarkovReport struct {
	RunID             string       `json:"run_id" validate:"required"`
	GeneratedAt       time.Time    `json:"generated_at"`
	States            int          `json:"states" validate:"min=2"`
	Smoothing         float64      `json:"smoothing" validate:"min=0"`
	TransitionMatrix  [][]float64  `json:"transition_matrix"`
	Stationary        []float64    `json:"stationary"`
	ExpectedDurations []float64    `json:"expected_durations"`
	RegimeStats       []RegimeStat `json:"regime_stats"`
	ValidationError   float64      `json:"validation_error" validate:"min=0,max=1"`
	TestError         float64      `json:"test_error" validate:"min=0,max=1"`
}

// RegimeStat joins one decoded regime against the cleaned training
// data it occupied.
type RegimeStat struct {
	State          int     `json:"state"`
	Days           int     `json:"days"`
	MeanReturn     float64 `json:"mean_return"`
	MeanVolatility float64 `json:"mean_volatility"`
}

// EvaluationRow is one line of the cross-model comparison table.
type EvaluationRow struct {
	Model     string  `json:"model"`
	Split     string  `json:"split"`
	ErrorRate float64 `json:"error_rate"`
	Accuracy  float64 `json:"accuracy"`
	Detail    string  `json:"detail,omitempty"`
}

// EvaluationReport is the final artifact of the pipeline: every model
// scored on the same shifted-state error metric, best model first.
type EvaluationReport struct {
	RunID       string          `json:"run_id" validate:"required"`
	GeneratedAt time.Time       `json:"generated_at"`
	Rows        []EvaluationRow `json:"rows" validate:"required,dive"`
	BestModel   string          `json:"best_model"`
}
