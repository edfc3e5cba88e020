package hmm

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// SchemaVersion guards persisted model files against format drift.
const SchemaVersion = 1

// varianceFloor keeps EM from collapsing a state onto a single point.
const varianceFloor = 1e-10

// Model is a fitted diagonal-covariance Gaussian HMM.
type Model struct {
	SchemaVersion int         `json:"schema_version"`
	States        int         `json:"states"`
	Features      []string    `json:"features"`
	Initial       []float64   `json:"initial"`
	Transition    [][]float64 `json:"transition"`
	Means         [][]float64 `json:"means"`     // [state][feature]
	Variances     [][]float64 `json:"variances"` // [state][feature]

	LogLikelihood float64 `json:"log_likelihood"`
	BIC           float64 `json:"bic"`
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`
	Seed          int64   `json:"seed"`
	TrainRows     int     `json:"train_rows"`
}

// Validate checks the structural invariants of a model: square
// row-stochastic transition matrix, normalized initial distribution,
// one mean and variance per state and feature.
func (m *Model) Validate() error {
	if m.States < 2 {
		return fmt.Errorf("model has %d states, need at least 2", m.States)
	}
	if len(m.Features) == 0 {
		return fmt.Errorf("model has no features")
	}
	if len(m.Initial) != m.States || len(m.Transition) != m.States ||
		len(m.Means) != m.States || len(m.Variances) != m.States {
		return fmt.Errorf("model parameter shapes do not match %d states", m.States)
	}

	if err := checkDistribution("initial distribution", m.Initial); err != nil {
		return err
	}
	for s, row := range m.Transition {
		if len(row) != m.States {
			return fmt.Errorf("transition row %d has %d entries, want %d", s, len(row), m.States)
		}
		if err := checkDistribution(fmt.Sprintf("transition row %d", s), row); err != nil {
			return err
		}
	}
	for s := 0; s < m.States; s++ {
		if len(m.Means[s]) != len(m.Features) || len(m.Variances[s]) != len(m.Features) {
			return fmt.Errorf("state %d parameters do not match %d features", s, len(m.Features))
		}
		for f, v := range m.Variances[s] {
			if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("state %d feature %d has invalid variance %v", s, f, v)
			}
		}
	}
	return nil
}

func checkDistribution(name string, p []float64) error {
	sum := 0.0
	for _, v := range p {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%s has invalid probability %v", name, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%s sums to %v, want 1", name, sum)
	}
	return nil
}

// Save writes the model as indented JSON, creating parent directories.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model %s: %w", path, err)
	}
	return nil
}

// Load reads a persisted model and rejects unknown schema versions.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", path, err)
	}
	if model.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("model %s has schema version %d, this build reads %d",
			path, model.SchemaVersion, SchemaVersion)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("model %s is invalid: %w", path, err)
	}
	return &model, nil
}
