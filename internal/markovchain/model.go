package markovchain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SchemaVersion gates persisted model files.
const SchemaVersion = 1

// Model bundles the two chains the stage fits: regimes and discrete
// close states.
type Model struct {
	SchemaVersion int    `json:"schema_version"`
	RegimeChain   *Chain `json:"regime_chain"`
	CloseChain    *Chain `json:"close_chain"`
	TrainRows     int    `json:"train_rows"`
}

// Validate checks both chains.
func (m *Model) Validate() error {
	if m.RegimeChain == nil || m.CloseChain == nil {
		return fmt.Errorf("model is missing a chain")
	}
	if err := m.RegimeChain.Validate(); err != nil {
		return fmt.Errorf("regime chain: %w", err)
	}
	if err := m.CloseChain.Validate(); err != nil {
		return fmt.Errorf("close chain: %w", err)
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
