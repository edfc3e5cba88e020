package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the pipeline paths
// This is the single source of truth for ALL file paths in the pipeline
type Paths struct {
	ExecutableDir   string
	DataDir         string
	RawDir          string
	ProcessedDir    string
	CleanedDir      string
	StatesDir       string
	ModelsDir       string
	PlotsDir        string
	RegimePlotsDir  string
	NetworkPlotsDir string
	EvalPlotsDir    string
	ReportsDir      string
	MetricsDir      string
	LogsDir         string

	// Well-known pipeline artifacts
	ProcessedCSV      string
	ManifestFile      string
	HMMModelFile      string
	BayesianModelFile string
	MarkovModelFile   string
	EvaluationCSV     string
	EvaluationXLSX    string
}

// GetPaths returns the pipeline paths relative to the executable location
// All paths are ALWAYS relative to the executable directory, never the current working directory
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	// Get the directory containing the executable
	exeDir := filepath.Dir(exe)

	// All paths are relative to the executable directory so every stage
	// binary sees the same artifact tree regardless of working directory.
	// Directory structure:
	// dist/
	//   ├── data/
	//   │   ├── raw/           (per-symbol OHLCV downloads)
	//   │   ├── processed/     (merged feature table)
	//   │   ├── cleaned/       (train/validation/test splits)
	//   │   ├── hmm/           (discretized regime state tables)
	//   │   └── manifest.jsonl (one record per stage run)
	//   ├── models/            (fitted model JSON files)
	//   ├── plots/             (regime, network and evaluation charts)
	//   ├── reports/           (metrics JSON + final comparison)
	//   └── logs/              (pipeline logs)

	dataDir := filepath.Join(exeDir, "data")
	modelsDir := filepath.Join(exeDir, "models")
	plotsDir := filepath.Join(exeDir, "plots")
	reportsDir := filepath.Join(exeDir, "reports")
	metricsDir := filepath.Join(reportsDir, "metrics")

	paths := &Paths{
		ExecutableDir:   exeDir,
		DataDir:         dataDir,
		RawDir:          filepath.Join(dataDir, "raw"),
		ProcessedDir:    filepath.Join(dataDir, "processed"),
		CleanedDir:      filepath.Join(dataDir, "cleaned"),
		StatesDir:       filepath.Join(dataDir, "hmm"),
		ModelsDir:       modelsDir,
		PlotsDir:        plotsDir,
		RegimePlotsDir:  filepath.Join(plotsDir, "regimes"),
		NetworkPlotsDir: filepath.Join(plotsDir, "bayesian"),
		EvalPlotsDir:    filepath.Join(plotsDir, "evaluation"),
		ReportsDir:      reportsDir,
		MetricsDir:      metricsDir,
		LogsDir:         filepath.Join(exeDir, "logs"),

		// Well-known pipeline artifacts
		ProcessedCSV:      filepath.Join(dataDir, "processed", ProcessedFileName),
		ManifestFile:      filepath.Join(dataDir, ManifestFileName),
		HMMModelFile:      filepath.Join(modelsDir, HMMModelFileName),
		BayesianModelFile: filepath.Join(modelsDir, BayesianModelFileName),
		MarkovModelFile:   filepath.Join(modelsDir, MarkovModelFileName),
		EvaluationCSV:     filepath.Join(reportsDir, EvaluationCSVName),
		EvaluationXLSX:    filepath.Join(reportsDir, EvaluationXLSXName),
	}

	return paths, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.ProcessedDir,
		p.CleanedDir,
		p.StatesDir,
		p.ModelsDir,
		p.PlotsDir,
		p.RegimePlotsDir,
		p.NetworkPlotsDir,
		p.EvalPlotsDir,
		p.ReportsDir,
		p.MetricsDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// GetRelativePath returns a path relative to the executable directory
func (p *Paths) GetRelativePath(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetRawCSVPath returns the path for a per-symbol raw download
// (e.g. BTC-USD.csv)
func (p *Paths) GetRawCSVPath(symbol string) string {
	return filepath.Join(p.RawDir, fmt.Sprintf("%s.csv", symbol))
}

// GetCleanedSplitPath returns the path for a cleaned split CSV
// (e.g. train_data.csv)
func (p *Paths) GetCleanedSplitPath(split string) string {
	return filepath.Join(p.CleanedDir, fmt.Sprintf("%s_data.csv", split))
}

// GetStateSplitPath returns the path for a discretized regime state
// table (e.g. train_data.csv under data/hmm)
func (p *Paths) GetStateSplitPath(split string) string {
	return filepath.Join(p.StatesDir, fmt.Sprintf("%s_data.csv", split))
}

// GetRegimePlotPath returns the path for a regime overlay chart
// (e.g. regimes_train.png)
func (p *Paths) GetRegimePlotPath(split string) string {
	return filepath.Join(p.RegimePlotsDir, fmt.Sprintf("regimes_%s.png", split))
}

// GetNetworkPlotPath returns the path for the Bayesian network graph chart
func (p *Paths) GetNetworkPlotPath() string {
	return filepath.Join(p.NetworkPlotsDir, "network.png")
}

// GetEvalPlotPath returns the path for an evaluation chart
func (p *Paths) GetEvalPlotPath(name string) string {
	return filepath.Join(p.EvalPlotsDir, fmt.Sprintf("%s.png", name))
}

// GetMetricsPath returns the path for a stage metrics file
func (p *Paths) GetMetricsPath(filename string) string {
	return filepath.Join(p.MetricsDir, filename)
}

// GetModelPath returns the path for a fitted model file
func (p *Paths) GetModelPath(filename string) string {
	return filepath.Join(p.ModelsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("raw", p.RawDir),
			slog.String("processed", p.ProcessedDir),
			slog.String("cleaned", p.CleanedDir),
			slog.String("states", p.StatesDir),
			slog.String("models", p.ModelsDir),
			slog.String("plots", p.PlotsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("artifacts",
			slog.String("processed_csv", p.ProcessedCSV),
			slog.String("manifest", p.ManifestFile),
			slog.String("hmm_model", p.HMMModelFile),
			slog.String("bayesian_model", p.BayesianModelFile),
			slog.String("markov_model", p.MarkovModelFile),
			slog.String("evaluation_csv", p.EvaluationCSV),
		))
}
