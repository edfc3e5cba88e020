package config

import "time"

// Application constants - all hardcoded values for the research pipeline
const (
	// Application Info
	AppName    = "WQBT Research Pipeline"
	AppVersion = "1.0.0"

	// Environment variable namespace (WQBT_LOGGING_LEVEL, WQBT_CRAWLER_SYMBOLS, ...)
	EnvPrefix = "WQBT"

	// Stage names as recorded in the manifest and logs
	StageCrawl      = "crawl_data"
	StagePreprocess = "preprocess_data"
	StageClean      = "clean_data"
	StageHMM        = "model_hmm"
	StageRegimePlot = "regime_switch_plot"
	StageBayesian   = "bayesian"
	StageMarkov     = "markov"
	StageEvaluate   = "eval"

	// Default instrument
	DefaultSymbol = "BTC-USD"

	// Date format used in all CSV artifacts and CLI flags
	DateLayout = "2006-01-02"

	// Well-known artifact file names
	ProcessedFileName     = "market_data.csv"
	ManifestFileName      = "manifest.jsonl"
	HMMModelFileName      = "hmm_model.json"
	BayesianModelFileName = "bayesian_model.json"
	MarkovModelFileName   = "markov_model.json"
	EvaluationCSVName     = "evaluation.csv"
	EvaluationXLSXName    = "evaluation.xlsx"

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	CrawlMaxElapsedTime = 2 * time.Minute

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultModelsDir  = "models"
	DefaultPlotsDir   = "plots"
	DefaultReportsDir = "reports"
	DefaultLogsDir    = "logs"

	// Numeric guards shared across stages
	MinSplitRows = 10 // smallest usable split after cleaning
)
