package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete pipeline configuration
type Config struct {
	Crawler  CrawlerConfig  `yaml:"crawler" envconfig:"CRAWLER"`
	Features FeaturesConfig `yaml:"features" envconfig:"FEATURES"`
	Cleaning CleaningConfig `yaml:"cleaning" envconfig:"CLEANING"`
	HMM      HMMConfig      `yaml:"hmm" envconfig:"HMM"`
	Bayes    BayesConfig    `yaml:"bayes" envconfig:"BAYES"`
	Markov   MarkovConfig   `yaml:"markov" envconfig:"MARKOV"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
}

// CrawlerConfig contains market data download configuration
type CrawlerConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://query1.finance.yahoo.com" validate:"required,url"`
	Symbols           []string      `yaml:"symbols" envconfig:"SYMBOLS" default:"BTC-USD" validate:"required,min=1"`
	Interval          string        `yaml:"interval" envconfig:"INTERVAL" default:"1d" validate:"oneof=1d 1wk 1mo"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" default:"2" validate:"gt=0"`
	Burst             int           `yaml:"burst" envconfig:"BURST" default:"1" validate:"min=1"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s" validate:"gt=0"`
	MaxElapsedTime    time.Duration `yaml:"max_elapsed_time" envconfig:"MAX_ELAPSED_TIME" default:"2m" validate:"gt=0"`
	Concurrency       int           `yaml:"concurrency" envconfig:"CONCURRENCY" default:"2" validate:"min=1"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT" default:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"`
}

// FeaturesConfig contains technical indicator window configuration
type FeaturesConfig struct {
	VolatilityWindow int `yaml:"volatility_window" envconfig:"VOLATILITY_WINDOW" default:"20" validate:"min=2"`
	RSIPeriod        int `yaml:"rsi_period" envconfig:"RSI_PERIOD" default:"14" validate:"min=2"`
	MACDFast         int `yaml:"macd_fast" envconfig:"MACD_FAST" default:"12" validate:"min=1"`
	MACDSlow         int `yaml:"macd_slow" envconfig:"MACD_SLOW" default:"26" validate:"min=2"`
	MACDSignal       int `yaml:"macd_signal" envconfig:"MACD_SIGNAL" default:"9" validate:"min=1"`
	ATRPeriod        int `yaml:"atr_period" envconfig:"ATR_PERIOD" default:"14" validate:"min=1"`
	EMAFast          int `yaml:"ema_fast" envconfig:"EMA_FAST" default:"12" validate:"min=1"`
	EMASlow          int `yaml:"ema_slow" envconfig:"EMA_SLOW" default:"26" validate:"min=2"`
	VolumeWindow     int `yaml:"volume_window" envconfig:"VOLUME_WINDOW" default:"20" validate:"min=2"`
}

// CleaningConfig contains gap filling, outlier and split configuration
type CleaningConfig struct {
	TrainRatio        float64 `yaml:"train_ratio" envconfig:"TRAIN_RATIO" default:"0.7" validate:"gt=0,lt=1"`
	ValidationRatio   float64 `yaml:"validation_ratio" envconfig:"VALIDATION_RATIO" default:"0.15" validate:"gt=0,lt=1"`
	FillGaps          bool    `yaml:"fill_gaps" envconfig:"FILL_GAPS" default:"true"`
	WinsorizeQuantile float64 `yaml:"winsorize_quantile" envconfig:"WINSORIZE_QUANTILE" default:"0.01" validate:"min=0,lt=0.5"`
}

// HMMConfig contains regime model fitting configuration
type HMMConfig struct {
	States        int     `yaml:"states" envconfig:"STATES" default:"0" validate:"min=0"`
	MinStates     int     `yaml:"min_states" envconfig:"MIN_STATES" default:"2" validate:"min=2"`
	MaxStates     int     `yaml:"max_states" envconfig:"MAX_STATES" default:"4" validate:"min=2"`
	MaxIterations int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" default:"200" validate:"min=1"`
	Tolerance     float64 `yaml:"tolerance" envconfig:"TOLERANCE" default:"1e-6" validate:"gt=0"`
	Restarts      int     `yaml:"restarts" envconfig:"RESTARTS" default:"5" validate:"min=1"`
	Seed          int64   `yaml:"seed" envconfig:"SEED" default:"42"`
	Bins          int     `yaml:"bins" envconfig:"BINS" default:"3" validate:"min=2"`
}

// BayesConfig contains Bayesian network structure search configuration
type BayesConfig struct {
	Methods       []string `yaml:"methods" envconfig:"METHODS" default:"bic,bdeu,bds" validate:"required,min=1"`
	MaxIterations []int    `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" default:"5,10" validate:"required,min=1"`
	ESS           float64  `yaml:"ess" envconfig:"ESS" default:"10" validate:"gt=0"`
}

// MarkovConfig contains regime transition chain configuration
type MarkovConfig struct {
	Smoothing float64 `yaml:"smoothing" envconfig:"SMOOTHING" default:"1" validate:"min=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pipeline.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ModelsDir     string `yaml:"models_dir" envconfig:"MODELS_DIR" default:"models"`
	PlotsDir      string `yaml:"plots_dir" envconfig:"PLOTS_DIR" default:"plots"`
	ReportsDir    string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"reports"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

var structValidator = validator.New()

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Resolve relative paths
	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Validate paths
	if err := cfg.ValidatePaths(); err != nil {
		return nil, fmt.Errorf("path validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	// Crawler config
	if envConfig.Crawler.BaseURL == "" {
		envConfig.Crawler.BaseURL = fileConfig.Crawler.BaseURL
	}
	if len(envConfig.Crawler.Symbols) == 0 {
		envConfig.Crawler.Symbols = fileConfig.Crawler.Symbols
	}
	if envConfig.Crawler.Interval == "" {
		envConfig.Crawler.Interval = fileConfig.Crawler.Interval
	}
	if envConfig.Crawler.RequestsPerSecond == 0 {
		envConfig.Crawler.RequestsPerSecond = fileConfig.Crawler.RequestsPerSecond
	}
	if envConfig.Crawler.Burst == 0 {
		envConfig.Crawler.Burst = fileConfig.Crawler.Burst
	}
	if envConfig.Crawler.Timeout == 0 {
		envConfig.Crawler.Timeout = fileConfig.Crawler.Timeout
	}
	if envConfig.Crawler.MaxElapsedTime == 0 {
		envConfig.Crawler.MaxElapsedTime = fileConfig.Crawler.MaxElapsedTime
	}
	if envConfig.Crawler.Concurrency == 0 {
		envConfig.Crawler.Concurrency = fileConfig.Crawler.Concurrency
	}

	// Features config
	if envConfig.Features.VolatilityWindow == 0 {
		envConfig.Features.VolatilityWindow = fileConfig.Features.VolatilityWindow
	}
	if envConfig.Features.RSIPeriod == 0 {
		envConfig.Features.RSIPeriod = fileConfig.Features.RSIPeriod
	}
	if envConfig.Features.ATRPeriod == 0 {
		envConfig.Features.ATRPeriod = fileConfig.Features.ATRPeriod
	}
	if envConfig.Features.EMAFast == 0 {
		envConfig.Features.EMAFast = fileConfig.Features.EMAFast
	}
	if envConfig.Features.EMASlow == 0 {
		envConfig.Features.EMASlow = fileConfig.Features.EMASlow
	}

	// Cleaning config
	if envConfig.Cleaning.TrainRatio == 0 {
		envConfig.Cleaning.TrainRatio = fileConfig.Cleaning.TrainRatio
	}
	if envConfig.Cleaning.ValidationRatio == 0 {
		envConfig.Cleaning.ValidationRatio = fileConfig.Cleaning.ValidationRatio
	}
	if envConfig.Cleaning.WinsorizeQuantile == 0 {
		envConfig.Cleaning.WinsorizeQuantile = fileConfig.Cleaning.WinsorizeQuantile
	}

	// HMM config
	if envConfig.HMM.MinStates == 0 {
		envConfig.HMM.MinStates = fileConfig.HMM.MinStates
	}
	if envConfig.HMM.MaxStates == 0 {
		envConfig.HMM.MaxStates = fileConfig.HMM.MaxStates
	}
	if envConfig.HMM.MaxIterations == 0 {
		envConfig.HMM.MaxIterations = fileConfig.HMM.MaxIterations
	}
	if envConfig.HMM.Tolerance == 0 {
		envConfig.HMM.Tolerance = fileConfig.HMM.Tolerance
	}
	if envConfig.HMM.Restarts == 0 {
		envConfig.HMM.Restarts = fileConfig.HMM.Restarts
	}
	if envConfig.HMM.Bins == 0 {
		envConfig.HMM.Bins = fileConfig.HMM.Bins
	}

	// Bayes config
	if len(envConfig.Bayes.Methods) == 0 {
		envConfig.Bayes.Methods = fileConfig.Bayes.Methods
	}
	if len(envConfig.Bayes.MaxIterations) == 0 {
		envConfig.Bayes.MaxIterations = fileConfig.Bayes.MaxIterations
	}
	if envConfig.Bayes.ESS == 0 {
		envConfig.Bayes.ESS = fileConfig.Bayes.ESS
	}

	// Markov config
	if envConfig.Markov.Smoothing == 0 {
		envConfig.Markov.Smoothing = fileConfig.Markov.Smoothing
	}

	// Logging config
	if envConfig.Logging.Level == "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if envConfig.Logging.Format == "" {
		envConfig.Logging.Format = fileConfig.Logging.Format
	}
	if envConfig.Logging.Output == "" {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if envConfig.Logging.FilePath == "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}

	return envConfig
}

// resolvePaths sets up the executable directory and validates paths
func (c *Config) resolvePaths() error {
	// Use centralized paths system to get all paths
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	// Update config with resolved paths from centralized system
	c.Paths.ExecutableDir = paths.ExecutableDir

	return nil
}

// ValidatePaths validates that critical paths exist or can be created
func (c *Config) ValidatePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	// Ensure all required directories exist
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Cleaning.TrainRatio+c.Cleaning.ValidationRatio >= 1 {
		return fmt.Errorf("train ratio %.2f and validation ratio %.2f leave no test data",
			c.Cleaning.TrainRatio, c.Cleaning.ValidationRatio)
	}

	if c.HMM.MinStates > c.HMM.MaxStates {
		return fmt.Errorf("hmm min states %d exceeds max states %d", c.HMM.MinStates, c.HMM.MaxStates)
	}
	if c.HMM.States != 0 && (c.HMM.States < 2) {
		return fmt.Errorf("hmm states must be 0 (auto) or at least 2, got %d", c.HMM.States)
	}

	if c.Features.EMAFast >= c.Features.EMASlow {
		return fmt.Errorf("ema fast window %d must be below slow window %d", c.Features.EMAFast, c.Features.EMASlow)
	}
	if c.Features.MACDFast >= c.Features.MACDSlow {
		return fmt.Errorf("macd fast window %d must be below slow window %d", c.Features.MACDFast, c.Features.MACDSlow)
	}

	for _, iters := range c.Bayes.MaxIterations {
		if iters < 1 {
			return fmt.Errorf("bayes max iterations must be positive, got %d", iters)
		}
	}
	for _, method := range c.Bayes.Methods {
		switch method {
		case "bic", "bdeu", "bds":
		default:
			return fmt.Errorf("unknown bayes score method %q (want bic, bdeu or bds)", method)
		}
	}

	// Logging is always JSON to file plus console
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output != "both" && c.Logging.Output != "file" {
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/pipeline.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
		"../../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			BaseURL:           "https://query1.finance.yahoo.com",
			Symbols:           []string{DefaultSymbol},
			Interval:          "1d",
			RequestsPerSecond: 2,
			Burst:             1,
			Timeout:           30 * time.Second,
			MaxElapsedTime:    2 * time.Minute,
			Concurrency:       2,
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
		},
		Features: FeaturesConfig{
			VolatilityWindow: 20,
			RSIPeriod:        14,
			MACDFast:         12,
			MACDSlow:         26,
			MACDSignal:       9,
			ATRPeriod:        14,
			EMAFast:          12,
			EMASlow:          26,
			VolumeWindow:     20,
		},
		Cleaning: CleaningConfig{
			TrainRatio:        0.7,
			ValidationRatio:   0.15,
			FillGaps:          true,
			WinsorizeQuantile: 0.01,
		},
		HMM: HMMConfig{
			States:        0,
			MinStates:     2,
			MaxStates:     4,
			MaxIterations: 200,
			Tolerance:     1e-6,
			Restarts:      5,
			Seed:          42,
			Bins:          3,
		},
		Bayes: BayesConfig{
			Methods:       []string{"bic", "bdeu", "bds"},
			MaxIterations: []int{5, 10},
			ESS:           10,
		},
		Markov: MarkovConfig{
			Smoothing: 1,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "both",
			FilePath:    "logs/pipeline.log",
			Development: false,
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ModelsDir:  "models",
			PlotsDir:   "plots",
			ReportsDir: "reports",
			LogsDir:    "logs",
		},
	}
}
