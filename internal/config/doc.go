// Package config provides centralized configuration management for the
// research pipeline. It handles loading configuration from multiple
// sources, validation, and provides a type-safe API for accessing
// configuration values throughout the stage binaries.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern WQBT_* for namespacing:
//
//	WQBT_CRAWLER_SYMBOLS=BTC-USD,ETH-USD
//	WQBT_CRAWLER_REQUESTS_PER_SECOND=2
//	WQBT_HMM_SEED=42
//	WQBT_LOGGING_LEVEL=info
//	WQBT_CLEANING_TRAIN_RATIO=0.7
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	rawPath := paths.GetRawCSVPath("BTC-USD")
//	trainPath := paths.GetCleanedSplitPath("train")
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Required fields are present
//	- Values are within acceptable ranges
//	- Split ratios leave room for a test partition
//	- Indicator windows are properly ordered
//
// # Usage
//
// Load configuration at stage startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
