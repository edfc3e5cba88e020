// Package shared provides common utilities and test helpers used across
// the pipeline codebase. It serves as a central location for shared
// functionality that doesn't belong to any specific stage.
//
// # Structure
//
// - testutil: synthetic market data generators, frame builders and a
// buffered slog handler for log assertions
//
// # Usage Guidelines
//
// This package should only contain:
//
// 1. Test utilities used by multiple packages
// 2. Generic helper functions with no stage-specific logic
//
// It should NOT contain business logic, model code, or circular
// dependencies with other internal packages.
package shared
