// Package promptsmith refines prompts against a scoring rubric using an LLM.
// This file re-exports configuration types and functions from the config package
// to provide a clean, centralized API.
package promptsmith

import (
	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/utils"
)

// Re-export core configuration types for easier access
type (
	// Config represents the complete configuration for a refinement engine.
	// See config.Config for the environment variables behind each field.
	//
	// Example usage:
	//   cfg := NewConfig()
	//   ApplyOptions(cfg, SetProvider("openai"), SetModel("gpt-4"))
	Config = config.Config

	// ConfigOption is a function type that modifies a Config instance.
	ConfigOption = config.ConfigOption

	// LogLevel defines the verbosity of logging output.
	LogLevel = utils.LogLevel
)

// Re-export core configuration functions
var (
	// LoadConfig loads configuration from environment variables. API keys are
	// picked up from every *_API_KEY variable (e.g., OPENAI_API_KEY).
	LoadConfig = config.LoadConfig

	// LoadConfigFile loads the environment and then overlays a YAML file.
	LoadConfigFile = config.LoadFile

	// ApplyOptions applies a series of ConfigOption functions to a Config instance.
	ApplyOptions = config.ApplyOptions

	// NewConfig creates a new Config with default values
	NewConfig = config.NewConfig
)

// Re-export ConfigOption functions for configuration modification.
var (
	// Provider configuration
	SetProvider     = config.SetProvider     // Sets the LLM provider (e.g., "openai", "anthropic")
	SetModel        = config.SetModel        // Sets the model name for the selected provider
	SetEndpoint     = config.SetEndpoint     // Overrides the provider endpoint
	SetAPIKey       = config.SetAPIKey       // Sets the API key for the current provider
	SetExtraHeaders = config.SetExtraHeaders // Sets additional HTTP headers

	// Generation parameters
	SetTemperature = config.SetTemperature // Controls randomness in generation
	SetMaxTokens   = config.SetMaxTokens   // Sets maximum tokens to generate

	// Runtime configuration
	SetTimeout       = config.SetTimeout       // Sets request timeout duration
	SetMaxRetries    = config.SetMaxRetries    // Sets attempts per dispatched request
	SetRetryInterval = config.SetRetryInterval // Sets delay between attempts
	SetLogLevel      = config.SetLogLevel      // Sets logging verbosity
	SetCountTokens   = config.SetCountTokens   // Logs prompt token counts
	SetCache         = config.SetCache         // Selects the cache backend and path
	SetDebugDir      = config.SetDebugDir      // Writes per-iteration dumps to a directory
	SetMetricsAddr   = config.SetMetricsAddr   // Serves Prometheus metrics on an address

	// Refinement
	SetMaxIterations = config.SetMaxIterations // Bounds the refinement loop
	SetThreshold     = config.SetThreshold     // Rubric total that ends a run early
	SetSeparator     = config.SetSeparator     // Section separator inside prompts
	SetRubricPath    = config.SetRubricPath    // Loads the rubric from a JSON file
)

// LogLevel constants define available logging verbosity levels
const (
	LogLevelOff   = utils.LogLevelOff   // Disables all logging
	LogLevelError = utils.LogLevelError // Logs only errors
	LogLevelWarn  = utils.LogLevelWarn  // Logs warnings and errors
	LogLevelInfo  = utils.LogLevelInfo  // Logs info, warnings, and errors
	LogLevelDebug = utils.LogLevelDebug // Logs all messages including debug
)
