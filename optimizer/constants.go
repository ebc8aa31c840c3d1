package optimizer

import "time"

// Default configuration values
const (
	DefaultModel         = "gpt-3.5-turbo"
	DefaultTemperature   = 0.1
	DefaultMaxIterations = 5
	DefaultThreshold     = 80
	DefaultSeparator     = "#####"
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 5 * time.Second
)

// rubricIndent is the indentation of JSON documents embedded in prompts.
const rubricIndent = "    "
