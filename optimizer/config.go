// Package optimizer iteratively refines a prompt: it generates a completion,
// has a grader model fill in a rubric, and asks the model to rewrite the prompt
// until the rubric total reaches a threshold or the iterations run out.
package optimizer

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/teilomillet/promptsmith/rubric"
)

// Config holds everything one refinement run needs. It replaces any process-wide
// state: two runs with different configs never interfere.
type Config struct {
	// Prompt is the initial prompt text to be refined
	Prompt string `validate:"required"`

	// Data is optional input the prompt operates on. Empty means none.
	Data string

	// Rubric is sent to the grader with placeholder scores
	Rubric *rubric.Rubric `validate:"required"`

	Model       string  `validate:"required"`
	Temperature float64 `validate:"gte=0,lte=2"`

	// MaxIterations bounds the number of generate/score rounds
	MaxIterations int `validate:"gte=1"`

	// Threshold is the rubric total at which the run stops early
	Threshold float64

	// Separator delimits the sections of every prompt sent to the model
	Separator string `validate:"required"`

	// MaxRetries and RetryInterval drive the dispatcher for grader and
	// refinement calls
	MaxRetries    int           `validate:"gte=1"`
	RetryInterval time.Duration `validate:"gte=0"`
}

// DefaultConfig returns a configuration with the default rubric.
//
// Default values:
//   - Model: gpt-3.5-turbo at temperature 0.1
//   - MaxIterations: 5
//   - Threshold: 80 (eight criteria scored 1 to 10)
//   - Separator: "#####"
//   - MaxRetries: 3, RetryInterval: 5 seconds
//
// Example usage:
//
//	cfg := DefaultConfig()
//	cfg.Prompt = "Summarize every book ever written."
func DefaultConfig() Config {
	return Config{
		Rubric:        rubric.Default(),
		Model:         DefaultModel,
		Temperature:   DefaultTemperature,
		MaxIterations: DefaultMaxIterations,
		Threshold:     DefaultThreshold,
		Separator:     DefaultSeparator,
		MaxRetries:    DefaultMaxRetries,
		RetryInterval: DefaultRetryInterval,
	}
}

var validate = validator.New()

// Validate checks the config and its rubric.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid optimizer config: %w", err)
	}
	return c.Rubric.Validate()
}
