package optimizer

import (
	"context"

	"github.com/teilomillet/promptsmith/dispatch"
)

// Run refines cfg.Prompt with a fresh PromptOptimizer.
func Run(ctx context.Context, executor dispatch.Runner, batcher Batcher, cfg Config, opts ...OptimizerOption) (*Result, error) {
	return NewPromptOptimizer(executor, batcher, cfg, opts...).Run(ctx)
}
