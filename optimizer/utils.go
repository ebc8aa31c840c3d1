package optimizer

import (
	"github.com/teilomillet/promptsmith/metrics"
	"github.com/teilomillet/promptsmith/utils"
)

func WithLogger(logger utils.Logger) OptimizerOption {
	return func(po *PromptOptimizer) {
		po.logger = logger
	}
}

func WithDebugManager(dm *utils.DebugManager) OptimizerOption {
	return func(po *PromptOptimizer) {
		po.debugManager = dm
	}
}

func WithIterationCallback(callback IterationCallback) OptimizerOption {
	return func(po *PromptOptimizer) {
		po.iterationCallback = callback
	}
}

func WithMetrics(m *metrics.Metrics) OptimizerOption {
	return func(po *PromptOptimizer) {
		po.metrics = m
	}
}
