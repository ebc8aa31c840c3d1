package optimizer

import (
	"context"
	"errors"
	"time"

	"github.com/teilomillet/promptsmith/dispatch"
	"github.com/teilomillet/promptsmith/metrics"
	"github.com/teilomillet/promptsmith/rubric"
	"github.com/teilomillet/promptsmith/types"
	"github.com/teilomillet/promptsmith/utils"
)

// ErrNoRubric is returned when the grader reply holds no usable rubric JSON.
var ErrNoRubric = errors.New("grader reply contained no rubric")

// Batcher runs conversations concurrently with retries. *dispatch.Dispatcher
// implements it.
type Batcher interface {
	Dispatch(ctx context.Context, convs []types.Conversation, temperature float64, model string, maxRetries int, retryInterval time.Duration) ([]string, error)
}

// Record is one scored iteration. Records are never changed once appended.
type Record struct {
	Prompt     string         `json:"prompt"`
	Completion string         `json:"completion"`
	Score      float64        `json:"score"`
	Feedback   *rubric.Rubric `json:"feedback"`
}

// Result is the outcome of a refinement run.
type Result struct {
	RunID          string   `json:"run_id"`
	OriginalPrompt string   `json:"original_prompt"`
	FinalPrompt    string   `json:"final_prompt"`
	History        []Record `json:"history"`
	GoalMet        bool     `json:"goal_met"`
	Iterations     int      `json:"iterations"`
	BestScore      float64  `json:"best_score"`
	BestPrompt     string   `json:"best_prompt"`
}

type OptimizerOption func(*PromptOptimizer)

type IterationCallback func(iteration int, record Record)

type PromptOptimizer struct {
	executor          dispatch.Runner
	batcher           Batcher
	cfg               Config
	logger            utils.Logger
	debugManager      *utils.DebugManager
	metrics           *metrics.Metrics
	iterationCallback IterationCallback
	history           []Record
}
