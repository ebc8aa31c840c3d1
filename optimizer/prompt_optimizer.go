package optimizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/teilomillet/promptsmith/dispatch"
	"github.com/teilomillet/promptsmith/llm"
	"github.com/teilomillet/promptsmith/rubric"
	"github.com/teilomillet/promptsmith/types"
	"github.com/teilomillet/promptsmith/utils"
)

// NewPromptOptimizer wires a run. Completions go through executor; grading and
// refinement go through batcher so they get its retries.
func NewPromptOptimizer(executor dispatch.Runner, batcher Batcher, cfg Config, opts ...OptimizerOption) *PromptOptimizer {
	optimizer := &PromptOptimizer{
		executor: executor,
		batcher:  batcher,
		cfg:      cfg,
		logger:   utils.NewNopLogger(),
		history:  []Record{},
	}

	for _, opt := range opts {
		opt(optimizer)
	}

	return optimizer
}

// Run refines the prompt. Each call starts a fresh history. On failure the
// partial result is returned with the error so the history gathered so far is
// not lost.
func (po *PromptOptimizer) Run(ctx context.Context) (*Result, error) {
	if err := po.cfg.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:          uuid.NewString(),
		OriginalPrompt: po.cfg.Prompt,
		FinalPrompt:    po.cfg.Prompt,
	}
	logger := po.logger
	prompt := po.cfg.Prompt
	po.history = []Record{}

	for i := 1; i <= po.cfg.MaxIterations; i++ {
		logger.Info("Refinement step", "run_id", result.RunID, "iteration", i)

		record, err := po.assessPrompt(ctx, prompt)
		if err != nil {
			result.History = po.GetHistory()
			return result, fmt.Errorf("refinement failed at iteration %d: %w", i, err)
		}

		po.history = append(po.history, record)
		result.Iterations = i
		if i == 1 || record.Score > result.BestScore {
			result.BestScore = record.Score
			result.BestPrompt = prompt
		}

		po.metrics.RecordRefinement(record.Score)
		po.debugManager.SaveIteration(i, record)
		if po.iterationCallback != nil {
			po.iterationCallback(i, record)
		}
		logger.Info("Iteration scored", "run_id", result.RunID, "iteration", i,
			"score", record.Score, "threshold", po.cfg.Threshold)

		if record.Score >= po.cfg.Threshold {
			result.GoalMet = true
			logger.Info("Threshold reached, refinement finished early", "run_id", result.RunID, "iteration", i)
			break
		}
		if i == po.cfg.MaxIterations {
			break
		}

		refined, err := po.refinePrompt(ctx, prompt, record.Score)
		if err != nil {
			result.History = po.GetHistory()
			return result, fmt.Errorf("refinement failed at iteration %d: %w", i, err)
		}
		prompt = refined
		result.FinalPrompt = prompt
	}

	result.History = po.GetHistory()
	return result, nil
}

// assessPrompt generates a completion for prompt and scores it.
func (po *PromptOptimizer) assessPrompt(ctx context.Context, prompt string) (Record, error) {
	completion, err := po.generateCompletion(ctx, prompt)
	if err != nil {
		return Record{}, fmt.Errorf("generate completion: %w", err)
	}

	score, feedback, err := po.scoreCompletion(ctx, prompt, completion)
	if err != nil {
		return Record{}, fmt.Errorf("score completion: %w", err)
	}

	return Record{
		Prompt:     prompt,
		Completion: completion,
		Score:      score,
		Feedback:   feedback.WithoutDescriptions(),
	}, nil
}

func (po *PromptOptimizer) generateCompletion(ctx context.Context, prompt string) (string, error) {
	conv := generateConversation(po.cfg.Separator, prompt, po.cfg.Data)
	po.logConversation("generate_completion", conv)

	completion, err := po.executor.Execute(ctx, conv, po.cfg.Temperature, po.cfg.Model)
	if err != nil {
		return "", err
	}
	po.debugManager.LogResponse("generate_completion", completion)
	return completion, nil
}

func (po *PromptOptimizer) scoreCompletion(ctx context.Context, prompt, completion string) (float64, *rubric.Rubric, error) {
	conv, err := scoreConversation(po.cfg.Separator, prompt, po.cfg.Data, completion, po.cfg.Rubric)
	if err != nil {
		return 0, nil, err
	}
	po.logConversation("score_completion", conv)

	reply, err := po.single(ctx, conv)
	if err != nil {
		return 0, nil, err
	}
	po.debugManager.LogResponse("score_completion", reply)

	var completed rubric.Rubric
	if !llm.ExtractJSONInto(completeFence(reply), &completed) || len(completed.Rubric) == 0 {
		po.logger.Error("Grader reply held no rubric JSON", "reply", reply)
		return 0, nil, ErrNoRubric
	}

	score, err := rubric.SumScores(&completed)
	if err != nil {
		var scoreErr *rubric.ScoreTypeError
		if errors.As(err, &scoreErr) {
			po.logger.Error("Grader left a non-numeric score", "criterion", scoreErr.Criterion, "value", scoreErr.Value)
		}
		return 0, nil, err
	}
	return score, &completed, nil
}

func (po *PromptOptimizer) refinePrompt(ctx context.Context, prompt string, score float64) (string, error) {
	conv, err := refineConversation(po.cfg.Separator, prompt, po.cfg.Data, score, po.cfg.Rubric, po.history)
	if err != nil {
		return "", err
	}
	po.logConversation("refine_prompt", conv)

	refined, err := po.single(ctx, conv)
	if err != nil {
		return "", fmt.Errorf("refine prompt: %w", err)
	}
	po.debugManager.LogResponse("refine_prompt", refined)
	return refined, nil
}

// single dispatches one conversation.
func (po *PromptOptimizer) single(ctx context.Context, conv types.Conversation) (string, error) {
	replies, err := po.batcher.Dispatch(ctx, []types.Conversation{conv},
		po.cfg.Temperature, po.cfg.Model, po.cfg.MaxRetries, po.cfg.RetryInterval)
	if err != nil {
		return "", err
	}
	if len(replies) != 1 {
		return "", fmt.Errorf("expected 1 reply, got %d", len(replies))
	}
	return replies[0], nil
}

func (po *PromptOptimizer) logConversation(name string, conv types.Conversation) {
	if po.debugManager.IsEnabled() {
		po.debugManager.LogPrompt(name, conv.String())
	}
}

// GetHistory returns a copy of the records gathered so far.
func (po *PromptOptimizer) GetHistory() []Record {
	return append([]Record(nil), po.history...)
}
