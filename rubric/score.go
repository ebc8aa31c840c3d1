package rubric

import (
	"encoding/json"
	"fmt"
)

// ScoreTypeError reports a criterion whose score is not a number, typically the
// grader leaving the placeholder in place.
type ScoreTypeError struct {
	Criterion string
	Value     any
}

func (e *ScoreTypeError) Error() string {
	return fmt.Sprintf("criterion %q has non-numeric score %v (%T)", e.Criterion, e.Value, e.Value)
}

// SumScores adds up the score of every criterion.
func SumScores(r *Rubric) (float64, error) {
	var total float64
	for _, c := range r.Rubric {
		v, ok := number(c.Score)
		if !ok {
			return 0, &ScoreTypeError{Criterion: c.Criterion, Value: c.Score}
		}
		total += v
	}
	return total, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
