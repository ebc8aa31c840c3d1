package rubric

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(scores ...any) *Rubric {
	r := &Rubric{ScoreRange: []float64{1, 10}}
	for i, s := range scores {
		r.Rubric = append(r.Rubric, Criterion{Criterion: string(rune('A' + i)), Score: s})
	}
	return r
}

func TestSumScores(t *testing.T) {
	total, err := SumScores(scored(8.0, 7.0, 9.0, 6.0))
	require.NoError(t, err)
	assert.Equal(t, 30.0, total)

	total, err = SumScores(scored(8, int64(7), json.Number("9"), float32(6)))
	require.NoError(t, err)
	assert.Equal(t, 30.0, total)
}

func TestSumScoresFromGraderReply(t *testing.T) {
	r, err := Parse([]byte(`{"score_range":[1,10],"rubric":[
		{"criterion":"Relevance","score":8},
		{"criterion":"Coherence","score":7},
		{"criterion":"Clarity","score":9},
		{"criterion":"Brevity","score":6}]}`))
	require.NoError(t, err)

	total, err := SumScores(r)
	require.NoError(t, err)
	assert.Equal(t, 30.0, total)
}

func TestSumScoresNonNumeric(t *testing.T) {
	testCases := []struct {
		name  string
		score any
	}{
		{"placeholder", "<what's the clarity score?>"},
		{"null", nil},
		{"bool", true},
		{"object", map[string]any{"value": 3}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SumScores(scored(5.0, tc.score))

			var scoreErr *ScoreTypeError
			require.True(t, errors.As(err, &scoreErr))
			assert.Equal(t, "B", scoreErr.Criterion)
			assert.Equal(t, tc.score, scoreErr.Value)
		})
	}
}

func TestDefault(t *testing.T) {
	r := Default()
	require.Len(t, r.Rubric, 8)
	assert.Equal(t, []float64{1, 10}, r.ScoreRange)
	assert.Equal(t, "Relevance", r.Rubric[0].Criterion)
	assert.Equal(t, "Brevity", r.Rubric[7].Criterion)
	assert.Equal(t, 80.0, r.MaxScore())

	_, err := SumScores(r)
	assert.Error(t, err, "placeholders are not scores")

	r.Rubric[0].Criterion = "changed"
	assert.Equal(t, "Relevance", Default().Rubric[0].Criterion, "Default returns a fresh copy")
}

func TestParseValidation(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{"not json", `rubric`},
		{"one element range", `{"score_range":[1],"rubric":[{"criterion":"a","score":"?"}]}`},
		{"inverted range", `{"score_range":[10,1],"rubric":[{"criterion":"a","score":"?"}]}`},
		{"no criteria", `{"score_range":[1,10],"rubric":[]}`},
		{"unnamed criterion", `{"score_range":[1,10],"rubric":[{"score":"?"}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubric.json")
	require.NoError(t, os.WriteFile(path, DefaultJSON(), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), r)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestWithoutDescriptions(t *testing.T) {
	r := Default()
	stripped := r.WithoutDescriptions()

	for _, c := range stripped.Rubric {
		assert.Empty(t, c.Description)
	}
	assert.NotEmpty(t, r.Rubric[0].Description, "original is untouched")

	out, err := stripped.JSON()
	require.NoError(t, err)
	assert.NotContains(t, out, "description")
}

func TestJSONIndent(t *testing.T) {
	out, err := Default().JSON()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{\n    \"score_range\""))

	back, err := Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, Default(), back)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "Prompt rubric", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "score_range")
	assert.Contains(t, props, "rubric")
}
