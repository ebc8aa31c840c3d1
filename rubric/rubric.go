// Package rubric models the scoring rubric sent to the grader model and sums
// the scores it fills in.
package rubric

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

//go:embed default_rubric.json
var defaultRubric []byte

// Criterion is one rubric line. Score holds a placeholder string until the
// grader replaces it with a number.
type Criterion struct {
	Criterion   string `json:"criterion" validate:"required" jsonschema:"description=Name of the quality being scored"`
	Description string `json:"description,omitempty" jsonschema:"description=Question the grader answers for this criterion"`
	Score       any    `json:"score" jsonschema:"oneof_type=string;number,description=Placeholder text before grading and a number after"`
}

// Rubric is the document exchanged with the grader.
type Rubric struct {
	ScoreRange []float64   `json:"score_range" validate:"len=2" jsonschema:"minItems=2,maxItems=2,description=Lowest and highest score per criterion"`
	Rubric     []Criterion `json:"rubric" validate:"min=1,dive" jsonschema:"minItems=1"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		r := sl.Current().Interface().(Rubric)
		if len(r.ScoreRange) == 2 && r.ScoreRange[0] > r.ScoreRange[1] {
			sl.ReportError(r.ScoreRange, "ScoreRange", "score_range", "ordered", "")
		}
	}, Rubric{})
	return v
}

// Validate checks the structure of r: a two-element ordered score range and at
// least one named criterion. Scores are not inspected.
func (r *Rubric) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid rubric: %w", err)
	}
	return nil
}

// Parse decodes and validates a rubric document.
func Parse(data []byte) (*Rubric, error) {
	var r Rubric
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rubric: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// MustParse is Parse that panics on error.
func MustParse(data []byte) *Rubric {
	r, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return r
}

// Load reads a rubric document from path.
func Load(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric: %w", err)
	}
	return Parse(data)
}

// Default returns a fresh copy of the eight-criterion rubric scored from 1 to 10.
func Default() *Rubric {
	return MustParse(defaultRubric)
}

// DefaultJSON returns the embedded default rubric document.
func DefaultJSON() []byte {
	return append([]byte(nil), defaultRubric...)
}

// Clone returns a deep copy of r.
func (r *Rubric) Clone() *Rubric {
	out := &Rubric{
		ScoreRange: append([]float64(nil), r.ScoreRange...),
		Rubric:     append([]Criterion(nil), r.Rubric...),
	}
	return out
}

// WithoutDescriptions returns a copy of r with every description removed.
func (r *Rubric) WithoutDescriptions() *Rubric {
	out := r.Clone()
	for i := range out.Rubric {
		out.Rubric[i].Description = ""
	}
	return out
}

// MaxScore is the highest total a completed rubric can reach.
func (r *Rubric) MaxScore() float64 {
	if len(r.ScoreRange) != 2 {
		return 0
	}
	return r.ScoreRange[1] * float64(len(r.Rubric))
}

// JSON renders r indented by four spaces, the layout sent to the grader.
func (r *Rubric) JSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode rubric: %w", err)
	}
	return string(data), nil
}

// Schema returns the JSON schema of the rubric document.
func Schema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	s := reflector.Reflect(&Rubric{})
	s.Title = "Prompt rubric"
	return json.MarshalIndent(s, "", "  ")
}
