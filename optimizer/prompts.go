package optimizer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/teilomillet/promptsmith/rubric"
	"github.com/teilomillet/promptsmith/types"
)

// section appends "<sep> NAME \n<body> \n".
func section(b *strings.Builder, sep, name, body string) {
	fmt.Fprintf(b, "%s %s \n%s \n", sep, name, body)
}

func generateConversation(sep, prompt, data string) types.Conversation {
	system := "You are a helpful assistant. \n" +
		"Your replies are relevant, coherent, complete, accurate, clear, with contextual understanding, specificity, and brief.\n" +
		fmt.Sprintf("Important details are separated by '%s'.", sep)

	var user strings.Builder
	section(&user, sep, "USER PROMPT", prompt)
	if data != "" {
		section(&user, sep, "DATA", data)
	}
	user.WriteString(sep)

	return types.NewConversation(system, user.String())
}

func scoreConversation(sep, prompt, data, completion string, r *rubric.Rubric) (types.Conversation, error) {
	rubricJSON, err := r.JSON()
	if err != nil {
		return nil, err
	}

	system := "Score the following completion, that was generated by LLM given the prompt, using the given rubric. \n" +
		"Be extremely critical when scoring any completion. \n" +
		fmt.Sprintf("Important details are separated by '%s'.", sep)

	var user strings.Builder
	section(&user, sep, "PROMPT", prompt)
	if data != "" {
		section(&user, sep, "DATA", data)
	}
	section(&user, sep, "COMPLETION", completion)
	section(&user, sep, "RUBRIC", rubricJSON)
	fmt.Fprintf(&user, "%s \n\n", sep)
	user.WriteString("Reply with the rubric JSON only, including the calculated score for each criterion. \nYour reply begins like this: \n")
	user.WriteString("```json")

	return types.NewConversation(system, user.String()), nil
}

func refineConversation(sep, prompt, data string, score float64, r *rubric.Rubric, history []Record) (types.Conversation, error) {
	rubricJSON, err := r.JSON()
	if err != nil {
		return nil, err
	}
	historyJSON, err := json.MarshalIndent(history, "", rubricIndent)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}

	system := "Given the rubric score and feedback on the current prompt, as well as the rubric and history of refinements, refine the prompt to improve the rubric scores."

	var user strings.Builder
	section(&user, sep, "CURRENT PROMPT", prompt)
	section(&user, sep, "SCORE", strconv.FormatFloat(score, 'f', -1, 64))
	section(&user, sep, "RUBRIC", rubricJSON)
	if data != "" {
		section(&user, sep, "DATA", data)
	}
	section(&user, sep, "REFINEMENT HISTORY", string(historyJSON))
	fmt.Fprintf(&user, "%s \n\n", sep)
	user.WriteString("Reply with the refined prompt and nothing more.")

	return types.NewConversation(system, user.String()), nil
}

// completeFence restores the opening fence when the grader continued the
// "```json" the prompt ended with instead of repeating it.
func completeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if strings.HasPrefix(trimmed, "```") || strings.Contains(trimmed, "```json") || !strings.HasSuffix(trimmed, "```") {
		return reply
	}
	return "```json\n" + trimmed
}
