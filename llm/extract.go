package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// jsonFence matches the first ```json ... ``` block, across lines.
var jsonFence = regexp.MustCompile("(?s)```json(.*?)```")

// jsonPayload returns the text that should hold the JSON document: the interior of
// the first fenced json block, or the whole input when there is none.
func jsonPayload(text string) string {
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// ExtractJSON recovers a JSON value from a model reply. A fenced ```json block
// wins; otherwise the whole text is parsed. It never fails loudly: ok is false
// when no valid JSON was found, including when the fenced block is malformed.
func ExtractJSON(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(jsonPayload(text)), &v); err != nil {
		return nil, false
	}
	return v, true
}

// ExtractJSONInto is ExtractJSON decoding into dst.
func ExtractJSONInto(text string, dst any) bool {
	return json.Unmarshal([]byte(jsonPayload(text)), dst) == nil
}
