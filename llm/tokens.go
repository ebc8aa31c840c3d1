package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teilomillet/promptsmith/types"
)

const fallbackEncoding = "cl100k_base"

var (
	encodingsMu sync.Mutex
	encodings   = make(map[string]*tiktoken.Tiktoken)
)

// encodingFor returns the tokenizer for model, falling back to cl100k_base for
// models tiktoken does not know. Encoders are built once per model.
func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	encodingsMu.Lock()
	defer encodingsMu.Unlock()

	if enc, ok := encodings[model]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding for model %s: %w", model, err)
		}
	}
	encodings[model] = enc
	return enc, nil
}

// CountTokens estimates the prompt size of a conversation for model. The count
// covers message contents only; per-message framing tokens vary by provider.
func CountTokens(conv types.Conversation, model string) (int, error) {
	enc, err := encodingFor(model)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, msg := range conv {
		total += len(enc.Encode(msg.Content, nil, nil))
	}
	return total, nil
}
