package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// TokenCounter counts the prompt tokens of a message history
type TokenCounter func(messages []Message) int

var encodings sync.Map // model -> *tiktoken.Tiktoken

// NewTokenCounter returns a counter for model using its tiktoken encoding.
// When the encoding is unavailable the counter falls back to EstimateTokens.
func NewTokenCounter(model string) TokenCounter {
	return func(messages []Message) int {
		tkm, err := encodingFor(model)
		if err != nil {
			return EstimateTokens(messages)
		}

		total := tokensPerReply
		for _, msg := range messages {
			total += tokensPerMessage
			total += len(tkm.Encode(msg.Role, nil, nil))
			total += len(tkm.Encode(msg.Content, nil, nil))
		}
		return total
	}
}

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	if cached, ok := encodings.Load(model); ok {
		return cached.(*tiktoken.Tiktoken), nil
	}

	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			return nil, err
		}
	}
	encodings.Store(model, tkm)
	return tkm, nil
}

// EstimateTokens approximates token usage at one token per two runes,
// which errs on the high side for CJK text and roughly matches English.
func EstimateTokens(messages []Message) int {
	total := tokensPerReply
	for _, msg := range messages {
		total += tokensPerMessage
		total += (utf8.RuneCountInString(msg.Content) + 1) / 2
	}
	return total
}

// TrimHistory drops the oldest non-system messages until the history fits
// within budget tokens. The newest message is always kept. It reports
// whether anything was removed.
func TrimHistory(messages []Message, budget int, count TokenCounter) ([]Message, bool) {
	if budget <= 0 || len(messages) == 0 {
		return messages, false
	}

	var system, rest []Message
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	trimmed := false
	for len(rest) > 1 {
		candidate := append(append([]Message{}, system...), rest...)
		if count(candidate) <= budget {
			return candidate, trimmed
		}
		rest = rest[1:]
		trimmed = true
	}

	return append(append([]Message{}, system...), rest...), trimmed
}
