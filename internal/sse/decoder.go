package sse

import (
	"encoding/json"
	"strings"
)

// doneSentinel is the literal payload an OpenAI-compatible server sends to
// mark the end of a streamed completion.
const doneSentinel = "[DONE]"

// completionChunk mirrors the streaming chat-completions payload. Every field
// is optional: role-only and finish-reason-only chunks are normal traffic.
type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// DecodeFrame classifies one data payload. It returns the content delta
// (possibly empty) and whether the stream finished normally. A payload that
// fails to parse yields ("", false): one corrupt frame must never abort an
// otherwise usable response, so the error is swallowed here.
func DecodeFrame(payload string) (delta string, done bool) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == doneSentinel {
		return "", true
	}

	var chunk completionChunk
	if err := json.Unmarshal([]byte(trimmed), &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", false
	}

	choice := chunk.Choices[0]
	// A finish_reason counts as normal completion, same as the sentinel.
	return choice.Delta.Content, choice.FinishReason != ""
}
