package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pagemate/pagemate/internal/config"
	"github.com/pagemate/pagemate/internal/sse"
)

const (
	completionsPath = "/chat/completions"
	// No deadline on the streaming body itself — a healthy stream may run
	// for minutes. Only the wait for response headers is bounded.
	headerTimeout = 30 * time.Second
)

// OpenAIProvider implements Provider against any OpenAI-compatible
// chat-completions endpoint.
type OpenAIProvider struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewOpenAIProvider creates a provider from the current settings.
func NewOpenAIProvider(cfg *config.Config) *OpenAIProvider {
	return &OpenAIProvider{
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: headerTimeout},
		},
	}
}

// completionRequest is the request body for a streamed chat completion.
type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	Stream      bool                `json:"stream"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompleteStream issues one streaming completion request. There are no
// retries; a failed attempt surfaces immediately.
func (p *OpenAIProvider) CompleteStream(ctx context.Context, messages []Message) (<-chan StreamDelta, error) {
	if strings.TrimSpace(p.endpoint) == "" || strings.TrimSpace(p.apiKey) == "" {
		return nil, ErrConfigIncomplete
	}

	msgs := make([]completionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = completionMessage{Role: m.Role, Content: m.Content}
	}
	body, err := json.Marshal(completionRequest{
		Model:       p.model,
		Messages:    msgs,
		Temperature: p.temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(p.endpoint, "/") + completionsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &RequestFailedError{Status: resp.StatusCode, Body: strings.TrimSpace(string(errBody))}
	}

	ch := make(chan StreamDelta)
	go streamBody(resp.Body, ch)
	return ch, nil
}

// streamBody drains the response body through the sse pipeline and pushes
// deltas onto ch. It owns the body and always closes both.
func streamBody(body io.ReadCloser, ch chan<- StreamDelta) {
	defer close(ch)
	defer body.Close()

	reader := sse.NewChunkReader(body)
	var splitter sse.FrameSplitter

	emit := func(payload string) bool {
		delta, done := sse.DecodeFrame(payload)
		if delta != "" {
			ch <- StreamDelta{Token: delta}
		}
		if done {
			ch <- StreamDelta{Done: true}
		}
		return done
	}

	for {
		frag, err := reader.Next()
		for _, payload := range splitter.Feed(frag) {
			if emit(payload) {
				return
			}
		}
		if err == nil {
			continue
		}

		// Stream ended: a final unterminated line may still hold a frame.
		if payload, ok := splitter.Flush(); ok && emit(payload) {
			return
		}
		if errors.Is(err, io.EOF) {
			// Some providers close the connection without sending [DONE].
			ch <- StreamDelta{Done: true}
		} else {
			ch <- StreamDelta{Err: err}
		}
		return
	}
}
