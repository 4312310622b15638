package ai

import (
	"errors"
	"fmt"
)

// ErrConfigIncomplete means the endpoint or API key is missing. It is
// returned before any network call is made and is never retried.
var ErrConfigIncomplete = errors.New("endpoint and API key must be configured — run: pagemate config set api_key <key>")

// ErrTransport wraps network-level failures that happen before any
// response arrives.
var ErrTransport = errors.New("could not reach the completion endpoint")

// RequestFailedError is a non-success HTTP response from the endpoint.
type RequestFailedError struct {
	Status int
	Body   string
}

func (e *RequestFailedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("completion request failed (status %d)", e.Status)
	}
	return fmt.Sprintf("completion request failed (status %d): %s", e.Status, e.Body)
}
