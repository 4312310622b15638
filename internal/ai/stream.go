// Package ai — stream.go defines the streaming event type shared by all
// providers. Streaming lets tokens appear in real-time as the model
// generates them instead of a spinner followed by a wall of text.
package ai

// StreamDelta represents a single chunk from a streaming response.
type StreamDelta struct {
	// Token is the text fragment. Empty string is valid (heartbeat).
	Token string
	// Done is true when the stream is complete.
	Done bool
	// Err is non-nil if the stream encountered an error.
	Err error
}

// Collect reads all tokens from a stream channel and returns the
// concatenated result. Useful for testing and non-interactive paths.
func Collect(ch <-chan StreamDelta) (string, error) {
	var result string
	for delta := range ch {
		if delta.Err != nil {
			return result, delta.Err
		}
		result += delta.Token
	}
	return result, nil
}
