// Package sse implements the incremental pipeline that turns a streamed
// chat-completions response body into ordered text fragments: UTF-8 safe
// chunk reading, SSE line splitting, delta decoding, and accumulation.
package sse

import (
	"io"
	"unicode/utf8"
)

// ChunkReader wraps a byte stream and yields decoded text fragments as they
// arrive. A fragment never ends in the middle of a multi-byte UTF-8 rune:
// trailing bytes of an incomplete rune are carried into the next read.
type ChunkReader struct {
	r       io.Reader
	buf     []byte
	pending []byte
	err     error
}

// NewChunkReader returns a reader over r. One ChunkReader serves exactly one
// in-flight stream and must not be reused.
func NewChunkReader(r io.Reader) *ChunkReader {
	return &ChunkReader{
		r:   r,
		buf: make([]byte, 4096),
	}
}

// Next returns the next text fragment. It returns io.EOF when the stream is
// exhausted and any other error when the transport fails mid-stream.
func (c *ChunkReader) Next() (string, error) {
	for {
		if c.err != nil {
			return c.flush(c.err)
		}

		n, err := c.r.Read(c.buf)
		if err != nil {
			// Deliver any final bytes before reporting the error.
			c.err = err
		}
		if n == 0 {
			continue
		}

		data := append(c.pending, c.buf[:n]...)
		complete, rest := splitIncompleteRune(data)
		c.pending = append([]byte(nil), rest...)
		if len(complete) > 0 {
			return string(complete), nil
		}
		// Only partial rune bytes so far; keep reading.
	}
}

// flush drains held-back bytes once the underlying stream has ended. A
// dangling partial rune at true EOF is emitted as-is rather than dropped.
func (c *ChunkReader) flush(err error) (string, error) {
	if len(c.pending) > 0 {
		s := string(c.pending)
		c.pending = nil
		return s, nil
	}
	return "", err
}

// splitIncompleteRune splits b so that complete ends on a rune boundary.
// At most utf8.UTFMax-1 bytes are held back; bytes that cannot begin a valid
// rune are passed through untouched.
func splitIncompleteRune(b []byte) (complete, rest []byte) {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if !utf8.FullRune(b[i:]) {
			return b[:i], b[i:]
		}
		break
	}
	return b, nil
}
