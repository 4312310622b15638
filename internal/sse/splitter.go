package sse

import "strings"

// dataPrefix marks the SSE field carrying a payload. Comment lines, blank
// keep-alives, and other fields (event:, id:, retry:) are dropped.
const dataPrefix = "data: "

// FrameSplitter reassembles logical SSE lines from arbitrarily chunked text
// fragments. It buffers a single trailing partial line between feeds and
// yields data payloads in the exact order their lines appeared on the wire.
type FrameSplitter struct {
	partial string
}

// Feed appends a fragment and returns the payloads of every data line the
// fragment completed, in order. Non-data lines are discarded silently.
func (f *FrameSplitter) Feed(fragment string) []string {
	buf := f.partial + fragment

	lines := strings.Split(buf, "\n")
	f.partial = lines[len(lines)-1]

	var payloads []string
	for _, line := range lines[:len(lines)-1] {
		if payload, ok := framePayload(line); ok {
			payloads = append(payloads, payload)
		}
	}
	return payloads
}

// Flush returns the payload of a final unterminated data line, if the stream
// ended without a trailing newline. The splitter is spent afterwards.
func (f *FrameSplitter) Flush() (string, bool) {
	line := f.partial
	f.partial = ""
	return framePayload(line)
}

func framePayload(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return "", false
	}
	return payload, true
}
