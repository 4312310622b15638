package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// cursorGlyph marks the live end of an in-progress response. It occupies a
// single terminal cell, so one backspace lands on it for overwriting.
const cursorGlyph = "▍"

// StreamSink renders a streaming response to a terminal writer. Fragments
// are written as they arrive with a trailing cursor glyph for liveness; the
// final text replaces the cursor and ends the block with a blank line.
type StreamSink struct {
	w        io.Writer
	prefix   string
	rendered int // bytes of the full text already written
	started  bool
	cursor   bool
}

// NewStreamSink creates a sink that writes to w, indenting the first line
// with prefix. The cursor glyph is only used when colored output is on,
// which tracks whether w is likely a real terminal.
func NewStreamSink(w io.Writer, prefix string) *StreamSink {
	return &StreamSink{
		w:      w,
		prefix: prefix,
		cursor: !color.NoColor,
	}
}

// OnFragment writes the newly arrived tail of fullText.
func (s *StreamSink) OnFragment(fullText string) {
	tail := fullText[s.rendered:]
	if tail == "" {
		return
	}
	s.begin()
	fmt.Fprint(s.w, tail)
	if s.cursor {
		fmt.Fprint(s.w, cursorGlyph)
	}
	s.rendered = len(fullText)
}

// OnFinal flushes any unwritten tail, removes the cursor, and closes the
// block with a newline.
func (s *StreamSink) OnFinal(fullText string) {
	hadCursor := s.started && s.cursor
	s.begin()
	tail := fullText[s.rendered:]
	s.rendered = len(fullText)
	if tail != "" {
		fmt.Fprint(s.w, tail)
	} else if hadCursor {
		// Nothing left to write over the glyph cell; blank it out.
		fmt.Fprint(s.w, " \b")
	}

	if !strings.HasSuffix(fullText, "\n") {
		fmt.Fprintln(s.w)
	}
	fmt.Fprintln(s.w)
}

// OnError removes the cursor and ends the line; the partial text stays on
// screen. The error itself is reported by the caller, not rendered here.
func (s *StreamSink) OnError(partial string, err error) {
	if !s.started {
		return
	}
	if s.cursor {
		fmt.Fprint(s.w, "\b \b")
	}
	fmt.Fprintln(s.w)
}

// begin prints the prefix once and erases the cursor glyph left by the
// previous fragment.
func (s *StreamSink) begin() {
	if !s.started {
		fmt.Fprint(s.w, s.prefix)
		s.started = true
		return
	}
	if s.cursor {
		// Back onto the glyph cell; the next write overwrites it.
		fmt.Fprint(s.w, "\b")
	}
}
