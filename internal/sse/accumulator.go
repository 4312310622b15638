package sse

import "strings"

// Sink receives rendering callbacks for one streaming response. OnFragment
// fires once per content fragment with the full text so far; OnFinal fires
// exactly once on normal completion; OnError fires instead of OnFinal when
// the transport fails, with whatever partial text had accumulated.
type Sink interface {
	OnFragment(fullText string)
	OnFinal(fullText string)
	OnError(partial string, err error)
}

type accState int

const (
	accStreaming accState = iota
	accDone
	accErrored
)

// Accumulator owns the growing response text for a single stream. The text
// only grows; once the accumulator reaches Done or Errored it ignores all
// further input.
type Accumulator struct {
	sink  Sink
	full  strings.Builder
	state accState
}

// NewAccumulator returns an accumulator that reports to sink. One instance
// serves exactly one streaming response.
func NewAccumulator(sink Sink) *Accumulator {
	return &Accumulator{sink: sink}
}

// Append adds a content fragment and notifies the sink. Empty fragments and
// fragments arriving after a terminal state are dropped.
func (a *Accumulator) Append(fragment string) {
	if a.state != accStreaming || fragment == "" {
		return
	}
	a.full.WriteString(fragment)
	a.sink.OnFragment(a.full.String())
}

// Finish marks normal completion and delivers the final text. Safe to call
// when the stream closed without an explicit sentinel.
func (a *Accumulator) Finish() {
	if a.state != accStreaming {
		return
	}
	a.state = accDone
	a.sink.OnFinal(a.full.String())
}

// Fail marks a transport failure. The partial text is preserved and handed
// to the sink alongside the error.
func (a *Accumulator) Fail(err error) {
	if a.state != accStreaming {
		return
	}
	a.state = accErrored
	a.sink.OnError(a.full.String(), err)
}

// Text returns the accumulated text so far.
func (a *Accumulator) Text() string {
	return a.full.String()
}

// Terminal reports whether the accumulator has reached Done or Errored.
func (a *Accumulator) Terminal() bool {
	return a.state != accStreaming
}
