package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pagemate/pagemate/internal/ai"
	"github.com/pagemate/pagemate/internal/page"
	"github.com/pagemate/pagemate/internal/prompt"
)

// mockProvider is a scriptable streaming backend.
type mockProvider struct {
	tokens    []string
	streamErr error // emitted after tokens instead of Done
	startErr  error // returned synchronously, no stream

	block   chan struct{} // if non-nil, stream holds here after tokens
	started chan struct{} // if non-nil, closed once streaming begins

	mu       sync.Mutex
	calls    int
	lastMsgs []ai.Message
}

func (m *mockProvider) CompleteStream(ctx context.Context, msgs []ai.Message) (<-chan ai.StreamDelta, error) {
	m.mu.Lock()
	m.calls++
	m.lastMsgs = msgs
	m.mu.Unlock()

	if m.startErr != nil {
		return nil, m.startErr
	}

	ch := make(chan ai.StreamDelta)
	go func() {
		defer close(ch)
		if m.started != nil {
			close(m.started)
		}
		for _, tok := range m.tokens {
			select {
			case ch <- ai.StreamDelta{Token: tok}:
			case <-ctx.Done():
				ch <- ai.StreamDelta{Err: ctx.Err()}
				return
			}
		}
		if m.block != nil {
			select {
			case <-m.block:
			case <-ctx.Done():
				ch <- ai.StreamDelta{Err: ctx.Err()}
				return
			}
		}
		if m.streamErr != nil {
			ch <- ai.StreamDelta{Err: m.streamErr}
			return
		}
		ch <- ai.StreamDelta{Done: true}
	}()
	return ch, nil
}

func (m *mockProvider) messages() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.Message(nil), m.lastMsgs...)
}

// spySink records callbacks; a mutex makes it safe for the interleaving tests.
type spySink struct {
	mu        sync.Mutex
	fragments []string
	finals    []string
	errs      []error
	partials  []string
}

func (s *spySink) OnFragment(full string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments = append(s.fragments, full)
}

func (s *spySink) OnFinal(full string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finals = append(s.finals, full)
}

func (s *spySink) OnError(partial string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partials = append(s.partials, partial)
	s.errs = append(s.errs, err)
}

func (s *spySink) snapshot() (fragments, finals []string, errs []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fragments...),
		append([]string(nil), s.finals...),
		append([]error(nil), s.errs...)
}

func testPage() *page.Content {
	return &page.Content{
		Title: "Go Concurrency Patterns",
		URL:   "https://example.com/article",
		Body:  "Concurrency is not parallelism.",
	}
}

func newTestSession(t *testing.T, p ai.Provider) *Session {
	t.Helper()
	return NewSession(p, prompt.NewLibrary(t.TempDir()))
}

func TestSummarize_ResetsHistoryAndCommitsAssistant(t *testing.T) {
	mock := &mockProvider{tokens: []string{"A short", " summary."}}
	s := newTestSession(t, mock)
	sink := &spySink{}

	// Pre-existing conversation must be wiped by a new summarize.
	if err := s.Ask(context.Background(), "warm-up question", testPage(), &spySink{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Summarize(context.Background(), testPage(), sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history := s.History()
	if len(history) != 3 {
		t.Fatalf("expected system+user+assistant after summarize, got %d messages", len(history))
	}
	if history[0].Role != ai.RoleSystem || !strings.Contains(history[0].Content, "Go Concurrency Patterns") {
		t.Errorf("system message should carry the page title, got: %q", history[0].Content)
	}
	if history[1].Role != ai.RoleUser {
		t.Errorf("expected user summary request, got role %q", history[1].Role)
	}
	if history[2].Role != ai.RoleAssistant || history[2].Content != "A short summary." {
		t.Errorf("expected committed assistant message, got %+v", history[2])
	}

	_, finals, _ := sink.snapshot()
	if len(finals) != 1 || finals[0] != "A short summary." {
		t.Errorf("expected one final callback, got %v", finals)
	}
}

func TestAsk_EstablishesPageContextOnce(t *testing.T) {
	mock := &mockProvider{tokens: []string{"answer"}}
	s := newTestSession(t, mock)

	if err := s.Ask(context.Background(), "first?", testPage(), &spySink{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Ask(context.Background(), "second?", testPage(), &spySink{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	systemCount := 0
	for _, m := range s.History() {
		if m.Role == ai.RoleSystem {
			systemCount++
		}
	}
	if systemCount != 1 {
		t.Errorf("page context must be established once per session, got %d system messages", systemCount)
	}
}

func TestAsk_FragmentsArriveInOrder(t *testing.T) {
	mock := &mockProvider{tokens: []string{"Hel", "lo"}}
	s := newTestSession(t, mock)
	sink := &spySink{}

	if err := s.Ask(context.Background(), "say hello", testPage(), sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fragments, finals, _ := sink.snapshot()
	if len(fragments) != 2 || fragments[0] != "Hel" || fragments[1] != "Hello" {
		t.Errorf("expected growing snapshots [Hel Hello], got %v", fragments)
	}
	if len(finals) != 1 || finals[0] != "Hello" {
		t.Errorf("expected final 'Hello', got %v", finals)
	}
}

func TestAsk_StreamErrorLeavesUserMessageOnly(t *testing.T) {
	streamErr := errors.New("connection reset")
	mock := &mockProvider{tokens: []string{"part"}, streamErr: streamErr}
	s := newTestSession(t, mock)
	sink := &spySink{}

	if err := s.Ask(context.Background(), "doomed?", testPage(), sink); err != nil {
		t.Fatalf("turn errors surface via the sink, not the return value, got: %v", err)
	}

	history := s.History()
	for _, m := range history {
		if m.Role == ai.RoleAssistant {
			t.Error("a failed turn must not commit an assistant message")
		}
	}
	if last := history[len(history)-1]; last.Role != ai.RoleUser {
		t.Errorf("the user's own message must remain, last is %q", last.Role)
	}

	_, finals, errs := sink.snapshot()
	if len(finals) != 0 {
		t.Error("a failed turn must not deliver a final")
	}
	if len(errs) != 1 || !errors.Is(errs[0], streamErr) {
		t.Errorf("expected the stream error, got %v", errs)
	}
	if sink.partials[0] != "part" {
		t.Errorf("expected the partial text preserved, got %q", sink.partials[0])
	}
}

func TestAsk_StartErrorReleasesInFlightSlot(t *testing.T) {
	startErr := errors.New("401 unauthorized")
	mock := &mockProvider{startErr: startErr}
	s := newTestSession(t, mock)

	if err := s.Ask(context.Background(), "q", testPage(), &spySink{}); !errors.Is(err, startErr) {
		t.Fatalf("expected the start error returned, got: %v", err)
	}

	// The failed turn must not leave the session stuck in flight.
	mock.startErr = nil
	mock.tokens = []string{"ok"}
	if err := s.Ask(context.Background(), "again", testPage(), &spySink{}); err != nil {
		t.Fatalf("expected the next turn to run, got: %v", err)
	}
}

func TestAsk_RejectsConcurrentTurn(t *testing.T) {
	mock := &mockProvider{
		tokens:  []string{"slow"},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	s := newTestSession(t, mock)
	firstSink := &spySink{}

	turnDone := make(chan error, 1)
	go func() {
		turnDone <- s.Ask(context.Background(), "first", testPage(), firstSink)
	}()

	<-mock.started
	secondSink := &spySink{}
	if err := s.Ask(context.Background(), "second", testPage(), secondSink); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got: %v", err)
	}

	close(mock.block)
	if err := <-turnDone; err != nil {
		t.Fatalf("unexpected error from first turn: %v", err)
	}

	// The rejected turn must not have touched its sink.
	fragments, finals, errs := secondSink.snapshot()
	if len(fragments)+len(finals)+len(errs) != 0 {
		t.Error("a rejected turn must not emit into its sink")
	}
	if _, finals, _ := firstSink.snapshot(); len(finals) != 1 {
		t.Errorf("first turn should have completed, got finals %v", finals)
	}
}

func TestCancel_SuppressesLateCallbacks(t *testing.T) {
	mock := &mockProvider{
		tokens:  []string{"early"},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	s := newTestSession(t, mock)
	sink := &spySink{}

	turnDone := make(chan error, 1)
	go func() {
		turnDone <- s.Ask(context.Background(), "q", testPage(), sink)
	}()

	<-mock.started
	// Wait for the first fragment so we know the stream is mid-flight.
	deadline := time.After(5 * time.Second)
	for {
		fragments, _, _ := sink.snapshot()
		if len(fragments) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("stream never delivered its first fragment")
		case <-time.After(time.Millisecond):
		}
	}

	s.Cancel()
	if err := <-turnDone; err != nil {
		t.Fatalf("a cancelled turn is not an error: %v", err)
	}

	fragments, finals, errs := sink.snapshot()
	if len(finals) != 0 {
		t.Error("no final may arrive after cancellation")
	}
	if len(errs) != 0 {
		t.Error("cancellation is not surfaced as a stream error")
	}
	before := len(fragments)

	// A fresh turn must work and must not replay stale output.
	next := &mockProvider{tokens: []string{"fresh"}}
	s.SetProvider(next)
	nextSink := &spySink{}
	if err := s.Ask(context.Background(), "next", testPage(), nextSink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fragments, _, _ := sink.snapshot(); len(fragments) != before {
		t.Error("the abandoned stream wrote into its sink after cancellation")
	}
	if _, finals, _ := nextSink.snapshot(); len(finals) != 1 || finals[0] != "fresh" {
		t.Errorf("expected the new turn to stream normally, got %v", finals)
	}
}

func TestClear_ResetsConversation(t *testing.T) {
	mock := &mockProvider{tokens: []string{"hi"}}
	s := newTestSession(t, mock)

	if err := s.Ask(context.Background(), "q", testPage(), &spySink{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Clear()

	if got := len(s.History()); got != 0 {
		t.Errorf("expected empty history after clear, got %d messages", got)
	}

	// The next ask must re-establish the page context.
	if err := s.Ask(context.Background(), "q2", testPage(), &spySink{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.History()[0].Role != ai.RoleSystem {
		t.Error("expected a fresh system message after clear")
	}
}

func TestRequestMessages_TrimsLongHistory(t *testing.T) {
	mock := &mockProvider{tokens: []string{"r"}}
	s := newTestSession(t, mock)

	for i := 0; i < 15; i++ {
		if err := s.Ask(context.Background(), "question", testPage(), &spySink{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	msgs := mock.messages()
	if len(msgs) != maxHistory+1 {
		t.Fatalf("expected system + %d trimmed messages, got %d", maxHistory, len(msgs))
	}
	if msgs[0].Role != ai.RoleSystem {
		t.Error("the system message must survive trimming")
	}
}

func TestSession_ShortID(t *testing.T) {
	s := newTestSession(t, &mockProvider{})
	if len(s.ShortID()) != 8 {
		t.Errorf("expected an 8-character short ID, got %q", s.ShortID())
	}
	if !strings.HasPrefix(s.ID(), s.ShortID()) {
		t.Error("short ID should prefix the full ID")
	}
}
