// Package chat orchestrates conversation turns: it owns the message history,
// wires a provider stream through the accumulator, and guards against
// overlapping turns.
package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/pagemate/pagemate/internal/ai"
	"github.com/pagemate/pagemate/internal/page"
	"github.com/pagemate/pagemate/internal/prompt"
	"github.com/pagemate/pagemate/internal/sse"
)

// ErrTurnInFlight is returned when a new turn is requested while a previous
// stream is still running. Turns never interleave into the same sink.
var ErrTurnInFlight = errors.New("a response is already streaming")

// maxHistory caps how many non-system messages a request carries, keeping
// long sessions inside the model's context window.
const maxHistory = 20

// Session holds one conversation. The committed history only ever changes
// between turns: in-progress assistant text lives in the accumulator until
// the finalize callback commits it.
type Session struct {
	id      string
	prompts *prompt.Library

	mu         sync.Mutex
	provider   ai.Provider
	history    []ai.Message
	hasContext bool
	inFlight   bool
	generation uint64
	cancel     context.CancelFunc
}

// NewSession creates an empty session.
func NewSession(provider ai.Provider, prompts *prompt.Library) *Session {
	return &Session{
		id:       uuid.New().String(),
		prompts:  prompts,
		provider: provider,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ShortID returns the first 8 characters of the session ID, for display.
func (s *Session) ShortID() string {
	if len(s.id) >= 8 {
		return s.id[:8]
	}
	return s.id
}

// SetProvider swaps the provider used by subsequent turns. Settings are
// re-read between turns, and the provider is what carries them.
func (s *Session) SetProvider(p ai.Provider) {
	s.mu.Lock()
	s.provider = p
	s.mu.Unlock()
}

// History returns a copy of the committed conversation.
func (s *Session) History() []ai.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ai.Message(nil), s.history...)
}

// Clear abandons any in-flight stream and resets the conversation.
func (s *Session) Clear() {
	s.Cancel()
	s.mu.Lock()
	s.history = nil
	s.hasContext = false
	s.mu.Unlock()
}

// Cancel abandons the in-flight stream, if any, releasing the underlying
// connection. Late callbacks from the abandoned stream are suppressed by
// the generation check.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	if s.inFlight {
		s.generation++ // invalidates the abandoned stream's callbacks
		s.inFlight = false
		s.cancel = nil
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Summarize starts the conversation over: it resets the history, installs a
// page-aware system message plus a summary request, and runs one streaming
// turn against sink.
func (s *Session) Summarize(ctx context.Context, pg *page.Content, sink sse.Sink) error {
	tmpl, err := s.prompts.Summarize()
	if err != nil {
		return err
	}
	system, user := tmpl.Render(prompt.Vars(pg, ""))

	return s.runTurn(ctx, sink, func() {
		s.history = nil
		s.history = append(s.history,
			ai.Message{Role: ai.RoleSystem, Content: system},
			ai.Message{Role: ai.RoleUser, Content: user},
		)
		s.hasContext = true
	})
}

// Ask appends the user's question (establishing the page context first, if
// this session has none yet) and runs one streaming turn against sink.
// A failed turn leaves the history unchanged except for the user's own
// message, which remains.
func (s *Session) Ask(ctx context.Context, userText string, pg *page.Content, sink sse.Sink) error {
	tmpl, err := s.prompts.Ask()
	if err != nil {
		return err
	}
	system, user := tmpl.Render(prompt.Vars(pg, userText))

	return s.runTurn(ctx, sink, func() {
		if !s.hasContext {
			s.history = append(s.history, ai.Message{Role: ai.RoleSystem, Content: system})
			s.hasContext = true
		}
		s.history = append(s.history, ai.Message{Role: ai.RoleUser, Content: user})
	})
}

// runTurn executes one streaming turn. mutate applies the turn's history
// changes under the same lock that claims the in-flight slot, so a
// concurrent turn can never observe a half-started state.
func (s *Session) runTurn(ctx context.Context, sink sse.Sink, mutate func()) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	mutate()
	s.inFlight = true
	s.generation++
	gen := s.generation

	turnCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	provider := s.provider
	msgs := s.requestMessages()
	s.mu.Unlock()

	ch, err := provider.CompleteStream(turnCtx, msgs)
	if err != nil {
		s.endTurn(gen)
		cancel()
		return err
	}

	acc := sse.NewAccumulator(&turnSink{session: s, gen: gen, next: sink})
	for delta := range ch {
		switch {
		case delta.Err != nil:
			acc.Fail(delta.Err)
		case delta.Done:
			acc.Finish()
		default:
			acc.Append(delta.Token)
		}
	}
	if !acc.Terminal() {
		// Channel closed without an explicit signal: treat as done.
		acc.Finish()
	}
	cancel()
	return nil
}

// requestMessages returns the messages for the outbound request: the leading
// system message plus at most maxHistory of the most recent messages.
// Callers must hold s.mu.
func (s *Session) requestMessages() []ai.Message {
	msgs := s.history
	if len(msgs) > 0 && msgs[0].Role == ai.RoleSystem && len(msgs) > maxHistory+1 {
		trimmed := make([]ai.Message, 0, maxHistory+1)
		trimmed = append(trimmed, msgs[0])
		trimmed = append(trimmed, msgs[len(msgs)-maxHistory:]...)
		return trimmed
	}
	return append([]ai.Message(nil), msgs...)
}

// commit finalizes a successful turn: the assistant message joins the
// history exactly once, and only if the turn is still current.
func (s *Session) commit(gen uint64, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || !s.inFlight {
		return false
	}
	s.history = append(s.history, ai.Message{Role: ai.RoleAssistant, Content: text})
	s.inFlight = false
	s.cancel = nil
	return true
}

// endTurn releases the in-flight slot without committing anything.
func (s *Session) endTurn(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || !s.inFlight {
		return false
	}
	s.inFlight = false
	s.cancel = nil
	return true
}

func (s *Session) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.generation
}

// turnSink gates callbacks behind the generation token so an abandoned
// stream can never write into a later turn's UI, then forwards live events
// to the user-facing sink.
type turnSink struct {
	session *Session
	gen     uint64
	next    sse.Sink
}

func (t *turnSink) OnFragment(fullText string) {
	if t.session.stale(t.gen) {
		return
	}
	t.next.OnFragment(fullText)
}

func (t *turnSink) OnFinal(fullText string) {
	if !t.session.commit(t.gen, fullText) {
		return
	}
	t.next.OnFinal(fullText)
}

func (t *turnSink) OnError(partial string, err error) {
	if !t.session.endTurn(t.gen) {
		return
	}
	t.next.OnError(partial, err)
}
