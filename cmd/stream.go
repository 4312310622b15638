package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/pagemate/pagemate/internal/page"
	"github.com/pagemate/pagemate/internal/sse"
	"github.com/pagemate/pagemate/internal/ui"
)

// fetchPage downloads and extracts the page behind a spinner.
func fetchPage(ctx context.Context, rawURL string) (*page.Content, error) {
	sp := ui.NewSpinner("Reading page...")
	sp.Start()
	pg, err := page.NewFetcher().Fetch(ctx, rawURL)
	sp.Stop()
	if err != nil {
		return nil, fmt.Errorf("could not read the page: %w", err)
	}
	return pg, nil
}

// printPageHeader shows what pagemate is looking at.
func printPageHeader(pg *page.Content) {
	cyan := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	title := pg.Title
	if title == "" {
		title = pg.URL
	}
	fmt.Fprintln(os.Stderr)
	cyan.Fprintf(os.Stderr, "  %s\n", title)
	dim.Fprintf(os.Stderr, "  %s\n\n", pg.URL)
}

// spinnerSink keeps the thinking spinner up until the first stream event,
// then hands off to the terminal renderer. It also records the stream error
// so the command can surface it through the usual error path.
type spinnerSink struct {
	sp      *ui.Spinner
	next    sse.Sink
	stopped bool
	err     error
}

func (s *spinnerSink) stop() {
	if !s.stopped {
		s.sp.Stop()
		s.stopped = true
	}
}

func (s *spinnerSink) OnFragment(fullText string) {
	s.stop()
	s.next.OnFragment(fullText)
}

func (s *spinnerSink) OnFinal(fullText string) {
	s.stop()
	s.next.OnFinal(fullText)
}

func (s *spinnerSink) OnError(partial string, err error) {
	s.stop()
	s.err = err
	s.next.OnError(partial, err)
}

// runTurn drives one streaming turn: spinner until the first token, then
// incremental rendering to stdout. Stream errors come back as the return
// value with any partial text already on screen.
func runTurn(turn func(sse.Sink) error) error {
	sp := ui.NewSpinner("Thinking...")
	sp.Start()

	sink := &spinnerSink{sp: sp, next: ui.NewStreamSink(os.Stdout, "  ")}
	err := turn(sink)
	sink.stop()

	if err != nil {
		return err
	}
	return sink.err
}
