package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pagemate/pagemate/internal/ai"
	"github.com/pagemate/pagemate/internal/chat"
	"github.com/pagemate/pagemate/internal/config"
	"github.com/pagemate/pagemate/internal/prompt"
	"github.com/pagemate/pagemate/internal/sse"
)

var chatCmd = &cobra.Command{
	Use:   "chat <url>",
	Short: "Start an interactive chat about a webpage",
	Long: `Start a conversational session about a webpage. Context carries over
between questions.

Type 'summarize' for a summary, 'clear' to reset the conversation,
and 'exit' or 'quit' to end the session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		pg, err := fetchPage(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		session := chat.NewSession(ai.NewOpenAIProvider(cfg), prompt.NewLibrary(cfg.PromptDir))

		cyan := color.New(color.FgCyan, color.Bold)
		dim := color.New(color.FgHiBlack)
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)

		title := pg.Title
		if title == "" {
			title = pg.URL
		}
		fmt.Fprintln(os.Stderr)
		cyan.Fprintf(os.Stderr, "  pagemate chat — %s\n", title)
		dim.Fprintf(os.Stderr, "  session %s\n", session.ShortID())
		dim.Fprintf(os.Stderr, "  Type 'summarize' for a summary, 'clear' to reset, 'exit' to quit.\n\n")

		scanner := bufio.NewScanner(os.Stdin)
		for {
			green.Fprint(os.Stderr, "  you → ")
			if !scanner.Scan() {
				break
			}

			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}
			if input == "exit" || input == "quit" {
				dim.Fprintf(os.Stderr, "\n  Bye!\n\n")
				break
			}
			if input == "clear" {
				session.Clear()
				dim.Fprintf(os.Stderr, "  Conversation cleared.\n\n")
				continue
			}

			// Settings may have changed since the last turn; re-read them.
			cfg, err := config.Load()
			if err != nil {
				red.Fprintf(os.Stderr, "  Error: %v\n\n", err)
				continue
			}
			session.SetProvider(ai.NewOpenAIProvider(cfg))

			var turnErr error
			if input == "summarize" {
				turnErr = runTurn(func(sink sse.Sink) error {
					return session.Summarize(cmd.Context(), pg, sink)
				})
			} else {
				turnErr = runTurn(func(sink sse.Sink) error {
					return session.Ask(cmd.Context(), input, pg, sink)
				})
			}
			if turnErr != nil {
				red.Fprintf(os.Stderr, "  Error: %v\n\n", turnErr)
			}
		}

		return nil
	},
}
