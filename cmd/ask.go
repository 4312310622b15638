package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pagemate/pagemate/internal/ai"
	"github.com/pagemate/pagemate/internal/chat"
	"github.com/pagemate/pagemate/internal/config"
	"github.com/pagemate/pagemate/internal/prompt"
	"github.com/pagemate/pagemate/internal/sse"
)

var askCmd = &cobra.Command{
	Use:   "ask <url> <question>",
	Short: "Ask a question about a webpage",
	Long: `Fetch a webpage and stream an answer to your question about it.

Examples:
  pagemate ask https://example.com/article "who is the author?"
  pagemate ask go.dev/blog/loopvar what changed in this release`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		pg, err := fetchPage(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printPageHeader(pg)

		question := strings.Join(args[1:], " ")
		session := chat.NewSession(ai.NewOpenAIProvider(cfg), prompt.NewLibrary(cfg.PromptDir))
		return runTurn(func(sink sse.Sink) error {
			return session.Ask(cmd.Context(), question, pg, sink)
		})
	},
}
