package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagemate/pagemate/internal/ai"
	"github.com/pagemate/pagemate/internal/chat"
	"github.com/pagemate/pagemate/internal/config"
	"github.com/pagemate/pagemate/internal/prompt"
	"github.com/pagemate/pagemate/internal/sse"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <url>",
	Short: "Summarize a webpage",
	Long: `Fetch a webpage and stream a short summary of its content.

Examples:
  pagemate summarize https://example.com/article
  pagemate summarize news.ycombinator.com`,
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
		printPageHeader(pg)

		session := chat.NewSession(ai.NewOpenAIProvider(cfg), prompt.NewLibrary(cfg.PromptDir))
		return runTurn(func(sink sse.Sink) error {
			return session.Summarize(cmd.Context(), pg, sink)
		})
	},
}
