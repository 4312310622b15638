package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pagemate/pagemate/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "pagemate",
	Short: "Chat with any webpage from your terminal",
	Long: `pagemate fetches a webpage, extracts its text, and streams AI answers
about it — summaries or free-form questions — token by token.

Examples:
  pagemate summarize example.com/article
  pagemate ask example.com/article "what are the main arguments?"
  pagemate chat example.com/article`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(config.Init)

	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
}

// SetVersion records the build version on the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the entry point called from main.
func Execute() error {
	return rootCmd.Execute()
}
