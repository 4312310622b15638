package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagemate/pagemate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pagemate configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Keys:
  endpoint     OpenAI-compatible API base URL
  api_key      Bearer token for the API
  model        Model name
  temperature  Sampling temperature (default 0.3)
  prompt_dir   Directory holding prompt template overrides`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(args[0], args[1]); err != nil {
			return fmt.Errorf("failed to save setting: %w", err)
		}
		fmt.Printf("%s saved.\n", args[0])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Printf("Endpoint:    %s\n", cfg.Endpoint)
		fmt.Printf("Model:       %s\n", cfg.Model)
		fmt.Printf("Temperature: %g\n", cfg.Temperature)
		fmt.Printf("API Key:     %s\n", maskKey(cfg.APIKey))
		fmt.Printf("Prompt Dir:  %s\n", cfg.PromptDir)
		fmt.Printf("Config File: %s\n", config.Path())
		return nil
	},
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}
