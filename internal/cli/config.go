package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/markwbennett/brief-analyzer/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage briefcheck configuration",
	Long: `Manage briefcheck configuration.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (BRIEFCHECK_*, COURTLISTENER_TOKEN)
3. Config file (<project>/.briefcheck.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Never echo credentials back to the terminal.
		cfg.CourtListener.APIToken = redact(cfg.CourtListener.APIToken)
		cfg.LLM.APIKey = redact(cfg.LLM.APIKey)

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .briefcheck.yaml into the project directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := model.DefaultConfig()
		if projectDir != "" {
			cfg.Project.Dir = projectDir
		}
		path := filepath.Join(cfg.Project.Dir, ".briefcheck.yaml")
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("error writing config file: %w", err)
		}

		fmt.Printf("Created %s\n", path)
		fmt.Println("Set COURTLISTENER_TOKEN and your provider's API key in the environment.")
		return nil
	},
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[set]"
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
