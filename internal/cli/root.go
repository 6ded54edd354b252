// Package cli wires the briefcheck command tree: run, step, status,
// config, version.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/markwbennett/brief-analyzer/internal/courtlistener"
	"github.com/markwbennett/brief-analyzer/internal/llm"
	"github.com/markwbennett/brief-analyzer/internal/model"
	"github.com/markwbennett/brief-analyzer/internal/steps"
)

var (
	cfgFile    string
	projectDir string
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "briefcheck",
	Short: "Briefcheck - cite-check appellate briefs against their authorities",
	Long: `Briefcheck runs a resumable pipeline over an appellate case directory:
it fetches filings, converts them to text, extracts the cited authorities,
downloads their opinions, and verifies that every citation in every brief
accurately represents its source.

Verification outcomes are graded (verified, inaccurate with severity,
unsupported) and rendered into CITECHECK.md for human review. Later steps
build on the cite-check: an issue analysis across the briefs and a moot
court question set. Briefcheck flags problems; it does not practice law.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("briefcheck v0.3.0")
	},
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <project>/.briefcheck.yaml)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", "", "project directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initViper reads BRIEFCHECK_* environment variables
func initViper() {
	viper.SetEnvPrefix("BRIEFCHECK")
	viper.AutomaticEnv()
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then environment variables, then flags.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if projectDir != "" {
		cfg.Project.Dir = projectDir
	}

	path := cfgFile
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.Project.Dir, ".briefcheck.yaml")
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &model.ConfigurationError{Field: "config", Reason: fmt.Sprintf("parse %s: %v", path, err)}
		}
	case explicit:
		return nil, &model.ConfigurationError{Field: "config", Reason: fmt.Sprintf("read %s: %v", path, err)}
	}
	// The flag wins over the file's project.dir.
	if projectDir != "" {
		cfg.Project.Dir = projectDir
	}

	applyEnv(cfg)

	if verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets credentials and provider selection come from the
// environment, so config files never need to hold secrets.
func applyEnv(cfg *model.Config) {
	if v := viper.GetString("courtlistener_token"); v != "" {
		cfg.CourtListener.APIToken = v
	}
	if cfg.CourtListener.APIToken == "" {
		cfg.CourtListener.APIToken = os.Getenv("COURTLISTENER_TOKEN")
	}
	if v := viper.GetString("llm_provider"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := viper.GetString("llm_model"); v != "" {
		cfg.LLM.Model = v
	}
	if v := viper.GetString("llm_api_key"); v != "" {
		cfg.LLM.APIKey = v
	}
}

// buildEnv assembles the step environment from configuration
func buildEnv(cfg *model.Config) (*steps.Env, error) {
	log, err := newLogger(cfg.Output.Verbose)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, err
	}

	return &steps.Env{
		Config:   cfg,
		Provider: provider,
		Court:    courtlistener.NewClient(cfg.CourtListener, log),
		Log:      log,
	}, nil
}

// newLogger builds the process logger: human-readable and debug-level when
// verbose, structured production logging otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
