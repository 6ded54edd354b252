package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/markwbennett/brief-analyzer/internal/pipeline"
	"github.com/markwbennett/brief-analyzer/internal/state"
)

var (
	forceRun   bool
	runWorkers int
)

// runCmd executes the whole pipeline, resuming from the first step that is
// not completed. Completed steps never re-run without --force.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline (resumes where it left off)",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := buildOrchestrator()
		if err != nil {
			return err
		}
		return o.RunAll(cmd.Context(), forceRun)
	},
}

// stepCmd executes exactly one named step
var stepCmd = &cobra.Command{
	Use:   "step <name>",
	Short: "Run a single pipeline step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := buildOrchestrator()
		if err != nil {
			return err
		}
		return o.RunOne(cmd.Context(), args[0], forceRun)
	},
}

// statusCmd prints the persisted state of every step without running any
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline status",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := buildOrchestrator()
		if err != nil {
			return err
		}

		fmt.Printf("Run %s\n\n", o.RunID())
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STEP\tSTATUS\tDESCRIPTION")
		for _, row := range o.Status() {
			status := string(row.Status)
			if row.Status == state.StatusFailed && row.Error != "" {
				status += " (" + row.Error + ")"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", row.Name, status, row.Description)
		}
		return w.Flush()
	},
}

func buildOrchestrator() (*pipeline.Orchestrator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if runWorkers > 0 {
		cfg.Verify.Workers = runWorkers
	}
	env, err := buildEnv(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.New(env)
}

func init() {
	runCmd.Flags().BoolVar(&forceRun, "force", false, "re-run steps even if completed or output exists")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent verification workers (overrides config)")
	stepCmd.Flags().BoolVar(&forceRun, "force", false, "re-run even if completed or output exists")
	stepCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent verification workers (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stepCmd)
	rootCmd.AddCommand(statusCmd)
}
