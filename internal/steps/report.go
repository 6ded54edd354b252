package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/markwbennett/brief-analyzer/internal/model"
	"github.com/markwbennett/brief-analyzer/internal/report"
)

// runReport renders CITECHECK.md from the structured results the citecheck
// step wrote. Split from citecheck so the markdown can be regenerated
// without re-spending on verification.
func runReport(ctx context.Context, env *Env) error {
	data, err := os.ReadFile(env.Config.ReportJSONFile())
	if err != nil {
		return fmt.Errorf("read citecheck results (run the citecheck step first): %w", err)
	}

	var r model.CiteCheckReport
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("decode citecheck results: %w", err)
	}

	md := report.Markdown(&r)
	if err := os.WriteFile(env.Config.ReportFile(), []byte(md), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	env.Log.Info("report written",
		zap.String("file", env.Config.ReportFile()),
		zap.Int("briefs", len(r.Briefs)))
	return nil
}
