package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// runFetch looks the configured case up on CourtListener and records its
// docket metadata. Projects without a case number skip this step; their
// filings were gathered by hand.
func runFetch(ctx context.Context, env *Env) error {
	caseNumber := env.Config.Project.CaseNumber
	if caseNumber == "" {
		return ErrSkip
	}

	docket, err := env.Court.FindDocket(ctx, caseNumber, env.Config.Project.Court)
	if err != nil {
		return fmt.Errorf("fetch docket for %s: %w", caseNumber, err)
	}

	env.Log.Info("found docket",
		zap.Int("id", docket.ID),
		zap.String("case", docket.CaseName),
		zap.String("docket_number", docket.DocketNum))

	data, err := json.MarshalIndent(docket, "", "  ")
	if err != nil {
		return fmt.Errorf("encode docket: %w", err)
	}
	path := filepath.Join(env.Config.Project.Dir, "docket.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write docket.json: %w", err)
	}
	return nil
}
