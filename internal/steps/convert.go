package steps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// runConvert turns every PDF filing into text under briefs/ by shelling out
// to the configured converter. Document conversion is a collaborator, not
// something this tool implements.
func runConvert(ctx context.Context, env *Env) error {
	cfg := env.Config
	pdfs, err := listPDFs(cfg.Project.Dir, cfg.FilingsDir())
	if err != nil {
		return fmt.Errorf("scan for filings: %w", err)
	}
	if len(pdfs) == 0 {
		return ErrSkip
	}

	if err := os.MkdirAll(cfg.BriefsDir(), 0o755); err != nil {
		return fmt.Errorf("create briefs dir: %w", err)
	}

	for _, pdf := range pdfs {
		base := strings.TrimSuffix(filepath.Base(pdf), filepath.Ext(pdf))
		out := filepath.Join(cfg.BriefsDir(), base+".txt")
		if fileExists(out) {
			env.Log.Debug("already converted", zap.String("filing", base))
			continue
		}

		args := append(append([]string{}, cfg.Converter.Args...), pdf, out)
		cmd := exec.CommandContext(ctx, cfg.Converter.Command, args...)
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("convert %s: %w: %s", base, err, strings.TrimSpace(string(output)))
		}
		env.Log.Info("converted filing", zap.String("filing", base))
	}
	return nil
}

// listPDFs collects PDFs from the filings directory, falling back to the
// project root for hand-assembled projects.
func listPDFs(projectDir, filingsDir string) ([]string, error) {
	for _, dir := range []string{filingsDir, projectDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		var pdfs []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				pdfs = append(pdfs, filepath.Join(dir, e.Name()))
			}
		}
		if len(pdfs) > 0 {
			return pdfs, nil
		}
	}
	return nil, nil
}
