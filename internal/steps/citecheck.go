package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/markwbennett/brief-analyzer/internal/authority"
	"github.com/markwbennett/brief-analyzer/internal/cache"
	"github.com/markwbennett/brief-analyzer/internal/model"
	"github.com/markwbennett/brief-analyzer/internal/verify"
)

// runCiteCheck runs the verification engine over every brief and writes
// the structured results to citecheck.json for the report step.
func runCiteCheck(ctx context.Context, env *Env) error {
	cfg := env.Config

	briefs, err := listBriefs(cfg)
	if err != nil || len(briefs) == 0 {
		return fmt.Errorf("no converted briefs found; run the convert step first")
	}

	store, err := authority.LoadDir(cfg.AuthoritiesDir())
	if err != nil {
		return fmt.Errorf("load authorities: %w", err)
	}
	resolver := authority.NewResolver(store, authority.TieBreak(cfg.Verify.TieBreak))

	var responseCache cache.Cache
	var layered *cache.LayeredCache
	if cfg.Cache.Enabled {
		layered = cache.NewLayeredCache(cfg.Cache.TTL, cfg.CacheDir(), cfg.Cache.TTL)
		responseCache = layered
	}

	engine := verify.NewEngine(env.Provider, responseCache, resolver, cfg.Verify, cfg.LLM, env.Log)

	report := model.CiteCheckReport{
		Project:     cfg.Project.CaseNumber,
		GeneratedAt: time.Now(),
	}
	for _, path := range briefs {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read brief %s: %w", path, err)
		}
		briefName := filepath.Base(path)

		env.Log.Info("checking brief", zap.String("brief", briefName))
		result, err := engine.Verify(ctx, briefName, string(data))
		if err != nil {
			return fmt.Errorf("verify %s: %w", briefName, err)
		}
		counts := result.Count()
		env.Log.Info("brief checked",
			zap.String("brief", briefName),
			zap.Int("assertions", result.Extracted),
			zap.Int("verified", counts.Verified),
			zap.Int("errors", counts.Errors()),
			zap.Int("unchecked", counts.Unchecked))

		report.Briefs = append(report.Briefs, *result)
	}

	if layered != nil {
		memHits, diskHits, misses := layered.Stats()
		env.Log.Info("response cache",
			zap.Uint64("memory_hits", memHits),
			zap.Uint64("disk_hits", diskHits),
			zap.Uint64("misses", misses))
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := os.WriteFile(cfg.ReportJSONFile(), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", cfg.ReportJSONFile(), err)
	}
	return nil
}
