package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markwbennett/brief-analyzer/internal/authority"
	"github.com/markwbennett/brief-analyzer/internal/cite"
	"github.com/markwbennett/brief-analyzer/internal/model"
)

// downloadConcurrency bounds parallel opinion fetches; CourtListener's
// rate limiter is the real throttle.
const downloadConcurrency = 4

// runDownload fetches opinion text for every catalog citation that has no
// file yet: one batched citation lookup, then parallel per-cluster
// downloads into authorities/.
func runDownload(ctx context.Context, env *Env) error {
	cfg := env.Config

	idx, err := authority.OpenIndex(cfg.CitationsDB())
	if err != nil {
		return err
	}
	defer idx.Close()

	pending, err := idx.Pending(ctx)
	if err != nil {
		return err
	}
	pending = withoutExistingFiles(pending, cfg.AuthoritiesDir())
	if len(pending) == 0 {
		env.Log.Info("all opinions already downloaded")
		return nil
	}

	if err := os.MkdirAll(cfg.AuthoritiesDir(), 0o755); err != nil {
		return fmt.Errorf("create authorities dir: %w", err)
	}

	// The lookup endpoint takes free text, one citation per line.
	var lines []string
	for _, c := range pending {
		lines = append(lines, c.Key.String())
	}
	matches, err := env.Court.LookupCitations(ctx, strings.Join(lines, "\n"))
	if err != nil {
		return fmt.Errorf("citation lookup: %w", err)
	}

	clusterByKey := make(map[model.CitationKey]string)
	for _, m := range matches {
		if m.Status != 200 || m.ClusterID == "" {
			continue
		}
		if key, ok := cite.ParseKey(m.Citation); ok {
			clusterByKey[key] = m.ClusterID
		}
	}

	var (
		mu       sync.Mutex
		found    []string
		notFound []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)
	for _, c := range pending {
		clusterID, ok := clusterByKey[c.Key]
		if !ok {
			mu.Lock()
			notFound = append(notFound, c.Key.String())
			mu.Unlock()
			env.Log.Warn("citation not found on courtlistener",
				zap.String("cite", c.Key.String()))
			continue
		}

		g.Go(func() error {
			text, err := env.Court.OpinionText(gctx, clusterID)
			if err != nil {
				env.Log.Warn("opinion download failed",
					zap.String("cite", c.Key.String()),
					zap.Error(err))
				mu.Lock()
				notFound = append(notFound, c.Key.String())
				mu.Unlock()
				return nil // one missing opinion is not a step failure
			}

			path := filepath.Join(cfg.AuthoritiesDir(), authorityFilename(c))
			if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			if err := idx.MarkDownloaded(gctx, c.Key); err != nil {
				return err
			}

			mu.Lock()
			found = append(found, c.Key.String())
			mu.Unlock()
			env.Log.Info("downloaded opinion",
				zap.String("cite", c.Key.String()),
				zap.String("file", filepath.Base(path)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return writeDownloadResults(cfg.Project.Dir, found, notFound)
}

// withoutExistingFiles drops citations whose opinion file is already on
// disk, keyed by citation text in the filename.
func withoutExistingFiles(pending []model.Citation, dir string) []model.Citation {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return pending
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}

	var still []model.Citation
	for _, c := range pending {
		have := false
		for _, name := range names {
			if strings.Contains(name, c.Key.String()) {
				have = true
				break
			}
		}
		if !have {
			still = append(still, c)
		}
	}
	return still
}

var unsafeFilenameRE = regexp.MustCompile(`[^A-Za-z0-9 .,'&\[\]()-]+`)

// authorityFilename names an opinion file "Case Name, vol rep page.txt" so
// the store can key it straight from the filename.
func authorityFilename(c model.Citation) string {
	name := c.CaseName
	if name == "" {
		name = "Unknown"
	}
	name = unsafeFilenameRE.ReplaceAllString(name, "_")
	return fmt.Sprintf("%s, %s.txt", name, c.Key)
}

// writeDownloadResults records what was and was not retrieved, for the
// verify step's report and for manual follow-up.
func writeDownloadResults(dir string, found, notFound []string) error {
	results := struct {
		Found    []string `json:"found"`
		NotFound []string `json:"not_found"`
	}{Found: found, NotFound: notFound}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "courtlistener_results.json"), data, 0o644)
}
