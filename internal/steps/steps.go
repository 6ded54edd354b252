// Package steps implements the seven pipeline steps. Each step is a named
// unit taking an environment and returning success, failure, or ErrSkip;
// the orchestrator never looks inside.
package steps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/markwbennett/brief-analyzer/internal/courtlistener"
	"github.com/markwbennett/brief-analyzer/internal/llm"
	"github.com/markwbennett/brief-analyzer/internal/model"
)

// ErrSkip signals that a step has nothing to do for this project and
// should be recorded as skipped rather than completed.
var ErrSkip = errors.New("nothing to do for this step")

// Env carries the collaborators steps share. Steps run one at a time, so
// Env needs no locking.
type Env struct {
	Config   *model.Config
	Provider llm.Provider
	Court    *courtlistener.Client
	Log      *zap.Logger
}

// Step is one named pipeline unit
type Step struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *Env) error

	// OutputExists probes for the step's output so a resumed run can skip
	// work already on disk. Nil means the step always runs.
	OutputExists func(env *Env) bool
}

// All returns every step in execution order
func All() []Step {
	return []Step{
		{
			Name:         "fetch",
			Description:  "download case filings",
			Run:          runFetch,
			OutputExists: docketExists,
		},
		{
			Name:         "convert",
			Description:  "convert filings to text",
			Run:          runConvert,
			OutputExists: briefsExist,
		},
		{
			Name:         "authorities",
			Description:  "extract cited authorities",
			Run:          runAuthorities,
			OutputExists: authoritiesFileExists,
		},
		{
			Name:         "download",
			Description:  "download opinion texts",
			Run:          runDownload,
			OutputExists: nil, // cheap and idempotent; always reconciles
		},
		{
			Name:        "verify",
			Description: "verify authorities resolve to files",
			Run:         runVerifyAuthorities,
		},
		{
			Name:         "citecheck",
			Description:  "verify citations against sources",
			Run:          runCiteCheck,
			OutputExists: citecheckExists,
		},
		{
			Name:         "report",
			Description:  "render the cite-check report",
			Run:          runReport,
			OutputExists: reportExists,
		},
		{
			Name:         "analysis",
			Description:  "analyze the issues across briefs",
			Run:          runAnalysis,
			OutputExists: analysisExists,
		},
		{
			Name:         "mootqa",
			Description:  "generate moot court questions",
			Run:          runMootQA,
			OutputExists: mootQAExists,
		},
	}
}

// Shared path probes.

func docketExists(env *Env) bool {
	return fileExists(filepath.Join(env.Config.Project.Dir, "docket.json"))
}

func briefsExist(env *Env) bool {
	briefs, err := listBriefs(env.Config)
	return err == nil && len(briefs) > 0
}

func authoritiesFileExists(env *Env) bool {
	return fileExists(env.Config.AuthoritiesFile())
}

func citecheckExists(env *Env) bool {
	return fileExists(env.Config.ReportJSONFile())
}

func analysisExists(env *Env) bool {
	return fileExists(env.Config.AnalysisFile())
}

func mootQAExists(env *Env) bool {
	return fileExists(env.Config.MootQAFile())
}

func reportExists(env *Env) bool {
	return fileExists(env.Config.ReportFile())
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// listBriefs returns the converted brief files, sorted by name
func listBriefs(cfg *model.Config) ([]string, error) {
	dir := cfg.BriefsDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var briefs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			briefs = append(briefs, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(briefs)
	return briefs, nil
}
