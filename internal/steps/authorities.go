package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/markwbennett/brief-analyzer/internal/authority"
	"github.com/markwbennett/brief-analyzer/internal/cite"
	"github.com/markwbennett/brief-analyzer/internal/llm"
	"github.com/markwbennett/brief-analyzer/internal/model"
	"github.com/markwbennett/brief-analyzer/internal/retry"
)

const authoritiesSystem = `You are a legal research assistant. You read appellate briefs and list every authority they cite. You output only JSON.`

const authoritiesPromptFormat = `List every unique case citation in this brief.

For each case output a JSON object:
- case_name: the case name as cited (e.g., "Theus v. State")
- volume: reporter volume number
- reporter: reporter abbreviation (e.g., "S.W.2d", "U.S.", "F.3d", "WL")
- page: starting page or WL number
- court: court as identified in the brief, if given
- year: year as cited, if given
- proposition: what the brief cites this case for (1-2 sentences)

Output ONLY a JSON array. No commentary, no markdown fencing.

BRIEF (%s):

%s`

// citedAuthority is the wire shape of one extracted table-of-authorities row
type citedAuthority struct {
	CaseName    string `json:"case_name"`
	Volume      string `json:"volume"`
	Reporter    string `json:"reporter"`
	Page        string `json:"page"`
	Court       string `json:"court"`
	Year        string `json:"year"`
	Proposition string `json:"proposition"`
}

// authorityEntry accumulates one citation across briefs for the report
type authorityEntry struct {
	citation     model.Citation
	court, year  string
	citedBy      []string
	propositions []string
}

// runAuthorities builds the table of authorities: one reasoning call per
// brief, mechanical citation parsing as the fallback, results recorded in
// the citations catalog and rendered to AUTHORITIES.md.
func runAuthorities(ctx context.Context, env *Env) error {
	briefs, err := listBriefs(env.Config)
	if err != nil || len(briefs) == 0 {
		return fmt.Errorf("no converted briefs found; run the convert step first")
	}

	idx, err := authority.OpenIndex(env.Config.CitationsDB())
	if err != nil {
		return err
	}
	defer idx.Close()

	policy := retry.Default()
	entries := make(map[model.CitationKey]*authorityEntry)

	for _, path := range briefs {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read brief %s: %w", path, err)
		}
		briefName := filepath.Base(path)

		cited := extractAuthorities(ctx, env, policy, briefName, string(data))
		for _, ca := range cited {
			key := model.CitationKey{Volume: ca.Volume, Reporter: ca.Reporter, Page: ca.Page}
			if key.IsZero() {
				continue
			}
			c := model.Citation{CaseName: ca.CaseName, Key: key, Court: ca.Court, Year: ca.Year}
			if err := idx.Record(ctx, c, briefName, ""); err != nil {
				return err
			}

			entry, ok := entries[key]
			if !ok {
				entry = &authorityEntry{citation: c, court: ca.Court, year: ca.Year}
				entries[key] = entry
			}
			entry.citedBy = appendUnique(entry.citedBy, briefName)
			if ca.Proposition != "" {
				entry.propositions = appendUnique(entry.propositions, ca.Proposition)
			}
		}
		env.Log.Info("extracted authorities",
			zap.String("brief", briefName),
			zap.Int("citations", len(cited)))
	}

	if len(entries) == 0 {
		return fmt.Errorf("no authorities found in any brief")
	}
	return writeAuthoritiesFile(env.Config.AuthoritiesFile(), entries)
}

// extractAuthorities asks the reasoning service for the brief's citations,
// falling back to mechanical parsing when the service cannot answer.
func extractAuthorities(ctx context.Context, env *Env, policy retry.Policy, briefName, text string) []citedAuthority {
	prompt := fmt.Sprintf(authoritiesPromptFormat, briefName, text)

	var cited []citedAuthority
	err := policy.Do(ctx, func() error {
		resp, err := env.Provider.Complete(ctx, llm.Request{
			System:    authoritiesSystem,
			Prompt:    prompt,
			Model:     env.Config.LLM.Model,
			MaxTokens: env.Config.LLM.MaxTokens,
		})
		if err != nil {
			return err
		}
		cited = cited[:0]
		return llm.ExtractArray(resp.Text, &cited)
	})
	if err == nil {
		return cited
	}

	env.Log.Warn("authority extraction falling back to mechanical parsing",
		zap.String("brief", briefName),
		zap.Error(err))
	var fallback []citedAuthority
	for _, c := range cite.ParseAll(text) {
		fallback = append(fallback, citedAuthority{
			CaseName: c.CaseName,
			Volume:   c.Key.Volume,
			Reporter: c.Key.Reporter,
			Page:     c.Key.Page,
			Year:     c.Year,
		})
	}
	return fallback
}

// writeAuthoritiesFile renders AUTHORITIES.md: unnumbered case entries with
// cited-by and proposition lines, plus a Westlaw ci() search block.
func writeAuthoritiesFile(path string, entries map[model.CitationKey]*authorityEntry) error {
	keys := make([]model.CitationKey, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return entries[keys[i]].citation.CaseName < entries[keys[j]].citation.CaseName
	})

	var b strings.Builder
	b.WriteString("# Authorities\n\n## Cases\n\n")
	for _, k := range keys {
		e := entries[k]
		b.WriteString("**" + e.citation.CaseName + ", " + k.String())
		if e.court != "" || e.year != "" {
			b.WriteString(" (" + strings.TrimSpace(e.court+" "+e.year) + ")")
		}
		b.WriteString("**\n")
		b.WriteString("- Cited by: " + strings.Join(e.citedBy, ", ") + "\n")
		for _, p := range e.propositions {
			b.WriteString("- Proposition: " + p + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Westlaw Search Terms\n\n")
	var cites []string
	for _, k := range keys {
		cites = append(cites, `"`+k.String()+`"`)
	}
	b.WriteString("ci(" + strings.Join(cites, " ") + ")\n")

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
