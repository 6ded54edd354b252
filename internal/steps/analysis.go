package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/markwbennett/brief-analyzer/internal/llm"
	"github.com/markwbennett/brief-analyzer/internal/retry"
)

const analysisSystem = `You are a senior appellate attorney analyzing a Texas criminal appeal for moot court preparation. You have access to all briefs and the cite-check report.`

const analysisPromptFormat = `## Briefs and Filings
%s

## Cite-Check Report

%s

## Instructions

Produce a comprehensive issue analysis organized by issue. For each issue:

1. **State the issue** as the court would frame it
2. **Appellant's argument**: Summarize with key citations
3. **State's response**: Summarize with key citations
4. **Appellant's reply** (if applicable): Summarize
5. **Analysis**:
   - Which side has the stronger argument and why
   - Key authorities and what they actually hold (informed by cite-check findings)
   - Weaknesses in each side's position
   - How the cite-check findings affect the analysis
6. **Prediction**: Likely outcome on this issue with confidence level
7. **Oral argument hot spots**: What questions the panel is likely to ask on this issue

Cover every substantive issue raised in the briefs, including error preservation,
standard of review, application of the standard to the facts, harm analysis, and
ancillary issues. Flag any cite-check errors that materially affect the analysis,
note where authorities are unpublished, and identify the 2-3 arguments most likely
to be decisive.

Output the full markdown document now.`

const mootQASystem = `You are a seasoned appellate judge preparing for oral argument in a Texas criminal appeal. You have read all the briefs, the issue analysis, and the cite-check report.`

const mootQAPromptFormat = `## Briefs and Filings
%s

## Issue Analysis

%s

## Cite-Check Report

%s

## Instructions

Produce a comprehensive moot court preparation document, structured as follows:

### Part One: Questions for Appellant
For each question:
- **Q**: The question as a judge would ask it
- **Why the court asks this**: What concern or issue motivates this question
- **Suggested answer**: The strongest response, with citations
- **Follow-up**: The likely follow-up question
- **Trap to avoid**: What NOT to say and why

### Part Two: Questions for the State/Appellee
Same format as Part One.

### Part Three: Questions for Either Side
Questions that could be directed to either party, same format.

### Part Four: Rapid-Fire Preparation
10 short-answer questions with concise (1-2 sentence) answers for quick review.

### Part Five: The Questions That Will Decide the Case
Identify the 3 questions most likely to determine the outcome. For each: the
question, why it matters, how each side should answer, and what the answer
likely is.

Frame questions as a judge would: pointed, specific, testing the limits of each
argument. Use the cite-check findings to craft questions that expose weaknesses.
Include questions about the implications of ruling for each side, about
unpublished authorities and their weight, and questions that test whether
counsel knows the record. Aim for 10-15 questions per side in Parts One and Two.

Output the full markdown document now.`

// runAnalysis writes ISSUE_ANALYSIS.md: a per-issue breakdown of the briefs
// informed by the cite-check findings.
func runAnalysis(ctx context.Context, env *Env) error {
	listing, err := briefListing(env)
	if err != nil {
		return err
	}
	citecheck, err := requireFile(env.Config.ReportFile(), "report")
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf(analysisPromptFormat, listing, citecheck)
	text, err := completeDocument(ctx, env, analysisSystem, prompt)
	if err != nil {
		return fmt.Errorf("issue analysis: %w", err)
	}

	env.Log.Info("issue analysis written", zap.Int("bytes", len(text)))
	return os.WriteFile(env.Config.AnalysisFile(), []byte(text), 0o644)
}

// runMootQA writes MOOT_QA.md: anticipated oral-argument questions built on
// the briefs, the issue analysis, and the cite-check findings.
func runMootQA(ctx context.Context, env *Env) error {
	listing, err := briefListing(env)
	if err != nil {
		return err
	}
	analysis, err := requireFile(env.Config.AnalysisFile(), "analysis")
	if err != nil {
		return err
	}
	citecheck, err := requireFile(env.Config.ReportFile(), "report")
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf(mootQAPromptFormat, listing, analysis, citecheck)
	text, err := completeDocument(ctx, env, mootQASystem, prompt)
	if err != nil {
		return fmt.Errorf("moot court questions: %w", err)
	}

	env.Log.Info("moot court questions written", zap.Int("bytes", len(text)))
	return os.WriteFile(env.Config.MootQAFile(), []byte(text), 0o644)
}

// briefListing concatenates every converted brief into delimited blocks.
// listBriefs sorts by filename, so prompts are stable across runs.
func briefListing(env *Env) (string, error) {
	briefs, err := listBriefs(env.Config)
	if err != nil || len(briefs) == 0 {
		return "", fmt.Errorf("no converted briefs found; run the convert step first")
	}

	var b strings.Builder
	for _, path := range briefs {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read brief %s: %w", path, err)
		}
		name := filepath.Base(path)
		fmt.Fprintf(&b, "\n\n--- BEGIN %s ---\n%s\n--- END %s ---\n", name, string(data), name)
	}
	return b.String(), nil
}

func requireFile(path, step string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s not found; run the %s step first", filepath.Base(path), step)
	}
	return string(data), nil
}

// documentRetry is a variable so tests can shrink the backoff
var documentRetry = retry.Default()

// completeDocument asks the reasoning service for a whole markdown document,
// retrying transient failures. Empty responses are errors; a blank analysis
// on disk would make every later step skip silently.
func completeDocument(ctx context.Context, env *Env, system, prompt string) (string, error) {
	policy := documentRetry

	var text string
	err := policy.Do(ctx, func() error {
		resp, err := env.Provider.Complete(ctx, llm.Request{
			System:    system,
			Prompt:    prompt,
			Model:     env.Config.LLM.Model,
			MaxTokens: env.Config.LLM.MaxTokens,
		})
		if err != nil {
			return err
		}
		text = strings.TrimSpace(resp.Text)
		if text == "" {
			return fmt.Errorf("empty response")
		}
		return nil
	})
	return text, err
}
