// Package verify implements the citation-verification engine: extraction of
// assertions from brief text, bounded-parallel first-pass verification
// against resolved sources, and a single escalation pass for assertions the
// given source could not settle.
package verify

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/markwbennett/brief-analyzer/internal/authority"
	"github.com/markwbennett/brief-analyzer/internal/cache"
	"github.com/markwbennett/brief-analyzer/internal/cite"
	"github.com/markwbennett/brief-analyzer/internal/llm"
	"github.com/markwbennett/brief-analyzer/internal/model"
	"github.com/markwbennett/brief-analyzer/internal/retry"
	"github.com/markwbennett/brief-analyzer/internal/worker"
)

// sectionBudget caps how much brief text goes into one extraction call
const sectionBudget = 12000

// errEmptyOutput and errEmptyArray classify content failures distinctly
// from upstream and parse failures, so retries log the right failure mode.
var (
	errEmptyOutput = errors.New("service returned empty output")
	errEmptyArray  = errors.New("service returned an empty array")
)

// Engine verifies the citations of one brief at a time. It is safe to reuse
// across briefs; all per-brief state lives in the call frames.
type Engine struct {
	provider llm.Provider
	cache    cache.Cache // nil disables memoization
	resolver *authority.Resolver
	policy   retry.Policy
	limiter  *rate.Limiter
	workers  int

	verifyModel  string
	extractModel string // falls back to verifyModel when empty
	maxTokens    int

	log *zap.Logger
}

// NewEngine wires a verification engine from its collaborators. cacheStore
// may be nil.
func NewEngine(provider llm.Provider, cacheStore cache.Cache, resolver *authority.Resolver, cfg model.VerifyConfig, llmCfg model.LLMConfig, log *zap.Logger) *Engine {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}
	policy := retry.Default()
	if cfg.MaxRetries > 0 {
		policy.MaxAttempts = cfg.MaxRetries
	}
	policy.Retryable = retryableCall

	extractModel := llmCfg.ExtractionModel
	if extractModel == "" {
		extractModel = llmCfg.Model
	}

	return &Engine{
		provider:     provider,
		cache:        cacheStore,
		resolver:     resolver,
		policy:       policy,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		workers:      cfg.Workers,
		verifyModel:  llmCfg.Model,
		extractModel: extractModel,
		maxTokens:    llmCfg.MaxTokens,
		log:          log,
	}
}

// retryableCall declines retries only for upstream errors the service has
// classified as permanent. Content failures (empty output, empty array,
// unparseable text) are always worth another attempt within the bound.
func retryableCall(err error) bool {
	var upstream *llm.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Retryable()
	}
	return true
}

// Verify runs the full engine over one brief: extract, first pass,
// escalation, aggregation. Failures local to one source or assertion leave
// that work unchecked; they never abort the brief.
func (e *Engine) Verify(ctx context.Context, briefName, briefText string) (*model.BriefResult, error) {
	assertions, unextractable := e.extract(ctx, briefName, briefText)

	result := &model.BriefResult{
		Brief:         briefName,
		Extracted:     len(assertions),
		Unextractable: unextractable,
		Assertions:    assertions,
	}
	if len(assertions) == 0 {
		return result, ctx.Err()
	}

	groups, unresolved := e.partition(assertions)
	result.Unresolved = unresolved

	outcomes := e.firstPass(ctx, assertions, groups)

	moreUnresolved := e.escalate(ctx, assertions, outcomes)
	result.Unresolved = mergeUnresolved(result.Unresolved, moreUnresolved)

	for i := range result.Assertions {
		result.Assertions[i].Outcome = outcomes[i]
	}
	return result, ctx.Err()
}

// extract runs one reasoning call per brief section and maps the decoded
// items onto CitationAssertions. A section that stays undecodable after
// retries flags the brief; sections that did decode still contribute.
func (e *Engine) extract(ctx context.Context, briefName, briefText string) ([]model.CitationAssertion, bool) {
	var assertions []model.CitationAssertion
	failed := false

	for i, section := range sections(briefText) {
		locator := sectionLocator(i)
		var items []extractedItem
		err := e.callService(ctx, briefName+"/"+locator, e.extractModel, extractSystem, extractPrompt(locator, section), func(raw string) error {
			items = items[:0]
			return decodeArray(raw, &items)
		})
		if err != nil {
			e.log.Warn("section extraction failed",
				zap.String("brief", briefName),
				zap.String("section", locator),
				zap.Error(err))
			failed = true
			continue
		}
		for _, item := range items {
			assertions = append(assertions, item.toAssertion(briefName, locator))
		}
	}

	return assertions, failed
}

// sourceGroup collects the assertions checked against one source text
type sourceGroup struct {
	label   string
	text    string
	indexes []int
}

// partition maps each assertion to the source most plausibly able to check
// it, via the disambiguator. Assertions whose citation cannot be resolved
// are reported for human review, never silently guessed.
func (e *Engine) partition(assertions []model.CitationAssertion) (map[string]*sourceGroup, []string) {
	groups := make(map[string]*sourceGroup)
	var unresolved []string

	// last tracks the most recently resolved authority in document order,
	// so an "Id." cite refers back to it.
	var last *authority.Authority

	for i, a := range assertions {
		auth, err := e.resolver.Resolve(a.Key, a.CaseName)
		if err != nil && a.Key.IsZero() && cite.HasIDCite(a.CiteText) && last != nil {
			auth, err = last, nil
		}
		if err != nil {
			var amb *authority.AmbiguousAuthorityError
			if errors.As(err, &amb) {
				e.log.Warn("ambiguous citation needs human review",
					zap.String("cite", a.CiteText),
					zap.Strings("candidates", amb.Candidates))
			}
			unresolved = append(unresolved, a.CiteText)
			continue
		}
		last = auth
		label := auth.Label()
		g, ok := groups[label]
		if !ok {
			g = &sourceGroup{label: label, text: auth.Text}
			groups[label] = g
		}
		g.indexes = append(g.indexes, i)
	}

	return groups, dedupStrings(unresolved)
}

// sourceJob verifies one source's batch of assertions on a pool worker
type sourceJob struct {
	engine     *Engine
	group      *sourceGroup
	assertions []model.CitationAssertion
}

// sourceResult carries one source's outcomes keyed by assertion index
type sourceResult struct {
	source   string
	outcomes map[int]*model.VerificationOutcome
	err      error
}

func (r *sourceResult) GetError() error { return r.err }

func (j *sourceJob) Execute(ctx context.Context) worker.Result {
	outcomes, err := j.engine.verifySource(ctx, j.assertions, j.group)
	return &sourceResult{source: j.group.label, outcomes: outcomes, err: err}
}

// firstPass fans verification out across the pool, one job per distinct
// source, and merges the results after the barrier. A job that failed after
// retries leaves its assertions unchecked.
func (e *Engine) firstPass(ctx context.Context, assertions []model.CitationAssertion, groups map[string]*sourceGroup) map[int]*model.VerificationOutcome {
	pool := worker.NewPool(e.workers)
	pool.Start()
	defer pool.Shutdown()

	for _, label := range sortedLabels(groups) {
		pool.Submit(&sourceJob{engine: e, group: groups[label], assertions: assertions})
	}

	outcomes := make(map[int]*model.VerificationOutcome)
	for _, res := range pool.Wait() {
		sr := res.(*sourceResult)
		if sr.err != nil {
			e.log.Warn("source verification failed",
				zap.String("source", sr.source),
				zap.Error(sr.err))
			continue
		}
		for idx, o := range sr.outcomes {
			outcomes[idx] = model.MoreSevere(outcomes[idx], o)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return outcomes
}

// verifySource makes one reasoning call covering every assertion grouped
// under a source and maps the numbered answers back to assertion indexes.
func (e *Engine) verifySource(ctx context.Context, assertions []model.CitationAssertion, g *sourceGroup) (map[int]*model.VerificationOutcome, error) {
	prompt := verifyPrompt(assertions, g.indexes, g.label, g.text)

	var wire []wireOutcome
	err := e.callService(ctx, g.label, e.verifyModel, verifySystem, prompt, func(raw string) error {
		wire = wire[:0]
		return decodeArray(raw, &wire)
	})
	if err != nil {
		return nil, err
	}

	outcomes := make(map[int]*model.VerificationOutcome)
	for _, w := range wire {
		n := w.Assertion - 1 // prompt numbering is 1-based
		if n < 0 || n >= len(g.indexes) {
			e.log.Warn("response references unknown assertion",
				zap.String("source", g.label),
				zap.Int("assertion", w.Assertion))
			continue
		}
		outcomes[g.indexes[n]] = w.toOutcome(g.label)
	}
	return outcomes, nil
}

// callService is the single path to the reasoning service: rate limit,
// cache lookup, bounded retries, and per-failure-mode logging. decode must
// reject responses it cannot use; its error drives the retry.
func (e *Engine) callService(ctx context.Context, label, model, system, prompt string, decode func(raw string) error) error {
	key := cache.PromptKey(e.provider.Name()+"/"+model, system+"\x00"+prompt)
	if e.cache != nil {
		if raw, ok := e.cache.Get(key); ok {
			if err := decode(string(raw)); err == nil {
				return nil
			}
			// A cached response that no longer decodes is stale, not fatal.
			_ = e.cache.Delete(key)
		}
	}

	return e.policy.Do(ctx, func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := e.provider.Complete(ctx, llm.Request{System: system, Prompt: prompt, Model: model, MaxTokens: e.maxTokens})
		if err != nil {
			var upstream *llm.UpstreamError
			if errors.As(err, &upstream) {
				e.log.Warn("reasoning service error",
					zap.String("unit", label),
					zap.String("failure", "upstream_error"),
					zap.Int("code", upstream.Code),
					zap.String("message", upstream.Message))
			} else {
				e.log.Warn("reasoning call failed",
					zap.String("unit", label),
					zap.Error(err))
			}
			return err
		}

		if strings.TrimSpace(resp.Text) == "" {
			e.log.Warn("reasoning service returned nothing",
				zap.String("unit", label),
				zap.String("failure", "empty_output"))
			return errEmptyOutput
		}

		if err := decode(resp.Text); err != nil {
			failure := "parse_error"
			if errors.Is(err, errEmptyArray) {
				failure = "empty_array"
			}
			e.log.Warn("undecodable response",
				zap.String("unit", label),
				zap.String("failure", failure),
				zap.Error(err))
			return err
		}

		if e.cache != nil {
			if err := e.cache.Set(key, []byte(resp.Text), 0); err != nil {
				e.log.Debug("cache write failed", zap.Error(err))
			}
		}
		return nil
	})
}

// decodeArray extracts the response's JSON array into out and rejects an
// empty one, so a content-free answer is retried like a parse failure.
func decodeArray[T any](raw string, out *[]T) error {
	if err := llm.ExtractArray(raw, out); err != nil {
		return err
	}
	if len(*out) == 0 {
		return errEmptyArray
	}
	return nil
}

// extractedItem is the wire shape of one extracted citation use
type extractedItem struct {
	CaseName    string `json:"case_name"`
	Volume      string `json:"volume"`
	Reporter    string `json:"reporter"`
	Page        string `json:"page"`
	CiteText    string `json:"cite_text"`
	Purpose     string `json:"purpose"`
	Context     string `json:"context"`
	Proposition string `json:"proposition"`
	Quotation   string `json:"quotation"`
	Locator     string `json:"locator"`
}

func (it extractedItem) toAssertion(brief, sectionLoc string) model.CitationAssertion {
	locator := it.Locator
	if locator == "" {
		locator = sectionLoc
	}
	purpose := model.PurposeTag(strings.ToLower(it.Purpose))
	switch purpose {
	case model.PurposeSupporting, model.PurposeExtending, model.PurposeCritiquing, model.PurposeBackground:
	default:
		purpose = model.PurposeBackground
	}
	return model.CitationAssertion{
		Brief:       brief,
		Locator:     locator,
		CiteText:    it.CiteText,
		Key:         model.CitationKey{Volume: it.Volume, Reporter: it.Reporter, Page: it.Page},
		CaseName:    it.CaseName,
		Purpose:     purpose,
		Context:     it.Context,
		Proposition: it.Proposition,
		Quotation:   it.Quotation,
	}
}

// wireOutcome is the wire shape of one verification answer
type wireOutcome struct {
	Assertion       int      `json:"assertion"`
	Status          string   `json:"status"`
	Severity        string   `json:"severity"`
	Detail          string   `json:"detail"`
	NeededCitations []string `json:"needed_citations"`
}

func (w wireOutcome) toOutcome(source string) *model.VerificationOutcome {
	o := &model.VerificationOutcome{
		Detail: w.Detail,
		Source: source,
	}
	switch model.OutcomeStatus(strings.ToLower(w.Status)) {
	case model.StatusVerified:
		o.Status = model.StatusVerified
	case model.StatusInaccurate:
		o.Status = model.StatusInaccurate
		o.Severity = normalizeSeverity(w.Severity)
	case model.StatusNeedsSource:
		o.Status = model.StatusNeedsSource
		o.NeededKeys = w.NeededCitations
	default:
		o.Status = model.StatusUnsupported
	}
	return o
}

func normalizeSeverity(s string) model.Severity {
	switch model.Severity(strings.ToLower(s)) {
	case model.SeverityCritical:
		return model.SeverityCritical
	case model.SeveritySignificant:
		return model.SeveritySignificant
	case model.SeverityModerate:
		return model.SeverityModerate
	default:
		return model.SeverityMinor
	}
}

// sections splits brief text into paragraph groups no larger than the
// extraction budget, keeping paragraphs intact.
func sections(text string) []string {
	paras := strings.Split(text, "\n\n")
	var out []string
	var cur strings.Builder

	for _, p := range paras {
		if cur.Len() > 0 && cur.Len()+len(p) > sectionBudget {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, cur.String())
	}
	return out
}

func sectionLocator(i int) string {
	return "section " + strconv.Itoa(i+1)
}

func sortedLabels(groups map[string]*sourceGroup) []string {
	labels := make([]string, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func mergeUnresolved(a, b []string) []string {
	return dedupStrings(append(a, b...))
}
