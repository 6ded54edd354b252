package verify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/markwbennett/brief-analyzer/internal/cite"
	"github.com/markwbennett/brief-analyzer/internal/model"
	"github.com/markwbennett/brief-analyzer/internal/worker"
)

// escalate runs the second verification pass for every assertion whose
// first-pass outcome named a different document. Each escalation re-checks
// one assertion against the resolved source(s); a needs_source answer from
// this pass becomes unsupported, so no assertion is ever escalated twice.
// Returns the needed citations that could not be resolved to any authority.
func (e *Engine) escalate(ctx context.Context, assertions []model.CitationAssertion, outcomes map[int]*model.VerificationOutcome) []string {
	type escalation struct {
		index   int
		sources []*sourceGroup
	}

	var (
		pending    []escalation
		unresolved []string
	)
	for idx, o := range outcomes {
		if o == nil || o.Status != model.StatusNeedsSource {
			continue
		}
		var sources []*sourceGroup
		for _, needed := range o.NeededKeys {
			c, ok := cite.ParseOne(needed)
			if !ok {
				e.log.Warn("unparseable needed citation",
					zap.String("cite", needed),
					zap.String("assertion", assertions[idx].CiteText))
				unresolved = append(unresolved, needed)
				continue
			}
			auth, err := e.resolver.Resolve(c.Key, c.CaseName)
			if err != nil {
				e.log.Warn("needed source unavailable",
					zap.String("cite", needed),
					zap.Error(err))
				unresolved = append(unresolved, needed)
				continue
			}
			sources = append(sources, &sourceGroup{label: auth.Label(), text: auth.Text, indexes: []int{idx}})
		}

		if len(sources) == 0 {
			// Nothing to re-check against; terminal by policy.
			outcomes[idx] = &model.VerificationOutcome{
				Status:    model.StatusUnsupported,
				Detail:    "needed source could not be resolved: " + o.Detail,
				Source:    o.Source,
				Escalated: true,
			}
			continue
		}
		pending = append(pending, escalation{index: idx, sources: sources})
	}

	if len(pending) == 0 {
		return dedupStrings(unresolved)
	}

	// One goroutine per escalation, bounded by the worker count. There are
	// few enough escalations that full pool plumbing is not worth it;
	// results accumulate in a collector and merge after the barrier.
	sem := make(chan struct{}, e.workers)
	collector := worker.NewCollector()
	var wg sync.WaitGroup
	for _, esc := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(esc escalation) {
			defer wg.Done()
			defer func() { <-sem }()

			collector.Add(&escalationResult{
				index:   esc.index,
				outcome: e.reverify(ctx, assertions, esc.index, esc.sources),
			})
		}(esc)
	}
	wg.Wait()

	for _, res := range collector.Results() {
		er := res.(*escalationResult)
		outcomes[er.index] = er.outcome
	}

	return dedupStrings(unresolved)
}

// escalationResult carries one re-checked assertion's final outcome
type escalationResult struct {
	index   int
	outcome *model.VerificationOutcome
}

// GetError is always nil; reverify folds failures into the outcome itself
func (r *escalationResult) GetError() error { return nil }

// reverify re-checks a single assertion against each resolved source and
// merges the answers, converting any further needs_source to unsupported.
func (e *Engine) reverify(ctx context.Context, assertions []model.CitationAssertion, idx int, sources []*sourceGroup) *model.VerificationOutcome {
	var merged *model.VerificationOutcome
	for _, src := range sources {
		got, err := e.verifySource(ctx, assertions, src)
		if err != nil {
			e.log.Warn("escalated verification failed",
				zap.String("source", src.label),
				zap.Error(err))
			continue
		}
		merged = model.MoreSevere(merged, got[idx])
	}

	if merged == nil {
		merged = &model.VerificationOutcome{
			Status: model.StatusUnsupported,
			Detail: "escalated verification produced no answer",
		}
	}
	if merged.Status == model.StatusNeedsSource {
		merged = &model.VerificationOutcome{
			Status: model.StatusUnsupported,
			Detail: "still unconfirmed after checking the named source: " + merged.Detail,
			Source: merged.Source,
		}
	}
	merged.Escalated = true
	merged.NeededKeys = nil
	return merged
}
