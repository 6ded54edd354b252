package authority

import (
	"fmt"

	"github.com/markwbennett/brief-analyzer/internal/cite"
	"github.com/markwbennett/brief-analyzer/internal/model"
)

// AmbiguousAuthorityError means multiple authorities share a citation key
// and no case-name hint was available to pick one. It surfaces in the
// report for human review; the engine never guesses silently.
type AmbiguousAuthorityError struct {
	Key        model.CitationKey
	Candidates []string // Filenames of the colliding authorities
}

func (e *AmbiguousAuthorityError) Error() string {
	return fmt.Sprintf("ambiguous authority %s: %d candidates and no case-name hint", e.Key, len(e.Candidates))
}

// TieBreak selects which candidate wins an exact score tie
type TieBreak string

const (
	// TieBreakNewest prefers the most recently ingested source file
	TieBreakNewest TieBreak = "newest"
	// TieBreakOldest prefers the earliest ingested source file
	TieBreakOldest TieBreak = "oldest"
)

// Resolver disambiguates citation keys shared by companion cases
type Resolver struct {
	store    *Store
	tieBreak TieBreak
}

// NewResolver creates a resolver over the store
func NewResolver(store *Store, tieBreak TieBreak) *Resolver {
	if tieBreak == "" {
		tieBreak = TieBreakNewest
	}
	return &Resolver{store: store, tieBreak: tieBreak}
}

// Resolve maps a citation key to exactly one authority. With a single
// candidate the answer is immediate. When companion cases reported at the
// same page share the key, candidates are scored by token overlap
// between their stored case-name keywords and the hint, and the ingestion
// tie-break settles equal scores. A collision with no hint is an
// AmbiguousAuthorityError.
func (r *Resolver) Resolve(key model.CitationKey, caseNameHint string) (*Authority, error) {
	candidates := r.store.Candidates(key)
	switch len(candidates) {
	case 0:
		return r.fallback(key, caseNameHint)
	case 1:
		return candidates[0], nil
	}

	if caseNameHint == "" {
		files := make([]string, len(candidates))
		for i, c := range candidates {
			files[i] = c.File
		}
		return nil, &AmbiguousAuthorityError{Key: key, Candidates: files}
	}

	best := candidates[0]
	bestScore := cite.TokenOverlap(best.Keywords, caseNameHint)
	for _, cand := range candidates[1:] {
		score := cite.TokenOverlap(cand.Keywords, caseNameHint)
		switch {
		case score > bestScore:
			best, bestScore = cand, score
		case score == bestScore && r.preferCandidate(cand, best):
			best = cand
		}
	}
	return best, nil
}

// preferCandidate implements the configured tie-break. Isolated here so
// the policy can change without touching the scoring loop.
func (r *Resolver) preferCandidate(challenger, incumbent *Authority) bool {
	if r.tieBreak == TieBreakOldest {
		return challenger.IngestedAt.Before(incumbent.IngestedAt)
	}
	return challenger.IngestedAt.After(incumbent.IngestedAt)
}

// fallback searches beyond the key index: parallel cites buried in the
// opinion body, then party-keyword filename matches.
func (r *Resolver) fallback(key model.CitationKey, caseNameHint string) (*Authority, error) {
	if auth := r.store.ByContent(key); auth != nil {
		return auth, nil
	}

	for _, kw := range cite.Keywords(caseNameHint) {
		matches := r.store.ByKeyword(kw)
		if len(matches) == 1 {
			return matches[0], nil
		}
	}

	return nil, fmt.Errorf("no authority found for %s", key)
}
