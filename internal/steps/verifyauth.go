package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/markwbennett/brief-analyzer/internal/authority"
)

// runVerifyAuthorities confirms every cataloged citation resolves to a
// downloaded opinion, trying the same strategies the disambiguator will use
// later: key match, citation-in-content, then party keywords. Missing
// authorities fail the step with the list, so the gap is fixed before any
// reasoning-service spend.
func runVerifyAuthorities(ctx context.Context, env *Env) error {
	store, err := authority.LoadDir(env.Config.AuthoritiesDir())
	if err != nil {
		return fmt.Errorf("load authorities: %w", err)
	}

	idx, err := authority.OpenIndex(env.Config.CitationsDB())
	if err != nil {
		return err
	}
	defer idx.Close()

	cataloged, err := idx.All(ctx)
	if err != nil {
		return err
	}
	if len(cataloged) == 0 {
		return fmt.Errorf("citation catalog is empty; run the authorities step first")
	}

	resolver := authority.NewResolver(store, authority.TieBreak(env.Config.Verify.TieBreak))

	var missing, ambiguous []string
	for _, ic := range cataloged {
		c := ic.Citation
		_, err := resolver.Resolve(c.Key, c.CaseName)
		switch {
		case err == nil:
		case errors.As(err, new(*authority.AmbiguousAuthorityError)):
			// The files exist; the citecheck pass will report it for
			// human review if the briefs never hint a case name.
			ambiguous = append(ambiguous, c.Key.String())
		default:
			missing = append(missing, c.Key.String()+" ("+c.CaseName+")")
		}
	}

	env.Log.Info("authority check",
		zap.Int("cataloged", len(cataloged)),
		zap.Int("files", store.Len()),
		zap.Int("missing", len(missing)),
		zap.Strings("ambiguous", ambiguous))

	if len(missing) > 0 {
		return fmt.Errorf("%d authorities have no opinion file:\n  %s",
			len(missing), strings.Join(missing, "\n  "))
	}
	return nil
}
