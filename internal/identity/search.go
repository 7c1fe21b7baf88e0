package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/your-org/unfold/internal/models"
)

// SearchTerms is the bounded, deduplicated query set used to drive
// external lookups on a platform the person has not been checked on yet.
type SearchTerms struct {
	Usernames []string
	Keywords  []string
}

// ProfileElaborator lazily computes image-derived signals for a profile.
// The identity Elaborator is the production implementation.
type ProfileElaborator interface {
	Elaborate(ctx context.Context, prof *models.Profile) error
}

// DeriveSearchTerms collects usernames and name keywords from a person's
// profiles. Profiles that have not been elaborated yet are elaborated
// first so their image signals are available to subsequent comparisons;
// profiles without photos are tolerated.
//
// Keywords are built from distinct (first, last) name pairs across the
// profiles plus the person's own pair. Pairs with a missing or too-short
// part are skipped, as is any pair whose combination, in either name
// order, was already emitted. Extra keywords are appended to every
// emitted term.
func DeriveSearchTerms(ctx context.Context, person *models.Person, el ProfileElaborator, extra ...string) (SearchTerms, error) {
	var terms SearchTerms

	if el != nil {
		for i := range person.Profiles {
			prof := &person.Profiles[i]
			if prof.Elaborated {
				continue
			}
			if err := el.Elaborate(ctx, prof); err != nil {
				if errors.Is(err, ErrNoPhotos) {
					continue
				}
				if ctx.Err() != nil {
					return SearchTerms{}, ctx.Err()
				}
				slog.Warn("elaborate profile for search",
					"platform", prof.Platform, "username", prof.Username, "error", err)
			}
		}
	}

	seenUsers := make(map[string]bool)
	for _, prof := range person.Profiles {
		if prof.Username != "" && !seenUsers[prof.Username] {
			seenUsers[prof.Username] = true
			terms.Usernames = append(terms.Usernames, prof.Username)
		}
	}

	type namePair struct{ first, last string }
	pairs := make([]namePair, 0, len(person.Profiles)+1)
	seenPairs := make(map[namePair]bool)
	for _, prof := range person.Profiles {
		pairs = append(pairs, namePair{prof.FirstName, prof.LastName})
	}
	pairs = append(pairs, namePair{person.FirstName, person.LastName})

	extraSuffix := strings.TrimSpace(strings.Join(extra, " "))
	seenNames := make(map[string]bool)
	for _, pair := range pairs {
		if seenPairs[pair] {
			continue
		}
		seenPairs[pair] = true

		if pair.first == "" || pair.last == "" {
			continue
		}
		if utf8.RuneCountInString(pair.first) < MinNameLength ||
			utf8.RuneCountInString(pair.last) < MinNameLength {
			continue
		}

		// Order-insensitive guard: "Mario Rossi" and "Rossi Mario" are
		// the same keyword.
		if seenNames[pair.first+" "+pair.last] || seenNames[pair.last+" "+pair.first] {
			continue
		}
		seenNames[pair.first+" "+pair.last] = true

		keyword := strings.TrimSpace(pair.first + " " + pair.last + " " + extraSuffix)
		terms.Keywords = append(terms.Keywords, keyword)
	}

	return terms, nil
}
