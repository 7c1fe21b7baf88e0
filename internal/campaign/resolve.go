package campaign

import (
	"context"
	"errors"
	"log/slog"

	"github.com/your-org/unfold/internal/identity"
	"github.com/your-org/unfold/internal/match"
	"github.com/your-org/unfold/internal/models"
	"github.com/your-org/unfold/internal/observability"
	"github.com/your-org/unfold/internal/phone"
	"github.com/your-org/unfold/internal/platform"
)

// Resolver scores platform search candidates against a person and merges
// the single best one.
type Resolver struct {
	Oracle     match.Oracle
	Elaborator identity.ProfileElaborator

	// Threshold a candidate's score must strictly exceed to be merged.
	Threshold int
	// MaxResults bounds each keyword search.
	MaxResults int
	// ExtraKeywords are appended to every derived name keyword.
	ExtraKeywords []string
}

// FindProfile searches a platform for the person and merges the best
// candidate into them. Returns the winning score, or 0 when nothing
// exceeded the threshold. The person may be mutated even on a zero result:
// deriving search terms elaborates its profiles in place.
//
// Session-level failures (authentication, blocking) propagate so the caller
// can abort the whole platform pass; per-term failures are logged and the
// remaining terms still run.
func (r *Resolver) FindProfile(ctx context.Context, person *models.Person, client platform.Client) (int, error) {
	pf := client.Platform()

	terms, err := identity.DeriveSearchTerms(ctx, person, r.Elaborator, r.ExtraKeywords...)
	if err != nil {
		return 0, err
	}

	candidates, err := r.collectCandidates(ctx, person, client, terms)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	best := (*models.Profile)(nil)
	bestScore := r.threshold()
	for i := range candidates {
		cand := &candidates[i]

		if err := r.Elaborator.Elaborate(ctx, cand); err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			if !errors.Is(err, identity.ErrNoPhotos) {
				slog.Warn("elaborate candidate", "platform", pf,
					"username", cand.Username, "error", err)
			}
		}

		score := 0
		for j := range person.Profiles {
			score += match.Compare(&person.Profiles[j], cand, r.Oracle)
		}
		observability.CandidatesScored.WithLabelValues(string(pf)).Inc()

		// Strictly greater: the first candidate to reach the top score wins.
		if score > bestScore {
			best = cand
			bestScore = score
		}
	}

	if best == nil {
		return 0, nil
	}

	identity.MergeProfile(person, *best, r.Oracle)
	observability.ProfilesMerged.WithLabelValues(string(pf)).Inc()
	slog.Info("profile merged", "platform", pf, "person", person.ID,
		"username", best.Username, "score", bestScore)
	return bestScore, nil
}

// collectCandidates runs the username and keyword searches and returns the
// distinct candidate profiles, excluding any the person already carries.
func (r *Resolver) collectCandidates(ctx context.Context, person *models.Person, client platform.Client, terms identity.SearchTerms) ([]models.Profile, error) {
	pf := client.Platform()
	seen := make(map[string]bool)
	var candidates []models.Profile

	add := func(raw platform.RawProfile) {
		if raw.ExternalID == "" || seen[raw.ExternalID] {
			return
		}
		seen[raw.ExternalID] = true
		if person.HasExternalID(pf, raw.ExternalID) {
			return
		}
		candidates = append(candidates, profileFromRaw(pf, raw))
	}

	for _, username := range terms.Usernames {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		raw, err := client.SearchByUsername(ctx, username)
		if err != nil {
			if sessionError(err) {
				return nil, err
			}
			slog.Warn("username lookup", "platform", pf, "username", username, "error", err)
			continue
		}
		if raw != nil {
			add(*raw)
		}
	}

	for _, keyword := range terms.Keywords {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		raws, err := client.SearchByKeywords(ctx, keyword, r.maxResults())
		if err != nil {
			if sessionError(err) {
				return nil, err
			}
			slog.Warn("keyword search", "platform", pf, "keyword", keyword, "error", err)
			continue
		}
		for _, raw := range raws {
			add(raw)
		}
	}

	return candidates, nil
}

// profileFromRaw wraps a platform search result into a profile, parsing the
// phone number when one is present. Unparseable phones are dropped.
func profileFromRaw(pf models.Platform, raw platform.RawProfile) models.Profile {
	prof := models.Profile{
		Platform:   pf,
		ExternalID: raw.ExternalID,
		Username:   raw.Username,
		FirstName:  raw.FirstName,
		LastName:   raw.LastName,
		FullName:   raw.FullName,
		Biography:  raw.Biography,
		Private:    raw.Private,
	}
	prof.AddLocations(raw.Locations...)

	if raw.Phone != "" {
		parsed, err := phone.Parse(raw.Phone)
		if err != nil {
			slog.Debug("drop unparseable phone", "platform", pf,
				"username", raw.Username, "error", err)
		} else {
			prof.Phone = parsed
		}
	}
	return prof
}

// sessionError reports whether an error invalidates the whole platform
// session rather than a single search term.
func sessionError(err error) bool {
	return errors.Is(err, platform.ErrNotAuthenticated) ||
		errors.Is(err, platform.ErrBlocked)
}

func (r *Resolver) threshold() int {
	if r.Threshold > 0 {
		return r.Threshold
	}
	return match.Threshold
}

func (r *Resolver) maxResults() int {
	if r.MaxResults > 0 {
		return r.MaxResults
	}
	return 20
}
