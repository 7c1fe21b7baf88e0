// Package identity owns the Person aggregate: merging accepted profiles,
// the identifiability index, search-term planning and lazy image
// elaboration.
package identity

import (
	"unicode"
	"unicode/utf8"

	"github.com/your-org/unfold/internal/match"
	"github.com/your-org/unfold/internal/models"
)

const (
	// MinNameLength guards against placeholder first/last names: shorter
	// values never seed a person's name and never become search keywords.
	MinNameLength = 4

	// MinIdentifiability is the default floor below which a person is not
	// worth pursuing across platforms.
	MinIdentifiability = 5
)

// MergeProfile folds an accepted profile into a person. The operation is
// never rolled back; callers persist the person only after it returns.
//
// Phones, locations and profiles are appended without dedup: merging the
// same profile twice doubles those entries. Face embeddings accumulate
// without dedup against existing ones. A perceptual hash is added only
// when it is similar to a hash already on the person, which keeps
// near-duplicates to broaden future matching but means a person's first
// hash can never arrive through a merge.
func MergeProfile(p *models.Person, prof models.Profile, oracle match.Oracle) {
	if p.FirstName == "" && usableName(prof.FirstName) {
		p.FirstName = prof.FirstName
	}
	if p.LastName == "" && usableName(prof.LastName) {
		p.LastName = prof.LastName
	}

	if prof.Phone != nil {
		p.Phones = append(p.Phones, *prof.Phone)
	}

	if len(prof.Locations) > 0 {
		p.Locations = append(p.Locations, prof.Locations...)
		models.SortLocationsByTime(p.Locations)
	}

	p.FaceEmbeddings = append(p.FaceEmbeddings, prof.FaceEmbeddings...)

	for _, candidate := range prof.PerceptualHashes {
		for _, existing := range p.PerceptualHashes {
			if oracle.HashesSimilar(existing, candidate) {
				p.PerceptualHashes = append(p.PerceptualHashes, candidate)
				break
			}
		}
	}

	p.Profiles = append(p.Profiles, prof)
}

// Identifiability counts the corroborating signals attached to a person.
// It is monotonically non-decreasing under MergeProfile and is used to
// decide which persons proceed to cross-platform search.
func Identifiability(p *models.Person) int {
	n := 0
	if p.FirstName != "" {
		n++
	}
	if p.LastName != "" {
		n++
	}
	n += len(p.Phones)
	n += len(p.FaceEmbeddings)
	n += len(p.PerceptualHashes)
	return n
}

// usableName reports whether a candidate first/last name is long enough
// and free of digit characters.
func usableName(s string) bool {
	if s == "" || utf8.RuneCountInString(s) < MinNameLength {
		return false
	}
	for _, r := range s {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
