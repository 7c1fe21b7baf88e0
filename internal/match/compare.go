package match

import (
	"strings"

	"github.com/your-org/unfold/internal/models"
)

// Threshold is the minimum accumulated score a candidate must strictly
// exceed before it is merged into a person.
const Threshold = 5

// Compare scores the similarity between two profiles. Each signal
// contributes additively:
//
//   - +1 for an exact, case-sensitive username match
//   - +1 for an equal normalized phone number
//   - +1 if one normalized full name contains the other
//   - +1 for every pair of equal locations (lists are not deduplicated)
//   - +1 for every embedding in b matching at least one embedding in a,
//     evaluated only when a carries embeddings of its own
//   - +1 for every similar pair of perceptual hashes
//
// The result is an unbounded non-negative integer; it is only meaningful
// relative to Threshold.
func Compare(a, b *models.Profile, oracle Oracle) int {
	score := 0

	if a.Username != "" && b.Username != "" && a.Username == b.Username {
		score++
	}

	if a.Phone != nil && b.Phone != nil && a.Phone.Number == b.Phone.Number {
		score++
	}

	aName := normalizedFullName(a)
	bName := normalizedFullName(b)
	if strings.Contains(aName, bName) || strings.Contains(bName, aName) {
		score++
	}

	for _, loc := range a.Locations {
		for _, other := range b.Locations {
			if loc.Equal(other) {
				score++
			}
		}
	}

	if len(a.FaceEmbeddings) > 0 {
		for _, candidate := range b.FaceEmbeddings {
			for _, known := range a.FaceEmbeddings {
				if oracle.FacesMatch(known, candidate) {
					score++
					break
				}
			}
		}
	}

	for _, h := range a.PerceptualHashes {
		for _, other := range b.PerceptualHashes {
			if oracle.HashesSimilar(h, other) {
				score++
			}
		}
	}

	return score
}

// normalizedFullName returns the profile's lowercase full name: the
// explicit full-name field when present, otherwise first and last name
// joined with a space, blank parts dropped.
func normalizedFullName(p *models.Profile) string {
	if p.FullName != "" {
		return strings.ToLower(p.FullName)
	}
	return strings.ToLower(joinNonEmpty(" ", p.FirstName, p.LastName))
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, sep)
}
