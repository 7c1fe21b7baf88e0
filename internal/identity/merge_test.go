package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/unfold/internal/match"
	"github.com/your-org/unfold/internal/models"
)

type fakeOracle struct{}

func (fakeOracle) FacesMatch(a, b []float32) bool { return len(a) > 0 && len(b) > 0 && a[0] == b[0] }
func (fakeOracle) HashesSimilar(a, b uint64) bool { return a == b }

func TestMergeProfileSeedsNames(t *testing.T) {
	p := models.NewPerson(1)
	MergeProfile(p, models.Profile{FirstName: "Mario", LastName: "Rossi"}, fakeOracle{})
	assert.Equal(t, "Mario", p.FirstName)
	assert.Equal(t, "Rossi", p.LastName)

	// Later merges never overwrite a seeded name.
	MergeProfile(p, models.Profile{FirstName: "Luigi", LastName: "Verdi"}, fakeOracle{})
	assert.Equal(t, "Mario", p.FirstName)
	assert.Equal(t, "Rossi", p.LastName)
}

func TestMergeProfileNameGating(t *testing.T) {
	p := models.NewPerson(1)
	MergeProfile(p, models.Profile{FirstName: "Al", LastName: "Rossi99"}, fakeOracle{})
	assert.Empty(t, p.FirstName, "too-short name must not seed")
	assert.Empty(t, p.LastName, "name with digits must not seed")

	// The gates apply per field: a bad first name does not block a good
	// last name.
	p = models.NewPerson(2)
	MergeProfile(p, models.Profile{FirstName: "Jo", LastName: "Bianchi"}, fakeOracle{})
	assert.Empty(t, p.FirstName)
	assert.Equal(t, "Bianchi", p.LastName)
}

func TestMergeProfileAppendsWithoutDedup(t *testing.T) {
	p := models.NewPerson(1)
	prof := models.Profile{
		Platform: models.PlatformTelegram,
		Phone:    &models.Phone{Number: "+1 555"},
	}

	MergeProfile(p, prof, fakeOracle{})
	MergeProfile(p, prof, fakeOracle{})

	assert.Len(t, p.Phones, 2, "re-merging duplicates phones")
	assert.Len(t, p.Profiles, 2, "re-merging duplicates profiles")
}

func TestMergeProfileFacesAccumulate(t *testing.T) {
	p := models.NewPerson(1)
	MergeProfile(p, models.Profile{FaceEmbeddings: [][]float32{{1}, {1}}}, fakeOracle{})
	MergeProfile(p, models.Profile{FaceEmbeddings: [][]float32{{1}}}, fakeOracle{})
	assert.Len(t, p.FaceEmbeddings, 3, "embeddings accumulate without dedup")
}

func TestMergeProfileHashQuirk(t *testing.T) {
	p := models.NewPerson(1)

	// A person with no hashes can never gain one through a merge.
	MergeProfile(p, models.Profile{PerceptualHashes: []uint64{42}}, fakeOracle{})
	assert.Empty(t, p.PerceptualHashes)

	// With an existing hash, only similar candidates are added.
	p.PerceptualHashes = []uint64{42}
	MergeProfile(p, models.Profile{PerceptualHashes: []uint64{42, 99}}, fakeOracle{})
	assert.Equal(t, []uint64{42, 42}, p.PerceptualHashes)
}

func TestMergeProfileLocationsSorted(t *testing.T) {
	old := models.Location{Name: "roma", Valid: true, Time: time.Now().Add(-time.Hour)}
	recent := models.Location{Name: "milano", Valid: true, Time: time.Now()}

	p := models.NewPerson(1)
	MergeProfile(p, models.Profile{Locations: []models.Location{old}}, fakeOracle{})
	MergeProfile(p, models.Profile{Locations: []models.Location{recent}}, fakeOracle{})

	assert.Equal(t, "milano", p.Locations[0].Name, "most recent first")
	assert.Equal(t, "roma", p.Locations[1].Name)
}

func TestIdentifiabilityMonotonic(t *testing.T) {
	p := models.NewPerson(1)
	last := Identifiability(p)
	assert.Equal(t, 0, last)

	merges := []models.Profile{
		{FirstName: "Mario", LastName: "Rossi"},
		{Phone: &models.Phone{Number: "+1 555"}},
		{FaceEmbeddings: [][]float32{{1}, {2}}},
		{}, // merging nothing keeps the index flat
	}
	for _, prof := range merges {
		MergeProfile(p, prof, fakeOracle{})
		now := Identifiability(p)
		assert.GreaterOrEqual(t, now, last)
		last = now
	}

	// names(2) + phone(1) + faces(2)
	assert.Equal(t, 5, last)
	assert.Equal(t, match.Threshold, last)
}
