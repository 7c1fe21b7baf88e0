package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/unfold/internal/models"
)

// fakeOracle matches faces whose first component is equal and hashes
// whose values are equal.
type fakeOracle struct{}

func (fakeOracle) FacesMatch(a, b []float32) bool {
	return len(a) > 0 && len(b) > 0 && a[0] == b[0]
}

func (fakeOracle) HashesSimilar(a, b uint64) bool {
	return a == b
}

func TestCompareUsername(t *testing.T) {
	a := &models.Profile{Username: "mario_rossi", FirstName: "x", LastName: "y"}
	b := &models.Profile{Username: "mario_rossi", FirstName: "p", LastName: "q"}
	assert.Equal(t, 1, Compare(a, b, fakeOracle{}))

	b.Username = "Mario_Rossi" // case matters
	assert.Equal(t, 0, Compare(a, b, fakeOracle{}))
}

func TestComparePhone(t *testing.T) {
	a := &models.Profile{FirstName: "x", Phone: &models.Phone{Number: "+39 340 000 0000"}}
	b := &models.Profile{FirstName: "q", Phone: &models.Phone{Number: "+39 340 000 0000"}}
	assert.Equal(t, 1, Compare(a, b, fakeOracle{}))

	b.Phone = &models.Phone{Number: "+39 340 000 0001"}
	assert.Equal(t, 0, Compare(a, b, fakeOracle{}))

	b.Phone = nil
	assert.Equal(t, 0, Compare(a, b, fakeOracle{}))
}

func TestCompareNameContainment(t *testing.T) {
	a := &models.Profile{FullName: "Mario Rossi"}
	b := &models.Profile{FirstName: "mario", LastName: "rossi"}
	assert.Equal(t, 1, Compare(a, b, fakeOracle{}))

	// Partial containment counts too.
	b = &models.Profile{FullName: "rossi"}
	assert.Equal(t, 1, Compare(a, b, fakeOracle{}))

	b = &models.Profile{FullName: "Luigi Verdi"}
	assert.Equal(t, 0, Compare(a, b, fakeOracle{}))
}

func TestCompareBothNamesEmpty(t *testing.T) {
	// Two profiles without names still collect the containment point:
	// an empty string contains an empty string.
	a := &models.Profile{Username: "a"}
	b := &models.Profile{Username: "b"}
	assert.Equal(t, 1, Compare(a, b, fakeOracle{}))
}

func TestCompareLocationsPairwise(t *testing.T) {
	now := time.Now()
	rome := models.Location{Name: "roma", Latitude: 41.9, Longitude: 12.5, Valid: true, Time: now}
	a := &models.Profile{FirstName: "x", Locations: []models.Location{rome, rome}}
	b := &models.Profile{FirstName: "q", Locations: []models.Location{rome}}

	// Two entries in a, one in b: two equal pairs.
	assert.Equal(t, 2, Compare(a, b, fakeOracle{}))
}

func TestCompareInvalidLocationsNeverEqual(t *testing.T) {
	loc := models.Location{Latitude: 41.9, Longitude: 12.5, Valid: false}
	a := &models.Profile{FirstName: "x", Locations: []models.Location{loc}}
	b := &models.Profile{FirstName: "q", Locations: []models.Location{loc}}
	assert.Equal(t, 0, Compare(a, b, fakeOracle{}))
}

func TestCompareFacesGatedOnKnownEmbeddings(t *testing.T) {
	b := &models.Profile{FirstName: "q", FaceEmbeddings: [][]float32{{1, 0}, {2, 0}}}

	// Without embeddings of its own, a awards no face points.
	a := &models.Profile{FirstName: "x"}
	assert.Equal(t, 0, Compare(a, b, fakeOracle{}))

	// With embeddings, each candidate face matching any known one scores.
	a.FaceEmbeddings = [][]float32{{1, 9}, {3, 9}}
	assert.Equal(t, 1, Compare(a, b, fakeOracle{}))

	a.FaceEmbeddings = [][]float32{{1, 9}, {2, 9}}
	assert.Equal(t, 2, Compare(a, b, fakeOracle{}))
}

func TestCompareFaceCandidateCountedOnce(t *testing.T) {
	// A candidate matching several known embeddings still scores one point.
	a := &models.Profile{FirstName: "x", FaceEmbeddings: [][]float32{{1, 0}, {1, 1}}}
	b := &models.Profile{FirstName: "q", FaceEmbeddings: [][]float32{{1, 5}}}
	assert.Equal(t, 1, Compare(a, b, fakeOracle{}))
}

func TestCompareHashesAllPairs(t *testing.T) {
	a := &models.Profile{FirstName: "x", PerceptualHashes: []uint64{7, 7}}
	b := &models.Profile{FirstName: "q", PerceptualHashes: []uint64{7}}
	assert.Equal(t, 2, Compare(a, b, fakeOracle{}))
}

func TestCompareAccumulatesAcrossSignals(t *testing.T) {
	now := time.Now()
	loc := models.Location{Latitude: 1, Longitude: 2, Valid: true, Time: now}
	a := &models.Profile{
		Username:         "same",
		FullName:         "Mario Rossi",
		Phone:            &models.Phone{Number: "+1 555"},
		Locations:        []models.Location{loc},
		FaceEmbeddings:   [][]float32{{1}},
		PerceptualHashes: []uint64{42},
	}
	b := &models.Profile{
		Username:         "same",
		FirstName:        "Mario",
		LastName:         "Rossi",
		Phone:            &models.Phone{Number: "+1 555"},
		Locations:        []models.Location{loc},
		FaceEmbeddings:   [][]float32{{1}},
		PerceptualHashes: []uint64{42},
	}

	// username + phone + name + location + face + hash
	score := Compare(a, b, fakeOracle{})
	assert.Equal(t, 6, score)
	assert.Greater(t, score, Threshold)
}
