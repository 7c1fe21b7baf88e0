package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocationEqual(t *testing.T) {
	a := Location{Name: "roma", Latitude: 41.9, Longitude: 12.5, Valid: true}
	b := Location{Name: "rome", Latitude: 41.9, Longitude: 12.5, Valid: true}
	assert.True(t, a.Equal(b), "names do not participate in equality")

	b.Longitude = 12.6
	assert.False(t, a.Equal(b))

	b = a
	b.Valid = false
	assert.False(t, a.Equal(b), "invalid coordinates never compare equal")
	assert.False(t, b.Equal(b))
}

func TestSortLocationsByTime(t *testing.T) {
	now := time.Now()
	locs := []Location{
		{Name: "old", Time: now.Add(-2 * time.Hour)},
		{Name: "new", Time: now},
		{Name: "mid", Time: now.Add(-time.Hour)},
	}
	SortLocationsByTime(locs)
	assert.Equal(t, "new", locs[0].Name)
	assert.Equal(t, "mid", locs[1].Name)
	assert.Equal(t, "old", locs[2].Name)
}
