package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonJSONRoundTrip(t *testing.T) {
	p := &Person{
		ID:        7,
		FirstName: "Mario",
		LastName:  "Rossi",
		Phones:    []Phone{{Number: "+39 340 000 0000", Country: "IT", Timezones: []string{"Europe/Rome"}}},
		Locations: []Location{{Name: "roma", Latitude: 41.9, Longitude: 12.5, Valid: true, Time: time.Now().UTC()}},
		Profiles: []Profile{{
			Platform:         PlatformTelegram,
			ExternalID:       "12345",
			Username:         "mario88",
			FaceEmbeddings:   [][]float32{{0.1, 0.2}},
			PerceptualHashes: []uint64{0xdeadbeef},
			Elaborated:       true,
		}},
		FaceEmbeddings:   [][]float32{{0.1, 0.2}},
		PerceptualHashes: []uint64{0xdeadbeef},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	got := &Person{}
	require.NoError(t, json.Unmarshal(data, got))
	assert.Equal(t, p, got)
}

func TestPersonProfileLookups(t *testing.T) {
	p := NewPerson(1)
	p.Profiles = []Profile{
		{Platform: PlatformTelegram, ExternalID: "a"},
		{Platform: PlatformTelegram, ExternalID: "b"},
		{Platform: PlatformInstagram, ExternalID: "c"},
	}

	assert.Len(t, p.ProfilesFor(PlatformTelegram), 2)
	assert.True(t, p.HasProfile(PlatformInstagram))
	assert.False(t, p.HasProfile(PlatformTwitter))
	assert.True(t, p.HasExternalID(PlatformTelegram, "b"))
	assert.False(t, p.HasExternalID(PlatformInstagram, "b"))
}

func TestProfileAddHashDedup(t *testing.T) {
	prof := &Profile{}
	prof.AddHash(1)
	prof.AddHash(1)
	prof.AddHash(2)
	assert.Equal(t, []uint64{1, 2}, prof.PerceptualHashes)
}

func TestCheckpointRecord(t *testing.T) {
	c := CheckpointRecord{PersonID: 1, TelegramChecked: true}
	assert.True(t, c.Checked(PlatformTelegram))
	assert.False(t, c.Checked(PlatformFacebook))
	assert.False(t, c.Complete())

	c.InstagramChecked = true
	c.FacebookChecked = true
	c.TwitterChecked = true
	assert.True(t, c.Complete())
}
