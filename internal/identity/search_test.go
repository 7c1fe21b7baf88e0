package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/unfold/internal/models"
)

type recordingElaborator struct {
	calls []string
	err   error
}

func (r *recordingElaborator) Elaborate(ctx context.Context, prof *models.Profile) error {
	r.calls = append(r.calls, prof.Username)
	if r.err != nil {
		return r.err
	}
	prof.Elaborated = true
	return nil
}

func TestDeriveSearchTermsUsernames(t *testing.T) {
	person := models.NewPerson(1)
	person.Profiles = []models.Profile{
		{Username: "mario88", Elaborated: true},
		{Username: "mario88", Elaborated: true},
		{Username: "mrossi", Elaborated: true},
		{Elaborated: true},
	}

	terms, err := DeriveSearchTerms(context.Background(), person, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mario88", "mrossi"}, terms.Usernames)
}

func TestDeriveSearchTermsKeywords(t *testing.T) {
	person := models.NewPerson(1)
	person.FirstName = "Mario"
	person.LastName = "Rossi"
	person.Profiles = []models.Profile{
		{FirstName: "Mario", LastName: "Rossi", Elaborated: true},
		{FirstName: "Rossi", LastName: "Mario", Elaborated: true}, // swapped order
		{FirstName: "Jo", LastName: "Rossi", Elaborated: true},    // first name too short
		{FirstName: "Luigi", Elaborated: true},                    // last name missing
	}

	terms, err := DeriveSearchTerms(context.Background(), person, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mario Rossi"}, terms.Keywords)
}

func TestDeriveSearchTermsExtraKeywords(t *testing.T) {
	person := models.NewPerson(1)
	person.FirstName = "Mario"
	person.LastName = "Rossi"

	terms, err := DeriveSearchTerms(context.Background(), person, nil, "torino")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mario Rossi torino"}, terms.Keywords)
}

func TestDeriveSearchTermsElaboratesPending(t *testing.T) {
	person := models.NewPerson(1)
	person.Profiles = []models.Profile{
		{Username: "done", Elaborated: true},
		{Username: "pending"},
	}

	el := &recordingElaborator{}
	_, err := DeriveSearchTerms(context.Background(), person, el)
	require.NoError(t, err)
	assert.Equal(t, []string{"pending"}, el.calls)
	assert.True(t, person.Profiles[1].Elaborated)
}

func TestDeriveSearchTermsToleratesNoPhotos(t *testing.T) {
	person := models.NewPerson(1)
	person.Profiles = []models.Profile{{Username: "nophotos"}}

	el := &recordingElaborator{err: ErrNoPhotos}
	terms, err := DeriveSearchTerms(context.Background(), person, el)
	require.NoError(t, err)
	assert.Equal(t, []string{"nophotos"}, terms.Usernames)
}

func TestDeriveSearchTermsPropagatesCancellation(t *testing.T) {
	person := models.NewPerson(1)
	person.Profiles = []models.Profile{{Username: "pending"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	el := &recordingElaborator{err: errors.New("download aborted")}
	_, err := DeriveSearchTerms(ctx, person, el)
	assert.ErrorIs(t, err, context.Canceled)
}
