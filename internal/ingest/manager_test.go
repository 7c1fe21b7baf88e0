package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/unfold/internal/match"
	"github.com/your-org/unfold/internal/models"
	"github.com/your-org/unfold/internal/platform"
)

type ingestStore struct {
	persons     []*models.Person
	checkpoints []int64
	maxID       int64
}

func (s *ingestStore) SavePerson(ctx context.Context, p *models.Person) error {
	s.persons = append(s.persons, p)
	return nil
}

func (s *ingestStore) ListPersons(ctx context.Context) ([]*models.Person, error) {
	return s.persons, nil
}

func (s *ingestStore) MaxPersonID(ctx context.Context) (int64, error) {
	return s.maxID, nil
}

func (s *ingestStore) RegisterCheckpoint(ctx context.Context, personID int64) error {
	s.checkpoints = append(s.checkpoints, personID)
	return nil
}

type groupClient struct {
	members     []platform.RawProfile
	activity    map[string]int
	activityErr error
	authed      bool
}

func (c *groupClient) Platform() models.Platform { return models.PlatformTelegram }

func (c *groupClient) SearchByUsername(ctx context.Context, username string) (*platform.RawProfile, error) {
	return nil, nil
}

func (c *groupClient) SearchByKeywords(ctx context.Context, keywords string, maxResults int) ([]platform.RawProfile, error) {
	return nil, nil
}

func (c *groupClient) DownloadProfilePhoto(ctx context.Context, prof *models.Profile, path string) (bool, error) {
	return false, nil
}

func (c *groupClient) DownloadPostImages(ctx context.Context, prof *models.Profile, dir string, maxCount int) (bool, error) {
	return false, nil
}

func (c *groupClient) Authenticated() bool            { return c.authed }
func (c *groupClient) Blocked() bool                  { return false }
func (c *groupClient) Errors() []platform.ClientError { return nil }
func (c *groupClient) Close() error                   { return nil }

func (c *groupClient) LookupByID(ctx context.Context, id int64) (*platform.RawProfile, error) {
	return nil, nil
}

func (c *groupClient) ListMembers(ctx context.Context, group string) ([]platform.RawProfile, error) {
	return c.members, nil
}

func (c *groupClient) MemberActivity(ctx context.Context, group string, messageLimit int) (map[string]int, error) {
	if c.activityErr != nil {
		return nil, c.activityErr
	}
	return c.activity, nil
}

func threeMembers() []platform.RawProfile {
	return []platform.RawProfile{
		{ExternalID: "100", Username: "anna", FirstName: "Anna", LastName: "Bianchi"},
		{ExternalID: "200", Username: "bruno", FirstName: "Bruno", LastName: "Verdi"},
		{ExternalID: "300", Username: "carla", FirstName: "Carla", LastName: "Russo"},
	}
}

func TestIngestGroupRegistersMembersByActivity(t *testing.T) {
	store := &ingestStore{maxID: 10}
	client := &groupClient{
		members:  threeMembers(),
		activity: map[string]int{"100": 1, "200": 9, "300": 4},
		authed:   true,
	}
	m := NewManager(store, client, match.NeverMatch{}, nil)

	created, err := m.IngestGroup(context.Background(), "testgroup")
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	require.Len(t, store.persons, 3)
	// Most active member first, IDs allocated sequentially above the
	// current maximum.
	assert.Equal(t, "bruno", store.persons[0].Profiles[0].Username)
	assert.Equal(t, "carla", store.persons[1].Profiles[0].Username)
	assert.Equal(t, "anna", store.persons[2].Profiles[0].Username)
	assert.Equal(t, int64(11), store.persons[0].ID)
	assert.Equal(t, int64(12), store.persons[1].ID)
	assert.Equal(t, int64(13), store.persons[2].ID)
	assert.Equal(t, []int64{11, 12, 13}, store.checkpoints)

	// Names seed the person record during the merge.
	assert.Equal(t, "Bruno", store.persons[0].FirstName)
	assert.Equal(t, "Verdi", store.persons[0].LastName)
}

func TestIngestGroupIsDifferential(t *testing.T) {
	existing := models.NewPerson(5)
	existing.Profiles = append(existing.Profiles, models.Profile{
		Platform:   models.PlatformTelegram,
		ExternalID: "200",
		Username:   "bruno",
	})
	store := &ingestStore{persons: []*models.Person{existing}, maxID: 5}
	client := &groupClient{members: threeMembers(), authed: true}
	m := NewManager(store, client, match.NeverMatch{}, nil)

	created, err := m.IngestGroup(context.Background(), "testgroup")
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, []int64{6, 7}, store.checkpoints)
	for _, p := range store.persons[1:] {
		assert.NotEqual(t, "200", p.Profiles[0].ExternalID)
	}
}

func TestIngestGroupFallsBackToListingOrder(t *testing.T) {
	store := &ingestStore{}
	client := &groupClient{
		members:     threeMembers(),
		activityErr: errors.New("flood wait"),
		authed:      true,
	}
	m := NewManager(store, client, match.NeverMatch{}, nil)

	created, err := m.IngestGroup(context.Background(), "testgroup")
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	assert.Equal(t, "anna", store.persons[0].Profiles[0].Username)
	assert.Equal(t, "bruno", store.persons[1].Profiles[0].Username)
	assert.Equal(t, "carla", store.persons[2].Profiles[0].Username)
}

func TestIngestGroupHonorsMaxMembers(t *testing.T) {
	store := &ingestStore{}
	client := &groupClient{
		members:  threeMembers(),
		activity: map[string]int{"300": 7},
		authed:   true,
	}
	m := NewManager(store, client, match.NeverMatch{}, nil)
	m.MaxMembers = 1

	created, err := m.IngestGroup(context.Background(), "testgroup")
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, store.persons, 1)
	assert.Equal(t, "carla", store.persons[0].Profiles[0].Username)
}

func TestIngestGroupRequiresSession(t *testing.T) {
	m := NewManager(&ingestStore{}, &groupClient{}, match.NeverMatch{}, nil)
	_, err := m.IngestGroup(context.Background(), "testgroup")
	assert.ErrorIs(t, err, platform.ErrNotAuthenticated)
}

func TestIngestGroupPublishesRegistrationEvents(t *testing.T) {
	store := &ingestStore{}
	events := &captureEvents{}
	client := &groupClient{members: threeMembers()[:1], authed: true}
	m := NewManager(store, client, match.NeverMatch{}, events)

	_, err := m.IngestGroup(context.Background(), "testgroup")
	require.NoError(t, err)
	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventPersonRegistered, events.events[0].Type)
	assert.Equal(t, "anna", events.events[0].Username)
	assert.Equal(t, models.PlatformTelegram, events.events[0].Platform)
}

type captureEvents struct {
	events []models.ResolutionEvent
}

func (c *captureEvents) PublishResolution(ctx context.Context, ev models.ResolutionEvent) error {
	c.events = append(c.events, ev)
	return nil
}
