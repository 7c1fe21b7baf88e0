// Package ingest seeds the person table from a Telegram group: members are
// ranked by recent activity, wrapped into fresh persons and registered in
// the checkpoint table so the resolver can pick them up.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/unfold/internal/identity"
	"github.com/your-org/unfold/internal/match"
	"github.com/your-org/unfold/internal/models"
	"github.com/your-org/unfold/internal/observability"
	"github.com/your-org/unfold/internal/phone"
	"github.com/your-org/unfold/internal/platform"
)

// Store is the persistence the ingestor needs. *storage.PostgresStore
// implements it.
type Store interface {
	SavePerson(ctx context.Context, p *models.Person) error
	ListPersons(ctx context.Context) ([]*models.Person, error)
	MaxPersonID(ctx context.Context) (int64, error)
	RegisterCheckpoint(ctx context.Context, personID int64) error
}

// EventPublisher mirrors campaign.EventPublisher. Optional.
type EventPublisher interface {
	PublishResolution(ctx context.Context, ev models.ResolutionEvent) error
}

// Manager runs group ingestion. Re-running against the same group is
// differential: members already registered as persons are skipped, so an
// ingestion can be repeated to pick up new arrivals without duplicating
// anyone.
type Manager struct {
	store  Store
	client platform.TelegramClient
	oracle match.Oracle
	events EventPublisher

	// MessageLimit bounds the activity scan used to rank members.
	MessageLimit int
	// MaxMembers bounds how many members are ingested per run, most active
	// first. 0 means all.
	MaxMembers int
}

func NewManager(store Store, client platform.TelegramClient, oracle match.Oracle, events EventPublisher) *Manager {
	return &Manager{
		store:        store,
		client:       client,
		oracle:       oracle,
		events:       events,
		MessageLimit: 1000,
	}
}

// IngestGroup enumerates the group's members, ranks them by recent message
// activity and registers each unknown member as a new person. Returns the
// number of persons created.
func (m *Manager) IngestGroup(ctx context.Context, group string) (int, error) {
	if !m.client.Authenticated() {
		return 0, platform.ErrNotAuthenticated
	}

	members, err := m.client.ListMembers(ctx, group)
	if err != nil {
		return 0, fmt.Errorf("list members of %s: %w", group, err)
	}
	slog.Info("group members listed", "group", group, "members", len(members))

	activity, err := m.client.MemberActivity(ctx, group, m.MessageLimit)
	if err != nil {
		slog.Warn("member activity scan failed, ingesting in listing order",
			"group", group, "error", err)
		activity = map[string]int{}
	}
	sort.SliceStable(members, func(i, j int) bool {
		return activity[members[i].ExternalID] > activity[members[j].ExternalID]
	})
	if m.MaxMembers > 0 && len(members) > m.MaxMembers {
		members = members[:m.MaxMembers]
	}

	known, err := m.knownExternalIDs(ctx)
	if err != nil {
		return 0, err
	}

	maxID, err := m.store.MaxPersonID(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed id allocator: %w", err)
	}
	alloc := identity.NewIDAllocator(maxID)

	created := 0
	for _, member := range members {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		if known[member.ExternalID] {
			continue
		}

		if err := m.register(ctx, alloc, member); err != nil {
			return created, err
		}
		known[member.ExternalID] = true
		created++
	}

	slog.Info("group ingestion finished", "group", group,
		"members", len(members), "created", created)
	return created, nil
}

func (m *Manager) register(ctx context.Context, alloc *identity.IDAllocator, member platform.RawProfile) error {
	person := models.NewPerson(alloc.Next())
	identity.MergeProfile(person, memberProfile(member), m.oracle)

	if err := m.store.SavePerson(ctx, person); err != nil {
		return fmt.Errorf("save person %d: %w", person.ID, err)
	}
	if err := m.store.RegisterCheckpoint(ctx, person.ID); err != nil {
		return fmt.Errorf("register checkpoint %d: %w", person.ID, err)
	}
	observability.PersonsRegistered.Inc()

	if m.events != nil {
		ev := models.ResolutionEvent{
			ID:       uuid.New(),
			Type:     models.EventPersonRegistered,
			PersonID: person.ID,
			Platform: models.PlatformTelegram,
			Username: member.Username,
			Time:     time.Now(),
		}
		if err := m.events.PublishResolution(ctx, ev); err != nil {
			slog.Warn("publish registration event", "person", person.ID, "error", err)
		}
	}
	return nil
}

// knownExternalIDs collects the Telegram account IDs already attached to a
// person.
func (m *Manager) knownExternalIDs(ctx context.Context) (map[string]bool, error) {
	persons, err := m.store.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	known := make(map[string]bool)
	for _, person := range persons {
		for _, prof := range person.ProfilesFor(models.PlatformTelegram) {
			known[prof.ExternalID] = true
		}
	}
	return known, nil
}

func memberProfile(member platform.RawProfile) models.Profile {
	prof := models.Profile{
		Platform:   models.PlatformTelegram,
		ExternalID: member.ExternalID,
		Username:   member.Username,
		FirstName:  member.FirstName,
		LastName:   member.LastName,
		FullName:   member.FullName,
		Biography:  member.Biography,
		Private:    member.Private,
	}
	prof.AddLocations(member.Locations...)

	if member.Phone != "" {
		parsed, err := phone.Parse(member.Phone)
		if err != nil {
			slog.Debug("drop unparseable phone", "username", member.Username, "error", err)
		} else {
			prof.Phone = parsed
		}
	}
	return prof
}
