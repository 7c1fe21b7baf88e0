// Package campaign sequences a resolution run: platform by platform, person
// by person, resuming from the checkpoint table after interruption.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/unfold/internal/identity"
	"github.com/your-org/unfold/internal/models"
	"github.com/your-org/unfold/internal/observability"
	"github.com/your-org/unfold/internal/platform"
)

// Store is the persistence the orchestrator needs. *storage.PostgresStore
// implements it.
type Store interface {
	SavePerson(ctx context.Context, p *models.Person) error
	GetPerson(ctx context.Context, id int64) (*models.Person, error)
	MarkChecked(ctx context.Context, personID int64, pf models.Platform) error
	UncheckedIDs(ctx context.Context, pf models.Platform) ([]int64, error)
}

// EventPublisher fans resolution progress out to observers. Optional.
type EventPublisher interface {
	PublishResolution(ctx context.Context, ev models.ResolutionEvent) error
}

// Orchestrator drives the campaign state machine. For each platform in
// fixed order it loads the persons not yet checked there, filters and
// orders them by identifiability, and runs the resolver over each one.
// Every person is persisted before its checkpoint flag is set, so a crash
// between the two repeats work instead of losing it.
type Orchestrator struct {
	store    Store
	resolver *Resolver
	clients  map[models.Platform]platform.Client
	events   EventPublisher

	// MinIdentifiability must be strictly exceeded for a person to enter
	// cross-platform search.
	MinIdentifiability int
}

func NewOrchestrator(store Store, resolver *Resolver, clients map[models.Platform]platform.Client, events EventPublisher) *Orchestrator {
	return &Orchestrator{
		store:              store,
		resolver:           resolver,
		clients:            clients,
		events:             events,
		MinIdentifiability: identity.MinIdentifiability,
	}
}

// Run executes one full campaign pass. A platform whose session dies mid-pass
// is abandoned with a warning; the remaining platforms still run, and the
// abandoned persons stay unchecked for the next run. Context cancellation
// stops everything at the next person boundary.
func (o *Orchestrator) Run(ctx context.Context) error {
	for _, pf := range models.AllPlatforms {
		client, ok := o.clients[pf]
		if !ok {
			continue
		}

		if err := o.runPlatform(ctx, pf, client); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if sessionError(err) {
				reason := "blocked"
				if errors.Is(err, platform.ErrNotAuthenticated) {
					reason = "not_authenticated"
				}
				observability.PlatformAborts.WithLabelValues(string(pf), reason).Inc()
				slog.Warn("platform pass abandoned", "platform", pf, "reason", reason, "error", err)
				o.publish(ctx, models.ResolutionEvent{
					Type:     models.EventPlatformAborted,
					Platform: pf,
					Reason:   reason,
				})
				continue
			}
			return fmt.Errorf("platform %s: %w", pf, err)
		}
	}
	return nil
}

func (o *Orchestrator) runPlatform(ctx context.Context, pf models.Platform, client platform.Client) error {
	if !client.Authenticated() {
		return platform.ErrNotAuthenticated
	}

	persons, err := o.pendingPersons(ctx, pf)
	if err != nil {
		return err
	}
	slog.Info("platform pass started", "platform", pf, "pending", len(persons))

	for _, person := range persons {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var score int
		if pf == models.PlatformTelegram {
			// Persons enter the system through Telegram ingestion, so the
			// Telegram pass only elaborates what is already there.
			if err := o.elaboratePass(ctx, person, pf); err != nil {
				return err
			}
		} else {
			score, err = o.resolver.FindProfile(ctx, person, client)
			if err != nil {
				return err
			}
		}

		if err := o.commit(ctx, person, pf, score); err != nil {
			return err
		}
	}

	slog.Info("platform pass finished", "platform", pf, "persons", len(persons))
	return nil
}

// pendingPersons loads the persons not yet checked on the platform, keeps
// those identifiable enough to pursue, and orders them most identifiable
// first so the strongest leads are resolved before a possible block.
func (o *Orchestrator) pendingPersons(ctx context.Context, pf models.Platform) ([]*models.Person, error) {
	ids, err := o.store.UncheckedIDs(ctx, pf)
	if err != nil {
		return nil, err
	}

	var persons []*models.Person
	for _, id := range ids {
		person, err := o.store.GetPerson(ctx, id)
		if err != nil {
			return nil, err
		}
		if person == nil {
			slog.Warn("checkpoint without person record", "person", id)
			continue
		}
		if identity.Identifiability(person) > o.MinIdentifiability {
			persons = append(persons, person)
		}
	}

	sort.SliceStable(persons, func(i, j int) bool {
		return identity.Identifiability(persons[i]) > identity.Identifiability(persons[j])
	})
	return persons, nil
}

func (o *Orchestrator) elaboratePass(ctx context.Context, person *models.Person, pf models.Platform) error {
	for i := range person.Profiles {
		prof := &person.Profiles[i]
		if prof.Platform != pf || prof.Elaborated {
			continue
		}
		if err := o.resolver.Elaborator.Elaborate(ctx, prof); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, identity.ErrNoPhotos) {
				slog.Warn("elaborate profile", "platform", pf,
					"username", prof.Username, "error", err)
			}
		}
	}
	return nil
}

// commit persists the person, then marks the platform checked, then tells
// observers. The order matters: a person is always saved before the flag
// that says it no longer needs this platform.
func (o *Orchestrator) commit(ctx context.Context, person *models.Person, pf models.Platform, score int) error {
	if err := o.store.SavePerson(ctx, person); err != nil {
		return fmt.Errorf("save person %d: %w", person.ID, err)
	}
	if err := o.store.MarkChecked(ctx, person.ID, pf); err != nil {
		return fmt.Errorf("mark person %d checked: %w", person.ID, err)
	}
	observability.CheckpointsMarked.WithLabelValues(string(pf)).Inc()

	if score > 0 {
		o.publish(ctx, models.ResolutionEvent{
			Type:     models.EventProfileMerged,
			PersonID: person.ID,
			Platform: pf,
			Score:    score,
		})
	}
	o.publish(ctx, models.ResolutionEvent{
		Type:     models.EventPersonChecked,
		PersonID: person.ID,
		Platform: pf,
	})
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, ev models.ResolutionEvent) {
	if o.events == nil {
		return
	}
	ev.ID = uuid.New()
	ev.Time = time.Now()
	if err := o.events.PublishResolution(ctx, ev); err != nil {
		slog.Warn("publish resolution event", "type", ev.Type, "error", err)
	}
}
