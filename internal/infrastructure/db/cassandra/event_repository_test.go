package cassandra

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openmeet/openmeet-api/internal/core/domain"
)

func newEventFixture(t *testing.T) (*EventRepository, *memStore) {
	t.Helper()
	store := newMemStore()
	repo := NewEventRepository(newTestPool(t, 2, newFakeConnector(store)), zerolog.Nop())
	repo.now = fixedClock(clockMs)
	return repo, store
}

func meetup(start int64) domain.NewEvent {
	return domain.NewEvent{
		Title:       "Go meetup",
		Description: "Talks and pizza",
		StartTime:   start,
		EndTime:     start + 7_200_000,
		Lat:         52.52,
		Lon:         13.405,
		Location:    "Berlin",
	}
}

func TestEventRepository_CreateThenGet(t *testing.T) {
	repo, _ := newEventFixture(t)
	ctx := context.Background()
	group := uuid.New()
	start := int64(1_750_000_000_000)

	created, err := repo.Create(ctx, group, meetup(start))
	mustNotErr(t, err)
	if created.CreatedAt != clockMs || created.UpdatedAt != clockMs {
		t.Errorf("expected server timestamps, got %d/%d", created.CreatedAt, created.UpdatedAt)
	}

	got, err := repo.Get(ctx, domain.EventKey{GroupID: group, StartTime: start, EventID: created.ID})
	mustNotErr(t, err)
	if *got != *created {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, created)
	}
}

func TestEventRepository_Get_MismatchedKey(t *testing.T) {
	repo, _ := newEventFixture(t)
	ctx := context.Background()
	group := uuid.New()
	start := int64(1_750_000_000_000)

	created, err := repo.Create(ctx, group, meetup(start))
	mustNotErr(t, err)

	keys := map[string]domain.EventKey{
		"other group":      {GroupID: uuid.New(), StartTime: start, EventID: created.ID},
		"other start time": {GroupID: group, StartTime: start + 1, EventID: created.ID},
		"other event id":   {GroupID: group, StartTime: start, EventID: uuid.New()},
	}
	for name, key := range keys {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get(ctx, key)
			assertErrIs(t, err, domain.ErrEventNotFound)
		})
	}
}

func TestEventRepository_IncompleteKey(t *testing.T) {
	repo, store := newEventFixture(t)
	ctx := context.Background()

	keys := map[string]domain.EventKey{
		"event id only": {EventID: uuid.New()},
		"no start time": {GroupID: uuid.New(), EventID: uuid.New()},
		"no event id":   {GroupID: uuid.New(), StartTime: 1},
		"no group":      {StartTime: 1, EventID: uuid.New()},
	}
	for name, key := range keys {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get(ctx, key)
			assertErrIs(t, err, domain.ErrIncompleteKey)
			assertErrIs(t, err, domain.ErrEventNotFound)

			err = repo.Delete(ctx, key)
			assertErrIs(t, err, domain.ErrIncompleteKey)
		})
	}

	if store.callCount(cqlSelectEvent) != 0 || store.callCount(cqlDeleteEvent) != 0 {
		t.Error("incomplete keys must not reach the store")
	}
}

func TestEventRepository_Create_RequiresKeyParts(t *testing.T) {
	repo, store := newEventFixture(t)

	_, err := repo.Create(context.Background(), uuid.Nil, meetup(1))
	assertErrIs(t, err, domain.ErrInvalidEvent)

	_, err = repo.Create(context.Background(), uuid.New(), meetup(0))
	assertErrIs(t, err, domain.ErrInvalidEvent)
	if errors.Is(err, domain.ErrEventNotFound) {
		t.Errorf("a rejected create must not read as not found: %v", err)
	}

	if store.callCount(cqlInsertEvent) != 0 {
		t.Error("event written without a full key")
	}
}

func TestEventRepository_Delete_MissDistinction(t *testing.T) {
	repo, _ := newEventFixture(t)
	ctx := context.Background()
	group := uuid.New()

	err := repo.Delete(ctx, domain.EventKey{GroupID: group, StartTime: 10, EventID: uuid.New()})
	assertErrIs(t, err, domain.ErrEventNotFound)

	created, err := repo.Create(ctx, group, meetup(10))
	mustNotErr(t, err)

	mustNotErr(t, repo.Delete(ctx, created.Key()))

	err = repo.Delete(ctx, created.Key())
	assertErrIs(t, err, domain.ErrEventNotFound)

	_, err = repo.Get(ctx, created.Key())
	assertErrIs(t, err, domain.ErrEventNotFound)
}

func TestEventRepository_ListByGroup(t *testing.T) {
	repo, _ := newEventFixture(t)
	ctx := context.Background()
	group, other := uuid.New(), uuid.New()

	for _, start := range []int64{300, 100, 200} {
		_, err := repo.Create(ctx, group, meetup(start))
		mustNotErr(t, err)
	}
	_, err := repo.Create(ctx, other, meetup(50))
	mustNotErr(t, err)

	events, err := repo.ListByGroup(ctx, group)
	mustNotErr(t, err)
	if len(events) != 3 {
		t.Fatalf("expected 3 events in group, got %d", len(events))
	}
	for i, want := range []int64{100, 200, 300} {
		if events[i].StartTime != want || events[i].GroupID != group {
			t.Errorf("event %d: expected start %d in group, got %+v", i, want, events[i])
		}
	}

	empty, err := repo.ListByGroup(ctx, uuid.New())
	mustNotErr(t, err)
	if len(empty) != 0 {
		t.Errorf("expected empty partition, got %d events", len(empty))
	}

	_, err = repo.ListByGroup(ctx, uuid.Nil)
	assertErrIs(t, err, domain.ErrIncompleteKey)
}

func TestEventRepository_StoreErrorsPropagate(t *testing.T) {
	repo, store := newEventFixture(t)
	store.failOn(cqlInsertEvent, 0, errInjected)

	_, err := repo.Create(context.Background(), uuid.New(), meetup(1))
	assertErrIs(t, err, domain.ErrStoreUnavailable)
}
