// Package storetest holds the behaviour every thread store must share. Each
// backend runs it from its own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuoteChat/entity"
)

type Store interface {
	GetOrCreateThread(ctx context.Context, thread *entity.Thread, seed *entity.Message) (*entity.Thread, bool, error)
	GetThread(ctx context.Context, id string) (*entity.Thread, error)
	ListThreads(ctx context.Context, filter entity.ThreadFilter) ([]entity.Thread, error)
	ListMessages(ctx context.Context, threadID string, since *time.Time) ([]entity.Message, error)
	Commit(ctx context.Context, thread *entity.Thread, expectedVersion int64, msgs []*entity.Message) error
	SetStatus(ctx context.Context, threadID string, status entity.ThreadStatus) error
}

// Run executes the shared suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"GetOrCreateIsIdempotent", testGetOrCreateIsIdempotent},
		{"GetThreadNotFound", testGetThreadNotFound},
		{"CommitRoundTrip", testCommitRoundTrip},
		{"CommitConflictWritesNothing", testCommitConflictWritesNothing},
		{"TimestampsStrictlyIncrease", testTimestampsStrictlyIncrease},
		{"SinceCursor", testSinceCursor},
		{"SetStatusBumpsVersion", testSetStatusBumpsVersion},
		{"ListThreadsFilters", testListThreadsFilters},
		{"ConcurrentCommits", testConcurrentCommits},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func create(t *testing.T, s Store, customerID, productID int64) *entity.Thread {
	t.Helper()
	thread := entity.NewThread(customerID, productID)
	seed := entity.NewBotMessage(thread.ID, "bienvenido")
	stored, created, err := s.GetOrCreateThread(context.Background(), thread, seed)
	require.NoError(t, err)
	require.True(t, created)
	return stored
}

// commit appends msgs, retrying on conflicts the way the relay does.
func commit(t *testing.T, s Store, threadID string, mutate func(*entity.Thread), msgs ...*entity.Message) *entity.Thread {
	t.Helper()
	ctx := context.Background()
	for attempt := 0; attempt < 50; attempt++ {
		current, err := s.GetThread(ctx, threadID)
		require.NoError(t, err)
		next := current.Clone()
		if mutate != nil {
			mutate(next)
		}
		err = s.Commit(ctx, next, current.Version, msgs)
		if errors.Is(err, entity.ErrConflict) {
			continue
		}
		require.NoError(t, err)
		return next
	}
	t.Fatalf("commit to %s kept conflicting", threadID)
	return nil
}

func customerMessage(threadID, text string) *entity.Message {
	actor := &entity.Actor{ID: 7, Username: "juan", Name: "Juan Perez"}
	return entity.NewActorMessage(threadID, actor, entity.RoleCustomer, text)
}

func testGetOrCreateIsIdempotent(t *testing.T, s Store) {
	ctx := context.Background()
	first := create(t, s, 7, 3)

	again := entity.NewThread(7, 3)
	stored, created, err := s.GetOrCreateThread(ctx, again, entity.NewBotMessage(again.ID, "otra vez"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, stored.ID)

	threads, err := s.ListThreads(ctx, entity.ThreadFilter{CustomerID: 7})
	require.NoError(t, err)
	assert.Len(t, threads, 1)

	msgs, err := s.ListMessages(ctx, first.ID, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "bienvenido", msgs[0].Text)
	assert.True(t, msgs[0].IsBot)
	assert.False(t, msgs[0].CreatedAt.IsZero())
}

func testGetThreadNotFound(t *testing.T, s Store) {
	_, err := s.GetThread(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	err = s.SetStatus(context.Background(), "missing", entity.StatusApproved)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func testCommitRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()
	thread := create(t, s, 7, 3)

	msg := customerMessage(thread.ID, "adjunto la boleta")
	msg.Attachment = &entity.Attachment{FileID: "f-1", Filename: "boleta.pdf", MIMEType: "application/pdf", Size: 1024}

	next := commit(t, s, thread.ID, func(th *entity.Thread) {
		th.StaffID = 42
		th.HandedOff = true
		th.Fields.Set(entity.FieldName, entity.Confirmed("Juan Perez"))
		th.Fields.Set(entity.FieldEmail, entity.AwaitingConfirmation("juan@example.com"))
		th.Fields.Set(entity.FieldPhone, entity.AwaitingEntry())
	}, msg)
	assert.Equal(t, thread.Version+1, next.Version)

	got, err := s.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, next.Version, got.Version)
	assert.Equal(t, int64(42), got.StaffID)
	assert.True(t, got.HandedOff)
	assert.Equal(t, entity.Confirmed("Juan Perez"), got.Fields.Name)
	assert.Equal(t, entity.AwaitingConfirmation("juan@example.com"), got.Fields.Email)
	assert.Equal(t, entity.AwaitingEntry(), got.Fields.Phone)
	assert.True(t, got.Fields.Region.IsUnset())
	assert.Equal(t, entity.StatusPending, got.Status)
	assert.True(t, got.LastMessageAt.Equal(msg.CreatedAt))

	msgs, err := s.ListMessages(ctx, thread.ID, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	last := msgs[1]
	assert.Equal(t, msg.ID, last.ID)
	assert.Equal(t, entity.RoleCustomer, last.AuthorRole)
	assert.Equal(t, "Juan Perez", last.AuthorName)
	require.NotNil(t, last.Attachment)
	assert.Equal(t, *msg.Attachment, *last.Attachment)
	assert.Nil(t, msgs[0].Attachment)
}

func testCommitConflictWritesNothing(t *testing.T, s Store) {
	ctx := context.Background()
	thread := create(t, s, 7, 3)
	commit(t, s, thread.ID, nil, customerMessage(thread.ID, "hola"))

	stale := thread.Clone()
	stale.Status = entity.StatusRejected
	err := s.Commit(ctx, stale, thread.Version, []*entity.Message{customerMessage(thread.ID, "perdido")})
	require.ErrorIs(t, err, entity.ErrConflict)

	got, err := s.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, got.Status)

	msgs, err := s.ListMessages(ctx, thread.ID, nil)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func testTimestampsStrictlyIncrease(t *testing.T, s Store) {
	ctx := context.Background()
	thread := create(t, s, 7, 3)

	// several messages per commit and commits faster than the clock resolution
	for i := 0; i < 10; i++ {
		commit(t, s, thread.ID, nil,
			customerMessage(thread.ID, fmt.Sprintf("mensaje %d", i)),
			entity.NewBotMessage(thread.ID, fmt.Sprintf("respuesta %d", i)),
		)
	}

	msgs, err := s.ListMessages(ctx, thread.ID, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 21)
	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt),
			"message %d at %s not after %s", i, msgs[i].CreatedAt, msgs[i-1].CreatedAt)
	}
}

func testSinceCursor(t *testing.T, s Store) {
	ctx := context.Background()
	thread := create(t, s, 7, 3)
	for i := 0; i < 4; i++ {
		commit(t, s, thread.ID, nil, customerMessage(thread.ID, fmt.Sprintf("m%d", i)))
	}

	all, err := s.ListMessages(ctx, thread.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 5)

	cursor := all[2].CreatedAt
	after, err := s.ListMessages(ctx, thread.ID, &cursor)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, all[3].ID, after[0].ID)
	assert.Equal(t, all[4].ID, after[1].ID)

	again, err := s.ListMessages(ctx, thread.ID, &cursor)
	require.NoError(t, err)
	assert.Equal(t, after, again)

	newest := all[4].CreatedAt
	none, err := s.ListMessages(ctx, thread.ID, &newest)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSetStatusBumpsVersion(t *testing.T, s Store) {
	ctx := context.Background()
	thread := create(t, s, 7, 3)

	require.NoError(t, s.SetStatus(ctx, thread.ID, entity.StatusApproved))
	got, err := s.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, got.Status)
	assert.Greater(t, got.Version, thread.Version)

	err = s.Commit(ctx, thread.Clone(), thread.Version, []*entity.Message{customerMessage(thread.ID, "tarde")})
	assert.ErrorIs(t, err, entity.ErrConflict)
}

func testListThreadsFilters(t *testing.T, s Store) {
	ctx := context.Background()
	older := create(t, s, 7, 1)
	other := create(t, s, 8, 1)
	newer := create(t, s, 7, 2)
	commit(t, s, newer.ID, nil, customerMessage(newer.ID, "hola"))
	require.NoError(t, s.SetStatus(ctx, other.ID, entity.StatusApproved))

	mine, err := s.ListThreads(ctx, entity.ThreadFilter{CustomerID: 7})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)
	assert.Equal(t, older.ID, mine[1].ID)

	approved, err := s.ListThreads(ctx, entity.ThreadFilter{Status: entity.StatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, other.ID, approved[0].ID)

	limited, err := s.ListThreads(ctx, entity.ThreadFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func testConcurrentCommits(t *testing.T, s Store) {
	ctx := context.Background()
	thread := create(t, s, 7, 3)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := customerMessage(thread.ID, fmt.Sprintf("w%d", i))
			for {
				current, err := s.GetThread(ctx, thread.ID)
				if err != nil {
					t.Error(err)
					return
				}
				err = s.Commit(ctx, current.Clone(), current.Version, []*entity.Message{msg})
				if errors.Is(err, entity.ErrConflict) {
					continue
				}
				if err != nil {
					t.Error(err)
				}
				return
			}
		}(i)
	}
	wg.Wait()

	got, err := s.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, thread.Version+writers, got.Version)

	msgs, err := s.ListMessages(ctx, thread.ID, nil)
	require.NoError(t, err)
	require.Len(t, msgs, writers+1)
	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt))
	}
}
