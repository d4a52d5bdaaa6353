package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuoteChat/entity"
	"QuoteChat/internal/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		return New()
	})
}

func TestCommit_FrozenClockStillIncreases(t *testing.T) {
	store := New()
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return frozen }
	ctx := context.Background()

	thread := entity.NewThread(7, 3)
	_, _, err := store.GetOrCreateThread(ctx, thread, entity.NewBotMessage(thread.ID, "hola"))
	require.NoError(t, err)

	msgs := []*entity.Message{
		entity.NewBotMessage(thread.ID, "uno"),
		entity.NewBotMessage(thread.ID, "dos"),
	}
	require.NoError(t, store.Commit(ctx, thread.Clone(), thread.Version, msgs))

	assert.Equal(t, frozen.Add(time.Millisecond), msgs[0].CreatedAt)
	assert.Equal(t, frozen.Add(2*time.Millisecond), msgs[1].CreatedAt)
}

func TestListMessages_ReturnsCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	thread := entity.NewThread(7, 3)
	_, _, err := store.GetOrCreateThread(ctx, thread, entity.NewBotMessage(thread.ID, "hola"))
	require.NoError(t, err)

	msgs, err := store.ListMessages(ctx, thread.ID, nil)
	require.NoError(t, err)
	msgs[0].Text = "cambiado"

	again, err := store.ListMessages(ctx, thread.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "hola", again[0].Text)
}
