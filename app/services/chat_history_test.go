package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryChatHistoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	store := NewMemoryChatHistoryStore(time.Hour)
	store.now = func() time.Time { return now }

	history, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, history)

	in := []ChatMessage{{Role: ChatRoleUser, Text: "a"}, {Role: ChatRoleModel, Text: "b"}}
	require.NoError(t, store.Save(ctx, "s1", in))
	in[0].Text = "mutated"

	history, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "a", history[0].Text)

	now = now.Add(time.Hour)
	history, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, history, "expired conversations are forgotten")

	require.NoError(t, store.Save(ctx, "s2", in))
	require.NoError(t, store.Delete(ctx, "s2"))
	history, err = store.Load(ctx, "s2")
	require.NoError(t, err)
	assert.Nil(t, history)
}

func TestMemoryChatHistoryStore_SaveEvictsAbandonedSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	store := NewMemoryChatHistoryStore(time.Hour)
	store.now = func() time.Time { return now }

	msg := []ChatMessage{{Role: ChatRoleUser, Text: "halo"}}
	require.NoError(t, store.Save(ctx, "abandoned", msg))
	now = now.Add(30 * time.Minute)
	require.NoError(t, store.Save(ctx, "recent", msg))

	now = now.Add(45 * time.Minute)
	require.NoError(t, store.Save(ctx, "fresh", msg))

	assert.NotContains(t, store.sessions, "abandoned")
	assert.Contains(t, store.sessions, "recent")
	assert.Contains(t, store.sessions, "fresh")
	assert.Len(t, store.sessions, 2)
}

func TestRedisChatHistoryStore_Key(t *testing.T) {
	store := NewRedisChatHistoryStore(nil, "manud:", time.Hour)
	assert.Equal(t, "manud:chat:abc", store.key("abc"))
}
