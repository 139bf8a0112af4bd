package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStoreWithClient(client, time.Hour, nil), mr
}

func TestStore_AppendAndHistory(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendTurn(ctx, "s1", "first question", "first answer"))
	require.NoError(t, store.AppendTurn(ctx, "s1", "second question", "second answer"))

	turns, err := store.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "first question", turns[0].Question)
	assert.Equal(t, "second answer", turns[1].Answer)
}

func TestStore_HistoryLimitReturnsMostRecent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, q := range []string{"q1", "q2", "q3", "q4"} {
		require.NoError(t, store.AppendTurn(ctx, "s1", q, "a-"+q))
	}

	turns, err := store.History(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q3", turns[0].Question)
	assert.Equal(t, "q4", turns[1].Question)
}

func TestStore_MissingSessionYieldsEmptyHistory(t *testing.T) {
	store, _ := newTestStore(t)

	turns, err := store.History(context.Background(), "nope", 5)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendTurn(ctx, "a", "question a", "answer a"))
	require.NoError(t, store.AppendTurn(ctx, "b", "question b", "answer b"))

	turns, err := store.History(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "question a", turns[0].Question)
}

func TestStore_AppendRefreshesTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendTurn(ctx, "s1", "q", "a"))
	ttl := mr.TTL("session:s1")
	assert.Greater(t, ttl, time.Duration(0))
}

func TestStore_CreateAndExists(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ok, err := store.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_AppendFailureIsReported(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	err := store.AppendTurn(context.Background(), "s1", "q", "a")
	assert.Error(t, err)
}
