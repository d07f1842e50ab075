package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quillpad/internal/domain"
)

func newTestRepo(t *testing.T, now func() time.Time) (*SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := NewSessionRepository(rdb, now).(*SessionRepository)
	require.NoError(t, repo.Init(context.Background()))
	return repo, mr
}

func TestSessionRepository_CreateGetDelete(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo, mr := newTestRepo(t, func() time.Time { return now })
	ctx := context.Background()

	session := &domain.Session{ID: "abc", UserID: 7, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, session))

	assert.True(t, mr.Exists(sessionKeyPrefix+"abc"))
	assert.Equal(t, time.Hour, mr.TTL(sessionKeyPrefix+"abc"))

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, int64(7), got.UserID)
	assert.True(t, got.ExpiresAt.Equal(session.ExpiresAt))

	require.NoError(t, repo.Delete(ctx, "abc"))
	_, err = repo.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "abc"))
}

func TestSessionRepository_RedisEvictsExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo, mr := newTestRepo(t, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "short", UserID: 1, CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepository_RejectsExpiredAndDuplicate(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo, _ := newTestRepo(t, func() time.Time { return now })
	ctx := context.Background()

	assert.Error(t, repo.Create(ctx, &domain.Session{ID: "stale", UserID: 1, CreatedAt: now, ExpiresAt: now}))

	s := &domain.Session{ID: "dup", UserID: 1, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, s))
	assert.Error(t, repo.Create(ctx, s))
}

func TestSessionRepository_InitFailsWithoutServer(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	repo := NewSessionRepository(rdb, nil)
	assert.Error(t, repo.Init(context.Background()))
}
