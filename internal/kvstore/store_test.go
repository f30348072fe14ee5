package kvstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/kvstore"
)

type cachedPost struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// backends returns one factory per Store implementation. File and Redis stores
// created by the same factory share their storage, like two runs of the CLI.
func backends(t *testing.T) map[string]func(opts ...kvstore.Option) kvstore.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state.json")
	client, _ := newRedisClient(t)

	return map[string]func(opts ...kvstore.Option) kvstore.Store{
		"memory": func(opts ...kvstore.Option) kvstore.Store {
			return kvstore.NewMemory(opts...)
		},
		"file": func(opts ...kvstore.Option) kvstore.Store {
			return kvstore.NewFile(path, opts...)
		},
		"redis": func(opts ...kvstore.Option) kvstore.Store {
			return kvstore.NewRedis(client, "test:", opts...)
		},
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()

			posts := []cachedPost{{ID: 1, Title: "Hello"}, {ID: 2, Title: "World"}}
			require.NoError(t, s.Set(ctx, "wp_editor_cached_posts", posts, 0))

			var got []cachedPost
			found, err := s.Get(ctx, "wp_editor_cached_posts", &got)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, posts, got)

			require.NoError(t, s.Delete(ctx, "wp_editor_cached_posts"))
			found, err = s.Get(ctx, "wp_editor_cached_posts", &got)
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, s.Delete(ctx, "never-set"))
		})
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			require.NoError(t, s.Set(ctx, "a", "1", 0))
			require.NoError(t, s.Set(ctx, "b", "2", 0))

			require.NoError(t, s.Clear(ctx))

			var v string
			found, err := s.Get(ctx, "a", &v)
			require.NoError(t, err)
			assert.False(t, found)
			found, err = s.Get(ctx, "b", &v)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestStore_EmptyKey(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			require.ErrorIs(t, s.Set(ctx, "", 1, 0), kvstore.ErrEmptyKey)
			_, err := s.Get(ctx, "", nil)
			require.ErrorIs(t, err, kvstore.ErrEmptyKey)
		})
	}
}

func TestStore_ExpiredEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	stores := map[string]kvstore.Store{
		"memory": kvstore.NewMemory(kvstore.WithClock(c.Now)),
		"file":   kvstore.NewFile(filepath.Join(t.TempDir(), "s.json"), kvstore.WithClock(c.Now)),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			c.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			require.NoError(t, s.Set(ctx, "reset:admin", "tok", time.Hour))

			c.now = c.now.Add(59 * time.Minute)
			var v string
			found, err := s.Get(ctx, "reset:admin", &v)
			require.NoError(t, err)
			assert.True(t, found)

			c.now = c.now.Add(time.Minute)
			found, err = s.Get(ctx, "reset:admin", &v)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestRedis_TTLIsApplied(t *testing.T) {
	ctx := context.Background()
	client, mr := newRedisClient(t)
	s := kvstore.NewRedis(client, "")

	require.NoError(t, s.Set(ctx, "reset:admin", "tok", time.Hour))
	assert.True(t, mr.Exists(kvstore.DefaultRedisPrefix+"reset:admin"))
	assert.Equal(t, time.Hour, mr.TTL(kvstore.DefaultRedisPrefix+"reset:admin"))

	mr.FastForward(time.Hour + time.Second)

	var v string
	found, err := s.Get(ctx, "reset:admin", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedis_ClearKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	client, mr := newRedisClient(t)
	s := kvstore.NewRedis(client, "mine:")

	require.NoError(t, mr.Set("other:key", "x"))
	require.NoError(t, s.Set(ctx, "a", 1, 0))

	require.NoError(t, s.Clear(ctx))
	assert.True(t, mr.Exists("other:key"))
	assert.False(t, mr.Exists("mine:a"))
}

func TestStore_VersionMismatchEvicts(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range backends(t) {
		if name == "memory" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			old := newStore(kvstore.WithVersion(1))
			require.NoError(t, old.Set(ctx, "active_site", map[string]any{"id": 3}, 0))

			current := newStore(kvstore.WithVersion(2))
			var v map[string]any
			found, err := current.Get(ctx, "active_site", &v)
			require.NoError(t, err)
			assert.False(t, found)

			// The stale entry is gone for every reader.
			found, err = old.Get(ctx, "active_site", &v)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestFile_CorruptFileReadsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := kvstore.NewFile(path)
	var v string
	found, err := s.Get(ctx, "auth_token", &v)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "auth_token", "abc", 0))
	found, err = s.Get(ctx, "auth_token", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc", v)
}

func TestMemory_GetWithNilDst(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewMemory()
	require.NoError(t, s.Set(ctx, "k", 1, 0))

	found, err := s.Get(ctx, "k", nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, s.Len())
}
