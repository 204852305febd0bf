package directory

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a store for one tenant against a miniredis.
func setupTestStore(t *testing.T, tenant string, style KeyStyle) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	schema, err := NewSchema(tenant, style)
	require.NoError(t, err)

	store := NewStore(&redis.Options{Addr: mr.Addr()}, schema)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestStorePing(t *testing.T) {
	store, _ := setupTestStore(t, "team-a", KeyStyleEntityFirst)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestStorePutGet(t *testing.T) {
	store, _ := setupTestStore(t, "team-a", KeyStyleEntityFirst)
	ctx := context.Background()

	t.Run("round-trips every status value", func(t *testing.T) {
		for _, status := range []Status{StatusAvailable, StatusBusy, StatusAway} {
			record := &StatusRecord{
				Username: "alice",
				Status:   status,
				Message:  "msg for " + string(status),
				Icon:     DefaultIcon,
			}
			require.NoError(t, store.Put(ctx, record))

			got, err := store.Get(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, status, got.Status)
			assert.Equal(t, record.Message, got.Message)
		}
	})

	t.Run("round-trips a geolocated record", func(t *testing.T) {
		record := &StatusRecord{
			Username: "bob",
			Status:   StatusAvailable,
			Icon:     DefaultIcon,
			Location: &Location{Longitude: -0.1278, Latitude: 51.5074},
		}
		require.NoError(t, store.Put(ctx, record))

		got, err := store.Get(ctx, "bob")
		require.NoError(t, err)
		require.NotNil(t, got.Location)
		assert.Equal(t, record.Location, got.Location)
	})

	t.Run("absent user returns not-found", func(t *testing.T) {
		_, err := store.Get(ctx, "nobody")
		assert.True(t, IsNotFound(err))
	})

	t.Run("rejects invalid record before writing", func(t *testing.T) {
		err := store.Put(ctx, &StatusRecord{Username: "mallory", Status: "yellow"})
		assert.Error(t, err)
		_, err = store.Get(ctx, "mallory")
		assert.True(t, IsNotFound(err), "rejected write must leave no record")
	})
}

// HSET merges fields, so a write without a location keeps a previously
// stored one. ClearLocation is the explicit way out.
func TestStoreLocationRetention(t *testing.T) {
	store, _ := setupTestStore(t, "team-a", KeyStyleEntityFirst)
	ctx := context.Background()

	geolocated := &StatusRecord{
		Username: "alice",
		Status:   StatusAvailable,
		Icon:     DefaultIcon,
		Location: &Location{Longitude: 13.405, Latitude: 52.52},
	}
	require.NoError(t, store.Put(ctx, geolocated))

	t.Run("omitted location is retained", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, &StatusRecord{
			Username: "alice",
			Status:   StatusBusy,
			Message:  "heads down",
			Icon:     DefaultIcon,
		}))
		got, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, StatusBusy, got.Status)
		require.NotNil(t, got.Location, "location must survive a location-less update")
		assert.Equal(t, geolocated.Location, got.Location)
	})

	t.Run("explicit clear removes it", func(t *testing.T) {
		require.NoError(t, store.ClearLocation(ctx, "alice"))
		got, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Nil(t, got.Location)
	})

	t.Run("clearing an absent record is a no-op", func(t *testing.T) {
		assert.NoError(t, store.ClearLocation(ctx, "nobody"))
	})
}

func TestStoreListAll(t *testing.T) {
	ctx := context.Background()

	t.Run("uninitialized tenant lists empty, not error", func(t *testing.T) {
		store, _ := setupTestStore(t, "fresh", KeyStyleEntityFirst)
		records, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("lists every record in the namespace", func(t *testing.T) {
		store, _ := setupTestStore(t, "team-a", KeyStyleEntityFirst)
		users := []string{"alice", "bob", "carol"}
		for _, u := range users {
			require.NoError(t, store.Put(ctx, &StatusRecord{
				Username: u, Status: StatusAvailable, Icon: DefaultIcon,
			}))
		}

		records, err := store.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, records, 3)
		seen := make(map[string]bool)
		for _, r := range records {
			seen[r.Username] = true
		}
		for _, u := range users {
			assert.True(t, seen[u], "missing %s", u)
		}
	})
}

// Operations for one tenant never read another tenant's keys, even when
// both share the Redis server.
func TestStoreTenantIsolation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	newStore := func(tenant string, style KeyStyle) *Store {
		schema, err := NewSchema(tenant, style)
		require.NoError(t, err)
		s := NewStore(&redis.Options{Addr: mr.Addr()}, schema)
		t.Cleanup(func() { s.Close() })
		return s
	}

	teamA := newStore("team-a", KeyStyleEntityFirst)
	teamB := newStore("team-b", KeyStyleEntityFirst)

	require.NoError(t, teamA.Put(ctx, &StatusRecord{
		Username: "alice", Status: StatusBusy, Icon: DefaultIcon,
	}))

	_, err := teamB.Get(ctx, "alice")
	assert.True(t, IsNotFound(err), "tenant B must not see tenant A's record")

	records, err := teamB.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

// Both key-naming conventions are the same adapter; records written under
// either style round-trip identically.
func TestStoreKeyStyles(t *testing.T) {
	ctx := context.Background()
	for _, style := range []KeyStyle{KeyStyleEntityFirst, KeyStyleTenantFirst} {
		t.Run(string(style), func(t *testing.T) {
			store, mr := setupTestStore(t, "team-a", style)
			require.NoError(t, store.Put(ctx, &StatusRecord{
				Username: "alice", Status: StatusAway, Icon: DefaultIcon,
			}))

			assert.True(t, mr.Exists(store.Schema().StatusKey("alice")))

			records, err := store.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "alice", records[0].Username)
		})
	}
}
