package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowhq/presence/internal/geo"
	"github.com/burrowhq/presence/internal/hub"
	"github.com/burrowhq/presence/internal/presence"
	"github.com/burrowhq/presence/pkg/directory"
)

type stubIcons struct{}

func (stubIcons) Resolve(ctx context.Context, message string) string { return "coffee" }

type stubSpatial struct{}

func (stubSpatial) Within(ctx context.Context, boundary *geo.Boundary) ([]*directory.StatusRecord, error) {
	return nil, nil
}

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	schema, err := directory.NewSchema("team-a", directory.KeyStyleEntityFirst)
	require.NoError(t, err)

	opts := &redis.Options{Addr: mr.Addr()}
	store := directory.NewStore(opts, schema)
	t.Cleanup(func() { store.Close() })

	h := hub.New(opts, schema)
	t.Cleanup(func() { h.Close() })

	boundary := &geo.Boundary{
		Name: "campus",
		Ring: []directory.Location{
			{Longitude: -1, Latitude: -1},
			{Longitude: 1, Latitude: -1},
			{Longitude: 1, Latitude: 1},
			{Longitude: -1, Latitude: 1},
		},
	}
	return New(presence.NewService(store, stubIcons{}, stubSpatial{}, h, boundary))
}

func postStatus(t *testing.T, srv *Server, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/status", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestUpdateAndList(t *testing.T) {
	srv := setupTestServer(t)

	rec := postStatus(t, srv, map[string]interface{}{
		"username": "alice",
		"status":   "Busy",
		"message":  "grabbing coffee",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated directory.StatusRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "coffee", updated.Icon)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var records []directory.StatusRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].Username)
	assert.Equal(t, directory.StatusBusy, records[0].Status)
}

func TestUpdateValidation(t *testing.T) {
	srv := setupTestServer(t)

	t.Run("rejects unknown status", func(t *testing.T) {
		rec := postStatus(t, srv, map[string]interface{}{
			"username": "alice",
			"status":   "yellow",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a lone coordinate", func(t *testing.T) {
		rec := postStatus(t, srv, map[string]interface{}{
			"username":  "alice",
			"status":    "Busy",
			"longitude": 0.5,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "together")
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/status", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPing(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/ping?username=alice", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pong", body["reply"])
	assert.Nil(t, body["status"])
}

func TestUsersInBoundaryEmpty(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/map", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestClearLocation(t *testing.T) {
	srv := setupTestServer(t)

	rec := postStatus(t, srv, map[string]interface{}{
		"username":  "alice",
		"status":    "Available",
		"longitude": 0.5,
		"latitude":  0.5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/location?username=alice", nil)
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusNoContent, rec2.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec3 := httptest.NewRecorder()
	srv.ServeHTTP(rec3, req)

	var records []directory.StatusRecord
	require.NoError(t, json.Unmarshal(rec3.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Location)
}
