package dex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pikachuJSON = `{
	"id": 25,
	"name": "pikachu",
	"height": 4,
	"weight": 60,
	"sprites": {"front_default": "https://img.example/25.png"},
	"types": [{"slot": 1, "type": {"name": "electric"}}]
}`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:        srv.URL,
		CacheTTL:       time.Minute,
		RequestsPerSec: 1000,
	}, nil)
	require.NoError(t, err)
	return c, srv
}

func TestSpecies(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/pokemon/pikachu", r.URL.Path)
		w.Write([]byte(pikachuJSON))
	}))

	sp, err := c.Species(context.Background(), "Pikachu")
	require.NoError(t, err)
	assert.Equal(t, 25, sp.ID)
	assert.Equal(t, "pikachu", sp.Name)
	require.Len(t, sp.Types, 1)
	assert.Equal(t, "electric", sp.Types[0].Name)
	assert.Equal(t, "https://img.example/25.png", sp.Sprite)

	// Second fetch is served from cache.
	_, err = c.Species(context.Background(), "pikachu")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSpeciesNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Species(context.Background(), "missingno")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSpeciesUpstreamError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.Species(context.Background(), "pikachu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestList(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "offset=20&limit=10", r.URL.RawQuery)
		w.Write([]byte(`{"count": 1302, "results": [{"name": "spearow", "url": "https://dex.example/pokemon/21/"}]}`))
	}))

	page, err := c.List(context.Background(), 20, 10)
	require.NoError(t, err)
	assert.Equal(t, 1302, page.Count)
	assert.Equal(t, 20, page.Offset)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "spearow", page.Results[0].Name)
}

func TestListValidation(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := c.List(context.Background(), -1, 10)
	assert.ErrorContains(t, err, "offset")

	_, err = c.List(context.Background(), 0, 0)
	assert.ErrorContains(t, err, "limit")
}

func TestSpeciesEmptyName(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	_, err := c.Species(context.Background(), "  ")
	assert.ErrorContains(t, err, "required")
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{RequestsPerSec: 1}, nil)
	assert.ErrorContains(t, err, "base URL")

	_, err = NewClient(Config{BaseURL: "http://x"}, nil)
	assert.ErrorContains(t, err, "requests per second")
}

func TestRateLimiterHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pikachuJSON))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, RequestsPerSec: 0.001}, nil)
	require.NoError(t, err)

	// Burn the single burst token.
	_, err = c.Species(context.Background(), "pikachu")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Species(ctx, "raichu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
