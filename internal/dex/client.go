// Package dex implements the Pokémon dex browser backend: a thin client
// over the public dex REST API with a TTL cache in front and a rate
// limiter behind, so browsing never hammers the upstream.
package dex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hikarilabs/sited/internal/cache"
)

// Species is the subset of dex data the browser renders.
type Species struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Height int    `json:"height"`
	Weight int    `json:"weight"`
	Types  []Type `json:"types"`
	Sprite string `json:"sprite,omitempty"`
}

// Type is one of a species' elemental types.
type Type struct {
	Slot int    `json:"slot"`
	Name string `json:"name"`
}

// Page is one window of the species listing.
type Page struct {
	Count   int         `json:"count"`
	Offset  int         `json:"offset"`
	Limit   int         `json:"limit"`
	Results []PageEntry `json:"results"`
}

// PageEntry is one listed species name/URL pair.
type PageEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Config holds dex client settings.
type Config struct {
	BaseURL        string
	CacheTTL       time.Duration
	CacheEntries   int
	RequestsPerSec float64
	Timeout        time.Duration
}

// Client fetches species data, caching responses for the configured TTL.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache[[]byte]
	logger  *zap.Logger
}

// NewClient creates a dex client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.RequestsPerSec <= 0 {
		return nil, fmt.Errorf("requests per second must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.CacheEntries <= 0 {
		cfg.CacheEntries = 512
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		cache:   cache.New[[]byte](cfg.CacheTTL, cfg.CacheEntries),
		logger:  logger,
	}, nil
}

// SetCacheMetrics attaches hit/miss counters to the response cache.
func (c *Client) SetCacheMetrics(m *cache.Metrics) {
	c.cache.SetMetrics(m)
}

// Species fetches one species by numeric ID or name.
func (c *Client) Species(ctx context.Context, idOrName string) (*Species, error) {
	idOrName = strings.ToLower(strings.TrimSpace(idOrName))
	if idOrName == "" {
		return nil, fmt.Errorf("species id or name is required")
	}

	body, err := c.fetch(ctx, "/pokemon/"+url.PathEscape(idOrName))
	if err != nil {
		return nil, err
	}

	var raw struct {
		ID      int    `json:"id"`
		Name    string `json:"name"`
		Height  int    `json:"height"`
		Weight  int    `json:"weight"`
		Sprites struct {
			FrontDefault string `json:"front_default"`
		} `json:"sprites"`
		Types []struct {
			Slot int `json:"slot"`
			Type struct {
				Name string `json:"name"`
			} `json:"type"`
		} `json:"types"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding species %s: %w", idOrName, err)
	}

	sp := &Species{
		ID:     raw.ID,
		Name:   raw.Name,
		Height: raw.Height,
		Weight: raw.Weight,
		Sprite: raw.Sprites.FrontDefault,
	}
	for _, t := range raw.Types {
		sp.Types = append(sp.Types, Type{Slot: t.Slot, Name: t.Type.Name})
	}
	return sp, nil
}

// List fetches one page of the species listing.
func (c *Client) List(ctx context.Context, offset, limit int) (*Page, error) {
	if offset < 0 {
		return nil, fmt.Errorf("offset must be >= 0, got %d", offset)
	}
	if limit < 1 || limit > 200 {
		return nil, fmt.Errorf("limit must be in [1, 200], got %d", limit)
	}

	body, err := c.fetch(ctx, fmt.Sprintf("/pokemon?offset=%d&limit=%d", offset, limit))
	if err != nil {
		return nil, err
	}

	var raw struct {
		Count   int         `json:"count"`
		Results []PageEntry `json:"results"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding species page: %w", err)
	}

	return &Page{Count: raw.Count, Offset: offset, Limit: limit, Results: raw.Results}, nil
}

// fetch returns the response body for path, from cache when fresh.
func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	if body, ok := c.cache.Get(path); ok {
		return body, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building dex request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dex upstream returned status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading dex response: %w", err)
	}

	c.cache.Set(path, body)
	c.logger.Debug("Dex upstream fetched", zap.String("path", path), zap.Int("bytes", len(body)))
	return body, nil
}
