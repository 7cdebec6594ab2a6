// Package monitor renders a terminal dashboard over the daemon's stats
// endpoints.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hikarilabs/sited/internal/quiz"
	"github.com/hikarilabs/sited/internal/ticket"
	"github.com/hikarilabs/sited/internal/todo"
)

// StatsClient queries the daemon's REST API.
type StatsClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewStatsClient creates a client for the daemon at baseURL. token may
// be empty when the daemon runs without auth.
func NewStatsClient(baseURL, token string) *StatsClient {
	return &StatsClient{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// TodoStats fetches completion stats with a daily series of `days` days.
func (c *StatsClient) TodoStats(ctx context.Context, days int) (*todo.Stats, error) {
	var stats todo.Stats
	params := url.Values{"days": []string{strconv.Itoa(days)}}
	if err := c.get(ctx, "/api/v1/todos/stats", params, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// QuizStats fetches one user's mastery summary.
func (c *StatsClient) QuizStats(ctx context.Context, user string) (*quiz.UserStats, error) {
	var stats quiz.UserStats
	params := url.Values{"user": []string{user}}
	if err := c.get(ctx, "/api/v1/quiz/stats", params, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Tickets fetches all tickets for the counter panel.
func (c *StatsClient) Tickets(ctx context.Context) ([]*ticket.Ticket, error) {
	var tickets []*ticket.Ticket
	if err := c.get(ctx, "/api/v1/tickets", nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Health reports whether the daemon answers its health check.
func (c *StatsClient) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("daemon reported status %q", resp.Status)
	}
	return nil
}

func (c *StatsClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
