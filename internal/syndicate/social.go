package syndicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SocialClient posts short announcements when an article first goes out.
type SocialClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewSocialClient creates a client for the status-posting API.
func NewSocialClient(baseURL, token string, logger *zap.Logger) (*SocialClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("social API base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocialClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}, nil
}

// Announce posts the title, excerpt and URL as one status.
func (c *SocialClient) Announce(ctx context.Context, title, excerpt, url string) error {
	status := title
	if excerpt != "" {
		status += "\n\n" + excerpt
	}
	if url != "" {
		status += "\n" + url
	}
	payload, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/statuses", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building social request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("social API returned status %d", resp.StatusCode)
	}
	c.logger.Info("announcement posted", zap.String("article.title", title))
	return nil
}
