package syndicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// QiitaArticle is the API's item representation, trimmed to what the
// pipeline reads back.
type QiitaArticle struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// QiitaClient creates and updates articles on Qiita.
type QiitaClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewQiitaClient creates a client authenticated with a personal access
// token.
func NewQiitaClient(baseURL, token string, logger *zap.Logger) (*QiitaClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("qiita API base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second
	return &QiitaClient{baseURL: baseURL, http: httpClient, logger: logger}, nil
}

type qiitaItemBody struct {
	Title   string     `json:"title"`
	Body    string     `json:"body"`
	Private bool       `json:"private"`
	Tags    []qiitaTag `json:"tags"`
}

type qiitaTag struct {
	Name string `json:"name"`
}

// Create publishes a new article and returns its assigned ID and URL.
func (c *QiitaClient) Create(ctx context.Context, a *Article) (*QiitaArticle, error) {
	out, err := c.do(ctx, http.MethodPost, "/items", a, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	c.logger.Info("qiita article created",
		zap.String("page.id", a.PageID),
		zap.String("qiita.id", out.ID))
	return out, nil
}

// Update rewrites an existing article in place.
func (c *QiitaClient) Update(ctx context.Context, qiitaID string, a *Article) (*QiitaArticle, error) {
	out, err := c.do(ctx, http.MethodPatch, "/items/"+qiitaID, a, http.StatusOK)
	if err != nil {
		return nil, err
	}
	c.logger.Info("qiita article updated",
		zap.String("page.id", a.PageID),
		zap.String("qiita.id", out.ID))
	return out, nil
}

func (c *QiitaClient) do(ctx context.Context, method, path string, a *Article, wantStatus int) (*QiitaArticle, error) {
	tags := make([]qiitaTag, 0, len(a.Topics))
	for _, t := range a.Topics {
		tags = append(tags, qiitaTag{Name: t})
	}
	payload, err := json.Marshal(qiitaItemBody{
		Title: a.Title,
		Body:  a.Markdown,
		Tags:  tags,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding qiita item: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building qiita request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling qiita: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading qiita response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return nil, fmt.Errorf("qiita returned status %d for %s %s", resp.StatusCode, method, path)
	}

	var out QiitaArticle
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding qiita response: %w", err)
	}
	return &out, nil
}
