package syndicate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// notesAPIVersion is sent on every request, the API rejects calls
// without it.
const notesAPIVersion = "2022-06-28"

// NotesClient fetches pages and their block trees from the hosted notes
// API.
type NotesClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewNotesClient creates a notes API client.
func NewNotesClient(baseURL, token string, logger *zap.Logger) (*NotesClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("notes API base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotesClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}, nil
}

// Page fetches one page's metadata.
func (c *NotesClient) Page(ctx context.Context, pageID string) (*Page, error) {
	var raw struct {
		ID             string    `json:"id"`
		LastEditedTime time.Time `json:"last_edited_time"`
		Properties     struct {
			Title struct {
				Title []richText `json:"title"`
			} `json:"title"`
		} `json:"properties"`
	}
	if err := c.get(ctx, "/pages/"+pageID, nil, &raw); err != nil {
		return nil, err
	}
	return &Page{
		ID:         raw.ID,
		Title:      plainText(raw.Properties.Title.Title),
		LastEdited: raw.LastEditedTime,
	}, nil
}

// Blocks fetches the full block tree of a page, following pagination and
// recursing into children.
func (c *NotesClient) Blocks(ctx context.Context, pageID string) ([]Block, error) {
	return c.children(ctx, pageID)
}

func (c *NotesClient) children(ctx context.Context, blockID string) ([]Block, error) {
	var out []Block
	cursor := ""
	for {
		params := map[string]string{"page_size": "100"}
		if cursor != "" {
			params["start_cursor"] = cursor
		}
		var raw struct {
			Results    []rawBlock `json:"results"`
			HasMore    bool       `json:"has_more"`
			NextCursor string     `json:"next_cursor"`
		}
		if err := c.get(ctx, "/blocks/"+blockID+"/children", params, &raw); err != nil {
			return nil, err
		}
		for _, rb := range raw.Results {
			b, err := c.decodeBlock(ctx, rb)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		if !raw.HasMore {
			return out, nil
		}
		cursor = raw.NextCursor
	}
}

// rawBlock keeps the per-type payload opaque until decodeBlock picks it
// apart.
type rawBlock struct {
	ID          string
	Type        string
	HasChildren bool
	Raw         json.RawMessage
}

func (rb *rawBlock) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		HasChildren bool   `json:"has_children"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	rb.ID = a.ID
	rb.Type = a.Type
	rb.HasChildren = a.HasChildren
	rb.Raw = append([]byte(nil), data...)
	return nil
}

type richText struct {
	PlainText string `json:"plain_text"`
}

func plainText(rt []richText) string {
	var s string
	for _, t := range rt {
		s += t.PlainText
	}
	return s
}

func (c *NotesClient) decodeBlock(ctx context.Context, rb rawBlock) (Block, error) {
	b := Block{ID: rb.ID, Type: BlockType(rb.Type)}

	// The payload nests the content under a key named after the type.
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(rb.Raw, &envelope); err != nil {
		return b, fmt.Errorf("decoding block %s: %w", rb.ID, err)
	}
	body, ok := envelope[rb.Type]
	if ok {
		var content struct {
			RichText []richText `json:"rich_text"`
			Language string     `json:"language"`
			URL      string     `json:"url"`
			External struct {
				URL string `json:"url"`
			} `json:"external"`
			File struct {
				URL string `json:"url"`
			} `json:"file"`
		}
		if err := json.Unmarshal(body, &content); err != nil {
			return b, fmt.Errorf("decoding %s block %s: %w", rb.Type, rb.ID, err)
		}
		b.Text = plainText(content.RichText)
		b.Language = content.Language
		b.URL = content.URL
		if b.URL == "" {
			b.URL = content.External.URL
		}
		if b.URL == "" {
			b.URL = content.File.URL
		}
	}

	if rb.HasChildren {
		children, err := c.children(ctx, rb.ID)
		if err != nil {
			return b, err
		}
		b.Children = children
	}
	return b, nil
}

func (c *NotesClient) get(ctx context.Context, path string, params map[string]string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building notes request: %w", err)
	}
	if len(params) > 0 {
		q := req.URL.Query()
		for k, val := range params {
			q.Set(k, val)
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", notesAPIVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrPageNotFound, path)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notes API returned status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("reading notes response: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding notes response: %w", err)
	}
	return nil
}
