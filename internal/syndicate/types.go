// Package syndicate publishes notes from a hosted editor out to article
// platforms and social media. Pages are converted to Markdown once and
// fanned out: Qiita via its REST API, Zenn via a git push, plus a short
// social announcement. A registry keeps reruns idempotent.
package syndicate

import (
	"errors"
	"time"
)

// Page is one note fetched from the notes API.
type Page struct {
	ID         string
	Title      string
	LastEdited time.Time
}

// Block is one content block of a page. Children are populated for
// nested lists and quotes.
type Block struct {
	ID       string
	Type     BlockType
	Text     string
	Language string // code blocks
	URL      string // images and bookmarks
	Children []Block
}

// BlockType enumerates the block kinds the converter understands.
type BlockType string

const (
	BlockParagraph  BlockType = "paragraph"
	BlockHeading1   BlockType = "heading_1"
	BlockHeading2   BlockType = "heading_2"
	BlockHeading3   BlockType = "heading_3"
	BlockBulleted   BlockType = "bulleted_list_item"
	BlockNumbered   BlockType = "numbered_list_item"
	BlockCode       BlockType = "code"
	BlockQuote      BlockType = "quote"
	BlockImage      BlockType = "image"
	BlockBookmark   BlockType = "bookmark"
	BlockDivider    BlockType = "divider"
)

// Article is the converted, platform-neutral form of a page.
type Article struct {
	PageID   string
	Title    string
	Slug     string
	Topics   []string
	Markdown string
}

// PublishReport summarizes one Run over all sources.
type PublishReport struct {
	Synced    int           `json:"synced"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	Published []string      `json:"published,omitempty"`
}

var (
	// ErrPageNotFound is returned when the notes API has no such page.
	ErrPageNotFound = errors.New("page not found")
)
