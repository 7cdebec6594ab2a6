package syndicate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMarkdown(t *testing.T) {
	blocks := []Block{
		{Type: BlockHeading1, Text: "Go Generics"},
		{Type: BlockParagraph, Text: "Type parameters arrived in 1.18."},
		{Type: BlockHeading2, Text: "Constraints"},
		{Type: BlockBulleted, Text: "any", Children: []Block{
			{Type: BlockBulleted, Text: "alias for interface{}"},
		}},
		{Type: BlockBulleted, Text: "comparable"},
		{Type: BlockNumbered, Text: "first"},
		{Type: BlockNumbered, Text: "second"},
		{Type: BlockCode, Text: "func Map[T any](s []T) {}", Language: "go"},
		{Type: BlockQuote, Text: "line one\nline two"},
		{Type: BlockImage, Text: "diagram", URL: "https://img.example/d.png"},
		{Type: BlockBookmark, URL: "https://go.dev"},
		{Type: BlockDivider},
	}

	md := ToMarkdown(blocks)

	assert.Contains(t, md, "# Go Generics\n\n")
	assert.Contains(t, md, "## Constraints\n\n")
	assert.Contains(t, md, "- any\n  - alias for interface{}\n- comparable\n\n")
	assert.Contains(t, md, "1. first\n1. second\n\n")
	assert.Contains(t, md, "```go\nfunc Map[T any](s []T) {}\n```")
	assert.Contains(t, md, "> line one\n> line two\n")
	assert.Contains(t, md, "![diagram](https://img.example/d.png)")
	assert.Contains(t, md, "[https://go.dev](https://go.dev)")
	assert.Contains(t, md, "---\n")
	assert.True(t, strings.HasSuffix(md, "\n"))
}

func TestToMarkdownSkipsUnknownBlocks(t *testing.T) {
	md := ToMarkdown([]Block{
		{Type: "synced_block", Text: "ignored"},
		{Type: BlockParagraph, Text: "kept"},
	})
	assert.NotContains(t, md, "ignored")
	assert.Contains(t, md, "kept")
}

func TestExcerpt(t *testing.T) {
	md := "# Title\n\nFirst paragraph here.\n\n```go\nfmt.Println(\"code\")\n```\n\nSecond paragraph.\n"

	got := Excerpt(md, 200)
	assert.NotContains(t, got, "Title")
	assert.NotContains(t, got, "Println")
	assert.Contains(t, got, "First paragraph here.")
	assert.Contains(t, got, "Second paragraph.")
}

func TestExcerptTruncates(t *testing.T) {
	md := strings.Repeat("word ", 100)
	got := Excerpt(md, 20)
	assert.LessOrEqual(t, len([]rune(got)), 20)
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestExcerptEmpty(t *testing.T) {
	assert.Equal(t, "", Excerpt("", 100))
}
