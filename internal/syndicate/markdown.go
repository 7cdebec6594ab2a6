package syndicate

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ToMarkdown renders a block tree as Markdown. Unknown block types are
// skipped rather than failing the whole article.
func ToMarkdown(blocks []Block) string {
	var sb strings.Builder
	renderBlocks(&sb, blocks, 0)
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func renderBlocks(sb *strings.Builder, blocks []Block, depth int) {
	for i, b := range blocks {
		switch b.Type {
		case BlockHeading1:
			fmt.Fprintf(sb, "# %s\n\n", b.Text)
		case BlockHeading2:
			fmt.Fprintf(sb, "## %s\n\n", b.Text)
		case BlockHeading3:
			fmt.Fprintf(sb, "### %s\n\n", b.Text)
		case BlockParagraph:
			if b.Text != "" {
				fmt.Fprintf(sb, "%s\n\n", b.Text)
			}
		case BlockBulleted:
			fmt.Fprintf(sb, "%s- %s\n", indent(depth), b.Text)
			if len(b.Children) > 0 {
				renderBlocks(sb, b.Children, depth+1)
			}
			if depth == 0 && nextIsNot(blocks, i, BlockBulleted) {
				sb.WriteString("\n")
			}
		case BlockNumbered:
			fmt.Fprintf(sb, "%s1. %s\n", indent(depth), b.Text)
			if len(b.Children) > 0 {
				renderBlocks(sb, b.Children, depth+1)
			}
			if depth == 0 && nextIsNot(blocks, i, BlockNumbered) {
				sb.WriteString("\n")
			}
		case BlockCode:
			fmt.Fprintf(sb, "```%s\n%s\n```\n\n", b.Language, b.Text)
		case BlockQuote:
			for _, line := range strings.Split(b.Text, "\n") {
				fmt.Fprintf(sb, "> %s\n", line)
			}
			sb.WriteString("\n")
		case BlockImage:
			fmt.Fprintf(sb, "![%s](%s)\n\n", b.Text, b.URL)
		case BlockBookmark:
			title := b.Text
			if title == "" {
				title = b.URL
			}
			fmt.Fprintf(sb, "[%s](%s)\n\n", title, b.URL)
		case BlockDivider:
			sb.WriteString("---\n\n")
		}
	}
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

func nextIsNot(blocks []Block, i int, t BlockType) bool {
	return i+1 >= len(blocks) || blocks[i+1].Type != t
}

// Excerpt derives a plaintext summary of at most maxRunes runes from
// Markdown, for social announcements. Headings and code blocks are
// dropped, the first paragraphs win.
func Excerpt(markdown string, maxRunes int) string {
	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var parts []string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindCodeBlock, ast.KindFencedCodeBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindText:
			if t, ok := n.(*ast.Text); ok {
				if s := strings.TrimSpace(string(t.Segment.Value(source))); s != "" {
					parts = append(parts, s)
				}
			}
		}
		return ast.WalkContinue, nil
	})

	joined := strings.Join(parts, " ")
	runes := []rune(joined)
	if len(runes) <= maxRunes {
		return joined
	}
	return strings.TrimSpace(string(runes[:maxRunes-1])) + "…"
}
