package utils

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// CleanMarkdown strips conversational filler and outer markdown code blocks.
func CleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)

	if strings.HasPrefix(cleaned, "```markdown") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```markdown")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	} else if strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	return cleaned
}

// RenderHTML converts GitHub-flavoured markdown to HTML.
func RenderHTML(input string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(input), &buf); err != nil {
		return "", fmt.Errorf("markdown render failed: %w", err)
	}
	return buf.String(), nil
}

// TextBlock is one rendered block of text: a heading, paragraph or list item.
type TextBlock struct {
	Kind string // "heading", "paragraph", "item"
	Text string
}

// TextBlocks flattens rendered HTML into plain text blocks in document order,
// for targets that cannot display HTML (PDF, spreadsheets).
func TextBlocks(html string) ([]TextBlock, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var blocks []TextBlock
	doc.Find("h1, h2, h3, h4, p, li").Each(func(_ int, s *goquery.Selection) {
		// Paragraphs inside list items are reported through the item.
		if goquery.NodeName(s) == "p" && s.ParentsFiltered("li").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		kind := "paragraph"
		switch goquery.NodeName(s) {
		case "h1", "h2", "h3", "h4":
			kind = "heading"
		case "li":
			kind = "item"
		}
		blocks = append(blocks, TextBlock{Kind: kind, Text: text})
	})
	return blocks, nil
}
