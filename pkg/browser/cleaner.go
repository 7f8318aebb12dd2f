package browser

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultMaxTextLength bounds ExtractText output.
const DefaultMaxTextLength = 10000

// skippedElements are removed entirely during text extraction.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"template": true,
	"head":     true,
}

// blockElements get a newline separator so extracted text keeps some reading
// structure.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "br": true, "ul": true, "ol": true,
	"table": true, "form": true, "header": true, "footer": true, "main": true,
}

// HTMLToText parses an HTML document or fragment and returns its visible
// text, truncated to maxLength characters.
func HTMLToText(rawHTML string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxTextLength
	}
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var sb strings.Builder
	collectText(doc, &sb)

	text := CleanText(sb.String())
	if len(text) > maxLength {
		text = text[:maxLength] + "..."
	}
	return text, nil
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode {
		tag := strings.ToLower(n.Data)
		if skippedElements[tag] {
			return
		}
		if blockElements[tag] {
			sb.WriteString("\n")
		}
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, sb)
	}
}

// CleanText collapses runs of whitespace into single spaces, preserving
// newlines as line separators.
func CleanText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// ExtractText implements Driver by pulling the page HTML and reducing it to
// visible text.
func (d *PlaywrightDriver) ExtractText(ctx context.Context, maxLength int) (string, error) {
	page, err := d.currentPage()
	if err != nil {
		return "", err
	}
	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return HTMLToText(content, maxLength)
}
