package scrape

import (
	"fmt"
	"io"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/foomo/docserver/service/vo"
	"golang.org/x/net/html"
)

// Scrape parses a stored documentation page, extracts its summary and converts the
// element matched by selector to markdown.
func Scrape(r io.Reader, selector string) (*vo.PageSummary, vo.Markdown, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	summary := &vo.PageSummary{
		Title:       extractTitle(doc),
		Description: extractMetaDescription(doc),
		Keywords:    extractMetaKeywords(doc),
	}
	if summary.Description == "" {
		summary.Description = extractFirstParagraph(doc)
	}

	selectedNode, err := extractNodeBySelector(doc, selector)
	if err != nil {
		return nil, "", fmt.Errorf("failed to extract node with selector '%s': %w", selector, err)
	}

	markdownBytes, err := htmltomarkdown.ConvertNode(selectedNode)
	if err != nil {
		return nil, "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	return summary, vo.Markdown(string(markdownBytes)), nil
}
