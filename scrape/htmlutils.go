package scrape

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// extractNodeBySelector supports "#id", ".class" and bare tag selectors.
func extractNodeBySelector(doc *html.Node, selector string) (*html.Node, error) {
	switch {
	case strings.HasPrefix(selector, "#"):
		return findNode(doc, func(n *html.Node) bool {
			return attr(n, "id") == strings.TrimPrefix(selector, "#")
		}, "id", selector)
	case strings.HasPrefix(selector, "."):
		class := strings.TrimPrefix(selector, ".")
		return findNode(doc, func(n *html.Node) bool {
			for _, c := range strings.Fields(attr(n, "class")) {
				if c == class {
					return true
				}
			}
			return false
		}, "class", selector)
	default:
		return findNode(doc, func(n *html.Node) bool {
			return n.Data == selector
		}, "tag", selector)
	}
}

func findNode(n *html.Node, match func(*html.Node) bool, kind, selector string) (*html.Node, error) {
	if found := walk(n, func(c *html.Node) bool {
		return c.Type == html.ElementNode && match(c)
	}); found != nil {
		return found, nil
	}
	return nil, fmt.Errorf("element with %s '%s' not found", kind, selector)
}

// walk returns the first node in document order for which match is true.
func walk(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := walk(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// extractTitle prefers <title> and falls back to the first <h1>, since pages are usually fragments.
func extractTitle(doc *html.Node) string {
	if n := walk(doc, isElement("title")); n != nil {
		if title := textContent(n); title != "" {
			return title
		}
	}
	if n := walk(doc, isElement("h1")); n != nil {
		return textContent(n)
	}
	return ""
}

func metaContent(doc *html.Node, name string) string {
	n := walk(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "meta" && attr(n, "name") == name && attr(n, "content") != ""
	})
	if n == nil {
		return ""
	}
	return attr(n, "content")
}

func extractMetaDescription(doc *html.Node) string {
	return metaContent(doc, "description")
}

func extractMetaKeywords(doc *html.Node) []string {
	content := metaContent(doc, "keywords")
	if content == "" {
		return nil
	}
	var keywords []string
	for _, keyword := range strings.Split(content, ",") {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}

func extractFirstParagraph(doc *html.Node) string {
	if n := walk(doc, isElement("p")); n != nil {
		return textContent(n)
	}
	return ""
}
