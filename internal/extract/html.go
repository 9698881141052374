package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// Elements whose text is boilerplate rather than content.
var skippedElements = map[string]struct{}{
	"script": {},
	"style":  {},
	"nav":    {},
	"footer": {},
	"header": {},
}

// HTMLText extracts readable text from an HTML document, dropping script,
// style, and chrome elements. Text nodes are joined with newlines.
func HTMLText(source string) (string, error) {
	root, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return "", err
	}
	var parts []string
	collectText(root, &parts)
	return strings.Join(parts, "\n"), nil
}

func collectText(node *html.Node, parts *[]string) {
	if node.Type == html.ElementNode {
		if _, skip := skippedElements[node.Data]; skip {
			return
		}
	}
	if node.Type == html.TextNode {
		if text := strings.TrimSpace(node.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}
