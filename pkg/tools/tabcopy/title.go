package tabcopy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
)

// maxPageBytes bounds how much of a page is read looking for its title.
const maxPageBytes = 1 << 20

// FetchTitle downloads rawURL and returns the text of its <title> element.
// An empty string with a nil error means the page has no title.
func FetchTitle(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	// resty installs a transport on clients that lack one; keep the caller's untouched.
	hc := *client
	resp, err := resty.NewWithClient(&hc).R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return "", fmt.Errorf("failed to fetch %s: status %d", rawURL, resp.StatusCode())
	}

	doc, err := html.Parse(io.LimitReader(body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	return extractTitle(doc), nil
}

// extractTitle returns the first <title> text with whitespace collapsed.
func extractTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			title = strings.Join(strings.Fields(b.String()), " ")
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
			if title != "" {
				return
			}
		}
	}
	traverse(doc)
	return title
}
