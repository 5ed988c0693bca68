package apply

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RoleFetcher resolves the job title of a posting.
type RoleFetcher interface {
	FetchRole(ctx context.Context, jobURL string) (string, error)
}

// RoleFetcherFunc is a helper to use functions as RoleFetchers.
type RoleFetcherFunc func(ctx context.Context, jobURL string) (string, error)

// FetchRole satisfies RoleFetcher.
func (f RoleFetcherFunc) FetchRole(ctx context.Context, jobURL string) (string, error) {
	return f(ctx, jobURL)
}

const maxPageBytes = 512 * 1024

// HTTPRoleFetcher reads the role from the posting page title.
type HTTPRoleFetcher struct {
	client *http.Client
}

// NewHTTPRoleFetcher returns a role fetcher. A nil client uses one with a 10s timeout.
func NewHTTPRoleFetcher(client *http.Client) *HTTPRoleFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRoleFetcher{client: client}
}

// FetchRole satisfies RoleFetcher.
func (f *HTTPRoleFetcher) FetchRole(ctx context.Context, jobURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not get job page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("job page returned status %d", resp.StatusCode)
	}

	return RoleFromHTML(io.LimitReader(resp.Body, maxPageBytes))
}

var titleSeparator = regexp.MustCompile(`\s*[-–—@|]\s*`)

// genericTitles are page titles of job boards that say nothing about the role.
var genericTitles = map[string]bool{
	"careers":          true,
	"career":           true,
	"jobs":             true,
	"job":              true,
	"job board":        true,
	"job application":  true,
	"apply":            true,
	"home":             true,
	"open positions":   true,
	"current openings": true,
	"join us":          true,
	"work with us":     true,
}

// RoleFromHTML extracts the role from a posting page: og:title, then the
// document title, then the first <h1>. Titles are cut at the first separator
// ("Role - Company", "Role @ Company"...) and generic board titles are skipped.
func RoleFromHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("could not parse job page: %w", err)
	}

	var ogTitle, title, heading string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Meta:
				if ogTitle == "" && attr(n, "property") == "og:title" {
					ogTitle = attr(n, "content")
				}
			case atom.Title:
				if title == "" && n.FirstChild != nil {
					title = n.FirstChild.Data
				}
			case atom.H1:
				if heading == "" {
					heading = textContent(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, t := range []string{ogTitle, title, heading} {
		role := strings.TrimSpace(titleSeparator.Split(strings.TrimSpace(t), 2)[0])
		if len(role) > 2 && !genericTitles[strings.ToLower(role)] {
			return role, nil
		}
	}

	return "", fmt.Errorf("no role found in job page")
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
