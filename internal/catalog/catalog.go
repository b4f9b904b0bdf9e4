// Package catalog lists the recordings available for annotation.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Extension is the file suffix of a recording.
const Extension = ".csv"

// maxListingBytes caps how much of a directory listing page is read.
const maxListingBytes = 4 << 20

// Catalog lists recording identifiers.
type Catalog interface {
	List(ctx context.Context) ([]string, error)
}

// HTTPCatalog scrapes an HTML directory listing for links to recordings.
type HTTPCatalog struct {
	URL    string
	Client *http.Client
}

// NewHTTPCatalog returns a catalog for the listing at rawURL.
func NewHTTPCatalog(rawURL string) *HTTPCatalog {
	return &HTTPCatalog{
		URL:    strings.TrimRight(rawURL, "/"),
		Client: &http.Client{Timeout: 60 * time.Second},
	}
}

// List fetches the listing page and returns the sorted recording names it links to.
func (c *HTTPCatalog) List(ctx context.Context) ([]string, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("catalog url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+"/", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected listing status: %s", resp.Status)
	}
	return ParseListing(io.LimitReader(resp.Body, maxListingBytes))
}

// ParseListing extracts recording names from the anchors of an HTML page.
func ParseListing(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}
	var names []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if name, ok := recordingName(getAttr(n, "href")); ok {
				names = append(names, name)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return sortUnique(names), nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// recordingName reduces an href to the file name it points at.
func recordingName(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	name := path.Base(u.Path)
	if !strings.HasSuffix(strings.ToLower(name), Extension) || name == Extension {
		return "", false
	}
	return name, true
}

// DirCatalog lists recordings stored in a local directory.
type DirCatalog struct {
	Dir string
}

// List returns the sorted names of the recordings in the directory.
func (c DirCatalog) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), Extension) {
			names = append(names, entry.Name())
		}
	}
	return sortUnique(names), nil
}

func sortUnique(names []string) []string {
	sort.Strings(names)
	out := names[:0]
	for i, n := range names {
		if i > 0 && n == names[i-1] {
			continue
		}
		out = append(out, n)
	}
	return out
}
