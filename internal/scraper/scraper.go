package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a fetched document. URL is the final URL after redirects.
type Page struct {
	StatusCode int
	Body       []byte
	URL        string
}

// OK reports a successful retrieval.
func (p *Page) OK() bool {
	return p != nil && p.StatusCode == http.StatusOK
}

// Fetcher retrieves one page. A non-nil error means the transport failed;
// HTTP failures come back as a Page with a non-200 status.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// ParsePage turns raw markup into a traversable document.
func ParsePage(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ParseReviews builds one record per organic review node, in document order.
func (l Layout) ParseReviews(doc *goquery.Document) []Record {
	nodes := doc.Find(l.ReviewSelector)
	records := make([]Record, 0, nodes.Length())
	nodes.Each(func(_ int, node *goquery.Selection) {
		records = append(records, BuildRecord(node, l.Registry))
	})
	return records
}

// FindNextPageLink returns the absolute URL of the next reviews page, or ""
// when the page has no next link.
func (l Layout) FindNextPageLink(doc *goquery.Document, pageURL string) (string, error) {
	href, ok := Extract(doc.Selection, l.NextPage).String()
	if !ok || href == "" {
		return "", nil
	}

	base := pageURL
	if base == "" {
		base = l.BaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %q: %w", base, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid next link %q: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// ReadProductName reads the product title from the first reviews page.
func (l Layout) ReadProductName(doc *goquery.Document) string {
	name, _ := Extract(doc.Selection, l.ProductName).String()
	return name
}

// HasReviews checks the total-review indicator. An absent or empty
// indicator, or one that reads as zero, means no reviews.
func (l Layout) HasReviews(doc *goquery.Document) bool {
	text, ok := Extract(doc.Selection, l.ReviewCount).String()
	if !ok || text == "" {
		return false
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return true
	}
	n, err := strconv.Atoi(digits)
	return err != nil || n > 0
}
