package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// Layout describes one site: where the reviews of a product live and how
// to read them. It is a value, so alternate layouts can be injected.
type Layout struct {
	BaseURL string
	// ProductPath is appended to BaseURL; "{id}" is replaced by the
	// product identifier.
	ProductPath string
	// ReviewSelector selects organic review nodes only.
	ReviewSelector string

	ProductName FieldSpec
	ReviewCount FieldSpec
	NextPage    FieldSpec

	Recommend    string
	NotRecommend string

	Registry *Registry
}

// DefaultLayout is the Ceneo product page.
func DefaultLayout() Layout {
	return Layout{
		BaseURL:        "https://www.ceneo.pl",
		ProductPath:    "/{id}#tab=reviews",
		ReviewSelector: "div.js_product-review:not(.user-post--highlight)",
		ProductName:    FieldSpec{Name: "product_name", Selector: "h1"},
		ReviewCount:    FieldSpec{Name: "review_count", Selector: "a.product-review__link > span"},
		NextPage:       FieldSpec{Name: "next_page", Selector: "a.pagination__next", Attribute: "href"},
		Recommend:      "Polecam",
		NotRecommend:   "Nie polecam",
		Registry:       DefaultRegistry(),
	}
}

func (l Layout) Validate() error {
	if l.BaseURL == "" {
		return fmt.Errorf("layout: base_url is required")
	}
	if u, err := url.Parse(l.BaseURL); err != nil || u.Host == "" {
		return fmt.Errorf("layout: invalid base_url %q", l.BaseURL)
	}
	if !strings.Contains(l.ProductPath, "{id}") {
		return fmt.Errorf("layout: product_path must contain {id}")
	}
	if l.ReviewSelector == "" {
		return fmt.Errorf("layout: review selector is required")
	}
	for _, spec := range []FieldSpec{l.ProductName, l.ReviewCount, l.NextPage} {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("layout: %w", err)
		}
	}
	if l.NextPage.Attribute == "" {
		return fmt.Errorf("layout: next_page needs an attribute holding the link")
	}
	if l.Registry == nil || l.Registry.Len() == 0 {
		return fmt.Errorf("layout: registry is empty")
	}
	return nil
}

// ProductURL is the first reviews page of a product.
func (l Layout) ProductURL(productID string) string {
	return strings.TrimRight(l.BaseURL, "/") + strings.ReplaceAll(l.ProductPath, "{id}", url.PathEscape(productID))
}
