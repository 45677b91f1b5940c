package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"ceneo-opinions/internal/scraper"
	"ceneo-opinions/internal/stats"
)

var (
	// ErrNotFound is returned when nothing has been extracted for a product.
	ErrNotFound = errors.New("product data not found")

	ErrInvalidProductID = errors.New("invalid product id")
)

var productIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateProductID rejects identifiers that could escape the storage
// namespace, like "../x" or "a/b".
func ValidateProductID(productID string) error {
	if !productIDPattern.MatchString(productID) {
		return fmt.Errorf("%w: %q", ErrInvalidProductID, productID)
	}
	return nil
}

// Repository persists the outcome of one extraction: the ordered review
// records and the aggregated statistics of a product.
type Repository interface {
	// Save replaces everything stored for the product.
	Save(ctx context.Context, productID string, records []scraper.Record, st *stats.ProductStats) error

	// Opinions returns the stored records in extraction order.
	Opinions(ctx context.Context, productID string) ([]scraper.Record, error)

	// Stats returns the stored statistics of one product.
	Stats(ctx context.Context, productID string) (*stats.ProductStats, error)

	// ListStats returns the statistics of every stored product, ordered by
	// product id.
	ListStats(ctx context.Context) ([]*stats.ProductStats, error)

	Close() error
}
