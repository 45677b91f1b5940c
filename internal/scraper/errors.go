package scraper

import "errors"

var (
	// ErrProductNotFound means the first reviews page could not be fetched.
	ErrProductNotFound = errors.New("product not found")
	// ErrNoReviewsYet means the product page exists but reports no reviews.
	ErrNoReviewsYet = errors.New("product has no reviews yet")
)
