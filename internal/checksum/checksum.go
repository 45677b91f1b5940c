package checksum

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"ceneo-opinions/internal/scraper"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// ContentHash returns the hex SHA256 of data.
func (g *Generator) ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// RecordsHash hashes the canonical JSON of a record list. Field order is
// part of the hash, so two runs hash equal only when they extracted the
// same reviews in the same order.
func (g *Generator) RecordsHash(records []scraper.Record) (string, error) {
	if records == nil {
		records = []scraper.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode records: %w", err)
	}
	return g.ContentHash(data), nil
}

// ETag is a strong HTTP entity tag for data.
func (g *Generator) ETag(data []byte) string {
	return `"` + g.ContentHash(data) + `"`
}
