package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ceneo-opinions/internal/scraper"
)

func TestContentHash(t *testing.T) {
	gen := NewGenerator()

	hash1 := gen.ContentHash([]byte("Świetny produkt"))
	hash2 := gen.ContentHash([]byte("Świetny produkt"))
	assert.Equal(t, hash1, hash2)
	assert.Len(t, hash1, 64)

	hash3 := gen.ContentHash([]byte("Słaby produkt"))
	assert.NotEqual(t, hash1, hash3)
}

func TestETag(t *testing.T) {
	gen := NewGenerator()
	etag := gen.ETag([]byte("x"))
	assert.Equal(t, `"`+gen.ContentHash([]byte("x"))+`"`, etag)
}

func TestRecordsHash(t *testing.T) {
	gen := NewGenerator()

	a := scraper.NewRecord()
	a.Set(scraper.FieldOpinionID, scraper.Text("1"))
	a.Set(scraper.FieldStars, scraper.Text("5/5"))
	b := scraper.NewRecord()
	b.Set(scraper.FieldOpinionID, scraper.Text("2"))
	b.Set(scraper.FieldStars, scraper.Null)

	h1, err := gen.RecordsHash([]scraper.Record{a, b})
	require.NoError(t, err)
	h2, err := gen.RecordsHash([]scraper.Record{a, b})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	swapped, err := gen.RecordsHash([]scraper.Record{b, a})
	require.NoError(t, err)
	assert.NotEqual(t, h1, swapped)

	empty, err := gen.RecordsHash(nil)
	require.NoError(t, err)
	assert.Equal(t, gen.ContentHash([]byte("[]")), empty)
}
