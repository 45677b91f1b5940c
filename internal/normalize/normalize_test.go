package normalize

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncatePreview(t *testing.T) {
	normalizer := NewNormalizer(Options{MaxPreviewChars: 30})

	input := "Bardzo dobry odkurzacz, cichy i wydajny, polecam każdemu"
	result := normalizer.TruncatePreview(input)

	assert.LessOrEqual(t, utf8.RuneCountInString(result), 30)
	assert.Equal(t, "Bardzo dobry odkurzacz, cichy…", result)
}

func TestTruncatePreviewMultibyte(t *testing.T) {
	normalizer := NewNormalizer(Options{MaxPreviewChars: 5})

	result := normalizer.TruncatePreview("żółćżółć")
	assert.True(t, utf8.ValidString(result))
	assert.Equal(t, "żółć…", result)
}

func TestTruncatePreviewShortOrDisabled(t *testing.T) {
	assert.Equal(t, "krótki", NewNormalizer(Options{MaxPreviewChars: 50}).TruncatePreview("krótki"))
	long := "a very long text that is never cut"
	assert.Equal(t, long, NewNormalizer(Options{}).TruncatePreview(long))
}

func TestCleanText(t *testing.T) {
	normalizer := NewNormalizer(Options{TrimNBSP: true, CollapseSpaces: true})
	assert.Equal(t, "Tekst z NBSP i spacjami", normalizer.CleanText("  Tekst\u00a0z\u00a0NBSP  i \n\t spacjami "))

	raw := NewNormalizer(Options{})
	assert.Equal(t, "a\u00a0b  c", raw.CleanText(" a\u00a0b  c "))
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"https://www.ceneo.pl/42#tab=reviews": "https://www.ceneo.pl/42",
		" https://www.ceneo.pl/42/opinie-2 ":  "https://www.ceneo.pl/42/opinie-2",
		"https://www.ceneo.pl/42?x=1#y":       "https://www.ceneo.pl/42?x=1",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeURL(in), in)
	}
}
