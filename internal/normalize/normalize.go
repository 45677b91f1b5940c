package normalize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var spaceRe = regexp.MustCompile(`\s+`)

// Options mirrors the normalize section of the configuration.
type Options struct {
	TrimNBSP        bool
	CollapseSpaces  bool
	MaxPreviewChars int
}

type Normalizer struct {
	opts Options
}

func NewNormalizer(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// CleanText tidies review text for display: NBSP becomes a plain space and
// runs of whitespace collapse to one.
func (n *Normalizer) CleanText(text string) string {
	if n.opts.TrimNBSP {
		text = strings.ReplaceAll(text, "\u00A0", " ")
	}
	if n.opts.CollapseSpaces {
		text = spaceRe.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(text)
}

// TruncatePreview shortens text to MaxPreviewChars runes, cutting at the
// last space when there is one. Zero disables truncation.
func (n *Normalizer) TruncatePreview(text string) string {
	limit := n.opts.MaxPreviewChars
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	truncated := string(runes[:limit])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	} else {
		truncated = string(runes[:limit-1])
	}
	return strings.TrimRight(truncated, " ") + "…"
}

// NormalizeURL drops the fragment and surrounding whitespace so that
// "/1#tab=reviews" and "/1" compare equal.
func NormalizeURL(urlStr string) string {
	urlStr = strings.TrimSpace(urlStr)
	u, err := url.Parse(urlStr)
	if err != nil {
		if idx := strings.Index(urlStr, "#"); idx > -1 {
			return urlStr[:idx]
		}
		return urlStr
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
