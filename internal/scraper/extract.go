package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extract reads one FieldSpec from node. It never fails: a missing element
// or attribute yields Null for single values and an empty list for
// Multiple specs.
func Extract(node *goquery.Selection, spec FieldSpec) Value {
	if node == nil {
		if spec.Multiple && spec.Selector != "" {
			return List(nil)
		}
		return Null
	}

	if spec.Selector != "" {
		matches := node.Find(spec.Selector)
		if spec.Multiple {
			items := make([]string, 0, matches.Length())
			matches.Each(func(_ int, s *goquery.Selection) {
				if spec.Attribute == "" {
					items = append(items, strings.TrimSpace(s.Text()))
					return
				}
				// elements without the attribute are skipped
				if attr, ok := s.Attr(spec.Attribute); ok {
					items = append(items, strings.TrimSpace(attr))
				}
			})
			return List(items)
		}

		first := matches.First()
		if first.Length() == 0 {
			return Null
		}
		return readNode(first, spec.Attribute)
	}

	return readNode(node, spec.Attribute)
}

func readNode(s *goquery.Selection, attribute string) Value {
	if attribute == "" {
		return Text(strings.TrimSpace(s.Text()))
	}
	attr, ok := s.Attr(attribute)
	if !ok {
		return Null
	}
	return Text(strings.TrimSpace(attr))
}
