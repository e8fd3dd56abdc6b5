package rag

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractText pulls readable text from an HTML document. Script, style
// and navigation chrome are dropped; block elements become lines.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script,style,noscript,nav,header,footer,aside").Remove()

	var lines []string
	doc.Find("h1,h2,h3,h4,h5,h6,p,li,td,th,pre,blockquote").Each(func(_ int, s *goquery.Selection) {
		text := normalizeWhitespace(s.Text())
		if text != "" {
			lines = append(lines, text)
		}
	})

	if len(lines) == 0 {
		// fall back to the whole body for plain or unstructured markup
		text := normalizeWhitespace(doc.Find("body").Text())
		if text == "" {
			text = normalizeWhitespace(doc.Text())
		}
		if text != "" {
			lines = append(lines, text)
		}
	}

	return strings.Join(lines, "\n"), nil
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
