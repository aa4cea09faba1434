package loader

import (
	"html"
	"io"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// IsHTML reports whether a file name or content type denotes an HTML document.
func IsHTML(nameOrContentType string) bool {
	s := strings.ToLower(nameOrContentType)
	if strings.HasPrefix(s, "text/html") {
		return true
	}
	switch filepath.Ext(s) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

// ExtractHTML returns the visible text of an HTML page: the title on its own line,
// then the body text with scripts and styles removed.
func ExtractHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, template").Remove()

	lines := make([]string, 0)
	if title := SanitizeText(doc.Find("title").First().Text()); title != "" {
		lines = append(lines, title)
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	// one line per block element keeps terms of adjacent blocks apart
	body.Find("p, div, li, h1, h2, h3, h4, h5, h6, td, th, br, pre").Each(func(i int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	for _, line := range strings.Split(body.Text(), "\n") {
		if text := SanitizeText(line); text != "" {
			lines = append(lines, text)
		}
	}

	return strings.Join(lines, "\n"), nil
}

// SanitizeText strips any markup left in s and collapses its whitespace.
func SanitizeText(s string) string {
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}
