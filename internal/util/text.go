package util

import (
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// Matches an opening or closing tag of a common block or inline element.
var htmlElementRe = regexp.MustCompile(`(?i)</?(p|div|br|span|b|strong|i|em|ul|ol|li|a|h[1-6])(\s[^>]*)?/?>`)

// LooksLikeHTML reports whether s contains markup that a clipboard paste
// from a web page would produce.
func LooksLikeHTML(s string) bool {
	return htmlElementRe.MatchString(s)
}

// NormalizeBody trims a note body and converts pasted HTML to Markdown.
// Plain text passes through untouched apart from trimming.
func NormalizeBody(body string) string {
	body = strings.TrimSpace(body)
	if !LooksLikeHTML(body) {
		return body
	}

	markdown, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return PlainText(body)
	}
	return strings.TrimSpace(markdown)
}

// PlainText strips markup and collapses whitespace. Used for search documents.
func PlainText(s string) string {
	if !LooksLikeHTML(s) {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(htmlElementRe.ReplaceAllString(s, " ")), " ")
	}

	var buf strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode {
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(buf.String()), " ")
}

// Truncate shortens text to at most max runes, breaking at a word boundary
// when possible and appending "...".
func Truncate(text string, maxRunes int) string {
	const suffix = "..."
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	if maxRunes <= len(suffix) {
		return string([]rune(text)[:maxRunes])
	}

	cut := string([]rune(text)[:maxRunes-len(suffix)])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + suffix
}
