// Package sanitizer reduces raw imageboard HTML fragments to plain text.
package sanitizer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// quoteRefPattern matches post references such as ">>123456" with surrounding whitespace
var quoteRefPattern = regexp.MustCompile(`\s*>>\d+\s*`)

// Sanitize strips markup, entities and quote references from an HTML fragment.
// Scripts, styles and comments are dropped, <br> becomes a space and whitespace
// is collapsed to single spaces.
func Sanitize(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapse(quoteRefPattern.ReplaceAllString(fragment, " "))
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml(" ")

	// Text() only collects text nodes, so comments disappear and entities arrive decoded
	text := doc.Text()
	text = quoteRefPattern.ReplaceAllString(text, " ")

	return collapse(text)
}

// PostText sanitizes a subject and comment pair into one post text
func PostText(sub, com string) string {
	return Sanitize(sub + " " + com)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
