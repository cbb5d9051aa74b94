// Package normalize implements the cleaned-text contract shared by the
// upstream preparation step and the topic vectorizer: lowercase, no markup,
// no URLs, no punctuation other than apostrophes, single spaces.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern   = regexp.MustCompile(`http\S+|www\S+`)
	nonWordChars = regexp.MustCompile(`[^a-z0-9\s']`)
	spaceRuns    = regexp.MustCompile(`\s+`)
)

// Text normalizes one review. The result is idempotent: Text(Text(s)) == Text(s).
func Text(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		s = StripMarkup(s)
	}
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	s = urlPattern.ReplaceAllString(s, " ")
	s = nonWordChars.ReplaceAllString(s, " ")
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// All normalizes a slice of strings into a new slice.
func All(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Text(t)
	}
	return out
}

// StripMarkup drops HTML tags (review exports often carry <br /> and
// entities) and keeps the text content, separated by spaces.
func StripMarkup(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or truncated markup; either way b holds the text seen so far.
			return strings.TrimSpace(b.String())
		case html.TextToken:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
	}
}
