package products

import (
	"regexp"
	"strings"
)

var (
	nonSlugChars = regexp.MustCompile(`[^\w\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
	multiHyphen  = regexp.MustCompile(`-+`)
)

// Slugify turns a display name into a URL-safe slug.
func Slugify(text string) string {
	s := strings.ToLower(text)
	s = nonSlugChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = multiHyphen.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
