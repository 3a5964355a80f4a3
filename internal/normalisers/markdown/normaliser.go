// Package markdown cleans lecture markdown before it is chunked.
// Header lines are kept intact so the chunker can still split on them.
package markdown

import (
	"regexp"
	"strings"
)

var (
	frontMatter  = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	trailing     = regexp.MustCompile(`(?m)[ \t]+$`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// Normalise simplifies markdown source for embedding:
//   - a UTF-8 byte order mark and CR line endings are removed
//   - YAML front matter, HTML comments and images are dropped
//   - links are replaced by their text
//   - runs of blank lines collapse to one
//
// Headers, lists and emphasis are left alone.
func Normalise(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	content = frontMatter.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")

	content = trailing.ReplaceAllString(content, "")
	content = multiNewline.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
