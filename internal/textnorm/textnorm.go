// Package textnorm turns raw extracted document text into clean, comparable text.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const pageBreak = "\f"

var (
	whitespaceRun = regexp.MustCompile(`[\s\v\p{Z}\x{0085}]+`)
	// Basic Latin, Latin-1 Supplement, Latin Extended-A and Latin Extended-B.
	outsideLatin = regexp.MustCompile(`[^\x00-\x7F\x{00C0}-\x{00FF}\x{0100}-\x{017F}\x{0180}-\x{024F}]`)
	excessBreaks = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes raw text. Page breaks become paragraph breaks, every other
// whitespace run collapses to one space, characters outside the Latin ranges
// are dropped and the result is trimmed. All-whitespace input yields "".
func Clean(raw string) string {
	if raw == "" {
		return ""
	}

	text := norm.NFC.String(raw)

	// Page breaks are substituted before the whitespace collapse, which would
	// otherwise erase them along with every other control character.
	pages := strings.Split(text, pageBreak)
	for i, page := range pages {
		pages[i] = strings.TrimSpace(whitespaceRun.ReplaceAllString(page, " "))
	}
	text = strings.Join(pages, "\n\n")

	text = outsideLatin.ReplaceAllString(text, "")
	text = excessBreaks.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
