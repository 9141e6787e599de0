package pipeline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ContextHTML escapes a usage sentence and bolds the first whole-word,
// case-insensitive occurrence of word. The sentence is returned escaped
// but unmarked when word does not occur in it.
func ContextHTML(usage, word string) string {
	usage = strings.TrimSpace(usage)
	word = strings.TrimSpace(word)
	if usage == "" || word == "" {
		return html.EscapeString(usage)
	}

	start, end, ok := findWord(usage, word)
	if !ok {
		return html.EscapeString(usage)
	}
	return html.EscapeString(usage[:start]) +
		"<b>" + html.EscapeString(usage[start:end]) + "</b>" +
		html.EscapeString(usage[end:])
}

// findWord locates the first match of word in s that is not glued to a
// neighbouring letter or digit
func findWord(s, word string) (int, int, bool) {
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(word))
	if err != nil {
		return 0, 0, false
	}
	for _, loc := range re.FindAllStringIndex(s, -1) {
		if boundaryBefore(s, loc[0]) && boundaryAfter(s, loc[1]) {
			return loc[0], loc[1], true
		}
	}
	return 0, 0, false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i == len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
