package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// minorWords stay lowercase inside a title (English and German)
var minorWords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "but": true,
	"by": true, "for": true, "in": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "with": true,

	"der": true, "die": true, "das": true, "den": true, "dem": true, "des": true,
	"ein": true, "eine": true, "einen": true, "einem": true, "eines": true,
	"und": true, "oder": true, "aber": true, "für": true, "von": true,
	"mit": true, "zu": true, "im": true, "am": true, "durch": true, "über": true,
}

// capitalize upper-cases the first rune and lower-cases the rest
func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + cases.Lower(language.Und).String(word[size:])
}

func hasUpper(word string) bool {
	for _, r := range word {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// TitleCase capitalizes a title: first and last words and words after a
// colon are always capitalized, minor words are lowercased unless they
// carry uppercase already, Roman numerals pass through
func TitleCase(title string) string {
	words := strings.Fields(title)
	out := make([]string, len(words))
	for i, w := range words {
		core := strings.TrimRight(w, wordPunct)
		switch {
		case romanNumerals[strings.ToUpper(core)] && core != "":
			out[i] = strings.ToUpper(core) + w[len(core):]
		case i == 0 || i == len(words)-1:
			out[i] = capitalize(w)
		case strings.Contains(words[i-1], ":"):
			out[i] = capitalize(w)
		case minorWords[strings.ToLower(w)] && !hasUpper(w):
			out[i] = strings.ToLower(w)
		default:
			out[i] = capitalize(w)
		}
	}
	return strings.Join(out, " ")
}
