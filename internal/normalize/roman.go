package normalize

import "strings"

var romanNumerals = map[string]bool{
	"I": true, "II": true, "III": true, "IV": true, "V": true, "VI": true,
	"VII": true, "VIII": true, "IX": true, "X": true, "XI": true, "XII": true,
}

const wordPunct = ",:;!?."

// romanBase splits a word into its core and trailing punctuation and
// reports whether the core is a Roman numeral up to XII
func romanBase(word string) (core, suffix string, ok bool) {
	trimmed := strings.TrimLeft(word, wordPunct)
	prefixLen := len(word) - len(trimmed)
	core = strings.TrimRight(trimmed, wordPunct)
	suffix = trimmed[len(core):]
	if prefixLen > 0 || core == "" {
		return core, suffix, false
	}
	return core, suffix, romanNumerals[strings.ToUpper(core)]
}

// NormalizeRomanNumerals upper-cases Roman numeral tokens (I to XII) and
// collapses whitespace. Applying it twice yields the same result.
func NormalizeRomanNumerals(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		if core, suffix, ok := romanBase(w); ok {
			words[i] = strings.ToUpper(core) + suffix
		}
	}
	return strings.Join(words, " ")
}
