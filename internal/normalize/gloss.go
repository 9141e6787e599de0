package normalize

import (
	"strings"
	"unicode"
)

var (
	germanAdjectiveEndings = []string{
		"bar", "haft", "ig", "isch", "lich", "los", "sam", "voll",
		"end", "fach", "arm", "reich", "mäßig", "weise",
	}
	germanVerbEndings = []string{"en", "ern", "eln"}
)

// GermanGloss repairs all-caps German translations. Upper-case parts with
// an adjective or verb ending are lowercased, other upper-case parts are
// capitalized as nouns. Mixed-case parts are left alone.
func GermanGloss(gloss string) string {
	if strings.TrimSpace(gloss) == "" {
		return gloss
	}
	parts := strings.Split(gloss, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if isAllUpper(part) {
			lower := strings.ToLower(part)
			if hasAnySuffix(lower, germanAdjectiveEndings) || hasAnySuffix(lower, germanVerbEndings) {
				part = lower
			} else {
				part = capitalize(part)
			}
		}
		parts[i] = part
	}
	return strings.Join(parts, ", ")
}

func isAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
