package model

import (
	"fmt"
	"sort"
	"strings"
)

// Language describes a supported vocabulary language
type Language struct {
	Code string
	Name string
}

// SupportedLanguages lists the languages the pipeline can build decks for
var SupportedLanguages = map[string]Language{
	"de": {Code: "de", Name: "German"},
	"en": {Code: "en", Name: "English"},
	"es": {Code: "es", Name: "Spanish"},
	"fr": {Code: "fr", Name: "French"},
	"ja": {Code: "ja", Name: "Japanese"},
	"pl": {Code: "pl", Name: "Polish"},
}

// NormalizeLanguage maps source codes like "en_US" or "EN-gb" to "en"
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "_-"); i >= 0 {
		code = code[:i]
	}
	return code
}

// LookupLanguage returns metadata for a supported language code
func LookupLanguage(code string) (Language, error) {
	lang, ok := SupportedLanguages[NormalizeLanguage(code)]
	if !ok {
		codes := make([]string, 0, len(SupportedLanguages))
		for c := range SupportedLanguages {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		return Language{}, fmt.Errorf("unsupported language %q (supported: %s)", code, strings.Join(codes, ", "))
	}
	return lang, nil
}

// FieldKey builds the upper-cased, language-prefixed field name used in
// prompts and exports ("en", "lemma" -> "EN_lemma")
func FieldKey(language, field string) string {
	return strings.ToUpper(NormalizeLanguage(language)) + "_" + field
}
