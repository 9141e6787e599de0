// Package lemma maps surface words to dictionary forms per language.
package lemma

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ppiankov/vocabdeck/internal/model"
)

// Token is one analyzed unit of a looked-up word
type Token struct {
	Lemma      string
	ProperNoun bool
}

// Lemmatizer analyzes a word into tokens with their lemmas
type Lemmatizer interface {
	Analyze(word string) []Token
}

// Resolver picks the lemmatizer for a language and falls back to the
// lowercased word when none is registered
type Resolver struct {
	lemmatizers map[string]Lemmatizer
}

// NewResolver creates a resolver with no lemmatizers
func NewResolver() *Resolver {
	return &Resolver{lemmatizers: make(map[string]Lemmatizer)}
}

// Register installs lz for a language code
func (r *Resolver) Register(lang string, lz Lemmatizer) {
	r.lemmatizers[model.NormalizeLanguage(lang)] = lz
}

// Has reports whether a lemmatizer is registered for lang
func (r *Resolver) Has(lang string) bool {
	_, ok := r.lemmatizers[model.NormalizeLanguage(lang)]
	return ok
}

// Resolve returns the lemma of word. Multi-token words resolve to their
// space-joined token lemmas. Proper nouns keep their casing; everything
// else is lowercased.
func (r *Resolver) Resolve(word, lang string) string {
	lang = model.NormalizeLanguage(lang)
	word = strings.TrimSpace(word)
	lower := cases.Lower(language.Make(lang))

	lz, ok := r.lemmatizers[lang]
	if !ok || word == "" {
		return lower.String(word)
	}

	tokens := lz.Analyze(word)
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if l := strings.TrimSpace(t.Lemma); l != "" {
			parts = append(parts, l)
		}
	}
	if len(parts) == 0 {
		return lower.String(word)
	}

	lemma := strings.Join(parts, " ")
	if tokens[0].ProperNoun {
		return lemma
	}
	return lower.String(lemma)
}
