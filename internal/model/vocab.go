package model

import "strings"

// UnknownBook is the display title used when no book metadata is available
const UnknownBook = "Unknown"

// VocabularyItem is one lookup read from the vocabulary source
type VocabularyItem struct {
	ID         string `json:"id"`
	Word       string `json:"word"`                   // Surface form as looked up
	Language   string `json:"language"`               // Normalized ISO 639-1 code
	Usage      string `json:"usage,omitempty"`        // Sentence the word was looked up in
	BookTitle  string `json:"book_title,omitempty"`   // Raw title from the source
	Authors    string `json:"authors,omitempty"`      // Raw author string from the source
	LookedUpAt int64  `json:"looked_up_at,omitempty"` // Source timestamp (ms since epoch)
}

// PendingItem is a vocabulary item that passed the cache filter and is
// waiting for annotation
type PendingItem struct {
	VocabularyItem

	Lemma   string `json:"lemma"`
	Book    string `json:"book"`               // Display title after normalization
	BookKey string `json:"book_key,omitempty"` // Lookup key of the raw title
}

// WordID builds the cache primary key for a lemma
func WordID(language, lemma string) string {
	return strings.ToLower(strings.TrimSpace(language)) + ":" + LemmaKey(lemma)
}

// LemmaKey folds a lemma for duplicate detection
func LemmaKey(lemma string) string {
	return strings.ToLower(strings.Join(strings.Fields(lemma), " "))
}
