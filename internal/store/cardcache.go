// Package store keeps finished flashcards in a lemma-keyed, persistent cache.
package store

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/vocabdeck/internal/model"
	"github.com/ppiankov/vocabdeck/internal/normalize"
)

// SchemaVersion is the on-disk layout written by Save
const SchemaVersion = 2

// ErrValidation marks a card rejected for missing required fields
var ErrValidation = errors.New("card validation failed")

// CardCache holds one card per (language, lemma). Cards are never updated
// after insertion.
type CardCache struct {
	languages map[string]map[string]model.Card // lang -> word_id -> card
	lemmas    map[string]map[string]string     // lang -> folded lemma -> word_id
	now       func() time.Time
}

// New creates an empty cache
func New() *CardCache {
	return &CardCache{
		languages: make(map[string]map[string]model.Card),
		lemmas:    make(map[string]map[string]string),
		now:       time.Now,
	}
}

// AddResult counts what happened to a batch of candidate cards
type AddResult struct {
	Added      int
	Duplicates int
	Rejected   int
	Errors     []error // One per rejected card, wrapping ErrValidation
}

// Add inserts candidate cards for language. Cards without a surface form
// or lemma are rejected; cards whose lemma is already cached are dropped
// as duplicates. Missing book titles are filled from the matching source
// item, falling back to "Unknown".
func (c *CardCache) Add(cards []model.Card, items []model.PendingItem, language, nativeLanguage string) AddResult {
	language = model.NormalizeLanguage(language)
	books := make(map[string]model.PendingItem, len(items))
	for _, it := range items {
		if key := strings.ToLower(strings.TrimSpace(it.Word)); key != "" {
			if _, ok := books[key]; !ok {
				books[key] = it
			}
		}
	}

	var res AddResult
	for _, card := range cards {
		card.OriginalWord = strings.TrimSpace(card.OriginalWord)
		card.Lemma = strings.TrimSpace(card.Lemma)
		if card.OriginalWord == "" || card.Lemma == "" {
			res.Rejected++
			res.Errors = append(res.Errors, validationError(card, "missing original word or lemma"))
			continue
		}

		lemmaKey := model.LemmaKey(card.Lemma)
		if _, dup := c.lemmas[language][lemmaKey]; dup {
			res.Duplicates++
			continue
		}

		if card.Book == "" || normalize.IsUnknown(card.Book) {
			card.Book = model.UnknownBook
			if it, ok := books[strings.ToLower(card.OriginalWord)]; ok && it.Book != "" && !normalize.IsUnknown(it.Book) {
				card.Book = it.Book
				card.BookKey = it.BookKey
			}
		}
		if card.Gloss != "" && model.NormalizeLanguage(nativeLanguage) == "de" {
			card.Gloss = normalize.GermanGloss(card.Gloss)
		}

		card.Language = language
		card.WordID = model.WordID(language, card.Lemma)
		if card.CreatedAt == "" {
			card.CreatedAt = c.now().UTC().Format(time.RFC3339)
		}
		c.insert(card)
		res.Added++
	}
	return res
}

func (c *CardCache) insert(card model.Card) {
	if c.languages[card.Language] == nil {
		c.languages[card.Language] = make(map[string]model.Card)
		c.lemmas[card.Language] = make(map[string]string)
	}
	c.languages[card.Language][card.WordID] = card
	c.lemmas[card.Language][model.LemmaKey(card.Lemma)] = card.WordID
}

// IsTranslated reports whether a card exists for lemma, either under its
// derived word id or, for records keyed before migration, by lemma field
func (c *CardCache) IsTranslated(lemma, language string) bool {
	language = model.NormalizeLanguage(language)
	if _, ok := c.languages[language][model.WordID(language, lemma)]; ok {
		return true
	}
	_, ok := c.lemmas[language][model.LemmaKey(lemma)]
	return ok
}

// Get returns the card for lemma
func (c *CardCache) Get(lemma, language string) (model.Card, bool) {
	language = model.NormalizeLanguage(language)
	if card, ok := c.languages[language][model.WordID(language, lemma)]; ok {
		return card, true
	}
	if id, ok := c.lemmas[language][model.LemmaKey(lemma)]; ok {
		card, ok := c.languages[language][id]
		return card, ok
	}
	return model.Card{}, false
}

// Forget removes the card for lemma and reports whether one existed. This
// is the only way to make a lemma eligible for annotation again.
func (c *CardCache) Forget(lemma, language string) bool {
	language = model.NormalizeLanguage(language)
	id, ok := c.lemmas[language][model.LemmaKey(lemma)]
	if !ok {
		return false
	}
	delete(c.languages[language], id)
	delete(c.lemmas[language], model.LemmaKey(lemma))
	return true
}

// Cards returns the cards of one language ordered by word id
func (c *CardCache) Cards(language string) []model.Card {
	bucket := c.languages[model.NormalizeLanguage(language)]
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cards := make([]model.Card, 0, len(ids))
	for _, id := range ids {
		cards = append(cards, bucket[id])
	}
	return cards
}

// Languages returns the language codes present, sorted
func (c *CardCache) Languages() []string {
	langs := make([]string, 0, len(c.languages))
	for lang, bucket := range c.languages {
		if len(bucket) > 0 {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

// Stats holds card counts
type Stats struct {
	PerLanguage map[string]int `json:"per_language"`
	Total       int            `json:"total"`
}

// Stats returns card counts per language and in total
func (c *CardCache) Stats() Stats {
	s := Stats{PerLanguage: make(map[string]int)}
	for lang, bucket := range c.languages {
		if len(bucket) == 0 {
			continue
		}
		s.PerLanguage[lang] = len(bucket)
		s.Total += len(bucket)
	}
	return s
}

// SeedTitles pre-loads every persisted display title into rc
func (c *CardCache) SeedTitles(rc *normalize.RunContext) {
	for _, lang := range c.Languages() {
		for _, card := range c.Cards(lang) {
			if card.BookKey != "" {
				rc.Seed(card.Book, card.BookKey)
			} else {
				rc.Seed(card.Book)
			}
		}
	}
}

type validationErr struct {
	word   string
	reason string
}

func (e *validationErr) Error() string {
	return "card " + e.word + ": " + e.reason
}

func (e *validationErr) Unwrap() error { return ErrValidation }

func validationError(card model.Card, reason string) error {
	word := card.OriginalWord
	if word == "" {
		word = card.Lemma
	}
	if word == "" {
		word = "<empty>"
	}
	return &validationErr{word: word, reason: reason}
}
