// Package export writes cached cards as tab-separated decks ready for
// flashcard import.
package export

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/vocabdeck/internal/model"
)

// Kind selects which side of a card is asked and which is answered
type Kind string

const (
	ForeignToNative Kind = "foreign_native" // target-language word, native gloss
	NativeToForeign Kind = "native_foreign" // native gloss, cloze context in the target language
	NativeToNative  Kind = "native_native"  // monolingual native-language cards
)

// guidNamespace scopes deck GUIDs so re-exports update notes in place
var guidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ppiankov/vocabdeck"))

// Deck describes one output file
type Deck struct {
	Kind   Kind
	Source string // Language asked on the front
	Target string // Language answered on the back
}

// Decks returns the decks enabled in cfg
func Decks(cfg model.Config) []Deck {
	native := model.NormalizeLanguage(cfg.NativeLanguage)
	target := model.NormalizeLanguage(cfg.TargetLanguage)

	var decks []Deck
	if cfg.Decks.ForeignToNative {
		decks = append(decks, Deck{Kind: ForeignToNative, Source: target, Target: native})
	}
	if cfg.Decks.NativeToForeign {
		decks = append(decks, Deck{Kind: NativeToForeign, Source: native, Target: target})
	}
	if cfg.Decks.NativeToNative {
		decks = append(decks, Deck{Kind: NativeToNative, Source: native, Target: native})
	}
	return decks
}

// FileName is the TSV file name for the deck, e.g. anki_en_de.tsv
func (d Deck) FileName() string {
	return "anki_" + d.Source + "_" + d.Target + ".tsv"
}

// CardLanguage is the language of the cards the deck is built from
func (d Deck) CardLanguage() string {
	if d.Kind == NativeToForeign {
		return d.Target
	}
	return d.Source
}

// Columns returns the header fields of the deck
func (d Deck) Columns() []string {
	lang := d.CardLanguage()
	lemma := model.FieldKey(lang, "lemma")
	definition := model.FieldKey(lang, "definition")

	switch d.Kind {
	case ForeignToNative:
		return []string{"GUID", lemma, "Original_word", definition, model.FieldKey(d.Target, "gloss"), "Context_HTML", "Book", "Notes"}
	case NativeToForeign:
		return []string{"GUID", model.FieldKey(d.Source, "gloss"), lemma, "Original_word", definition, "Context_HTML", "Book", "Notes"}
	default:
		return []string{"GUID", lemma, "Original_word", definition, "Context_HTML", "Book", "Notes"}
	}
}

// GUID returns a stable identifier for a card within this deck
func (d Deck) GUID(card model.Card) string {
	return uuid.NewSHA1(guidNamespace, []byte(string(d.Kind)+"/"+card.WordID)).String()
}

// Row renders the card fields in column order
func (d Deck) Row(card model.Card) []string {
	guid := d.GUID(card)
	switch d.Kind {
	case ForeignToNative:
		return []string{guid, card.Lemma, card.OriginalWord, card.Definition, card.Gloss, ToBold(card.ContextHTML), card.Book, card.Notes}
	case NativeToForeign:
		return []string{guid, card.Gloss, card.Lemma, card.OriginalWord, card.Definition, ToCloze(card.ContextHTML), card.Book, card.Notes}
	default:
		return []string{guid, card.Lemma, card.OriginalWord, card.Definition, ToBold(card.ContextHTML), card.Book, card.Notes}
	}
}

// Valid reports whether card has every field the deck needs
func (d Deck) Valid(card model.Card) bool {
	required := []string{card.Lemma, card.OriginalWord, card.Definition, card.ContextHTML, card.Book}
	if d.Kind != NativeToNative {
		required = append(required, card.Gloss)
	}
	for _, f := range required {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// ToCloze turns the first <b>…</b> into a {{c1::…}} deletion
func ToCloze(html string) string {
	if strings.Contains(html, "{{c1::") {
		return html
	}
	start := strings.Index(html, "<b>")
	end := strings.Index(html, "</b>")
	if start < 0 || end < start {
		return html
	}
	return html[:start] + "{{c1::" + html[start+3:end] + "}}" + html[end+4:]
}

// ToBold turns a leftover {{c1::…}} deletion back into <b>…</b>
func ToBold(html string) string {
	start := strings.Index(html, "{{c1::")
	if start < 0 {
		return html
	}
	end := strings.Index(html[start:], "}}")
	if end < 0 {
		return html
	}
	end += start
	return html[:start] + "<b>" + html[start+6:end] + "</b>" + html[end+2:]
}
