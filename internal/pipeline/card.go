package pipeline

import (
	"fmt"

	"github.com/ppiankov/vocabdeck/internal/model"
	"github.com/ppiankov/vocabdeck/internal/notes"
	"github.com/ppiankov/vocabdeck/internal/store"
)

// buildCard turns one response object into a card for item. The lemma and
// surface form always come from the request side.
func (p *Pipeline) buildCard(item model.PendingItem, raw map[string]any, lang string) (model.Card, error) {
	native := p.cfg.NativeLanguage
	fields := FieldsFor(lang, native)
	f := notes.Fold(raw)

	definition := f.String(fields.Definition, "definition", "def")
	if definition == "" {
		return model.Card{}, fmt.Errorf("%w: %s: missing %s", store.ErrValidation, item.Word, fields.Definition)
	}

	var gloss string
	if fields.Gloss != "" {
		gloss = f.String(fields.Gloss, "gloss", "translation", model.FieldKey(native, "translation"))
		if gloss == "" {
			return model.Card{}, fmt.Errorf("%w: %s: missing %s", store.ErrValidation, item.Word, fields.Gloss)
		}
	}

	meta := notes.Extract(raw)
	line := notes.BuildLine(meta, notes.LineOptions{
		Separator: p.cfg.Notes.Separator,
		MaxLength: p.cfg.Notes.MaxLength,
	})
	if meta.IsEmpty() {
		meta = nil
	}

	return model.Card{
		Lemma:        item.Lemma,
		OriginalWord: item.Word,
		Definition:   definition,
		Gloss:        gloss,
		ContextHTML:  ContextHTML(item.Usage, item.Word),
		Notes:        line,
		Book:         item.Book,
		BookKey:      item.BookKey,
		Metadata:     meta,
	}, nil
}
