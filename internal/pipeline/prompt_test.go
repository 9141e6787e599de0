package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/vocabdeck/internal/model"
)

func TestFieldsFor(t *testing.T) {
	assert.Equal(t, PromptFields{Definition: "EN_definition", Gloss: "DE_gloss"}, FieldsFor("en", "de"))
	assert.Equal(t, PromptFields{Definition: "DE_definition"}, FieldsFor("de", "de"))
	assert.Equal(t, PromptFields{Definition: "FR_definition", Gloss: "EN_gloss"}, FieldsFor("fr_FR", "en"))
}

func TestBuildPrompt_Foreign(t *testing.T) {
	batch := []model.PendingItem{
		{VocabularyItem: model.VocabularyItem{Word: "waning", Usage: "The waning moon."}, Lemma: "wane", Book: "Dune — Frank Herbert"},
		{VocabularyItem: model.VocabularyItem{Word: "pity"}, Lemma: "pity", Book: model.UnknownBook},
	}
	p := BuildPrompt(batch, "en", "de")

	assert.Contains(t, p, "German speaker")
	assert.Contains(t, p, "- EN_definition: English definition")
	assert.Contains(t, p, "- DE_gloss: German translation")
	assert.Contains(t, p, "  - notes: short hint in German")
	assert.Contains(t, p, "1. Word: waning\n   Lemma: wane\n   Context: The waning moon.\n   Book: Dune — Frank Herbert\n")
	assert.Contains(t, p, "2. Word: pity\n   Lemma: pity\n")
	assert.NotContains(t, p, "Book: Unknown")
	assert.Contains(t, p, "exactly 2 objects")
	for _, key := range []string{"ambiguity", "sense", "domain", "register", "alternatives", "false_friend", "collocations", "anchor", "confidence"} {
		assert.Contains(t, p, "  - "+key+": ")
	}
}

func TestBuildPrompt_Native(t *testing.T) {
	p := BuildPrompt([]model.PendingItem{{VocabularyItem: model.VocabularyItem{Word: "Weg"}, Lemma: "weg"}}, "de", "de")

	assert.Contains(t, p, "- DE_definition: simple German definition")
	assert.False(t, strings.Contains(p, "_gloss"))
}
