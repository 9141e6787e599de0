package pipeline

import (
	"fmt"
	"strings"

	"github.com/ppiankov/vocabdeck/internal/model"
)

const systemPrompt = "You are a language-learning expert who writes concise, accurate flashcards. " +
	"Reply with a JSON array only."

// metadataKeys are the optional per-word signals requested from the service
var metadataKeys = []struct{ key, hint string }{
	{"notes", "short hint in %s, only when useful"},
	{"ambiguity", "low, medium or high (always set)"},
	{"sense", "the reading used in the context (medium/high ambiguity only)"},
	{"domain", "subject field such as law or IT; omit for everyday language"},
	{"register", "style such as colloquial or formal; omit when neutral"},
	{"alternatives", "list of up to three alternatives"},
	{"false_friend", "false, or a short warning string when the word is a trap"},
	{"collocations", "list of at most two typical collocations"},
	{"anchor", "exact phrase (max five words) from the context"},
	{"confidence", "number between 0 and 1"},
}

// PromptFields names the response fields for words of one language
type PromptFields struct {
	Definition string // <LANG>_definition
	Gloss      string // <NATIVE>_gloss, empty for native-language words
}

// FieldsFor returns the response field names for words in lang
func FieldsFor(lang, native string) PromptFields {
	f := PromptFields{Definition: model.FieldKey(lang, "definition")}
	if model.NormalizeLanguage(lang) != model.NormalizeLanguage(native) {
		f.Gloss = model.FieldKey(native, "gloss")
	}
	return f
}

// BuildPrompt renders one request for a batch of words in lang
func BuildPrompt(batch []model.PendingItem, lang, native string) string {
	langName := languageName(lang)
	nativeName := languageName(native)
	fields := FieldsFor(lang, native)

	var b strings.Builder
	fmt.Fprintf(&b, "Build vocabulary flashcards for a %s speaker.\n\n", nativeName)
	b.WriteString("RULES:\n")
	b.WriteString("1. Always give verbs in the infinitive.\n")
	b.WriteString("2. Read the context: the meaning must fit the sentence and its tone.\n")
	b.WriteString("3. Do not repeat the word, lemma, context or book; they are added automatically.\n\n")

	b.WriteString("TASK: for every word return only:\n")
	if fields.Gloss != "" {
		fmt.Fprintf(&b, "- %s: %s definition, the meaning used in the context first, then an optional common meaning after \"also:\"\n", fields.Definition, langName)
		fmt.Fprintf(&b, "- %s: %s translation that fits the context (verbs in the infinitive, several meanings separated by commas)\n", fields.Gloss, nativeName)
	} else {
		fmt.Fprintf(&b, "- %s: simple %s definition, the meaning used in the context first\n", fields.Definition, nativeName)
	}
	b.WriteString("- metadata, using exactly these keys:\n")
	for _, m := range metadataKeys {
		hint := m.hint
		if strings.Contains(hint, "%s") {
			hint = fmt.Sprintf(hint, nativeName)
		}
		fmt.Fprintf(&b, "  - %s: %s\n", m.key, hint)
	}

	b.WriteString("\nWORDS:\n")
	for i, it := range batch {
		fmt.Fprintf(&b, "%d. Word: %s\n", i+1, it.Word)
		fmt.Fprintf(&b, "   Lemma: %s\n", it.Lemma)
		if it.Usage != "" {
			fmt.Fprintf(&b, "   Context: %s\n", it.Usage)
		}
		if it.Book != "" && it.Book != model.UnknownBook {
			fmt.Fprintf(&b, "   Book: %s\n", it.Book)
		}
	}

	fmt.Fprintf(&b, "\nOUTPUT: a JSON array with exactly %d objects, one per word, in the order above. No markdown, no explanations.\n", len(batch))
	return b.String()
}

func languageName(code string) string {
	if l, err := model.LookupLanguage(code); err == nil {
		return l.Name
	}
	return strings.ToUpper(code)
}
