package model

// Card is the persisted flashcard record. A card is created once per
// distinct (language, lemma) and never updated afterwards.
type Card struct {
	WordID       string              `json:"word_id"`
	Language     string              `json:"language"`
	Lemma        string              `json:"lemma"`
	OriginalWord string              `json:"original_word"`
	Definition   string              `json:"definition"`
	Gloss        string              `json:"gloss,omitempty"` // Native translation, foreign cards only
	ContextHTML  string              `json:"context_html,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	Book         string              `json:"book"`
	BookKey      string              `json:"book_key,omitempty"`
	Metadata     *AnnotationMetadata `json:"notes_metadata,omitempty"`
	CreatedAt    string              `json:"created_at,omitempty"` // RFC3339
}

// Ambiguity is the coarse context dependence of a word's meaning
type Ambiguity string

const (
	AmbiguityLow    Ambiguity = "low"
	AmbiguityMedium Ambiguity = "medium"
	AmbiguityHigh   Ambiguity = "high"
)

// FalseFriend is either a flag or a short warning text
type FalseFriend struct {
	Flag bool   `json:"flag,omitempty"`
	Text string `json:"text,omitempty"`
}

// AnnotationMetadata holds the optional signals returned by the annotation
// service for one word. Nil or empty fields were absent or unparseable.
type AnnotationMetadata struct {
	Notes        string       `json:"notes,omitempty"`
	Ambiguity    Ambiguity    `json:"ambiguity,omitempty"`
	Sense        string       `json:"sense,omitempty"`
	Domain       string       `json:"domain,omitempty"`
	Register     string       `json:"register,omitempty"`
	Alternatives []string     `json:"alternatives,omitempty"`
	FalseFriend  *FalseFriend `json:"false_friend,omitempty"`
	Collocations []string     `json:"collocations,omitempty"`
	Anchor       string       `json:"anchor,omitempty"`
	Confidence   *float64     `json:"confidence,omitempty"`
}

// IsEmpty reports whether no field is set
func (m *AnnotationMetadata) IsEmpty() bool {
	if m == nil {
		return true
	}
	return m.Notes == "" && m.Ambiguity == "" && m.Sense == "" && m.Domain == "" &&
		m.Register == "" && len(m.Alternatives) == 0 && m.FalseFriend == nil &&
		len(m.Collocations) == 0 && m.Anchor == "" && m.Confidence == nil
}
