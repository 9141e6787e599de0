package lemma

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// IPA feature positions
const (
	featureSubPOS   = 1
	featureBaseForm = 6
	properNounPOS   = "固有名詞"
)

// JapaneseLemmatizer uses kagome's morphological analysis
type JapaneseLemmatizer struct {
	t *tokenizer.Tokenizer
}

// NewJapaneseLemmatizer loads the IPA dictionary
func NewJapaneseLemmatizer() (*JapaneseLemmatizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &JapaneseLemmatizer{t: t}, nil
}

// Analyze returns the base form of every morpheme in word
func (j *JapaneseLemmatizer) Analyze(word string) []Token {
	var tokens []Token
	for _, tok := range j.t.Tokenize(word) {
		if tok.Class == tokenizer.DUMMY || strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		features := tok.Features()

		base := tok.Surface
		if len(features) > featureBaseForm && features[featureBaseForm] != "*" {
			base = features[featureBaseForm]
		}
		tokens = append(tokens, Token{
			Lemma:      base,
			ProperNoun: len(features) > featureSubPOS && features[featureSubPOS] == properNounPOS,
		})
	}
	return tokens
}
