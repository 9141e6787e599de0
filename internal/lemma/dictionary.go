package lemma

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const properNounTag = "PROPN"

type entry struct {
	lemma      string
	properNoun bool
}

// DictionaryLemmatizer looks tokens up in a "form,lemma[,PROPN]" table
type DictionaryLemmatizer struct {
	forms map[string]entry
}

// LoadDictionary reads a lemma table from path
func LoadDictionary(path string) (*DictionaryLemmatizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lemma dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	d, err := ParseDictionary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ParseDictionary reads a lemma table. Lines starting with '#' are comments.
func ParseDictionary(r io.Reader) (*DictionaryLemmatizer, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	d := &DictionaryLemmatizer{forms: make(map[string]entry)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse lemma dictionary: %w", err)
		}
		if len(rec) < 2 {
			continue
		}
		form := strings.ToLower(strings.TrimSpace(rec[0]))
		lemma := strings.TrimSpace(rec[1])
		if form == "" || lemma == "" {
			continue
		}
		if _, seen := d.forms[form]; seen {
			continue
		}
		d.forms[form] = entry{
			lemma:      lemma,
			properNoun: len(rec) > 2 && strings.EqualFold(strings.TrimSpace(rec[2]), properNounTag),
		}
	}
	return d, nil
}

// Len returns the number of known forms
func (d *DictionaryLemmatizer) Len() int {
	return len(d.forms)
}

// Analyze splits word on whitespace and maps each token to its lemma.
// Unknown tokens are their own lemma.
func (d *DictionaryLemmatizer) Analyze(word string) []Token {
	fields := strings.Fields(word)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		if e, ok := d.forms[strings.ToLower(f)]; ok {
			tokens = append(tokens, Token{Lemma: e.lemma, ProperNoun: e.properNoun})
			continue
		}
		tokens = append(tokens, Token{Lemma: f})
	}
	return tokens
}
