// Package notes turns the loosely typed metadata returned by the
// annotation service into a typed record and a compact notes line.
package notes

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/vocabdeck/internal/model"
)

const (
	maxAlternatives = 3
	maxCollocations = 2
)

// Recognized key synonyms per field, matched case-insensitively
var (
	notesKeys        = []string{"notes", "note", "hint"}
	ambiguityKeys    = []string{"ambiguity", "ambiguity_level", "mehrdeutigkeit"}
	senseKeys        = []string{"sense", "meaning", "context_sense"}
	domainKeys       = []string{"domain", "field", "fachgebiet", "subject"}
	registerKeys     = []string{"register", "style", "stil"}
	alternativesKeys = []string{"alternatives", "alternative", "alternate_translations", "varianten"}
	falseFriendKeys  = []string{"false_friend", "falsefriend", "false_friend_hint"}
	collocationsKeys = []string{"collocations", "collocation", "kollokationen"}
	anchorKeys       = []string{"anchor", "anchor_phrase"}
	confidenceKeys   = []string{"confidence", "score"}
)

var ambiguityLevels = map[string]model.Ambiguity{
	"low":      model.AmbiguityLow,
	"niedrig":  model.AmbiguityLow,
	"gering":   model.AmbiguityLow,
	"medium":   model.AmbiguityMedium,
	"mittel":   model.AmbiguityMedium,
	"moderate": model.AmbiguityMedium,
	"high":     model.AmbiguityHigh,
	"hoch":     model.AmbiguityHigh,
}

// Fields is a response object with case-folded keys
type Fields map[string]any

// Fold lower-cases the keys of a raw response object. When two keys differ
// only in case, the lexically first original key wins.
func Fold(raw map[string]any) Fields {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Fields, len(raw))
	for _, k := range keys {
		lk := strings.ToLower(strings.TrimSpace(k))
		if _, ok := out[lk]; !ok {
			out[lk] = raw[k]
		}
	}
	return out
}

// Lookup returns the first present value among keys
func (f Fields) Lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := f[strings.ToLower(k)]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the first non-empty string value among keys, whitespace collapsed
func (f Fields) String(keys ...string) string {
	for _, k := range keys {
		if s, ok := f[strings.ToLower(k)].(string); ok {
			if s = collapse(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// Extract builds typed metadata from a raw response object. Fields that
// are missing, empty or fail coercion are left unset.
func Extract(raw map[string]any) *model.AnnotationMetadata {
	f := Fold(raw)
	meta := &model.AnnotationMetadata{
		Notes:    f.String(notesKeys...),
		Sense:    f.String(senseKeys...),
		Domain:   f.String(domainKeys...),
		Register: f.String(registerKeys...),
		Anchor:   f.String(anchorKeys...),
	}

	if level, ok := ambiguityLevels[strings.ToLower(f.String(ambiguityKeys...))]; ok {
		meta.Ambiguity = level
	}
	if v, ok := f.Lookup(alternativesKeys...); ok {
		meta.Alternatives = coerceList(v, ",;", maxAlternatives)
	}
	if v, ok := f.Lookup(collocationsKeys...); ok {
		meta.Collocations = coerceList(v, ";\n", maxCollocations)
	}
	if v, ok := f.Lookup(falseFriendKeys...); ok {
		meta.FalseFriend = coerceFalseFriend(v)
	}
	if v, ok := f.Lookup(confidenceKeys...); ok {
		meta.Confidence = coerceConfidence(v)
	}
	return meta
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// coerceList accepts a list or a delimited string and returns up to limit
// unique entries in order, compared case-insensitively
func coerceList(v any, delims string, limit int) []string {
	var items []string
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok {
				items = append(items, s)
			}
		}
	case []string:
		items = t
	case string:
		items = strings.FieldsFunc(t, func(r rune) bool { return strings.ContainsRune(delims, r) })
	}

	seen := make(map[string]bool, len(items))
	var out []string
	for _, s := range items {
		s = collapse(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

func coerceFalseFriend(v any) *model.FalseFriend {
	switch t := v.(type) {
	case bool:
		if t {
			return &model.FalseFriend{Flag: true}
		}
	case string:
		s := collapse(t)
		switch strings.ToLower(s) {
		case "", "false", "no", "none", "nein", "-":
			return nil
		case "true", "yes", "ja":
			return &model.FalseFriend{Flag: true}
		}
		return &model.FalseFriend{Text: s}
	}
	return nil
}

func coerceConfidence(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 1 {
		return nil
	}
	return &f
}
