package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/vocabdeck/internal/model"
	"github.com/ppiankov/vocabdeck/internal/notes"
	"github.com/ppiankov/vocabdeck/internal/util"
)

// Legacy two-bucket layout keys and the language each one held
var legacyBuckets = map[string]string{
	"en_words": "en",
	"de_words": "de",
}

type fileLayout struct {
	Version   int                                   `json:"version"`
	Languages map[string]map[string]json.RawMessage `json:"languages"`
	EnWords   map[string]json.RawMessage            `json:"en_words"`
	DeWords   map[string]json.RawMessage            `json:"de_words"`
}

type savedLayout struct {
	Version   int                              `json:"version"`
	Languages map[string]map[string]model.Card `json:"languages"`
}

// LoadInfo describes what Load found on disk
type LoadInfo struct {
	Existed  bool
	Version  int
	Migrated int // Cards rewritten from a legacy layout
	Dropped  int // Legacy cards skipped as duplicates or unusable
	Shadowed int // Stored cards skipped because another key holds the same lemma
}

// Load reads a cache file. A missing file yields an empty cache; legacy
// layouts are migrated in memory and written back on the next Save.
func Load(path string) (*CardCache, LoadInfo, error) {
	c := New()
	info := LoadInfo{Version: SchemaVersion}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, info, nil
	}
	if err != nil {
		return nil, info, fmt.Errorf("read cache %s: %w", path, err)
	}
	info.Existed = true

	var raw fileLayout
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, info, fmt.Errorf("parse cache %s: %w", path, err)
	}
	info.Version = raw.Version

	if raw.Version >= SchemaVersion && raw.EnWords == nil && raw.DeWords == nil {
		for _, lang := range sortedKeys(raw.Languages) {
			bucket := raw.Languages[lang]
			for _, key := range sortedKeys(bucket) {
				var card model.Card
				if err := json.Unmarshal(bucket[key], &card); err != nil {
					return nil, info, fmt.Errorf("parse card %s/%s: %w", lang, key, err)
				}
				if !c.restore(model.NormalizeLanguage(lang), key, card) {
					info.Shadowed++
				}
			}
		}
		return c, info, nil
	}

	migrate := func(lang string, bucket map[string]json.RawMessage) {
		for _, key := range sortedKeys(bucket) {
			var fields map[string]any
			if err := json.Unmarshal(bucket[key], &fields); err != nil {
				info.Dropped++
				continue
			}
			card, ok := legacyCard(lang, key, fields)
			if !ok || c.IsTranslated(card.Lemma, lang) {
				info.Dropped++
				continue
			}
			c.insert(card)
			info.Migrated++
		}
	}
	for _, lang := range sortedKeys(raw.Languages) {
		migrate(model.NormalizeLanguage(lang), raw.Languages[lang])
	}
	for _, name := range []string{"en_words", "de_words"} {
		bucket := raw.EnWords
		if name == "de_words" {
			bucket = raw.DeWords
		}
		migrate(legacyBuckets[name], bucket)
	}
	return c, info, nil
}

// restore inserts a persisted card under its stored key. The key is kept
// even when it differs from the derived word id. A card whose folded
// lemma is already held by another key is skipped and reported false.
func (c *CardCache) restore(lang, key string, card model.Card) bool {
	card.Language = lang
	if card.WordID == "" {
		card.WordID = key
	}
	if card.Lemma == "" {
		card.Lemma = strings.TrimPrefix(key, lang+":")
	}
	if c.languages[lang] == nil {
		c.languages[lang] = make(map[string]model.Card)
		c.lemmas[lang] = make(map[string]string)
	}
	folded := model.LemmaKey(card.Lemma)
	if _, ok := c.lemmas[lang][folded]; ok {
		return false
	}
	c.languages[lang][key] = card
	c.lemmas[lang][folded] = key
	return true
}

// legacyCard maps a card stored with language-prefixed field names
// ("EN_lemma", "Original_word", "DE_gloss") onto the current schema
func legacyCard(lang, key string, raw map[string]any) (model.Card, bool) {
	f := notes.Fold(raw)
	prefix := strings.ToLower(model.FieldKey(lang, ""))

	lemma := f.String("lemma", prefix+"lemma")
	if lemma == "" {
		lemma = strings.TrimPrefix(key, lang+":")
	}
	card := model.Card{
		Language:     lang,
		Lemma:        lemma,
		OriginalWord: f.String("original_word"),
		Definition:   f.String("definition", prefix+"definition"),
		Gloss:        f.String(append([]string{"gloss"}, glossKeys(f)...)...),
		ContextHTML:  f.String("context_html"),
		Notes:        f.String("notes"),
		Book:         f.String("book"),
		BookKey:      f.String("book_key"),
		CreatedAt:    f.String("created_at"),
	}
	if card.OriginalWord == "" {
		card.OriginalWord = lemma
	}
	if card.Book == "" {
		card.Book = model.UnknownBook
	}
	if v, ok := f.Lookup("notes_metadata"); ok {
		if m, ok := v.(map[string]any); ok {
			if meta := notes.Extract(m); !meta.IsEmpty() {
				card.Metadata = meta
			}
		}
	}
	if strings.TrimSpace(card.Lemma) == "" {
		return model.Card{}, false
	}
	card.WordID = model.WordID(lang, card.Lemma)
	return card, true
}

func glossKeys(f notes.Fields) []string {
	var keys []string
	for k := range f {
		if strings.HasSuffix(k, "_gloss") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Save writes the cache atomically in the current layout
func (c *CardCache) Save(path string) error {
	out := savedLayout{
		Version:   SchemaVersion,
		Languages: make(map[string]map[string]model.Card, len(c.languages)),
	}
	for lang, bucket := range c.languages {
		if len(bucket) > 0 {
			out.Languages[lang] = bucket
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := util.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("save cache %s: %w", path, err)
	}
	return nil
}

// Backup copies the cache file into dir with a timestamp suffix. It
// returns "" when there is nothing to back up.
func Backup(path, dir string, now time.Time) (string, error) {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	target := filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, now.Format("20060102_150405"), ext))

	dst, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("copy backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close backup: %w", err)
	}
	return target, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
