package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/vocabdeck/internal/cache"
)

// RunContext owns the title and author memos for one pipeline run.
// Entries are write-once: the first rendering stored for a key wins.
type RunContext struct {
	titles  *cache.Memory[string]
	authors *cache.Memory[string]
}

// NewRunContext creates an empty run context
func NewRunContext() *RunContext {
	return &RunContext{
		titles:  cache.NewMemory[string](),
		authors: cache.NewMemory[string](),
	}
}

// Title returns the memoized display title for a lookup key
func (rc *RunContext) Title(key string) (string, bool) {
	return rc.titles.Get(key)
}

// StoreTitle memoizes a display title. It reports false when the key was
// already taken, in which case the earlier value is kept.
func (rc *RunContext) StoreTitle(key, display string) bool {
	if key == "" {
		return false
	}
	return rc.titles.Add(key, display)
}

// Author returns a memoized author resolution. ok is true when the title
// was resolved before, even if no author was found.
func (rc *RunContext) Author(key string) (author string, ok bool) {
	return rc.authors.Get(key)
}

// StoreAuthor memoizes an author resolution ("" for unresolved)
func (rc *RunContext) StoreAuthor(key, author string) bool {
	return rc.authors.Add(key, author)
}

// Seed pre-loads a persisted display title under its own lookup key and
// any extra raw-title keys recorded alongside it
func (rc *RunContext) Seed(display string, keys ...string) {
	display = strings.TrimSpace(display)
	if display == "" || IsUnknown(display) {
		return
	}
	rc.StoreTitle(LookupKey(display), display)
	for _, k := range keys {
		rc.StoreTitle(k, display)
	}
}

// TitleCount returns the number of memoized titles
func (rc *RunContext) TitleCount() int {
	return rc.titles.Len()
}

var keyReplacer = strings.NewReplacer(
	":", " ",
	"-", " ",
	"_", " ",
	",", " ",
	"–", " ",
	"—", " ",
)

// LookupKey folds a raw title to its memo key: lowercase, delimiter
// characters replaced by spaces, whitespace collapsed
func LookupKey(title string) string {
	folded := cases.Lower(language.Und).String(norm.NFC.String(title))
	return strings.Join(strings.Fields(keyReplacer.Replace(folded)), " ")
}

// IsUnknown reports whether s is the sentinel for missing metadata
func IsUnknown(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "unknown")
}
