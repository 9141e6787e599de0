package normalize

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/vocabdeck/internal/worker"
)

// Separators that may join a title and its author, longest first
var titleSeparators = []string{" -- ", " — ", " - "}

// AuthorLookup infers an author for a title when none is known
type AuthorLookup interface {
	Resolve(ctx context.Context, title string) (string, bool)
}

// TitleNormalizer renders raw book titles into one stable display form
// "Main Title: Subtitle — Author"
type TitleNormalizer struct {
	rc      *RunContext
	authors AuthorLookup
}

// NewTitleNormalizer creates a normalizer backed by rc. authors may be nil,
// in which case no external author inference happens.
func NewTitleNormalizer(rc *RunContext, authors AuthorLookup) *TitleNormalizer {
	return &TitleNormalizer{rc: rc, authors: authors}
}

// Normalize returns the display title for rawTitle. sourceAuthor is the
// author reported by the vocabulary source and takes priority over
// anything parsed from the title.
func (n *TitleNormalizer) Normalize(ctx context.Context, rawTitle, sourceAuthor string) string {
	title := strings.TrimSpace(norm.NFC.String(rawTitle))
	if title == "" || IsUnknown(title) {
		return title
	}

	key := LookupKey(title)
	if display, ok := n.rc.Title(key); ok {
		return display
	}

	author := ""
	if a := strings.TrimSpace(sourceAuthor); a != "" && !IsUnknown(a) {
		author = a
	}
	fromSource := author != ""

	if fromSource {
		for _, sep := range titleSeparators {
			if i := strings.LastIndex(title, sep); i >= 0 {
				title = strings.TrimSpace(title[:i])
				break
			}
		}
	} else {
		title, author = splitAuthor(title)
	}

	if author == "" && n.authors != nil {
		if a, ok := n.authors.Resolve(ctx, underscoresToColons(title)); ok {
			author = a
		}
	}

	author = reorderName(author)
	title = cleanTitle(title, fromSource)

	title = NormalizeRomanNumerals(title)
	author = NormalizeRomanNumerals(author)

	display := TitleCase(title)
	switch {
	case display == "" && author != "":
		display = author
	case display == "":
		display = strings.TrimSpace(rawTitle)
	case author != "" && !authorInTitle(display, author):
		display += " — " + author
	}

	n.rc.StoreTitle(key, display)
	if stored, ok := n.rc.Title(key); ok {
		return stored
	}
	return display
}

// Book is a raw title together with the author reported by the source
type Book struct {
	Title  string
	Author string
}

// Prewarm runs the author lookups that Normalize would need for books on
// pool, so the sequential Normalize pass afterwards only hits the memo.
// Display forms are not stored here; first-seen ordering stays with Normalize.
func (n *TitleNormalizer) Prewarm(ctx context.Context, pool *worker.Pool, books []Book) (queried, resolved int) {
	if n.authors == nil {
		return 0, 0
	}
	seen := make(map[string]bool)
	var queries []string
	for _, b := range books {
		q, ok := n.authorQuery(b.Title, b.Author)
		if !ok {
			continue
		}
		k := strings.ToLower(q)
		if seen[k] {
			continue
		}
		seen[k] = true
		queries = append(queries, q)
	}
	found := worker.Map(ctx, pool, queries, func(ctx context.Context, q string) bool {
		_, ok := n.authors.Resolve(ctx, q)
		return ok
	})
	for _, ok := range found {
		if ok {
			resolved++
		}
	}
	return len(queries), resolved
}

// authorQuery returns the title Normalize would hand to the author lookup
func (n *TitleNormalizer) authorQuery(rawTitle, sourceAuthor string) (string, bool) {
	title := strings.TrimSpace(norm.NFC.String(rawTitle))
	if title == "" || IsUnknown(title) {
		return "", false
	}
	if _, ok := n.rc.Title(LookupKey(title)); ok {
		return "", false
	}
	if a := strings.TrimSpace(sourceAuthor); a != "" && !IsUnknown(a) {
		return "", false
	}
	title, author := splitAuthor(title)
	if author != "" {
		return "", false
	}
	return underscoresToColons(title), true
}

// splitAuthor pulls an author out of a title that embeds one. For " -- "
// the second segment is the author and anything after it is dropped; the
// other separators split on their last occurrence.
func splitAuthor(title string) (string, string) {
	if parts := strings.Split(title, " -- "); len(parts) >= 2 {
		return strings.TrimSpace(parts[0]), cleanAuthor(parts[1])
	}
	for _, sep := range titleSeparators[1:] {
		if i := strings.LastIndex(title, sep); i >= 0 {
			return strings.TrimSpace(title[:i]), cleanAuthor(title[i+len(sep):])
		}
	}
	return title, ""
}

func cleanAuthor(s string) string {
	s = strings.TrimSpace(s)
	if IsUnknown(s) {
		return ""
	}
	return s
}

// reorderName turns "Last, First" into "First Last"
func reorderName(author string) string {
	parts := strings.SplitN(author, ", ", 2)
	if len(parts) != 2 || strings.Contains(parts[1], ",") {
		return author
	}
	return strings.TrimSpace(parts[1]) + " " + strings.TrimSpace(parts[0])
}

func underscoresToColons(s string) string {
	s = strings.ReplaceAll(s, "_ ", ": ")
	return strings.ReplaceAll(s, "_", ": ")
}

// cleanTitle removes leftover metadata punctuation from a title
func cleanTitle(title string, authorFromSource bool) string {
	title = underscoresToColons(title)
	title = strings.ReplaceAll(title, ", Episode", ": Episode")

	if i := strings.Index(title, "("); i >= 0 && !strings.Contains(title[i:], ")") {
		title = title[:i]
	}
	if authorFromSource {
		if i := strings.Index(title, " -- "); i >= 0 {
			title = title[:i]
		}
	}
	return strings.TrimRight(strings.TrimSpace(title), " :-_,–—")
}

// authorInTitle reports whether the author, or their last name, already
// appears in the title
func authorInTitle(title, author string) bool {
	t := strings.ToLower(title)
	a := strings.ToLower(author)
	if strings.Contains(t, a) {
		return true
	}
	fields := strings.Fields(a)
	return len(fields) > 1 && strings.Contains(t, fields[len(fields)-1])
}
