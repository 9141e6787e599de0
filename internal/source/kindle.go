// Package source reads vocabulary lookups from a Kindle vocab.db file.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/vocabdeck/internal/model"
)

// ErrSourceUnavailable means the vocabulary store is missing or unreadable
var ErrSourceUnavailable = errors.New("vocabulary source unavailable")

const lookupsQuery = `
SELECT
	w.id,
	w.word,
	w.lang,
	COALESCE(l.usage, ''),
	COALESCE(b.title, ''),
	COALESCE(b.authors, ''),
	COALESCE(w.timestamp, 0)
FROM WORDS w
LEFT JOIN LOOKUPS l ON w.id = l.word_key
LEFT JOIN BOOK_INFO b ON l.book_key = b.id
ORDER BY w.timestamp DESC`

// Kindle reads the WORDS/LOOKUPS/BOOK_INFO tables of a vocab.db file
type Kindle struct {
	path string
}

// NewKindle creates a reader for the database at path. Nothing is opened
// until Items is called.
func NewKindle(path string) *Kindle {
	return &Kindle{path: path}
}

// Path returns the database location
func (k *Kindle) Path() string {
	return k.path
}

// Items returns every lookup, most recent first. Rows without a book get
// the "Unknown" title.
func (k *Kindle) Items(ctx context.Context) ([]model.VocabularyItem, error) {
	if _, err := os.Stat(k.path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	db, err := sql.Open("sqlite", readOnlyDSN(k.path))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, k.path, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, lookupsQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrSourceUnavailable, k.path, err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.VocabularyItem
	for rows.Next() {
		var it model.VocabularyItem
		var lang sql.NullString
		if err := rows.Scan(&it.ID, &it.Word, &lang, &it.Usage, &it.BookTitle, &it.Authors, &it.LookedUpAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrSourceUnavailable, err)
		}
		it.Language = model.NormalizeLanguage(lang.String)
		it.Word = strings.TrimSpace(it.Word)
		it.Usage = strings.TrimSpace(it.Usage)
		if strings.TrimSpace(it.BookTitle) == "" {
			it.BookTitle = model.UnknownBook
		}
		if strings.TrimSpace(it.Authors) == "" {
			it.Authors = model.UnknownBook
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return items, nil
}

func readOnlyDSN(path string) string {
	return "file:" + path + "?mode=ro"
}
