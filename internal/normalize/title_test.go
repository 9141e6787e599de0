package normalize

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/vocabdeck/internal/worker"
)

type stubAuthors struct {
	authors map[string]string
	asked   []string
}

func (s *stubAuthors) Resolve(_ context.Context, title string) (string, bool) {
	s.asked = append(s.asked, title)
	a, ok := s.authors[title]
	return a, ok
}

func TestLookupKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dune, Episode III-", "dune episode iii"},
		{"Dune, Episode III:", "dune episode iii"},
		{"  dune   episode iii ", "dune episode iii"},
		{"Sapiens_ A Brief History", "sapiens a brief history"},
		{"Foo – Bar — Baz", "foo bar baz"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LookupKey(tt.in), tt.in)
	}
}

func TestNormalize_VariantsConverge(t *testing.T) {
	ctx := context.Background()
	n := NewTitleNormalizer(NewRunContext(), nil)

	first := n.Normalize(ctx, "Dune, Episode III-", "Frank Herbert")
	assert.Equal(t, "Dune: Episode III — Frank Herbert", first)
	assert.Equal(t, first, n.Normalize(ctx, "Dune, Episode III:", "Frank Herbert"))
	assert.Equal(t, first, n.Normalize(ctx, "dune episode iii", "Frank Herbert"))
}

func TestNormalize_VariantRendersSameInFreshContext(t *testing.T) {
	ctx := context.Background()
	a := NewTitleNormalizer(NewRunContext(), nil).Normalize(ctx, "Dune, Episode III-", "Frank Herbert")
	b := NewTitleNormalizer(NewRunContext(), nil).Normalize(ctx, "Dune, Episode III:", "Frank Herbert")
	assert.Equal(t, a, b)
}

func TestNormalize_FirstWriteWins(t *testing.T) {
	ctx := context.Background()
	n := NewTitleNormalizer(NewRunContext(), nil)

	assert.Equal(t, "The Hobbit", n.Normalize(ctx, "The Hobbit", ""))
	// A later, more complete variant does not replace the memoized rendering.
	assert.Equal(t, "The Hobbit", n.Normalize(ctx, "the hobbit", "J. R. R. Tolkien"))
}

func TestNormalize_AuthorRules(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		author string
		want   string
	}{
		{"double hyphen takes second segment", "Dune -- Frank Herbert -- Ace Books", "", "Dune — Frank Herbert"},
		{"em dash splits from the right", "Foo — Bar — Jane Roe", "", "Foo — Bar — Jane Roe"},
		{"single hyphen", "Dune - Frank Herbert", "", "Dune — Frank Herbert"},
		{"source author strips embedded author", "Dune - F. Herbert", "Frank Herbert", "Dune — Frank Herbert"},
		{"last first reordered", "Children of Dune", "Herbert, Frank", "Children of Dune — Frank Herbert"},
		{"author already in title", "Stephen King's On Writing", "Stephen King", "Stephen King's On Writing"},
		{"last name already in title", "Austen's Letters", "Jane Austen", "Austen's Letters"},
		{"unknown source author ignored", "Dune - Frank Herbert", "Unknown", "Dune — Frank Herbert"},
		{"no author at all", "the lord of the rings", "", "The Lord of the Rings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewTitleNormalizer(NewRunContext(), nil)
			assert.Equal(t, tt.want, n.Normalize(context.Background(), tt.title, tt.author))
		})
	}
}

func TestNormalize_EmptyTitleAfterCleanup(t *testing.T) {
	ctx := context.Background()
	n := NewTitleNormalizer(NewRunContext(), nil)

	assert.Equal(t, "Jane Roe", n.Normalize(ctx, "__ — Jane Roe", ""))
	assert.Equal(t, "(", n.Normalize(ctx, "(", ""))
}

func TestNormalize_Cleanup(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		author string
		want   string
	}{
		{"underscore becomes colon", "Sapiens_ A Brief History of Humankind", "Yuval Noah Harari", "Sapiens: A Brief History of Humankind — Yuval Noah Harari"},
		{"unclosed parenthesis truncates", "Meditations (Penguin Classics", "Marcus Aurelius", "Meditations — Marcus Aurelius"},
		{"closed parenthesis kept", "Meditations (Annotated)", "Marcus Aurelius", "Meditations (annotated) — Marcus Aurelius"},
		{"trailing metadata dropped with source author", "Dune -- Frank Herbert -- Ace", "Frank Herbert", "Dune — Frank Herbert"},
		{"roman numerals in author", "The Papers", "John Smith iii", "The Papers — John Smith III"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewTitleNormalizer(NewRunContext(), nil)
			assert.Equal(t, tt.want, n.Normalize(context.Background(), tt.title, tt.author))
		})
	}
}

func TestNormalize_UnknownSentinel(t *testing.T) {
	n := NewTitleNormalizer(NewRunContext(), nil)
	assert.Equal(t, "Unknown", n.Normalize(context.Background(), "Unknown", "Someone"))
	assert.Equal(t, "", n.Normalize(context.Background(), "   ", ""))
}

func TestNormalize_UsesAuthorLookupLast(t *testing.T) {
	ctx := context.Background()
	lookup := &stubAuthors{authors: map[string]string{"Ancillary: Justice": "Ann Leckie"}}
	n := NewTitleNormalizer(NewRunContext(), lookup)

	assert.Equal(t, "Ancillary: Justice — Ann Leckie", n.Normalize(ctx, "Ancillary_Justice", ""))
	require.Len(t, lookup.asked, 1)
	assert.Equal(t, "Ancillary: Justice", lookup.asked[0])

	n.Normalize(ctx, "Leviathan Wakes", "James S. A. Corey")
	n.Normalize(ctx, "Caliban's War - James S. A. Corey", "")
	assert.Len(t, lookup.asked, 1, "lookup is only used when no author is known")
}

func TestNormalize_SeededTitleWins(t *testing.T) {
	rc := NewRunContext()
	rc.Seed("Dune: Episode III — Frank Herbert", "dune episode iii")
	n := NewTitleNormalizer(rc, nil)

	assert.Equal(t, "Dune: Episode III — Frank Herbert", n.Normalize(context.Background(), "Dune, Episode III-", ""))
	assert.Equal(t, 2, rc.TitleCount())
}

type lockedAuthors struct {
	mu    sync.Mutex
	inner *stubAuthors
}

func (l *lockedAuthors) Resolve(ctx context.Context, title string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Resolve(ctx, title)
}

func TestPrewarm_OnlyQueriesMissingAuthors(t *testing.T) {
	lookup := &lockedAuthors{inner: &stubAuthors{authors: map[string]string{"Ancillary: Justice": "Ann Leckie"}}}
	rc := NewRunContext()
	rc.Seed("Dune — Frank Herbert", "dune")
	n := NewTitleNormalizer(rc, lookup)

	books := []Book{
		{Title: "Ancillary_Justice"},
		{Title: "ancillary_justice"},
		{Title: "Leviathan Wakes", Author: "James S. A. Corey"},
		{Title: "Caliban's War - James S. A. Corey"},
		{Title: "Dune"},
		{Title: "Unknown"},
		{Title: "Solaris"},
	}
	queried, resolved := n.Prewarm(context.Background(), worker.NewPool(3), books)

	assert.Equal(t, 2, queried)
	assert.Equal(t, 1, resolved)
	assert.ElementsMatch(t, []string{"Ancillary: Justice", "Solaris"}, lookup.inner.asked)
	assert.Equal(t, 2, rc.TitleCount(), "prewarm does not store display titles")
}

func TestPrewarm_NoLookup(t *testing.T) {
	n := NewTitleNormalizer(NewRunContext(), nil)
	queried, resolved := n.Prewarm(context.Background(), worker.NewPool(2), []Book{{Title: "Solaris"}})
	assert.Zero(t, queried)
	assert.Zero(t, resolved)
}
