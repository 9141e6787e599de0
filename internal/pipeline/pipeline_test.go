package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/vocabdeck/internal/cache"
	"github.com/ppiankov/vocabdeck/internal/llm"
	"github.com/ppiankov/vocabdeck/internal/logging"
	"github.com/ppiankov/vocabdeck/internal/model"
	"github.com/ppiankov/vocabdeck/internal/source"
	"github.com/ppiankov/vocabdeck/internal/store"
	"github.com/ppiankov/vocabdeck/internal/worker"
)

type reply struct {
	text string
	err  error
}

// fakeService plays scripted replies in order, then answers every prompt
// with one valid object per requested word
type fakeService struct {
	mu          sync.Mutex
	script      []reply
	unavailable bool
	prompts     []string
}

var wordLine = regexp.MustCompile(`(?m)^\d+\. Word: (.+)$`)

func (f *fakeService) Name() string { return "fake" }

func (f *fakeService) IsAvailable(context.Context) bool { return !f.unavailable }

func (f *fakeService) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Prompt)

	if len(f.script) > 0 {
		r := f.script[0]
		f.script = f.script[1:]
		if r.err != nil {
			return nil, r.err
		}
		return &llm.CompletionResponse{Text: r.text}, nil
	}
	return &llm.CompletionResponse{Text: validReply(len(wordLine.FindAllString(req.Prompt, -1)))}, nil
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func validReply(n int) string {
	objs := make([]map[string]any, n)
	for i := range objs {
		objs[i] = map[string]any{
			"EN_definition": fmt.Sprintf("definition %d", i+1),
			"DE_gloss":      fmt.Sprintf("Übersetzung %d", i+1),
			"ambiguity":     "low",
			"notes":         "note",
		}
	}
	data, _ := json.Marshal(objs)
	return string(data)
}

func languageOf(sum *Summary, lang string) (LanguageSummary, bool) {
	for _, ls := range sum.Languages {
		if ls.Language == lang {
			return ls, true
		}
	}
	return LanguageSummary{}, false
}

type staticSource struct {
	items []model.VocabularyItem
	err   error
}

func (s staticSource) Items(context.Context) ([]model.VocabularyItem, error) {
	return s.items, s.err
}

func englishItems(words ...string) []model.VocabularyItem {
	items := make([]model.VocabularyItem, len(words))
	for i, w := range words {
		items[i] = model.VocabularyItem{
			ID:        "en:" + w,
			Word:      w,
			Language:  "en",
			Usage:     "It was a " + w + " indeed.",
			BookTitle: "Dune, Episode III-",
			Authors:   "Herbert, Frank",
		}
	}
	return items
}

func testConfig() model.Config {
	cfg := model.DefaultConfig()
	cfg.Batch.Delay = 0
	cfg.Batch.RetryDelay = time.Millisecond
	cfg.Decks.NativeToNative = false
	cfg.LLM.ResolveAuthors = false
	return cfg
}

type harness struct {
	cfg       model.Config
	svc       *fakeService
	cards     *store.CardCache
	cachePath string
	errBuf    *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	return &harness{
		cfg:       testConfig(),
		svc:       &fakeService{},
		cards:     store.New(),
		cachePath: filepath.Join(t.TempDir(), "cache", "translated_cache.json"),
		errBuf:    &bytes.Buffer{},
	}
}

func (h *harness) run(t *testing.T, items []model.VocabularyItem) *Summary {
	t.Helper()
	sum, err := h.pipeline(Options{}).Run(context.Background(), staticSource{items: items})
	require.NoError(t, err)
	return sum
}

func (h *harness) pipeline(extra Options) *Pipeline {
	opts := Options{
		Provider:  h.svc,
		Cards:     h.cards,
		CachePath: h.cachePath,
		Errors:    logging.NewErrorLog(h.errBuf, "test-run"),
		Log:       zerolog.Nop(),
		RunID:     "test-run",
		Archive:   extra.Archive,
	}
	return New(h.cfg, opts)
}

func (h *harness) errorKinds(t *testing.T) []string {
	t.Helper()
	var kinds []string
	for _, line := range strings.Split(strings.TrimSpace(h.errBuf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		kinds = append(kinds, entry["kind"].(string))
	}
	return kinds
}

func TestRun_MergesAndSaves(t *testing.T) {
	h := newHarness(t)
	sum := h.run(t, englishItems("pity", "wane", "gloam"))

	assert.Equal(t, StateDone, sum.State)
	assert.EqualValues(t, 1, sum.APICalls)
	en, ok := languageOf(sum, "en")
	require.True(t, ok)
	assert.Equal(t, 3, en.Pending)
	assert.Equal(t, 3, en.Merged)

	card, ok := h.cards.Get("pity", "en")
	require.True(t, ok)
	assert.Equal(t, "en:pity", card.WordID)
	assert.Equal(t, "definition 1", card.Definition)
	assert.Equal(t, "Übersetzung 1", card.Gloss)
	assert.Equal(t, "It was a <b>pity</b> indeed.", card.ContextHTML)
	assert.Equal(t, "note", card.Notes)
	assert.Equal(t, "Dune: Episode III — Frank Herbert", card.Book)

	loaded, _, err := store.Load(h.cachePath)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Stats().Total)

	prompt := h.svc.prompts[0]
	assert.Contains(t, prompt, "1. Word: pity")
	assert.Contains(t, prompt, "EN_definition")
	assert.Contains(t, prompt, "DE_gloss")
	assert.Contains(t, prompt, "Book: Dune: Episode III — Frank Herbert")
}

func TestRun_PartialReplyMergesMatchedPrefix(t *testing.T) {
	h := newHarness(t)
	h.svc.script = []reply{{text: validReply(3)}}

	sum := h.run(t, englishItems("one", "two", "three", "four", "five"))

	en, _ := languageOf(sum, "en")
	assert.Equal(t, 3, en.Merged)
	assert.Equal(t, 2, en.Unmatched)
	assert.Equal(t, 0, en.FailedBatches)
	assert.Equal(t, StateDone, sum.State)

	for _, w := range []string{"one", "two", "three"} {
		assert.True(t, h.cards.IsTranslated(w, "en"), w)
	}
	assert.False(t, h.cards.IsTranslated("four", "en"))
	assert.Equal(t, []string{"unmatched_item", "unmatched_item"}, h.errorKinds(t))
}

func TestRun_ExtraReplyItemsIgnored(t *testing.T) {
	h := newHarness(t)
	h.svc.script = []reply{{text: validReply(4)}}

	sum := h.run(t, englishItems("one", "two"))

	en, _ := languageOf(sum, "en")
	assert.Equal(t, 2, en.Merged)
	assert.Equal(t, 0, en.Unmatched)
}

func TestRun_QuotaAbortsRemainingBatches(t *testing.T) {
	h := newHarness(t)
	h.cfg.Batch.Size = 2
	h.cfg.Decks.NativeToNative = true
	h.svc.script = []reply{
		{text: validReply(2)},
		{err: errors.New("googleapi: Error 429: Resource has been exhausted (e.g. check quota)")},
	}

	items := englishItems("one", "two", "three", "four", "five")
	items = append(items, model.VocabularyItem{ID: "de:Weg", Word: "Weg", Language: "de"})
	sum := h.run(t, items)

	assert.True(t, sum.Aborted())
	assert.Contains(t, sum.AbortReason, "429")
	assert.EqualValues(t, 2, sum.APICalls, "quota errors are not retried")

	en, _ := languageOf(sum, "en")
	assert.Equal(t, 2, en.Merged)
	assert.Equal(t, 3, en.SkippedQuota)

	de, ok := languageOf(sum, "de")
	require.True(t, ok)
	assert.Equal(t, 1, de.SkippedQuota)
	assert.Equal(t, 0, de.Merged)

	// Work merged before the abort stays committed.
	loaded, _, err := store.Load(h.cachePath)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Stats().Total)
	assert.Contains(t, h.errorKinds(t), "quota_exceeded")
}

func TestRun_TypedQuotaError(t *testing.T) {
	h := newHarness(t)
	h.svc.script = []reply{{err: fmt.Errorf("fake: %w", llm.ErrQuotaExceeded)}}

	sum := h.run(t, englishItems("one"))

	assert.True(t, sum.Aborted())
	assert.EqualValues(t, 1, sum.APICalls)
}

func TestRun_RetryThenSuccess(t *testing.T) {
	h := newHarness(t)
	h.svc.script = []reply{{text: "Sorry, I cannot help with that."}}

	sum := h.run(t, englishItems("one", "two"))

	en, _ := languageOf(sum, "en")
	assert.Equal(t, 2, en.Merged)
	assert.Equal(t, 0, en.FailedBatches)
	assert.EqualValues(t, 2, sum.APICalls)
	assert.Equal(t, []string{"annotation_parse_failure"}, h.errorKinds(t))
}

func TestRun_TransportErrorRetried(t *testing.T) {
	h := newHarness(t)
	h.svc.script = []reply{{err: errors.New("connection reset by peer")}}

	sum := h.run(t, englishItems("one"))

	en, _ := languageOf(sum, "en")
	assert.Equal(t, 1, en.Merged)
	assert.EqualValues(t, 2, sum.APICalls)
	assert.Equal(t, []string{"transport_failure"}, h.errorKinds(t))
}

func TestRun_MalformedRepliesExhaustRetries(t *testing.T) {
	h := newHarness(t)
	h.cfg.Batch.Size = 2
	h.cfg.Batch.MaxRetries = 3
	h.svc.script = []reply{{text: "oops"}, {text: `{"not": "an array"}`}, {text: "```json\n[{\"EN_definition\": \n```"}}

	sum := h.run(t, englishItems("one", "two", "three"))

	en, _ := languageOf(sum, "en")
	assert.Equal(t, 1, en.FailedBatches)
	assert.Equal(t, 2, en.Abandoned)
	assert.Equal(t, 1, en.Merged, "the next batch still runs")
	assert.EqualValues(t, 4, sum.APICalls)
	assert.Equal(t, StateDone, sum.State)
	assert.False(t, h.cards.IsTranslated("one", "en"))
	assert.True(t, h.cards.IsTranslated("three", "en"))
}

func TestRun_SecondRunMakesNoCalls(t *testing.T) {
	h := newHarness(t)
	items := englishItems("pity", "wane", "gloam")
	h.run(t, items)
	require.Equal(t, 1, h.svc.calls())

	loaded, _, err := store.Load(h.cachePath)
	require.NoError(t, err)
	second := &harness{cfg: h.cfg, svc: &fakeService{}, cards: loaded, cachePath: h.cachePath, errBuf: &bytes.Buffer{}}

	sum := second.run(t, items)

	assert.Equal(t, 0, second.svc.calls())
	assert.EqualValues(t, 0, sum.APICalls)
	en, _ := languageOf(sum, "en")
	assert.Equal(t, 3, en.SkippedCached)
	assert.Equal(t, 0, en.Pending)
}

func TestRun_DuplicateLemmasCollapsed(t *testing.T) {
	h := newHarness(t)
	sum := h.run(t, englishItems("Pity", "pity"))

	en, _ := languageOf(sum, "en")
	assert.Equal(t, 1, en.Pending)
	assert.Equal(t, 1, en.Duplicates)
	assert.Equal(t, 1, en.Merged)

	card, ok := h.cards.Get("pity", "en")
	require.True(t, ok)
	assert.Equal(t, "en:pity", card.WordID)
	assert.Equal(t, "Pity", card.OriginalWord, "first occurrence supplies the surface form")
	assert.Equal(t, 1, h.cards.Stats().Total)
}

func TestRun_InvalidCardsDropped(t *testing.T) {
	h := newHarness(t)
	h.svc.script = []reply{{text: `[{"EN_definition": "a feeling"}, {"EN_definition": "to decline", "DE_gloss": "abnehmen"}]`}}

	sum := h.run(t, englishItems("pity", "wane"))

	en, _ := languageOf(sum, "en")
	assert.Equal(t, 1, en.Invalid)
	assert.Equal(t, 1, en.Merged)
	assert.False(t, h.cards.IsTranslated("pity", "en"))
	assert.Contains(t, h.errorKinds(t), "validation_failure")
}

func TestRun_NativeCardsNeedNoGloss(t *testing.T) {
	h := newHarness(t)
	h.cfg.Decks = model.DecksConfig{NativeToNative: true}
	h.svc.script = []reply{{text: `[{"DE_definition": "Strecke, Pfad"}]`}}

	sum := h.run(t, []model.VocabularyItem{{ID: "de:Weg", Word: "Weg", Language: "de", Usage: "Der Weg ist lang."}})

	de, _ := languageOf(sum, "de")
	assert.Equal(t, 1, de.Merged)
	card, ok := h.cards.Get("weg", "de")
	require.True(t, ok)
	assert.Empty(t, card.Gloss)
	assert.Equal(t, "Der <b>Weg</b> ist lang.", card.ContextHTML)
	assert.Equal(t, model.UnknownBook, card.Book)
}

func TestRun_DryRun(t *testing.T) {
	h := newHarness(t)
	h.cfg.DryRun = true
	h.cfg.Batch.Size = 2

	sum := h.run(t, englishItems("one", "two", "three"))

	assert.True(t, sum.DryRun)
	assert.Equal(t, 0, h.svc.calls())
	en, _ := languageOf(sum, "en")
	assert.Equal(t, 3, en.Pending)
	assert.Equal(t, 2, en.Batches)
	assert.Equal(t, 0, h.cards.Stats().Total)
	_, err := os.Stat(h.cachePath)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_SourceUnavailable(t *testing.T) {
	h := newHarness(t)
	sum, err := h.pipeline(Options{}).Run(context.Background(), staticSource{err: errors.New("disk on fire")})

	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrSourceUnavailable)
	assert.Equal(t, StateAborted, sum.State)
	assert.Equal(t, 0, h.svc.calls())
	assert.Equal(t, []string{"source_unavailable"}, h.errorKinds(t))
}

func TestRun_ProviderUnavailable(t *testing.T) {
	h := newHarness(t)
	h.svc.unavailable = true

	_, err := h.pipeline(Options{}).Run(context.Background(), staticSource{items: englishItems("one")})

	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 0, h.svc.calls())
}

func TestRun_Canceled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := h.pipeline(Options{}).Run(ctx, staticSource{items: englishItems("one")})

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, sum.Aborted())
	assert.Equal(t, 0, h.svc.calls())
}

func TestRun_ArchivesExchanges(t *testing.T) {
	h := newHarness(t)
	h.svc.script = []reply{{text: "garbage"}}
	archive := cache.NewArchive(filepath.Join(t.TempDir(), "raw"))

	_, err := h.pipeline(Options{Archive: archive}).Run(context.Background(), staticSource{items: englishItems("one")})
	require.NoError(t, err)

	exchanges, err := archive.List()
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	for _, ex := range exchanges {
		assert.Equal(t, "fake", ex.Provider)
		assert.Equal(t, "en", ex.Language)
		assert.Contains(t, ex.Prompt, "1. Word: one")
	}
}

func TestRun_ResolvesMissingAuthors(t *testing.T) {
	h := newHarness(t)
	h.cfg.LLM.ResolveAuthors = true
	h.svc.script = []reply{{text: "Ann Leckie"}, {text: "Ann Leckie"}, {text: "Author: Ann Leckie"}}

	items := []model.VocabularyItem{{ID: "en:x", Word: "ancillary", Language: "en", BookTitle: "Ancillary_Justice", Authors: "Unknown"}}
	sum := h.run(t, items)

	en, _ := languageOf(sum, "en")
	require.Equal(t, 1, en.Merged)
	card, _ := h.cards.Get("ancillary", "en")
	assert.Equal(t, "Ancillary: Justice — Ann Leckie", card.Book)
	assert.EqualValues(t, 4, sum.APICalls, "three author votes and one batch")
	assert.Equal(t, 1, sum.Titles)
}

func TestRun_AuthorVotesShareBatchPacing(t *testing.T) {
	h := newHarness(t)
	h.cfg.LLM.ResolveAuthors = true
	h.cfg.LLM.AuthorWorkers = 3
	h.cfg.Batch.Delay = 25 * time.Millisecond
	for i := 0; i < 6; i++ {
		h.svc.script = append(h.svc.script, reply{text: "Ann Leckie"})
	}

	items := []model.VocabularyItem{
		{ID: "en:x", Word: "ancillary", Language: "en", BookTitle: "Ancillary_Justice", Authors: "Unknown"},
		{ID: "en:y", Word: "sword", Language: "en", BookTitle: "Ancillary_Sword", Authors: "Unknown"},
	}
	start := time.Now()
	sum := h.run(t, items)

	assert.EqualValues(t, 7, sum.APICalls, "six author votes and one batch")
	// Seven requests on one slot need at least six intervals.
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
}

func TestPacedProvider_Waits(t *testing.T) {
	svc := &fakeService{}
	paced := &pacedProvider{Provider: svc, limiter: worker.NewLimiter(40 * time.Millisecond)}

	start := time.Now()
	worker.NewPool(3).Each(context.Background(), 3, func(ctx context.Context, _ int) {
		_, err := paced.Complete(ctx, llm.CompletionRequest{Prompt: "who wrote it"})
		assert.NoError(t, err)
	})

	assert.Equal(t, 3, svc.calls())
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk([]int{}, 3))
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chunk([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1, 2, 3}}, chunk([]int{1, 2, 3}, 0))
}
