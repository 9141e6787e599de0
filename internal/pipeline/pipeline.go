// Package pipeline drives vocabulary lookups through lemmatization, the
// card-cache filter and batched annotation into the card cache.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/ppiankov/vocabdeck/internal/cache"
	"github.com/ppiankov/vocabdeck/internal/lemma"
	"github.com/ppiankov/vocabdeck/internal/llm"
	"github.com/ppiankov/vocabdeck/internal/logging"
	"github.com/ppiankov/vocabdeck/internal/model"
	"github.com/ppiankov/vocabdeck/internal/normalize"
	"github.com/ppiankov/vocabdeck/internal/source"
	"github.com/ppiankov/vocabdeck/internal/store"
	"github.com/ppiankov/vocabdeck/internal/worker"
)

// Source yields the vocabulary lookups for a run
type Source interface {
	Items(ctx context.Context) ([]model.VocabularyItem, error)
}

// Options wires the collaborators of a Pipeline
type Options struct {
	Provider  llm.Provider     // Annotation service; may be nil for dry runs
	Cards     *store.CardCache // Required
	CachePath string           // Cards is saved here after every merged batch; "" disables saving
	Lemmas    *lemma.Resolver  // nil falls back to lowercasing
	Archive   *cache.Archive   // Raw exchange archive; nil disables it
	Errors    *logging.ErrorLog
	Log       zerolog.Logger
	RunID     string
}

// Pipeline orchestrates one annotation run
type Pipeline struct {
	cfg       model.Config
	provider  *meteredProvider
	cards     *store.CardCache
	cachePath string
	lemmas    *lemma.Resolver
	rc        *normalize.RunContext
	titles    *normalize.TitleNormalizer
	pool      *worker.Pool
	limiter   *worker.Limiter
	archive   *cache.Archive
	errors    *logging.ErrorLog
	log       zerolog.Logger
	runID     string
	state     State
}

// New creates a pipeline. Persisted book titles in opts.Cards are seeded
// into the run's title memo before anything else is normalized.
func New(cfg model.Config, opts Options) *Pipeline {
	rc := normalize.NewRunContext()
	opts.Cards.SeedTitles(rc)

	limiter := worker.NewLimiter(cfg.Batch.Delay)

	var provider *meteredProvider
	var authors normalize.AuthorLookup
	if opts.Provider != nil {
		provider = &meteredProvider{Provider: opts.Provider}
		if cfg.LLM.ResolveAuthors && !cfg.DryRun {
			paced := &pacedProvider{Provider: provider, limiter: limiter}
			authors = normalize.NewAuthorResolver(paced, rc, opts.Log)
		}
	}

	lemmas := opts.Lemmas
	if lemmas == nil {
		lemmas = lemma.NewResolver()
	}
	errs := opts.Errors
	if errs == nil {
		errs = logging.NopErrorLog()
	}

	return &Pipeline{
		cfg:       cfg,
		provider:  provider,
		cards:     opts.Cards,
		cachePath: opts.CachePath,
		lemmas:    lemmas,
		rc:        rc,
		titles:    normalize.NewTitleNormalizer(rc, authors),
		pool:      worker.NewPool(cfg.LLM.AuthorWorkers),
		limiter:   limiter,
		archive:   opts.Archive,
		errors:    errs,
		log:       opts.Log,
		runID:     opts.RunID,
		state:     StateIdle,
	}
}

// Run processes every configured language. A quota abort is not an error:
// it ends the run early with the summary in StateAborted. Errors are
// returned for an unavailable source or service, a failed cache save and
// cancellation.
func (p *Pipeline) Run(ctx context.Context, src Source) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: p.runID, DryRun: p.cfg.DryRun}
	defer func() {
		sum.State = p.state
		sum.Elapsed = time.Since(start)
		sum.Titles = p.rc.TitleCount()
		if p.provider != nil {
			sum.APICalls = p.provider.calls.Load()
		}
	}()

	// 1. Load the vocabulary source
	p.setState(StateLoading)
	items, err := src.Items(ctx)
	if err != nil {
		if !errors.Is(err, source.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %v", source.ErrSourceUnavailable, err)
		}
		p.errors.Record(logging.KindSourceUnavailable).Err(err).Msg("vocabulary source unavailable")
		p.abort(sum, err.Error())
		return sum, err
	}
	p.log.Info().Int("items", len(items)).Msg("vocabulary loaded")

	// 2. Make sure the service answers before spending any work on it
	if !p.cfg.DryRun {
		if p.provider == nil {
			p.abort(sum, "no annotation service configured")
			return sum, fmt.Errorf("%w: none configured", ErrProviderUnavailable)
		}
		if !p.provider.IsAvailable(ctx) {
			p.abort(sum, p.provider.Name()+" unavailable")
			return sum, fmt.Errorf("%w: %s", ErrProviderUnavailable, p.provider.Name())
		}
	}

	// 3. One pass per language, target language first
	for _, lang := range p.cfg.Languages() {
		ls, err := p.runLanguage(ctx, items, lang, sum)
		sum.Languages = append(sum.Languages, ls)
		if err != nil {
			return sum, err
		}
	}

	if p.state != StateAborted {
		p.setState(StateDone)
	}
	return sum, nil
}

func (p *Pipeline) runLanguage(ctx context.Context, items []model.VocabularyItem, lang string, sum *Summary) (LanguageSummary, error) {
	ls := LanguageSummary{Language: lang}
	log := p.log.With().Str("language", lang).Logger()

	p.setState(StateChunking)
	pending := p.collect(items, lang, &ls)
	batches := chunk(pending, p.cfg.Batch.Size)
	ls.Batches = len(batches)

	if p.state == StateAborted {
		ls.SkippedQuota = len(pending)
		return ls, nil
	}
	if p.cfg.DryRun {
		log.Info().Int("pending", ls.Pending).Int("batches", ls.Batches).Msg("dry run, no requests sent")
		return ls, nil
	}
	if len(pending) == 0 {
		log.Info().Int("cached", ls.SkippedCached).Msg("nothing new to annotate")
		return ls, nil
	}

	p.attachBooks(ctx, pending)
	log.Info().Int("pending", ls.Pending).Int("batches", ls.Batches).Msg("annotating")

	for i, batch := range batches {
		n := i + 1
		if p.state == StateAborted {
			ls.SkippedQuota += len(batch)
			continue
		}

		res := p.runBatch(ctx, lang, n, batch)
		if err := ctx.Err(); err != nil {
			p.abort(sum, "canceled")
			ls.SkippedQuota += len(batch)
			return ls, err
		}

		switch res.Outcome {
		case Success:
			if err := p.merge(lang, n, batch, res.Objects, &ls); err != nil {
				p.abort(sum, err.Error())
				return ls, err
			}
			log.Info().Int("batch", n).Int("of", len(batches)).Int("merged", ls.Merged).Msg("batch merged")

		case RetryableFailure:
			ls.FailedBatches++
			ls.Abandoned += len(batch)
			p.errors.Record(logging.KindBatchAbandoned).Err(res.Err).
				Str("language", lang).Int("batch", n).Int("attempts", res.Attempts).Int("words", len(batch)).
				Msg("batch abandoned after retries")
			log.Warn().Err(res.Err).Int("batch", n).Int("attempts", res.Attempts).Msg("batch abandoned")

		case FatalAbort:
			ls.SkippedQuota += len(batch)
			p.errors.Record(logging.KindQuotaExceeded).Err(res.Err).
				Str("language", lang).Int("batch", n).
				Msg("quota exceeded, remaining batches skipped")
			log.Error().Err(res.Err).Int("batch", n).Msg("quota exceeded, aborting run")
			p.abort(sum, res.Err.Error())
		}
	}
	return ls, nil
}

// collect lemmatizes the lookups of lang and keeps the first occurrence
// of every lemma that is not cached yet
func (p *Pipeline) collect(items []model.VocabularyItem, lang string, ls *LanguageSummary) []model.PendingItem {
	seen := make(map[string]bool)
	var pending []model.PendingItem
	for _, it := range items {
		if model.NormalizeLanguage(it.Language) != lang {
			continue
		}
		ls.Items++

		word := strings.TrimSpace(it.Word)
		if word == "" {
			ls.Invalid++
			continue
		}
		lem := p.lemmas.Resolve(word, lang)
		if p.cfg.SkipTranslated && p.cards.IsTranslated(lem, lang) {
			ls.SkippedCached++
			continue
		}
		key := model.LemmaKey(lem)
		if seen[key] {
			ls.Duplicates++
			continue
		}
		seen[key] = true

		it.Word = word
		it.Language = lang
		pending = append(pending, model.PendingItem{VocabularyItem: it, Lemma: lem})
	}
	ls.Pending = len(pending)
	return pending
}

// attachBooks resolves the display title of every pending item
func (p *Pipeline) attachBooks(ctx context.Context, pending []model.PendingItem) {
	books := make([]normalize.Book, len(pending))
	for i, it := range pending {
		books[i] = normalize.Book{Title: it.BookTitle, Author: it.Authors}
	}
	if queried, resolved := p.titles.Prewarm(ctx, p.pool, books); queried > 0 {
		p.log.Debug().Int("titles", queried).Int("resolved", resolved).Int("workers", p.pool.Workers()).Msg("author lookups done")
	}

	for i := range pending {
		it := &pending[i]
		it.Book = p.titles.Normalize(ctx, it.BookTitle, it.Authors)
		if it.Book == "" || normalize.IsUnknown(it.Book) {
			it.Book = model.UnknownBook
			continue
		}
		it.BookKey = normalize.LookupKey(it.BookTitle)
	}
}

// batchResult is what one batch produced after all attempts
type batchResult struct {
	Outcome  Outcome
	Objects  []map[string]any
	Attempts int
	Err      error
}

// runBatch requests annotations for batch, retrying parse and transport
// failures with a fixed delay. Quota errors are never retried.
func (p *Pipeline) runBatch(ctx context.Context, lang string, n int, batch []model.PendingItem) batchResult {
	prompt := BuildPrompt(batch, lang, p.cfg.NativeLanguage)
	req := llm.CompletionRequest{Prompt: prompt, System: systemPrompt, JSON: true}

	var res batchResult
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if err := p.limiter.Wait(ctx, p.provider.Name()); err != nil {
			return backoff.Permanent(err)
		}
		res.Attempts++

		p.setState(StateRequesting)
		resp, err := p.provider.Complete(ctx, req)
		var text string
		if resp != nil {
			text = resp.Text
		}
		p.archiveExchange(lang, n, res.Attempts, prompt, text, err)

		if err == nil {
			p.setState(StateParsing)
			res.Objects, err = ParseResponse(text)
		}

		switch Classify(err) {
		case Success:
			return nil
		case FatalAbort:
			return backoff.Permanent(err)
		default:
			kind := logging.KindTransport
			if errors.Is(err, ErrParseFailure) {
				kind = logging.KindParseFailure
			}
			p.errors.Record(kind).Err(err).
				Str("language", lang).Int("batch", n).Int("attempt", res.Attempts).
				Msg("attempt failed")
			return err
		}
	}

	retries := uint64(max(p.cfg.Batch.MaxRetries, 1) - 1)
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.cfg.Batch.RetryDelay), retries),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		p.log.Warn().Err(err).Str("language", lang).Int("batch", n).
			Int("attempt", res.Attempts).Dur("retry_in", wait).Msg("retrying batch")
	}

	res.Err = backoff.RetryNotify(op, policy, notify)
	res.Outcome = Classify(res.Err)
	return res
}

// merge matches reply objects to batch items by position and stores the
// resulting cards. Extra reply objects are ignored.
func (p *Pipeline) merge(lang string, n int, batch []model.PendingItem, objs []map[string]any, ls *LanguageSummary) error {
	p.setState(StateMerging)

	matched := min(len(objs), len(batch))
	for _, it := range batch[matched:] {
		ls.Unmatched++
		p.errors.Record(logging.KindUnmatched).
			Str("language", lang).Int("batch", n).Str("word", it.Word).Str("lemma", it.Lemma).
			Msg("reply had no item for word")
	}
	if matched < len(batch) {
		p.log.Warn().Str("language", lang).Int("batch", n).
			Int("requested", len(batch)).Int("received", len(objs)).Msg("short reply")
	}

	cards := make([]model.Card, 0, matched)
	for i := 0; i < matched; i++ {
		card, err := p.buildCard(batch[i], objs[i], lang)
		if err != nil {
			ls.Invalid++
			p.errors.Record(logging.KindValidation).Err(err).
				Str("language", lang).Int("batch", n).Str("word", batch[i].Word).
				Msg("card dropped")
			continue
		}
		cards = append(cards, card)
	}

	res := p.cards.Add(cards, batch[:matched], lang, p.cfg.NativeLanguage)
	ls.Merged += res.Added
	ls.Duplicates += res.Duplicates
	ls.Invalid += res.Rejected
	for _, err := range res.Errors {
		p.errors.Record(logging.KindValidation).Err(err).
			Str("language", lang).Int("batch", n).Msg("card rejected by cache")
	}

	if p.cachePath == "" {
		return nil
	}
	if err := p.cards.Save(p.cachePath); err != nil {
		p.errors.Record(logging.KindSaveFailure).Err(err).Str("path", p.cachePath).Msg("cache save failed")
		return fmt.Errorf("save cache: %w", err)
	}
	return nil
}

func (p *Pipeline) archiveExchange(lang string, batch, attempt int, prompt, text string, err error) {
	if p.archive == nil {
		return
	}
	ex := cache.Exchange{
		Provider: p.provider.Name(),
		Model:    p.cfg.LLM.Model,
		Language: lang,
		Batch:    batch,
		Attempt:  attempt,
		Prompt:   prompt,
		Response: text,
	}
	if err != nil {
		ex.Error = err.Error()
	}
	if _, werr := p.archive.Put(ex); werr != nil {
		p.log.Warn().Err(werr).Msg("could not archive exchange")
	}
}

func (p *Pipeline) setState(s State) {
	if p.state == StateAborted || p.state == s {
		return
	}
	p.log.Debug().Str("from", string(p.state)).Str("to", string(s)).Msg("state")
	p.state = s
}

func (p *Pipeline) abort(sum *Summary, reason string) {
	p.setState(StateAborted)
	if sum.AbortReason == "" {
		sum.AbortReason = reason
	}
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	return slices.Collect(slices.Chunk(items, size))
}

// pacedProvider makes every call wait on the limiter slot the batches use,
// so author votes share the request spacing
type pacedProvider struct {
	llm.Provider
	limiter *worker.Limiter
}

func (p *pacedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := p.limiter.Wait(ctx, p.Name()); err != nil {
		return nil, err
	}
	return p.Provider.Complete(ctx, req)
}

// meteredProvider counts calls to the annotation service
type meteredProvider struct {
	llm.Provider
	calls atomic.Int64
}

func (m *meteredProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.calls.Add(1)
	return m.Provider.Complete(ctx, req)
}
