package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/vocabdeck/internal/cache"
	"github.com/ppiankov/vocabdeck/internal/export"
	"github.com/ppiankov/vocabdeck/internal/lemma"
	"github.com/ppiankov/vocabdeck/internal/llm"
	"github.com/ppiankov/vocabdeck/internal/logging"
	"github.com/ppiankov/vocabdeck/internal/model"
	"github.com/ppiankov/vocabdeck/internal/pipeline"
	"github.com/ppiankov/vocabdeck/internal/source"
	"github.com/ppiankov/vocabdeck/internal/store"
)

var runNoExport bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Annotate new Kindle lookups and export decks",
	Long: `Read the Kindle vocabulary database, annotate every lemma that is not
in the card cache yet and export the enabled decks.

The card cache is saved after every merged batch, so an interrupted or
quota-limited run keeps everything it already paid for. Run the command
again later to continue where it stopped.

Examples:
  vocabdeck run
  vocabdeck run --db /Volumes/Kindle/system/vocabulary/vocab.db
  vocabdeck run --dry-run
  vocabdeck run --provider openai --model gpt-4o-mini --batch-size 10`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("dry-run", false, "count pending words without calling the annotation service")
	runCmd.Flags().String("db", "", "path to the Kindle vocab.db")
	runCmd.Flags().String("provider", "", "annotation service: google, openai, anthropic, ollama")
	runCmd.Flags().String("model", "", "model name for the annotation service")
	runCmd.Flags().Int("batch-size", 0, "words per request")
	runCmd.Flags().Bool("no-authors", false, "do not ask the service for missing book authors")
	runCmd.Flags().Bool("save-raw", false, "archive every prompt and reply")
	runCmd.Flags().BoolVar(&runNoExport, "no-export", false, "skip deck export after the run")

	// Bind flags to viper
	_ = viper.BindPFlag("dry_run", runCmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("paths.vocab_db", runCmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("llm.provider", runCmd.Flags().Lookup("provider"))
	_ = viper.BindPFlag("llm.model", runCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("batch.size", runCmd.Flags().Lookup("batch-size"))
	_ = viper.BindPFlag("llm.save_raw", runCmd.Flags().Lookup("save-raw"))
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noAuthors, _ := cmd.Flags().GetBool("no-authors"); noAuthors {
		cfg.LLM.ResolveAuthors = false
	}

	log := newLogger(cfg)
	runID := uuid.NewString()
	out := reportWriter(cmd)

	errLog, err := logging.OpenErrorLog(cfg.Paths.ErrorLog, runID)
	if err != nil {
		log.Warn().Err(err).Msg("error log unavailable, continuing without it")
		errLog = logging.NopErrorLog()
	}
	defer func() { _ = errLog.Close() }()

	printRunHeader(out, cfg)

	cards, info, err := store.Load(cfg.Paths.Cache)
	if err != nil {
		errLog.Record(logging.KindSaveFailure).Err(err).Str("path", cfg.Paths.Cache).Msg("card cache unreadable")
		return err
	}
	if info.Migrated > 0 || info.Dropped > 0 {
		log.Info().Int("migrated", info.Migrated).Int("dropped", info.Dropped).Msg("card cache migrated from legacy layout")
	}
	if info.Shadowed > 0 {
		log.Warn().Int("skipped", info.Shadowed).Msg("card cache holds case variants of the same lemma, keeping the first")
	}

	if !cfg.DryRun {
		backup, err := store.Backup(cfg.Paths.Cache, cfg.Paths.BackupDir, time.Now())
		if err != nil {
			return fmt.Errorf("backup card cache: %w", err)
		}
		if backup != "" {
			log.Debug().Str("path", backup).Msg("card cache backed up")
		}
	}

	lemmas, err := newLemmaResolver(cfg, log)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Cards:     cards,
		CachePath: cfg.Paths.Cache,
		Lemmas:    lemmas,
		Errors:    errLog,
		Log:       log,
		RunID:     runID,
	}
	if !cfg.DryRun {
		provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			return fmt.Errorf("%w: %v", pipeline.ErrProviderUnavailable, err)
		}
		opts.Provider = provider
	}
	if cfg.LLM.SaveRaw {
		opts.Archive = cache.NewArchive(cfg.Paths.ArchiveDir)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := source.NewKindle(cfg.Paths.VocabDB)
	log.Debug().Str("path", src.Path()).Str("run_id", runID).Msg("reading vocabulary")

	p := pipeline.New(cfg, opts)
	summary, runErr := p.Run(ctx, src)
	if summary != nil {
		printSummary(out, summary, cards)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return errors.New("interrupted, cards merged so far are saved")
		}
		return runErr
	}

	if cfg.DryRun || runNoExport {
		return nil
	}
	results, err := export.Export(cfg, cards)
	if err != nil {
		return err
	}
	printExport(out, results)
	return nil
}

// newLemmaResolver registers the configured dictionaries and, when enabled,
// the Japanese analyzer
func newLemmaResolver(cfg model.Config, log zerolog.Logger) (*lemma.Resolver, error) {
	r := lemma.NewResolver()
	for lang, path := range cfg.Lemma.Dictionaries {
		d, err := lemma.LoadDictionary(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("lemma dictionary for %s: %w", lang, err)
		}
		r.Register(model.NormalizeLanguage(lang), d)
		log.Debug().Str("language", lang).Int("forms", d.Len()).Msg("lemma dictionary loaded")
	}

	if cfg.Lemma.Japanese && !r.Has("ja") {
		j, err := lemma.NewJapaneseLemmatizer()
		if err != nil {
			log.Warn().Err(err).Msg("japanese analyzer unavailable, falling back to surface forms")
		} else {
			r.Register("ja", j)
		}
	}
	return r, nil
}
