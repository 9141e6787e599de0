package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ppiankov/vocabdeck/internal/export"
	"github.com/ppiankov/vocabdeck/internal/model"
	"github.com/ppiankov/vocabdeck/internal/pipeline"
	"github.com/ppiankov/vocabdeck/internal/store"
)

const rule = "═══════════════════════════════════════════════════════════"

// reportWriter is where run and export print their banners and summaries.
// Logs share stderr; stdout stays free for data commands like config show.
func reportWriter(cmd *cobra.Command) io.Writer {
	return cmd.ErrOrStderr()
}

func banner(w io.Writer, title string) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, rule)
}

func printRunHeader(w io.Writer, cfg model.Config) {
	banner(w, "vocabdeck "+Version)
	fmt.Fprintf(w, "  Source:    %s\n", cfg.Paths.VocabDB)
	fmt.Fprintf(w, "  Cache:     %s\n", cfg.Paths.Cache)
	fmt.Fprintf(w, "  Languages: %s -> %s\n", cfg.TargetLanguage, cfg.NativeLanguage)
	if cfg.DryRun {
		fmt.Fprintln(w, "  Mode:      dry run (no requests)")
	} else {
		fmt.Fprintf(w, "  Service:   %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(w, "  Batches:   %d words, %s apart\n", cfg.Batch.Size, cfg.Batch.Delay)
	}
	fmt.Fprintln(w)
}

func printSummary(w io.Writer, s *pipeline.Summary, cards *store.CardCache) {
	fmt.Fprintln(w)
	banner(w, "Run Summary")

	for _, ls := range s.Languages {
		printLanguage(w, strings.ToUpper(ls.Language), ls, s.DryRun)
	}
	if len(s.Languages) > 1 {
		printLanguage(w, "TOTAL", s.Totals(), s.DryRun)
	}

	stats := cards.Stats()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Cards in cache:  %s\n", humanize.Comma(int64(stats.Total)))
	fmt.Fprintf(w, "  Books:           %s\n", humanize.Comma(int64(s.Titles)))
	fmt.Fprintf(w, "  API calls:       %d\n", s.APICalls)
	fmt.Fprintf(w, "  Elapsed:         %s\n", s.Elapsed.Round(time.Second))

	switch {
	case s.Aborted():
		fmt.Fprintf(w, "\n  ✗ Stopped early: %s\n", s.AbortReason)
		fmt.Fprintln(w, "  Cards merged so far are saved. Run again later to continue.")
	case s.DryRun:
		fmt.Fprintln(w, "\n  Dry run: nothing was sent and the cache is unchanged.")
	default:
		fmt.Fprintln(w, "\n  ✓ Done. Cached words are skipped on the next run.")
	}
	fmt.Fprintln(w, rule)
}

func printLanguage(w io.Writer, label string, ls pipeline.LanguageSummary, dryRun bool) {
	fmt.Fprintf(w, "\n  [%s]\n", label)
	fmt.Fprintf(w, "    Lookups:         %s\n", humanize.Comma(int64(ls.Items)))
	fmt.Fprintf(w, "    Already cached:  %s\n", humanize.Comma(int64(ls.SkippedCached)))
	fmt.Fprintf(w, "    Duplicates:      %s\n", humanize.Comma(int64(ls.Duplicates)))
	fmt.Fprintf(w, "    Pending:         %s in %s\n", humanize.Comma(int64(ls.Pending)), plural(ls.Batches, "batch", "batches"))
	if dryRun {
		return
	}
	fmt.Fprintf(w, "    ✓ New cards:     %s\n", humanize.Comma(int64(ls.Merged)))
	if ls.Invalid+ls.Unmatched > 0 {
		fmt.Fprintf(w, "    ⚠ Dropped:       %d invalid, %d unmatched\n", ls.Invalid, ls.Unmatched)
	}
	if ls.FailedBatches > 0 {
		fmt.Fprintf(w, "    ✗ Failed:        %s (%d words)\n", plural(ls.FailedBatches, "batch", "batches"), ls.Abandoned)
	}
	if ls.SkippedQuota > 0 {
		fmt.Fprintf(w, "    ⚠ Not requested: %d words\n", ls.SkippedQuota)
	}
}

func printExport(w io.Writer, results []export.Result) {
	fmt.Fprintln(w)
	banner(w, "Decks")
	for _, r := range results {
		if r.Path == "" {
			fmt.Fprintf(w, "  ⚠ %-14s no cards\n", r.Deck.FileName())
			continue
		}
		fmt.Fprintf(w, "  ✓ %-14s %s cards -> %s\n", r.Deck.FileName(), humanize.Comma(int64(r.Written)), r.Path)
		if r.Invalid+r.Duplicates > 0 {
			fmt.Fprintf(w, "    skipped %d incomplete, %d duplicates\n", r.Invalid, r.Duplicates)
		}
	}
	fmt.Fprintln(w, rule)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
