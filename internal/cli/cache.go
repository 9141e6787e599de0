package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ppiankov/vocabdeck/internal/cache"
	"github.com/ppiankov/vocabdeck/internal/model"
	"github.com/ppiankov/vocabdeck/internal/store"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and edit the card cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show card counts per language",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		cards, info, err := store.Load(cfg.Paths.Cache)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		banner(w, "Card Cache")
		fmt.Fprintf(w, "  File: %s\n", cfg.Paths.Cache)
		if !info.Existed {
			fmt.Fprintln(w, "  (not created yet)")
		}
		stats := cards.Stats()
		for _, lang := range cards.Languages() {
			fmt.Fprintf(w, "  %-6s %s\n", lang, humanize.Comma(int64(stats.PerLanguage[lang])))
		}
		fmt.Fprintf(w, "  %-6s %s\n", "total", humanize.Comma(int64(stats.Total)))
		if info.Migrated > 0 {
			fmt.Fprintf(w, "  ⚠ %d cards in a legacy layout, rewritten on the next save\n", info.Migrated)
		}
		fmt.Fprintln(w, rule)
		return nil
	},
}

var cacheForgetCmd = &cobra.Command{
	Use:   "forget <language> <lemma>",
	Short: "Remove a card so the next run annotates it again",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		lang := model.NormalizeLanguage(args[0])

		cards, _, err := store.Load(cfg.Paths.Cache)
		if err != nil {
			return err
		}
		card, ok := cards.Get(args[1], lang)
		if !ok {
			return fmt.Errorf("no %s card for %q", lang, args[1])
		}
		cards.Forget(args[1], lang)

		if _, err := store.Backup(cfg.Paths.Cache, cfg.Paths.BackupDir, time.Now()); err != nil {
			return fmt.Errorf("backup card cache: %w", err)
		}
		if err := cards.Save(cfg.Paths.Cache); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Forgot %s card %q (%s)\n", lang, card.Lemma, card.Definition)
		return nil
	},
}

var archiveOlderThan time.Duration

var cacheArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "List archived prompts and replies (llm.save_raw)",
	Long: `List the prompt and reply pairs archived by runs with llm.save_raw enabled.

Examples:
  vocabdeck cache archive
  vocabdeck cache archive --older-than 720h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		archive := cache.NewArchive(cfg.Paths.ArchiveDir)
		w := cmd.OutOrStdout()

		if archiveOlderThan > 0 {
			n, err := archive.Prune(archiveOlderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Removed %d archived exchanges older than %s\n", n, archiveOlderThan)
		}

		exchanges, err := archive.List()
		if err != nil {
			return err
		}
		banner(w, "Raw Archive")
		fmt.Fprintf(w, "  Dir: %s\n", archive.Dir())
		for _, ex := range exchanges {
			status := "✓"
			if ex.Error != "" {
				status = "✗"
			}
			fmt.Fprintf(w, "  %s %s  %s batch %d attempt %d  %s\n",
				status, humanize.Time(ex.CreatedAt), ex.Language, ex.Batch, ex.Attempt, humanize.Bytes(uint64(len(ex.Response))))
		}
		fmt.Fprintf(w, "  %s exchanges\n", humanize.Comma(int64(len(exchanges))))
		fmt.Fprintln(w, rule)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheForgetCmd)
	cacheCmd.AddCommand(cacheArchiveCmd)

	cacheArchiveCmd.Flags().DurationVar(&archiveOlderThan, "older-than", 0, "delete exchanges older than this before listing")
}
