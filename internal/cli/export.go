package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/vocabdeck/internal/export"
	"github.com/ppiankov/vocabdeck/internal/store"
)

var exportPrune bool

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write decks from the card cache",
	Long: `Write the enabled decks from the card cache without contacting the
annotation service. Decks are rewritten in full on every export.

Examples:
  vocabdeck export
  vocabdeck export --prune`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		cards, _, err := store.Load(cfg.Paths.Cache)
		if err != nil {
			return err
		}

		results, err := export.Export(cfg, cards)
		if err != nil {
			return err
		}
		if exportPrune {
			if err := export.Remove(cfg); err != nil {
				return err
			}
		}
		printExport(reportWriter(cmd), results)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().BoolVar(&exportPrune, "prune", false, "delete deck files that are no longer enabled")
}
