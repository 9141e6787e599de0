package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/vocabdeck/internal/model"
	"github.com/ppiankov/vocabdeck/internal/util"
)

// CardSource provides the cached cards of one language
type CardSource interface {
	Cards(language string) []model.Card
}

// Result counts what happened to one deck
type Result struct {
	Deck       Deck
	Path       string
	Written    int
	Invalid    int
	Duplicates int
}

var fieldCleaner = strings.NewReplacer("\t", " ", "\r\n", "<br>", "\n", "<br>", "\r", "<br>")

// WriteDeck writes cards to w as one deck. Cards missing required fields
// and repeated lemmas are skipped and counted.
func WriteDeck(w io.Writer, d Deck, cards []model.Card) (Result, error) {
	res := Result{Deck: d}
	bw := bufio.NewWriter(w)

	header := []string{
		"#separator:tab",
		"#html:true",
		"#guid column:1",
		"#columns:" + strings.Join(d.Columns(), "\t"),
	}
	for _, h := range header {
		if _, err := bw.WriteString(h + "\n"); err != nil {
			return res, err
		}
	}

	seen := make(map[string]bool, len(cards))
	for _, card := range cards {
		if !d.Valid(card) {
			res.Invalid++
			continue
		}
		key := model.LemmaKey(card.Lemma)
		if seen[key] {
			res.Duplicates++
			continue
		}
		seen[key] = true

		row := d.Row(card)
		for i := range row {
			row[i] = fieldCleaner.Replace(row[i])
		}
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return res, err
		}
		res.Written++
	}
	return res, bw.Flush()
}

// Export writes every deck enabled in cfg into cfg.Paths.TSVDir. Decks with
// no cards are skipped and reported with an empty Path.
func Export(cfg model.Config, src CardSource) ([]Result, error) {
	var results []Result
	for _, d := range Decks(cfg) {
		cards := src.Cards(d.CardLanguage())
		if len(cards) == 0 {
			results = append(results, Result{Deck: d})
			continue
		}

		var sb strings.Builder
		res, err := WriteDeck(&sb, d, cards)
		if err != nil {
			return results, fmt.Errorf("render %s: %w", d.FileName(), err)
		}

		res.Path = filepath.Join(cfg.Paths.TSVDir, d.FileName())
		if err := util.WriteFileAtomic(res.Path, []byte(sb.String()), 0644); err != nil {
			return results, fmt.Errorf("write %s: %w", res.Path, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Remove deletes previously exported deck files that are now disabled
func Remove(cfg model.Config) error {
	enabled := make(map[string]bool)
	for _, d := range Decks(cfg) {
		enabled[d.FileName()] = true
	}
	matches, err := filepath.Glob(filepath.Join(cfg.Paths.TSVDir, "anki_*.tsv"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if !enabled[filepath.Base(m)] {
			if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}
