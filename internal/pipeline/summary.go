package pipeline

import "time"

// State is the position of a run in its lifecycle
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateChunking   State = "chunking"
	StateRequesting State = "requesting"
	StateParsing    State = "parsing"
	StateMerging    State = "merging"
	StateDone       State = "done"
	StateAborted    State = "aborted"
)

// LanguageSummary counts what happened to the lookups of one language
type LanguageSummary struct {
	Language string `json:"language"`

	Items         int `json:"items"`          // Source rows in this language
	SkippedCached int `json:"skipped_cached"` // Lemma already in the card cache
	Duplicates    int `json:"duplicates"`     // Repeated lemma in this run or rejected by the cache
	Pending       int `json:"pending"`        // Distinct lemmas sent for annotation
	Batches       int `json:"batches"`

	Merged        int `json:"merged"`         // New cards stored
	Invalid       int `json:"invalid"`        // Cards dropped for missing required fields
	Unmatched     int `json:"unmatched"`      // Words the reply had no item for
	FailedBatches int `json:"failed_batches"` // Batches abandoned after exhausting retries
	Abandoned     int `json:"abandoned"`      // Words in failed batches
	SkippedQuota  int `json:"skipped_quota"`  // Words not requested after a quota abort
}

// Summary describes one run
type Summary struct {
	RunID       string            `json:"run_id"`
	State       State             `json:"state"`
	DryRun      bool              `json:"dry_run"`
	AbortReason string            `json:"abort_reason,omitempty"`
	APICalls    int64             `json:"api_calls"`
	Titles      int               `json:"titles"` // Distinct book titles known to the run
	Languages   []LanguageSummary `json:"languages"`
	Elapsed     time.Duration     `json:"elapsed"`
}

// Aborted reports whether the run stopped before its last batch
func (s *Summary) Aborted() bool {
	return s.State == StateAborted
}

// Totals adds up the per-language counts
func (s *Summary) Totals() LanguageSummary {
	var t LanguageSummary
	for _, ls := range s.Languages {
		t.Items += ls.Items
		t.SkippedCached += ls.SkippedCached
		t.Duplicates += ls.Duplicates
		t.Pending += ls.Pending
		t.Batches += ls.Batches
		t.Merged += ls.Merged
		t.Invalid += ls.Invalid
		t.Unmatched += ls.Unmatched
		t.FailedBatches += ls.FailedBatches
		t.Abandoned += ls.Abandoned
		t.SkippedQuota += ls.SkippedQuota
	}
	return t
}
