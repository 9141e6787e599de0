package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/vocabdeck/internal/util"
)

// Exchange is one archived request/response pair with the annotation service
type Exchange struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model,omitempty"`
	Language  string    `json:"language"`
	Batch     int       `json:"batch"`
	Attempt   int       `json:"attempt"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Archive keeps raw exchanges on disk for later inspection
type Archive struct {
	dir string
	now func() time.Time
}

// NewArchive creates an archive rooted at dir. The directory is created lazily.
func NewArchive(dir string) *Archive {
	return &Archive{
		dir: dir,
		now: time.Now,
	}
}

// Dir returns the archive directory
func (a *Archive) Dir() string {
	return a.dir
}

// Put writes an exchange and returns the file path
func (a *Archive) Put(ex Exchange) (string, error) {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = a.now()
	}

	data, err := json.MarshalIndent(ex, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal exchange: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	path := a.path(ex)
	if err := util.WriteFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}

	return path, nil
}

// List returns archived exchanges oldest first
func (a *Archive) List() ([]Exchange, error) {
	matches, err := filepath.Glob(filepath.Join(a.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	out := make([]Exchange, 0, len(matches))
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", m, err)
		}
		var ex Exchange
		if err := json.Unmarshal(data, &ex); err != nil {
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

// Prune removes archived files older than maxAge and returns how many went
func (a *Archive) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(a.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := a.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// path generates the file name for an exchange
func (a *Archive) path(ex Exchange) string {
	name := fmt.Sprintf("%s_%s_b%03d_a%d_%s.json",
		ex.CreatedAt.UTC().Format("20060102T150405.000"),
		ex.Language, ex.Batch, ex.Attempt,
		ShortKey(ex.Provider, ex.Prompt, ex.Response, ex.Error))
	return filepath.Join(a.dir, name)
}
