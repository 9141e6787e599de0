package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the full application configuration
type Config struct {
	NativeLanguage string `mapstructure:"native_language" yaml:"native_language"` // Definitions, notes and glosses
	TargetLanguage string `mapstructure:"target_language" yaml:"target_language"` // Language being learned

	Paths PathsConfig `mapstructure:"paths" yaml:"paths"`
	Batch BatchConfig `mapstructure:"batch" yaml:"batch"`
	Decks DecksConfig `mapstructure:"decks" yaml:"decks"`
	Notes NotesConfig `mapstructure:"notes" yaml:"notes"`
	LLM   LLMConfig   `mapstructure:"llm" yaml:"llm"`
	Lemma LemmaConfig `mapstructure:"lemma" yaml:"lemma"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`

	SkipTranslated bool `mapstructure:"skip_translated" yaml:"skip_translated"`
	DryRun         bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// PathsConfig holds input and output locations
type PathsConfig struct {
	VocabDB    string `mapstructure:"vocab_db" yaml:"vocab_db"`
	Cache      string `mapstructure:"cache" yaml:"cache"`
	BackupDir  string `mapstructure:"backup_dir" yaml:"backup_dir"`
	ErrorLog   string `mapstructure:"error_log" yaml:"error_log"`
	TSVDir     string `mapstructure:"tsv_dir" yaml:"tsv_dir"`
	ArchiveDir string `mapstructure:"archive_dir" yaml:"archive_dir"`
}

// BatchConfig controls chunking, pacing and retries
type BatchConfig struct {
	Size       int           `mapstructure:"size" yaml:"size"`
	Delay      time.Duration `mapstructure:"delay" yaml:"delay"`             // Target spacing between requests
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"` // Attempts per batch
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// DecksConfig toggles which decks are built and exported
type DecksConfig struct {
	ForeignToNative bool `mapstructure:"foreign_to_native" yaml:"foreign_to_native"`
	NativeToForeign bool `mapstructure:"native_to_foreign" yaml:"native_to_foreign"`
	NativeToNative  bool `mapstructure:"native_to_native" yaml:"native_to_native"`
}

// NotesConfig shapes the synthesized notes line
type NotesConfig struct {
	Separator string `mapstructure:"separator" yaml:"separator"`
	MaxLength int    `mapstructure:"max_length" yaml:"max_length"`
}

// LLMConfig configures the annotation service
type LLMConfig struct {
	Provider       string  `mapstructure:"provider" yaml:"provider"` // google, openai, anthropic, ollama
	Model          string  `mapstructure:"model" yaml:"model"`
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout        int     `mapstructure:"timeout" yaml:"timeout"` // seconds
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	SaveRaw        bool    `mapstructure:"save_raw" yaml:"save_raw"` // Archive prompts and responses
	ResolveAuthors bool    `mapstructure:"resolve_authors" yaml:"resolve_authors"`
	AuthorWorkers  int     `mapstructure:"author_workers" yaml:"author_workers"` // Concurrent author lookups; 1 keeps requests sequential

	HTTPProxy  string `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy string `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy    string `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
}

// LemmaConfig points at per-language "form,lemma" dictionaries
type LemmaConfig struct {
	Dictionaries map[string]string `mapstructure:"dictionaries" yaml:"dictionaries,omitempty"`
	Japanese     bool              `mapstructure:"japanese" yaml:"japanese"` // Enable the built-in morphological analyzer
}

// LogConfig controls console output
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console or json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		NativeLanguage: "de",
		TargetLanguage: "en",
		Paths: PathsConfig{
			VocabDB:    "vocab.db",
			Cache:      "cache/translated_cache.json",
			BackupDir:  "backups",
			ErrorLog:   "logs/errors.log",
			TSVDir:     "output/tsv",
			ArchiveDir: "logs/raw",
		},
		Batch: BatchConfig{
			Size:       20,
			Delay:      4500 * time.Millisecond,
			MaxRetries: 3,
			RetryDelay: 10 * time.Second,
		},
		Decks: DecksConfig{
			ForeignToNative: true,
			NativeToForeign: true,
			NativeToNative:  true,
		},
		Notes: NotesConfig{
			Separator: " · ",
			MaxLength: 300,
		},
		LLM: LLMConfig{
			Provider:       "google",
			Model:          "gemini-2.5-flash",
			Timeout:        60,
			MaxTokens:      8192,
			Temperature:    0.3,
			ResolveAuthors: true,
			AuthorWorkers:  1,
		},
		Lemma: LemmaConfig{
			Japanese: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		SkipTranslated: true,
	}
}

// Validate normalizes language codes and checks the configuration for
// combinations the pipeline cannot run with
func (c *Config) Validate() error {
	c.NativeLanguage = NormalizeLanguage(c.NativeLanguage)
	c.TargetLanguage = NormalizeLanguage(c.TargetLanguage)

	if _, err := LookupLanguage(c.NativeLanguage); err != nil {
		return fmt.Errorf("native_language: %w", err)
	}
	if _, err := LookupLanguage(c.TargetLanguage); err != nil {
		return fmt.Errorf("target_language: %w", err)
	}
	if c.NativeLanguage == c.TargetLanguage {
		return errors.New("native_language and target_language must differ")
	}
	if c.Batch.Size <= 0 {
		return fmt.Errorf("batch.size must be positive, got %d", c.Batch.Size)
	}
	if c.Batch.MaxRetries <= 0 {
		return fmt.Errorf("batch.max_retries must be positive, got %d", c.Batch.MaxRetries)
	}
	if c.Batch.Delay < 0 || c.Batch.RetryDelay < 0 {
		return errors.New("batch delays must not be negative")
	}
	if strings.EqualFold(c.LLM.Provider, "google") && c.LLM.APIKey != "" && !strings.HasPrefix(c.LLM.APIKey, "AIza") {
		return errors.New("llm.api_key does not look like a Google API key (expected prefix AIza)")
	}
	return nil
}

// Languages returns the languages to process, target first
func (c Config) Languages() []string {
	var langs []string
	if c.Decks.ForeignToNative || c.Decks.NativeToForeign {
		langs = append(langs, c.TargetLanguage)
	}
	if c.Decks.NativeToNative {
		langs = append(langs, c.NativeLanguage)
	}
	return langs
}
