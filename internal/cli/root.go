package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/vocabdeck/internal/logging"
	"github.com/ppiankov/vocabdeck/internal/model"
)

// Version is set at build time
var Version = "v0.3.0"

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vocabdeck",
	Short: "vocabdeck - Kindle vocabulary to flashcard decks",
	Long: `vocabdeck turns the words you looked up on a Kindle into flashcards.

Each distinct lemma is annotated once by an LLM service (definition,
translation and a short notes line), stored in a local card cache and
exported as tab-separated decks ready for import. Later runs only send
words that are not cached yet.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "vocabdeck "+Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.vocabdeck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log output format: console or json")

	// Bind flags to viper
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".vocabdeck"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match VOCABDECK_* (VOCABDECK_LLM_API_KEY -> llm.api_key)
	viper.SetEnvPrefix("VOCABDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper(), model.DefaultConfig())

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, config file, environment and flags into a
// validated Config
func loadConfig() (model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = apiKeyFromEnv(cfg.LLM.Provider)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every config key so environment variables are
// picked up by Unmarshal even when no config file mentions them
func setDefaults(v *viper.Viper, d model.Config) {
	v.SetDefault("native_language", d.NativeLanguage)
	v.SetDefault("target_language", d.TargetLanguage)
	v.SetDefault("skip_translated", d.SkipTranslated)
	v.SetDefault("dry_run", d.DryRun)

	v.SetDefault("paths.vocab_db", d.Paths.VocabDB)
	v.SetDefault("paths.cache", d.Paths.Cache)
	v.SetDefault("paths.backup_dir", d.Paths.BackupDir)
	v.SetDefault("paths.error_log", d.Paths.ErrorLog)
	v.SetDefault("paths.tsv_dir", d.Paths.TSVDir)
	v.SetDefault("paths.archive_dir", d.Paths.ArchiveDir)

	v.SetDefault("batch.size", d.Batch.Size)
	v.SetDefault("batch.delay", d.Batch.Delay)
	v.SetDefault("batch.max_retries", d.Batch.MaxRetries)
	v.SetDefault("batch.retry_delay", d.Batch.RetryDelay)

	v.SetDefault("decks.foreign_to_native", d.Decks.ForeignToNative)
	v.SetDefault("decks.native_to_foreign", d.Decks.NativeToForeign)
	v.SetDefault("decks.native_to_native", d.Decks.NativeToNative)

	v.SetDefault("notes.separator", d.Notes.Separator)
	v.SetDefault("notes.max_length", d.Notes.MaxLength)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.save_raw", d.LLM.SaveRaw)
	v.SetDefault("llm.resolve_authors", d.LLM.ResolveAuthors)
	v.SetDefault("llm.author_workers", d.LLM.AuthorWorkers)
	v.SetDefault("llm.http_proxy", d.LLM.HTTPProxy)
	v.SetDefault("llm.https_proxy", d.LLM.HTTPSProxy)
	v.SetDefault("llm.no_proxy", d.LLM.NoProxy)

	v.SetDefault("lemma.japanese", d.Lemma.Japanese)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// apiKeyFromEnv falls back to the variable each provider's own tooling uses
func apiKeyFromEnv(provider string) string {
	var names []string
	switch strings.ToLower(provider) {
	case "google", "gemini":
		names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case "openai":
		names = []string{"OPENAI_API_KEY"}
	case "anthropic", "claude":
		names = []string{"ANTHROPIC_API_KEY"}
	}
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

func newLogger(cfg model.Config) zerolog.Logger {
	return logging.NewConsole(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}
