// Package config loads tabvault settings from defaults, an optional YAML
// file, TABVAULT_* environment variables, and command-line flags, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/HendryAvila/tabvault/internal/dedup"
	"github.com/HendryAvila/tabvault/internal/recovery"
	"github.com/HendryAvila/tabvault/internal/snapshot"
	"github.com/HendryAvila/tabvault/internal/store"
)

// EnvPrefix is the prefix for environment overrides, e.g. TABVAULT_DATA_DIR.
const EnvPrefix = "TABVAULT"

// Keys.
const (
	KeyConfig           = "config"
	KeyDataDir          = "data_dir"
	KeyLogLevel         = "log.level"
	KeyLogPretty        = "log.pretty"
	KeyBrowser          = "browser"
	KeyProfile          = "profile"
	KeyDedupStrategy    = "dedup.strategy"
	KeyFuzzyThreshold   = "dedup.fuzzy_threshold"
	KeySnapshotDir      = "snapshot.dir"
	KeySnapshotFilename = "snapshot.filename"
	KeySearchLimit      = "search.limit"
	KeySearchMaxResults = "search.max_results"
)

// Config is the resolved, validated configuration.
type Config struct {
	DataDir string
	Log     LogConfig
	Browser recovery.Browser
	Profile string
	Dedup   dedup.Policy
	// SnapshotDir is the git repository snapshots are committed to.
	SnapshotDir      string
	SnapshotFilename string
	SearchLimit      int
	MaxSearchResults int
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string
	Pretty bool
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	dataDir := store.DefaultDataDir()

	v.SetDefault(KeyDataDir, dataDir)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogPretty, true)
	v.SetDefault(KeyBrowser, string(recovery.Chrome))
	v.SetDefault(KeyProfile, recovery.DefaultProfile)
	v.SetDefault(KeyDedupStrategy, string(dedup.NormalizedURL))
	v.SetDefault(KeyFuzzyThreshold, dedup.DefaultThreshold)
	v.SetDefault(KeySnapshotDir, "")
	v.SetDefault(KeySnapshotFilename, snapshot.DefaultFilename)
	v.SetDefault(KeySearchLimit, 20)
	v.SetDefault(KeySearchMaxResults, 100)
}

// BindEnv makes every key overridable through TABVAULT_* variables.
// Dots and dashes in keys become underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// ReadFile merges the YAML file named by the config key, if any.
func ReadFile(v *viper.Viper) error {
	path := strings.TrimSpace(v.GetString(KeyConfig))
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

// Load resolves v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	browser, err := recovery.ParseBrowser(v.GetString(KeyBrowser))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", KeyBrowser, err)
	}

	strategy, err := dedup.ParseStrategy(v.GetString(KeyDedupStrategy))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", KeyDedupStrategy, err)
	}
	threshold := v.GetFloat64(KeyFuzzyThreshold)
	if threshold < 0 || threshold > 1 {
		return Config{}, fmt.Errorf("config: %s must be within [0,1], got %v", KeyFuzzyThreshold, threshold)
	}

	level := strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel)))
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("config: %s: unknown level %q", KeyLogLevel, level)
	}

	dataDir := strings.TrimSpace(v.GetString(KeyDataDir))
	if dataDir == "" {
		return Config{}, fmt.Errorf("config: %s is empty", KeyDataDir)
	}

	snapshotDir := strings.TrimSpace(v.GetString(KeySnapshotDir))
	if snapshotDir == "" {
		snapshotDir = filepath.Join(dataDir, "snapshots")
	}
	filename := strings.TrimSpace(v.GetString(KeySnapshotFilename))
	if filename == "" || filepath.Base(filename) != filename {
		return Config{}, fmt.Errorf("config: %s must be a plain file name, got %q", KeySnapshotFilename, filename)
	}

	limit := v.GetInt(KeySearchLimit)
	maxResults := v.GetInt(KeySearchMaxResults)
	if limit <= 0 || maxResults <= 0 {
		return Config{}, fmt.Errorf("config: search limits must be positive (limit=%d, max_results=%d)", limit, maxResults)
	}
	if limit > maxResults {
		limit = maxResults
	}

	profile := strings.TrimSpace(v.GetString(KeyProfile))
	if profile == "" {
		profile = recovery.DefaultProfile
	}

	return Config{
		DataDir:          dataDir,
		Log:              LogConfig{Level: level, Pretty: v.GetBool(KeyLogPretty)},
		Browser:          browser,
		Profile:          profile,
		Dedup:            dedup.Policy{Strategy: strategy, Threshold: threshold},
		SnapshotDir:      snapshotDir,
		SnapshotFilename: filename,
		SearchLimit:      limit,
		MaxSearchResults: maxResults,
	}, nil
}

// StoreConfig returns the settings the archive store is opened with.
func (c Config) StoreConfig() store.Config {
	return store.Config{DataDir: c.DataDir, MaxSearchResults: c.MaxSearchResults}
}

// RecoveryOptions returns the default browser and profile for recovery.
func (c Config) RecoveryOptions() recovery.Options {
	return recovery.Options{Browser: c.Browser, Profile: c.Profile}
}
