/*
Package config manages TOML config for lexiserve services.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/lexiserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Cache  CacheConfig  `toml:"cache"`
	CLI    CliConfig    `toml:"cli"`
}

// EngineConfig has search engine related options.
// The scoring weights and thresholds are empirical defaults carried over
// from the original ranking behavior; tune with care.
type EngineConfig struct {
	MinQueryLength    int     `toml:"min_query_length"`
	MaxQueryLength    int     `toml:"max_query_length"`
	LengthTolerance   int     `toml:"length_tolerance"`
	SpellingThreshold float64 `toml:"spelling_threshold"`
	SimilarityWeight  float64 `toml:"similarity_weight"`
	FrequencyWeight   float64 `toml:"frequency_weight"`
	MaxResults        int     `toml:"max_results"`
	ConceptResults    int     `toml:"concept_results"`
	PairCacheSize     int     `toml:"pair_cache_size"`
	CodeCacheSize     int     `toml:"code_cache_size"`
	ValidateWords     bool    `toml:"validate_words"`
}

// CacheConfig holds tiered cache options.
type CacheConfig struct {
	MaxMemoryItems    int    `toml:"max_memory_items"`
	MaxDiskItems      int    `toml:"max_disk_items"`
	DefaultTTLSeconds int    `toml:"default_ttl_seconds"`
	Dir               string `toml:"dir"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit    int  `toml:"default_limit"`
	DefaultNoFilter bool `toml:"default_no_filter"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "lexiserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "lexiserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/lexiserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	var config *Config
	var err error

	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err = LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err = InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MinQueryLength:    2,
			MaxQueryLength:    60,
			LengthTolerance:   2,
			SpellingThreshold: 0.6,
			SimilarityWeight:  0.7,
			FrequencyWeight:   0.3,
			MaxResults:        50,
			ConceptResults:    15,
			PairCacheSize:     1000,
			CodeCacheSize:     10000,
			ValidateWords:     true,
		},
		Cache: CacheConfig{
			MaxMemoryItems:    1000,
			MaxDiskItems:      10000,
			DefaultTTLSeconds: 3600,
			Dir:               "",
		},
		CLI: CliConfig{
			DefaultLimit:    20,
			DefaultNoFilter: false,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse attempts to parse a TOML file section by section
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if engineSection, ok := utils.ExtractSection(tempConfig, "engine"); ok {
		extractEngineConfig(engineSection, &config.Engine)
	}
	if cacheSection, ok := utils.ExtractSection(tempConfig, "cache"); ok {
		extractCacheConfig(cacheSection, &config.Cache)
	}
	if cliSection, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(cliSection, &config.CLI)
	}
	return config, nil
}

// extractEngineConfig extracts engine configuration from a map
func extractEngineConfig(data map[string]any, engine *EngineConfig) {
	if val, ok := utils.ExtractInt64(data, "min_query_length"); ok {
		engine.MinQueryLength = val
	}
	if val, ok := utils.ExtractInt64(data, "max_query_length"); ok {
		engine.MaxQueryLength = val
	}
	if val, ok := utils.ExtractInt64(data, "length_tolerance"); ok {
		engine.LengthTolerance = val
	}
	if val, ok := utils.ExtractFloat64(data, "spelling_threshold"); ok {
		engine.SpellingThreshold = val
	}
	if val, ok := utils.ExtractFloat64(data, "similarity_weight"); ok {
		engine.SimilarityWeight = val
	}
	if val, ok := utils.ExtractFloat64(data, "frequency_weight"); ok {
		engine.FrequencyWeight = val
	}
	if val, ok := utils.ExtractInt64(data, "max_results"); ok {
		engine.MaxResults = val
	}
	if val, ok := utils.ExtractInt64(data, "concept_results"); ok {
		engine.ConceptResults = val
	}
	if val, ok := utils.ExtractInt64(data, "pair_cache_size"); ok {
		engine.PairCacheSize = val
	}
	if val, ok := utils.ExtractInt64(data, "code_cache_size"); ok {
		engine.CodeCacheSize = val
	}
	if val, ok := utils.ExtractBool(data, "validate_words"); ok {
		engine.ValidateWords = val
	}
}

// extractCacheConfig extracts cache configuration from a map
func extractCacheConfig(data map[string]any, cache *CacheConfig) {
	if val, ok := utils.ExtractInt64(data, "max_memory_items"); ok {
		cache.MaxMemoryItems = val
	}
	if val, ok := utils.ExtractInt64(data, "max_disk_items"); ok {
		cache.MaxDiskItems = val
	}
	if val, ok := utils.ExtractInt64(data, "default_ttl_seconds"); ok {
		cache.DefaultTTLSeconds = val
	}
	if val, ok := utils.ExtractString(data, "dir"); ok {
		cache.Dir = val
	}
}

// extractCliConfig extracts CLI config from a map
func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractBool(data, "default_no_filter"); ok {
		cli.DefaultNoFilter = val
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	config := DefaultConfig()
	return utils.SaveTOMLFile(config, defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update changes select engine values and saves to file
func (c *Config) Update(configPath string, maxResults, minQueryLength *int, spellingThreshold *float64) error {
	engine := &c.Engine
	if maxResults != nil {
		engine.MaxResults = *maxResults
	}
	if minQueryLength != nil {
		engine.MinQueryLength = *minQueryLength
	}
	if spellingThreshold != nil {
		engine.SpellingThreshold = *spellingThreshold
	}
	return SaveConfig(c, configPath)
}

// DefaultTTL returns the configured cache TTL as a duration.
func (c *CacheConfig) DefaultTTL() time.Duration {
	if c.DefaultTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}
