// Copyright 2025 The LexiServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the word search server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

LexiServe provides fuzzy word lookup over an in-memory lexicon: exact prefix
completions, spelling correction by edit distance with frequency blending,
phonetic matching via Double Metaphone, and an optional concept layer that
matches on what a term means. It can operate as a MessagePack IPC server for
integration with editors and launchers, or as a CLI application for testing
and debugging.

Results from all passes are merged, deduplicated keeping the strongest
occurrence of each word, ranked by score, and memoized in a two-tier cache
(bounded memory map in front of a badger-backed disk tier) so repeated
queries cost nothing.

# Usage

Start the server with default settings:

	lexiserve

Use custom data directory and enable debug mode:

	lexiserve -data /path/to/chunks -d

Run in CLI mode for interactive testing:

	lexiserve -c -limit 10

Convert a plain text word list into binary chunks:

	lexiserve -convert words.txt -data data/

The data directory holds chunked binary files named dict_0001.bin,
dict_0002.bin, etc. Plain text lists (.txt) in the same directory are loaded
too. A lexicon snapshot file (-snapshot) warms the index across restarts.

# Configuration

Runtime configuration is managed through a TOML file with engine, cache and
CLI sections:

	[engine]
	min_query_length = 2
	length_tolerance = 2
	spelling_threshold = 0.6
	max_results = 50

	[cache]
	max_memory_items = 1000
	max_disk_items = 10000
	default_ttl_seconds = 3600

The config file is automatically created with defaults if it doesn't exist.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. Search requests
are processed synchronously with microsecond timing information included in
responses.

Send a search request:

	{"id": "req1", "q": "hapy", "l": 20}

Receive ranked matches:

	{"id": "req1", "r": [{"w": "happy", "s": 0.86, "k": 1}], "c": 1, "t": 145}

Management requests use the action field:

	{"id": "add1", "a": "add_word", "w": "zeal", "f": 60}
	{"id": "st1", "a": "stats"}

# Server Mode

The default mode starts a MessagePack IPC server that processes search
requests from stdin and writes responses to stdout. This design enables
integration with text editors and other applications through process
communication.

	srv := server.NewServer(engine, config)
	err := srv.Start()

# CLI Mode

CLI mode provides an interactive interface for testing and debugging the
search passes. It reads queries from stdin and displays matches with kind,
score and frequency information.

	inputHandler := cli.NewInputHandler(engine, config, limit, noFilter)
	err := inputHandler.Start()

This mode is primarily intended for development and testing new features
before deploying to server mode.

# Command Line Flags

The following flags control application behavior:

	-data string
	    Directory containing dictionary files (default "data/")
	-concepts string
	    TOML file with concept definitions; defaults to concepts.toml in
	    the data directory when one exists
	-snapshot string
	    Lexicon snapshot file, loaded on start and refreshed after dictionary load
	-cache string
	    Directory for the disk cache tier (empty keeps it in memory)
	-config string
	    Custom config file path
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Number of results to return (default from config)
	-no-filter
	    Disable input filtering for debugging
	-convert string
	    Convert a text word list into binary chunks under -data, then exit
	-chunk int
	    Words per chunk for conversion

The application automatically resolves data and config paths relative to the
executable location, supporting both development and production deployments.
*/
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/lexiserve/internal/cli"
	"github.com/bastiangx/lexiserve/internal/logger"
	"github.com/bastiangx/lexiserve/internal/utils"
	"github.com/bastiangx/lexiserve/pkg/cache"
	"github.com/bastiangx/lexiserve/pkg/concepts"
	"github.com/bastiangx/lexiserve/pkg/config"
	"github.com/bastiangx/lexiserve/pkg/dictionary"
	"github.com/bastiangx/lexiserve/pkg/lexicon"
	"github.com/bastiangx/lexiserve/pkg/phonetic"
	"github.com/bastiangx/lexiserve/pkg/search"
	"github.com/bastiangx/lexiserve/pkg/server"
	"github.com/bastiangx/lexiserve/pkg/similarity"
)

const (
	Version = "0.1.0-beta"
	AppName = "lexiserve"
	gh      = "https://github.com/bastiangx/lexiserve"
)

// conceptSource adapts a concept library to the engine's meaning pass.
type conceptSource struct {
	library *concepts.Library
}

func (cs conceptSource) SearchMeaning(query string, limit int) []search.MeaningHit {
	matches := cs.library.Search(query, limit)
	hits := make([]search.MeaningHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, search.MeaningHit{
			Name:       m.Concept.Name,
			Definition: m.Concept.Definition,
			Score:      m.Score,
		})
	}
	return hits
}

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main calls other packages to assemble the engine and run the server or
// CLI front. main() does not implement logic for them and only manages the
// flow.
func main() {
	sigHandler()
	defaultConfig := config.DefaultConfig()

	// custom Flags
	showVersion := flag.Bool("version", false, "Show current version")
	dataDir := flag.String("data", "data/", "Directory containing dictionary files")
	conceptsPath := flag.String("concepts", "", "TOML file with concept definitions (default: concepts.toml under the data dir)")
	snapshotPath := flag.String("snapshot", "", "Lexicon snapshot file for warm starts")
	cacheDir := flag.String("cache", "", "Directory for the disk cache tier (empty keeps it in memory)")
	configPath := flag.String("config", "", "Custom config file path")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of results to return")
	noFilter := flag.Bool("no-filter", defaultConfig.CLI.DefaultNoFilter, "Disable input filtering (DBG only) - accepts all raw queries (numbers, symbols, etc)")
	convertPath := flag.String("convert", "", "Convert a text word list into binary chunks under -data, then exit")
	chunkSize := flag.Int("chunk", dictionary.DefaultChunkSize, "Number of words per chunk for conversion")

	flag.Parse()

	if *showVersion {
		showVersionInfo()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	// Initialize path resolver for robust path handling
	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Errorf("Failed to initialize path resolver: %v", err)
		log.Print("Either env is not set or system is not supported")
		os.Exit(1)
	}

	resolvedDataDir, err := pathResolver.GetDataDir(*dataDir)
	if err != nil {
		log.Errorf("Failed to resolve data dir: (%v)", err)
		os.Exit(1)
	}
	log.Debugf("Using data dir at: %s", resolvedDataDir)

	if *convertPath != "" {
		files, err := dictionary.Convert(*convertPath, resolvedDataDir, *chunkSize)
		if err != nil {
			log.Errorf("Conversion failed: %v", err)
			os.Exit(1)
		}
		log.Printf("Converted %s into %d chunk(s) under %s", *convertPath, len(files), resolvedDataDir)
		return
	}

	appConfig, loadedFrom, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Warnf("Config load failed, using builtin defaults: %v", err)
		appConfig = config.DefaultConfig()
	}
	if loadedFrom != "" {
		log.Debugf("Using config file: (%s)", loadedFrom)
	}

	engine, results := assembleEngine(appConfig, *conceptsPath, *snapshotPath, *cacheDir, resolvedDataDir)
	defer func() { _ = results.Close() }()

	// CLI would be mainly used for testing and dbg purposes.
	// Any new features or changes should be tested in CLI mode first.
	if *cliMode {
		log.SetReportTimestamp(false)
		log.Debug("Input info:",
			"limit", *limit,
			"noFilter", *noFilter)

		inputHandler := cli.NewInputHandler(engine, appConfig, *limit, *noFilter)
		if err := inputHandler.Start(); err != nil {
			log.Errorf("CLI error: %v", err)
			os.Exit(1)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(engine, appConfig)

	showStartupInfo(resolvedDataDir)

	if err := srv.Start(); err != nil {
		log.Errorf("Server error: %v", err)
		os.Exit(1)
	}
}

// assembleEngine builds every component from config and wires them into a
// search engine. Loading failures leave the engine valid but partial: a
// missing dictionary or concept file costs results, never the process.
func assembleEngine(cfg *config.Config, conceptsPath, snapshotPath, cacheDir, dataDir string) (*search.Engine, *cache.Cache[[]search.Result]) {
	ix := lexicon.NewWithPolicy(cfg.Engine.ValidateWords)
	ph := phonetic.NewIndexWithCacheSize(cfg.Engine.CodeCacheSize)

	if snapshotPath != "" {
		if err := ix.LoadSnapshot(snapshotPath); err != nil {
			log.Warnf("Snapshot load failed, starting cold: %v", err)
		}
		for _, w := range ix.Words() {
			if err := ph.AddWord(w); err != nil {
				log.Warnf("Phonetic indexing failed for %q: %v", w, err)
			}
		}
		log.Debugf("Snapshot warmed %d words", ix.Len())
	}

	scorer := similarity.NewScorer(ix,
		similarity.WithWeights(cfg.Engine.SimilarityWeight, cfg.Engine.FrequencyWeight),
		similarity.WithMaxLengthDelta(cfg.Engine.LengthTolerance),
		similarity.WithCacheSize(cfg.Engine.PairCacheSize),
	)

	// Without a flag, a concepts.toml sitting in the data dir is picked up.
	if conceptsPath == "" {
		if p := filepath.Join(dataDir, "concepts.toml"); utils.FileExists(p) {
			conceptsPath = p
		}
	}

	var meanings search.MeaningSource
	if conceptsPath != "" {
		library := concepts.NewLibrary()
		n, err := library.LoadFile(conceptsPath)
		if err != nil {
			log.Warnf("Concept file load failed, meaning pass disabled: %v", err)
		} else {
			log.Debugf("Loaded %d concepts from %s", n, conceptsPath)
			meanings = conceptSource{library: library}
		}
	}

	if cacheDir == "" {
		cacheDir = cfg.Cache.Dir
	}
	results, err := cache.New[[]search.Result](cache.Config{
		MaxMemoryItems: cfg.Cache.MaxMemoryItems,
		MaxDiskItems:   cfg.Cache.MaxDiskItems,
		DefaultTTL:     cfg.Cache.DefaultTTL(),
		Dir:            cacheDir,
	})
	if err != nil {
		log.Warnf("Disk cache unavailable, falling back to memory only: %v", err)
		results, err = cache.New[[]search.Result](cache.Config{
			MaxMemoryItems: cfg.Cache.MaxMemoryItems,
			MaxDiskItems:   cfg.Cache.MaxDiskItems,
			DefaultTTL:     cfg.Cache.DefaultTTL(),
		})
		if err != nil {
			log.Errorf("Cache init failed: %v", err)
			os.Exit(1)
		}
	}

	engine := search.NewEngine(ix, scorer, ph, meanings, results, cfg)

	stats, err := dictionary.LoadDir(dataDir, engine.AddWord)
	switch {
	case errors.Is(err, dictionary.ErrNoDictionaryFiles):
		log.Warn("No dictionary files found, running with empty lexicon...")
	case err != nil:
		log.Warnf("Dictionary load failed, lexicon is partial: %v", err)
	default:
		log.Debugf("Loaded %d words from %d file(s), %d skipped", stats.Words, stats.Files, stats.Skipped)
	}

	if snapshotPath != "" && stats.Words > 0 {
		if err := ix.SaveSnapshot(snapshotPath); err != nil {
			log.Warnf("Snapshot refresh failed: %v", err)
		}
	}

	return engine, results
}

// showVersionInfo renders the version banner.
func showVersionInfo() {
	banner := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)

	styles := log.DefaultStyles()

	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})

	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})

	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ LexiServe ] Serves really fast fuzzy word lookups!")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dataDir string) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" LexiServe ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Info("init: OK")
	log.Infof("data dir: ( %s )", dataDir)
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
