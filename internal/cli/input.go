// Package cli handles cmd line input and result display for DBG and testing various features
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/lexiserve/internal/utils"
	"github.com/bastiangx/lexiserve/pkg/config"
	"github.com/bastiangx/lexiserve/pkg/search"
)

// InputHandler processes user input from stdin, running each line through
// the search engine. It accepts flags to control behavior such as minimum
// and maximum query length, result limits, and filtering options.
type InputHandler struct {
	engine         *search.Engine
	minQueryLength int
	maxQueryLength int
	resultLimit    int
	requestCount   int
	noFilter       bool
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(engine *search.Engine, cfg *config.Config, limit int, noFilter bool) *InputHandler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if limit < 1 {
		limit = cfg.CLI.DefaultLimit
	}
	return &InputHandler{
		engine:         engine,
		minQueryLength: cfg.Engine.MinQueryLength,
		maxQueryLength: cfg.Engine.MaxQueryLength,
		resultLimit:    limit,
		noFilter:       noFilter,
	}
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin,
// and passes the trimmed input to the handleInput() for processing.
// Loop terminates if an error occurs while reading from stdin
func (h *InputHandler) Start() error {
	log.Print("LexiServe CLI [BETA]")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type a word and press Enter to see the matches (Ctrl+C to exit):")

	for {
		log.Print("> ")
		query, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		query = strings.TrimSpace(query)
		if query == "" {
			continue
		}
		h.handleInput(query)
	}
}

// handleInput processes a single query. It validates length and content,
// then asks the engine for matches. Results are formatted and printed to
// the log.
func (h *InputHandler) handleInput(query string) {
	h.requestCount++
	if h.requestCount%50 == 0 {
		log.Debugf("Session stats after %d queries: %+v", h.requestCount, h.engine.Stats())
	}

	length := utf8.RuneCountInString(query)
	if length < h.minQueryLength {
		log.Errorf("Query too short: %s", query)
		return
	}

	if length > h.maxQueryLength {
		log.Errorf("Query too long: %s", query)
		return
	}

	// input filtering by default (unless --no-filter flag is used)
	if !h.noFilter {
		if !utils.IsValidQuery(query) {
			log.Infof("No results found for query: '%s'", query)
			return
		}
	} else {
		log.Debug("Input filtering disabled - accepting all queries")
	}

	opts := search.DefaultOptions()
	opts.MaxResults = h.resultLimit

	start := time.Now()
	log.Debug("Processing request for", "query", query)

	results := h.engine.Search(query, opts)

	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for query '%s'", elapsed, query)

	if len(results) == 0 {
		log.Warnf("No matches found for query: '%s'", query)
		return
	}

	log.Printf("Found %d matches for query '%s':", len(results), query)
	for i, r := range results {
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", r.Word)
		freq := ""
		if r.Entry != nil && r.Entry.Frequency > 0 {
			freq = utils.FormatWithCommas(r.Entry.Frequency)
		}
		log.Printf("%2d. %-40s %.3f  %-8s (freq: %8s)", i+1, clWord, r.Score, r.Kind, freq)
	}
}
