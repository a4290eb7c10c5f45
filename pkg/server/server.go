package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/lexiserve/pkg/config"
	"github.com/bastiangx/lexiserve/pkg/lexicon"
	"github.com/bastiangx/lexiserve/pkg/search"
)

// statsEvery controls how often the request loop dumps engine counters to
// the debug log.
const statsEvery = 1000

// Server handles the IPC for lexicon searches
type Server struct {
	engine  *search.Engine
	cfg     *config.Config
	decoder *msgpack.Decoder
	encoder *msgpack.Encoder
	out     *bufio.Writer
	served  uint64
}

// NewServer creates a search server using stdin/stdout for IPC
func NewServer(engine *search.Engine, cfg *config.Config) *Server {
	return NewServerWithIO(engine, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a search server over the given streams.
func NewServerWithIO(engine *search.Engine, cfg *config.Config, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	out := bufio.NewWriter(w)
	return &Server{
		engine:  engine,
		cfg:     cfg,
		decoder: msgpack.NewDecoder(bufio.NewReader(r)),
		encoder: msgpack.NewEncoder(out),
		out:     out,
	}
}

// Start begins listening for IPC requests
func (s *Server) Start() error {
	log.Debug("Starting server.")

	// Signal that the server is ready
	s.sendResponse(map[string]string{"status": "ready"})

	// incoming requests stdin
	for {
		var raw msgpack.RawMessage
		if err := s.decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Errorf("Reading from stdin: %v", err)
			return err
		}
		s.handleRequest(raw)
	}
}

// handleRequest processes a single decoded frame
func (s *Server) handleRequest(raw msgpack.RawMessage) {
	var request Request
	if err := msgpack.Unmarshal(raw, &request); err != nil {
		s.sendError("", "invalid msgpack request", 400)
		log.Errorf("Unmarshaling request: %v", err)
		return
	}

	s.served++
	if s.served%statsEvery == 0 {
		log.Debugf("Served %d requests, engine stats: %+v", s.served, s.engine.Stats())
	}

	// empty action means search, keeps the hot path frames small
	action := request.Action
	if action == "" {
		action = "search"
	}

	switch action {
	case "search":
		s.handleSearch(request)
	case "add_word":
		s.handleAddWord(request)
	case "stats":
		s.handleStats(request)
	case "clear_cache":
		s.handleClearCache(request)
	case "health":
		s.sendResponse(AckResponse{ID: request.ID, Status: "ok"})
	default:
		s.sendError(request.ID, fmt.Sprintf("unknown action: %s", action), 400)
	}
}

// handleSearch validates a search request, builds per-request options from
// the engine defaults and the frame's toggles, and sends the ranked matches
// with timing info.
func (s *Server) handleSearch(request Request) {
	query := strings.TrimSpace(request.Query)

	if query == "" {
		s.sendError(request.ID, "missing 'q' parameter", 400)
		log.Debug("Query is empty in request")
		return
	}

	if utf8.RuneCountInString(query) > s.cfg.Engine.MaxQueryLength {
		s.sendError(request.ID, fmt.Sprintf("query exceeds maximum length of %d characters", s.cfg.Engine.MaxQueryLength), 400)
		log.Debug("Query is too long in request")
		return
	}

	opts := search.DefaultOptions()
	if request.Exact != nil {
		opts.Exact = *request.Exact
	}
	if request.Spelling != nil {
		opts.Spelling = *request.Spelling
	}
	if request.Phonetic != nil {
		opts.Phonetic = *request.Phonetic
	}
	if request.Meaning != nil {
		opts.Meaning = *request.Meaning
	}
	if request.Limit > 0 {
		opts.MaxResults = request.Limit
	}

	start := time.Now()
	results := s.engine.Search(query, opts)
	elapsed := time.Since(start)

	s.sendResponse(SearchResponse{
		ID:        request.ID,
		Results:   results,
		Count:     len(results),
		TimeTaken: elapsed.Microseconds(),
	})
}

// handleAddWord inserts a word into the live engine. Validation failures
// come back as 400 frames so a client can tell bad input from a broken
// server.
func (s *Server) handleAddWord(request Request) {
	word := strings.TrimSpace(request.Word)
	if word == "" {
		s.sendError(request.ID, "missing 'w' parameter", 400)
		return
	}

	frequency := request.Frequency
	if frequency < 1 {
		frequency = 1
	}

	var meta *lexicon.Metadata
	if request.Definition != "" {
		meta = &lexicon.Metadata{Definition: request.Definition}
	}

	if err := s.engine.AddWord(word, frequency, meta); err != nil {
		var invalid *lexicon.InvalidInputError
		if errors.As(err, &invalid) {
			s.sendError(request.ID, invalid.Error(), 400)
			return
		}
		s.sendError(request.ID, "internal server error", 500)
		log.Errorf("Adding word %q: %v", word, err)
		return
	}

	s.sendResponse(AckResponse{ID: request.ID, Status: "ok"})
}

// handleStats snapshots the engine counters
func (s *Server) handleStats(request Request) {
	stats := s.engine.Stats()
	s.sendResponse(StatsResponse{
		ID:       request.ID,
		Status:   "ok",
		Lexicon:  stats.Lexicon,
		Phonetic: stats.Phonetic,
		Cache:    stats.Cache,
	})
}

// handleClearCache empties the result cache
func (s *Server) handleClearCache(request Request) {
	if err := s.engine.ClearCache(); err != nil {
		s.sendError(request.ID, "internal server error", 500)
		log.Errorf("Clearing cache: %v", err)
		return
	}
	s.sendResponse(AckResponse{ID: request.ID, Status: "ok"})
}

// sendResponse encodes the given response as msgpack and flushes it, so
// each frame reaches the client before the next request is read.
func (s *Server) sendResponse(response interface{}) {
	if err := s.encoder.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
		return
	}
	if err := s.out.Flush(); err != nil {
		log.Errorf("Flushing response: %v", err)
	}
}

// sendError sends an error frame
func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(ErrorResponse{
		ID:    id,
		Error: message,
		Code:  code,
	})
}
