/*
Package server implements msgpack IPC for lexicon search services.

The server package provides a minimal interface for fuzzy word search using
msgpack serialization over stdin/stdout.

The protocol uses binary msgpack encoding and supports search requests,
runtime word additions, stats retrieval and cache control.
Messages are processed synchronously with timing info included in responses.

# IPC

The server operates on a request response model where clients send structured
frames via stdin and receive responses through stdout. msgpack objects are
self delimiting, so frames need no length prefix or newline separator.
Each frame carries an ID field that is echoed back on the matching response.

Search requests use mainly this structure:

	{"id": "req_001", "q": "hapy", "l": 24}

The server responds with matches ranked by score:

	{"id": "req_001", "r": [{"w": "happy", "s": 0.86, "k": 1}], "c": 1, "t": 145}

The four passes can be toggled per request with the "e", "s", "p" and "m"
fields; omitted toggles fall back to the engine defaults. Management actions
select the operation through the "a" field:

	{"id": "add_001", "a": "add_word", "w": "zeal", "f": 60}
	{"id": "st_001", "a": "stats"}

Validation failures and malformed frames are answered with an error frame
carrying the request ID when one could be read:

	{"id": "req_002", "e": "missing 'q' parameter", "c": 400}

A frame that cannot be decoded at all is answered and skipped; the stream
keeps serving later frames. EOF on stdin shuts the loop down cleanly.

# Message Types

Request covers every client frame. An empty action means "search", so the
hot path spends no bytes on it.

SearchResponse carries the ranked matches with word, score, kind and the
stored entry when the word has one, plus timing in microseconds.

AckResponse acknowledges management actions. StatsResponse snapshots the
lexicon, phonetic index and result cache counters.

msgpack encoding has roughly 30 to 50% smaller frames compared to JSON and
parses faster on both ends, which matters when an editor client fires a
request per keystroke.
*/
package server

import (
	"github.com/bastiangx/lexiserve/pkg/cache"
	"github.com/bastiangx/lexiserve/pkg/search"
)

// Request is a single client frame. Action selects the operation and
// defaults to "search" when empty. The pass toggles are pointers so an
// omitted field is distinguishable from an explicit false.
type Request struct {
	ID         string `msgpack:"id"`
	Action     string `msgpack:"a,omitempty"`
	Query      string `msgpack:"q,omitempty"`
	Limit      int    `msgpack:"l,omitempty"`
	Exact      *bool  `msgpack:"e,omitempty"`
	Spelling   *bool  `msgpack:"s,omitempty"`
	Phonetic   *bool  `msgpack:"p,omitempty"`
	Meaning    *bool  `msgpack:"m,omitempty"`
	Word       string `msgpack:"w,omitempty"`
	Frequency  int    `msgpack:"f,omitempty"`
	Definition string `msgpack:"d,omitempty"`
}

// SearchResponse - ranked matches for one query
type SearchResponse struct {
	ID        string          `msgpack:"id"`
	Results   []search.Result `msgpack:"r"`
	Count     int             `msgpack:"c"`
	TimeTaken int64           `msgpack:"t"`
}

// AckResponse - management action acknowledgment
type AckResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// StatsResponse - engine counters snapshot
type StatsResponse struct {
	ID       string         `msgpack:"id"`
	Status   string         `msgpack:"status"`
	Lexicon  map[string]int `msgpack:"lexicon,omitempty"`
	Phonetic map[string]int `msgpack:"phonetic,omitempty"`
	Cache    cache.Stats    `msgpack:"cache"`
}

// ErrorResponse holds basic error information for rejected requests
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
