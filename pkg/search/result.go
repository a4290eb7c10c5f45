package search

import (
	"fmt"
	"sort"

	"github.com/bastiangx/lexiserve/pkg/lexicon"
)

// Kind classifies how a result was found. Declaration order is precedence
// order: when one word surfaces from several passes at the same score, the
// lower Kind wins deduplication.
type Kind uint8

const (
	Exact Kind = iota
	Spelling
	Phonetic
	Meaning
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Spelling:
		return "spelling"
	case Phonetic:
		return "phonetic"
	case Meaning:
		return "meaning"
	}
	return "unknown"
}

// Result is one ranked match. Entry, when present, is a copy; results never
// alias live index data, so they are safe to cache and hand across
// goroutines.
type Result struct {
	Word  string         `msgpack:"w" json:"word"`
	Score float64        `msgpack:"s" json:"score"`
	Kind  Kind           `msgpack:"k" json:"kind"`
	Entry *lexicon.Entry `msgpack:"e,omitempty" json:"entry,omitempty"`
}

// Options selects which passes run and bounds the result count.
// MaxResults 0 defers to the engine's configured bound.
type Options struct {
	Exact      bool
	Spelling   bool
	Phonetic   bool
	Meaning    bool
	MaxResults int
}

// DefaultOptions enables every pass with the engine's configured bound.
func DefaultOptions() Options {
	return Options{Exact: true, Spelling: true, Phonetic: true, Meaning: true}
}

// token serializes the options into a stable cache key fragment, so the
// same query under different passes or bounds caches separately.
func (o Options) token() string {
	mask := 0
	if o.Exact {
		mask |= 1
	}
	if o.Spelling {
		mask |= 2
	}
	if o.Phonetic {
		mask |= 4
	}
	if o.Meaning {
		mask |= 8
	}
	return fmt.Sprintf("%d:%d", mask, o.MaxResults)
}

// MeaningHit is one concept-level match supplied by a MeaningSource.
type MeaningHit struct {
	Name       string
	Definition string
	Score      float64
}

// MeaningSource supplies the meaning pass: matches based on what a term
// means rather than how it is spelled. Word-only deployments run without
// one.
type MeaningSource interface {
	SearchMeaning(query string, limit int) []MeaningHit
}

// betterResult decides whether a challenger replaces the incumbent for the
// same word: higher score wins, equal scores fall back to kind precedence.
func betterResult(incumbent, challenger Result) bool {
	if challenger.Score != incumbent.Score {
		return challenger.Score > incumbent.Score
	}
	return challenger.Kind < incumbent.Kind
}

// sortResults orders by score descending, then word ascending. After
// deduplication words are unique, so the ordering is total and every query
// reproduces the same list.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Word < results[j].Word
	})
}
