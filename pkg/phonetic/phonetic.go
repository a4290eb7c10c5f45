// Package phonetic finds words that sound like a query even when spelled
// very differently. It keeps reverse indexes from pronunciation codes to
// words: Double Metaphone primary and secondary codes, plus a coarser
// in-house refined code that smooths over vowel and digraph variation.
package phonetic

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Weight each code class contributes when a candidate shares it with the
// query. Primary metaphone agreement is the strongest phonetic signal, the
// secondary code covers alternate pronunciations at 80% of that, and the
// refined code is a loose corroborating hint.
const (
	primaryWeight   = 0.7
	secondaryWeight = 0.56
	refinedWeight   = 0.3

	defaultCodeCacheSize = 10000
)

// ErrEmptyWord is returned when a word reduces to nothing after trimming.
var ErrEmptyWord = errors.New("phonetic: empty word")

// Match is one phonetically similar word with its normalized weight in
// (0, 1]; the best match of a query always carries weight 1.
type Match struct {
	Word   string
	Weight float64
}

type wordCodes struct {
	primary   string
	secondary string
	refined   string
}

// Index maps pronunciation codes back to the words that produce them.
// Safe for concurrent use.
type Index struct {
	mu          sync.RWMutex
	byPrimary   map[string]map[string]struct{}
	bySecondary map[string]map[string]struct{}
	byRefined   map[string]map[string]struct{}
	codes       *lru.Cache[string, wordCodes]
}

// NewIndex creates an empty phonetic index with the default code memo size.
func NewIndex() *Index {
	return NewIndexWithCacheSize(defaultCodeCacheSize)
}

// NewIndexWithCacheSize creates an empty phonetic index whose code memo
// holds up to size entries.
func NewIndexWithCacheSize(size int) *Index {
	if size <= 0 {
		size = defaultCodeCacheSize
	}
	codes, _ := lru.New[string, wordCodes](size)
	return &Index{
		byPrimary:   make(map[string]map[string]struct{}),
		bySecondary: make(map[string]map[string]struct{}),
		byRefined:   make(map[string]map[string]struct{}),
		codes:       codes,
	}
}

// AddWord indexes a word under each of its pronunciation codes.
// Adding the same word twice is a no-op.
func (ix *Index) AddWord(word string) error {
	normalized, codes, err := ix.codesFor(word)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	addTo(ix.byPrimary, codes.primary, normalized)
	addTo(ix.bySecondary, codes.secondary, normalized)
	addTo(ix.byRefined, codes.refined, normalized)
	return nil
}

func addTo(bucket map[string]map[string]struct{}, code, word string) {
	if code == "" {
		return
	}
	words, ok := bucket[code]
	if !ok {
		words = make(map[string]struct{})
		bucket[code] = words
	}
	words[word] = struct{}{}
}

// FindSimilar returns indexed words sharing at least one pronunciation code
// with the query, heaviest first and alphabetical within equal weight.
// Weights are normalized so the strongest match is 1. The query word itself
// is never returned. Unindexable queries simply yield nothing.
func (ix *Index) FindSimilar(word string) []Match {
	normalized, codes, err := ix.codesFor(word)
	if err != nil {
		return nil
	}

	ix.mu.RLock()
	weights := make(map[string]float64)
	accumulate := func(bucket map[string]map[string]struct{}, code string, weight float64) {
		if code == "" {
			return
		}
		for candidate := range bucket[code] {
			if candidate == normalized {
				continue
			}
			weights[candidate] += weight
		}
	}
	accumulate(ix.byPrimary, codes.primary, primaryWeight)
	accumulate(ix.bySecondary, codes.secondary, secondaryWeight)
	accumulate(ix.byRefined, codes.refined, refinedWeight)
	ix.mu.RUnlock()

	if len(weights) == 0 {
		return nil
	}

	maxWeight := 0.0
	for _, w := range weights {
		if w > maxWeight {
			maxWeight = w
		}
	}

	matches := make([]Match, 0, len(weights))
	for candidate, weight := range weights {
		matches = append(matches, Match{Word: candidate, Weight: weight / maxWeight})
	}
	sortMatches(matches)
	return matches
}

func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Weight != matches[j].Weight {
			return matches[i].Weight > matches[j].Weight
		}
		return matches[i].Word < matches[j].Word
	})
}

// codesFor computes the three pronunciation codes of a word, memoized since
// the same vocabulary is coded over and over across queries.
func (ix *Index) codesFor(word string) (string, wordCodes, error) {
	normalized := strings.ToLower(strings.TrimSpace(word))
	if normalized == "" {
		return "", wordCodes{}, ErrEmptyWord
	}

	if cached, ok := ix.codes.Get(normalized); ok {
		return normalized, cached, nil
	}

	primary, secondary := matchr.DoubleMetaphone(normalized)
	codes := wordCodes{
		primary:   primary,
		secondary: secondary,
		refined:   refineCode(normalized),
	}
	ix.codes.Add(normalized, codes)
	return normalized, codes, nil
}

// Stats returns counters about the reverse indexes.
func (ix *Index) Stats() map[string]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return map[string]int{
		"primaryCodes":   len(ix.byPrimary),
		"secondaryCodes": len(ix.bySecondary),
		"refinedCodes":   len(ix.byRefined),
		"cachedCodes":    ix.codes.Len(),
	}
}
