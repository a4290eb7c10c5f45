// Package concepts serves definition-style lookups over a curated list of
// named ideas with domain metadata, related terms and synonyms. It backs the
// meaning pass of the search engine: matches here come from what a term
// means, not how it is spelled.
package concepts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/BurntSushi/toml"
	"github.com/antzucaro/matchr"
	"github.com/charmbracelet/log"
)

const (
	// fuzzyTokenThreshold is the Jaro-Winkler floor below which a token is
	// considered unrelated to the query.
	fuzzyTokenThreshold = 0.7
	// fuzzyTokenWeight discounts fuzzy token hits against exact ones.
	fuzzyTokenWeight = 0.9
	// relatedWeight discounts concepts pulled in through a Related link.
	relatedWeight = 0.9
)

// ErrUnnamed is returned when a concept has no name after trimming.
var ErrUnnamed = errors.New("concepts: concept has no name")

// Concept is one named idea. Name is required; everything else is optional
// context surfaced with search results.
type Concept struct {
	Name       string   `toml:"name" msgpack:"name"`
	Definition string   `toml:"definition" msgpack:"definition,omitempty"`
	Domain     string   `toml:"domain" msgpack:"domain,omitempty"`
	Field      string   `toml:"field" msgpack:"field,omitempty"`
	Topic      string   `toml:"topic" msgpack:"topic,omitempty"`
	Related    []string `toml:"related" msgpack:"related,omitempty"`
	Synonyms   []string `toml:"synonyms" msgpack:"synonyms,omitempty"`
}

// Match is one scored concept. The concept is a copy, safe to hold.
type Match struct {
	Concept Concept
	Score   float64
}

// Library holds concepts with a token reverse index over names and synonyms.
// Append-mostly: safe for concurrent reads, adds serialize on a writer lock.
type Library struct {
	mu     sync.RWMutex
	byName map[string]*Concept
	tokens map[string]map[string]struct{}
}

// NewLibrary creates an empty concept library.
func NewLibrary() *Library {
	return &Library{
		byName: make(map[string]*Concept),
		tokens: make(map[string]map[string]struct{}),
	}
}

// Add stores a concept and indexes every token of its name and synonyms.
// Adding a concept under an existing name replaces it.
func (l *Library) Add(c Concept) error {
	name := strings.ToLower(strings.TrimSpace(c.Name))
	if name == "" {
		return ErrUnnamed
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stored := c
	l.byName[name] = &stored
	for _, tok := range tokenize(c.Name) {
		l.addTokenLocked(tok, name)
	}
	for _, syn := range c.Synonyms {
		for _, tok := range tokenize(syn) {
			l.addTokenLocked(tok, name)
		}
	}
	return nil
}

func (l *Library) addTokenLocked(tok, name string) {
	set, ok := l.tokens[tok]
	if !ok {
		set = make(map[string]struct{})
		l.tokens[tok] = set
	}
	set[name] = struct{}{}
}

// LoadFile reads [[concept]] blocks from a TOML file. Unnamed concepts are
// skipped with a warning; the count of loaded concepts is returned.
func (l *Library) LoadFile(path string) (int, error) {
	var doc struct {
		Concepts []Concept `toml:"concept"`
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return 0, fmt.Errorf("failed to load concepts from %s: %w", path, err)
	}

	added := 0
	for _, c := range doc.Concepts {
		if err := l.Add(c); err != nil {
			log.Warnf("Skipping unnamed concept in %s", path)
			continue
		}
		added++
	}

	log.Debugf("Loaded %d concepts from %s", added, path)
	return added, nil
}

// Get returns a copy of the concept stored under name, case-insensitive.
func (l *Library) Get(name string) (Concept, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if c, ok := l.byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return *c, true
	}
	return Concept{}, false
}

// Len returns the number of stored concepts.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byName)
}

// Search scores concepts against a query: an exact name or indexed token
// match scores 1, a fuzzy token match above the Jaro-Winkler floor scores
// 0.9 times the similarity, and concepts related to any match inherit 0.9
// of their source's score. Each concept keeps only its best score. Results
// come back score descending, name ascending, truncated to limit when
// positive.
func (l *Library) Search(query string, limit int) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	scores := make(map[string]float64)
	bump := func(name string, score float64) {
		if score > scores[name] {
			scores[name] = score
		}
	}

	if _, ok := l.byName[q]; ok {
		bump(q, 1.0)
	}
	for name := range l.tokens[q] {
		bump(name, 1.0)
	}

	for tok, names := range l.tokens {
		if tok == q {
			continue
		}
		sim := matchr.JaroWinkler(q, tok, false)
		if sim > fuzzyTokenThreshold {
			for name := range names {
				bump(name, fuzzyTokenWeight*sim)
			}
		}
	}

	// One level of Related expansion, computed against a snapshot so a
	// pulled-in concept cannot pull in its own relations.
	related := make(map[string]float64)
	for name, score := range scores {
		for _, rel := range l.byName[name].Related {
			relName := strings.ToLower(strings.TrimSpace(rel))
			if _, ok := l.byName[relName]; !ok {
				continue
			}
			if relatedWeight*score > related[relName] {
				related[relName] = relatedWeight * score
			}
		}
	}
	for name, score := range related {
		bump(name, score)
	}

	matches := make([]Match, 0, len(scores))
	for name, score := range scores {
		matches = append(matches, Match{Concept: *l.byName[name], Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return strings.ToLower(matches[i].Concept.Name) < strings.ToLower(matches[j].Concept.Name)
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Stats returns counters about the library and its token index.
func (l *Library) Stats() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return map[string]int{
		"concepts": len(l.byName),
		"tokens":   len(l.tokens),
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
