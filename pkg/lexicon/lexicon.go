// Package lexicon stores the vocabulary and partitions it into length, first
// character and prefix buckets so fuzzy lookups only ever score a narrow
// candidate band instead of the whole word list.
package lexicon

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Entry is a single vocabulary item. Immutable once inserted except for
// frequency bumps and metadata merges done through Insert.
type Entry struct {
	Word         string `msgpack:"w"`
	Definition   string `msgpack:"d,omitempty"`
	PartOfSpeech string `msgpack:"p,omitempty"`
	Frequency    int    `msgpack:"f"`
}

// Metadata carries the optional Entry fields at insert time.
type Metadata struct {
	Definition   string
	PartOfSpeech string
}

// InvalidInputError reports a word rejected by insert validation.
// Callers decide whether to skip the entry or abort the batch.
type InvalidInputError struct {
	Word   string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid word %q: %s", e.Word, e.Reason)
}

// Index owns the vocabulary and its derived buckets. The buckets are caches
// rebuildable from the entries map at any time. Reads run concurrently;
// inserts serialize on the writer lock since bucket updates are multi-step.
type Index struct {
	mu           sync.RWMutex
	entries      map[string]*Entry
	byLength     map[int]map[string]struct{}
	byFirstChar  map[rune]map[string]struct{}
	prefixes     *patricia.Trie
	maxFrequency int
	strict       bool
}

// New creates an Index with strict validation: inserted words must be
// non-empty and letters only.
func New() *Index {
	return NewWithPolicy(true)
}

// NewWithPolicy creates an Index with the given validation policy.
// When validateWords is false, only empty words are rejected.
func NewWithPolicy(validateWords bool) *Index {
	return &Index{
		entries:     make(map[string]*Entry),
		byLength:    make(map[int]map[string]struct{}),
		byFirstChar: make(map[rune]map[string]struct{}),
		prefixes:    patricia.NewTrie(),
		strict:      validateWords,
	}
}

// Insert adds a word with its frequency and optional metadata. Words are
// lower-cased before storage. Re-inserting an existing word keeps the max of
// the old and new frequency and merges non-empty metadata fields.
func (ix *Index) Insert(word string, frequency int, meta *Metadata) error {
	normalized := strings.ToLower(word)
	if err := ix.validate(normalized); err != nil {
		return err
	}
	if frequency < 0 {
		return &InvalidInputError{Word: word, Reason: "negative frequency"}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if existing, ok := ix.entries[normalized]; ok {
		if frequency > existing.Frequency {
			existing.Frequency = frequency
			ix.prefixes.Set(patricia.Prefix(normalized), frequency)
		}
		if meta != nil {
			if meta.Definition != "" {
				existing.Definition = meta.Definition
			}
			if meta.PartOfSpeech != "" {
				existing.PartOfSpeech = meta.PartOfSpeech
			}
		}
		if existing.Frequency > ix.maxFrequency {
			ix.maxFrequency = existing.Frequency
		}
		return nil
	}

	entry := &Entry{Word: normalized, Frequency: frequency}
	if meta != nil {
		entry.Definition = meta.Definition
		entry.PartOfSpeech = meta.PartOfSpeech
	}
	ix.addLocked(entry)
	return nil
}

// validate rejects words the bucket indexes cannot hold.
func (ix *Index) validate(normalized string) error {
	if normalized == "" {
		return &InvalidInputError{Word: normalized, Reason: "empty word"}
	}
	if !ix.strict {
		return nil
	}
	for _, r := range normalized {
		if !unicode.IsLetter(r) {
			return &InvalidInputError{Word: normalized, Reason: "contains non-letter characters"}
		}
	}
	return nil
}

// addLocked wires a new entry into every bucket. Caller holds the write lock
// and has already checked the word is absent.
func (ix *Index) addLocked(entry *Entry) {
	ix.entries[entry.Word] = entry

	length := utf8.RuneCountInString(entry.Word)
	lengthBucket, ok := ix.byLength[length]
	if !ok {
		lengthBucket = make(map[string]struct{})
		ix.byLength[length] = lengthBucket
	}
	lengthBucket[entry.Word] = struct{}{}

	first, _ := utf8.DecodeRuneInString(entry.Word)
	firstBucket, ok := ix.byFirstChar[first]
	if !ok {
		firstBucket = make(map[string]struct{})
		ix.byFirstChar[first] = firstBucket
	}
	firstBucket[entry.Word] = struct{}{}

	ix.prefixes.Insert(patricia.Prefix(entry.Word), entry.Frequency)

	if entry.Frequency > ix.maxFrequency {
		ix.maxFrequency = entry.Frequency
	}
}

// Contains reports exact case-insensitive membership.
func (ix *Index) Contains(word string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.entries[strings.ToLower(word)]
	return ok
}

// FrequencyOf returns the stored frequency, 0 when the word is absent.
func (ix *Index) FrequencyOf(word string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if entry, ok := ix.entries[strings.ToLower(word)]; ok {
		return entry.Frequency
	}
	return 0
}

// Lookup returns a copy of the stored entry. Results never alias the
// index's own entry, so callers and caches can hold them freely.
func (ix *Index) Lookup(word string) (Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if entry, ok := ix.entries[strings.ToLower(word)]; ok {
		return *entry, true
	}
	return Entry{}, false
}

// MaxFrequency returns the highest frequency seen so far.
func (ix *Index) MaxFrequency() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.maxFrequency
}

// Len returns the number of stored words.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Words returns all stored words sorted ascending.
func (ix *Index) Words() []string {
	ix.mu.RLock()
	words := make([]string, 0, len(ix.entries))
	for w := range ix.entries {
		words = append(words, w)
	}
	ix.mu.RUnlock()

	sort.Strings(words)
	return words
}

// CandidatesNearLength returns words within the length tolerance of the
// query that also share its first character. This is the fuzzy narrowing
// step: it trades recall for speed by assuming true near-misses start with
// the same letter and sit in a small length band.
func (ix *Index) CandidatesNearLength(word string, tolerance int) []string {
	normalized := strings.ToLower(word)
	if normalized == "" {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	first, _ := utf8.DecodeRuneInString(normalized)
	firstBucket, ok := ix.byFirstChar[first]
	if !ok {
		return nil
	}

	length := utf8.RuneCountInString(normalized)
	var candidates []string
	for l := length - tolerance; l <= length+tolerance; l++ {
		for candidate := range ix.byLength[l] {
			if _, shared := firstBucket[candidate]; shared {
				candidates = append(candidates, candidate)
			}
		}
	}
	return candidates
}

// PrefixMatches returns every stored word starting with the given prefix.
// The prefix itself is skipped when includeSelf is false.
func (ix *Index) PrefixMatches(prefix string, includeSelf bool) []string {
	normalized := strings.ToLower(prefix)
	if normalized == "" {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var matches []string
	err := ix.prefixes.VisitSubtree(patricia.Prefix(normalized), func(p patricia.Prefix, item patricia.Item) error {
		word := string(p)
		if !includeSelf && word == normalized {
			return nil
		}
		matches = append(matches, word)
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting prefix subtree: %v", err)
	}

	return matches
}

// Stats returns counters about the index and its buckets.
func (ix *Index) Stats() map[string]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return map[string]int{
		"totalWords":       len(ix.entries),
		"maxFrequency":     ix.maxFrequency,
		"lengthBuckets":    len(ix.byLength),
		"firstCharBuckets": len(ix.byFirstChar),
	}
}
