// Package similarity scores how close two words are, blending edit distance
// with corpus frequency so common words outrank rare ones at equal distance.
package similarity

import (
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultSimilarityWeight = 0.7
	defaultFrequencyWeight  = 0.3
	defaultMaxLengthDelta   = 2
	defaultPairCacheSize    = 1000
)

// FrequencySource supplies corpus frequencies for the blended score.
// *lexicon.Index satisfies it.
type FrequencySource interface {
	FrequencyOf(word string) int
	MaxFrequency() int
}

// Scorer computes pairwise word similarity and memoizes the edit-distance
// half, which is the expensive part. Safe for concurrent use; the pair cache
// synchronizes internally.
type Scorer struct {
	freqs          FrequencySource
	simWeight      float64
	freqWeight     float64
	maxLengthDelta int
	cacheSize      int
	pairs          *lru.Cache[string, float64]
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights overrides the similarity/frequency blend. Weights are taken
// as-is; Score clamps its output to [0, 1] regardless.
func WithWeights(similarity, frequency float64) Option {
	return func(s *Scorer) {
		s.simWeight = similarity
		s.freqWeight = frequency
	}
}

// WithMaxLengthDelta sets the length gap above which word pairs are
// rejected as dissimilar without running the edit-distance program.
func WithMaxLengthDelta(delta int) Option {
	return func(s *Scorer) {
		s.maxLengthDelta = delta
	}
}

// WithCacheSize sets the capacity of the pair memo.
func WithCacheSize(size int) Option {
	return func(s *Scorer) {
		s.cacheSize = size
	}
}

// NewScorer creates a Scorer backed by the given frequency source.
// A nil source disables the frequency half of the blend.
func NewScorer(freqs FrequencySource, opts ...Option) *Scorer {
	s := &Scorer{
		freqs:          freqs,
		simWeight:      defaultSimilarityWeight,
		freqWeight:     defaultFrequencyWeight,
		maxLengthDelta: defaultMaxLengthDelta,
		cacheSize:      defaultPairCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize <= 0 {
		s.cacheSize = defaultPairCacheSize
	}
	// The size is clamped positive above, so construction cannot fail.
	s.pairs, _ = lru.New[string, float64](s.cacheSize)
	return s
}

// Similarity returns the normalized edit similarity of two words in [0, 1]:
// 1 minus the Levenshtein distance over the longer length. Pairs whose
// lengths differ by more than the configured delta score exactly 0 without
// touching the dynamic program. Case-insensitive and symmetric.
func (s *Scorer) Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1.0
	}

	lenA := utf8.RuneCountInString(a)
	lenB := utf8.RuneCountInString(b)
	delta := lenA - lenB
	if delta < 0 {
		delta = -delta
	}
	if delta > s.maxLengthDelta {
		return 0.0
	}

	key := pairKey(a, b)
	if sim, ok := s.pairs.Get(key); ok {
		return sim
	}

	longest := max(lenA, lenB)
	sim := 1.0 - float64(levenshteinDistance(a, b))/float64(longest)
	s.pairs.Add(key, sim)
	return sim
}

// Score blends edit similarity with the candidate's frequency relative to
// the corpus maximum, clamped to [0, 1]. Frequencies move as words are
// added, so this half is always computed fresh.
func (s *Scorer) Score(word, candidate string) float64 {
	sim := s.Similarity(word, candidate)

	var freqPart float64
	if s.freqs != nil {
		if maxFreq := s.freqs.MaxFrequency(); maxFreq > 0 {
			freqPart = float64(s.freqs.FrequencyOf(candidate)) / float64(maxFreq)
		}
	}

	score := s.simWeight*sim + s.freqWeight*freqPart
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// pairKey builds an order-independent memo key, so (a, b) and (b, a) share
// one slot.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}
