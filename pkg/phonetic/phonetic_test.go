package phonetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefineCode(t *testing.T) {
	testCases := []struct {
		word        string
		expected    string
		description string
	}{
		{"phone", "fana", "ph digraph then vowel collapse"},
		{"fone", "fana", "spelled-out variant lands on the same code"},
		{"night", "nat", "ght reduces to t"},
		{"quick", "kwack", "qu becomes kw"},
		{"letter", "latar", "doubled consonant collapses"},
		{"bookkeeper", "bakapar", "runs and doubles together"},
		{"banana", "banana", "already minimal"},
		{"ooze", "aza", "leading and trailing vowel runs"},
	}

	for _, tc := range testCases {
		t.Run(tc.word, func(t *testing.T) {
			assert.Equal(t, tc.expected, refineCode(tc.word))
		})
	}
}

func TestFindSimilarSpelledOutVariant(t *testing.T) {
	ix := NewIndex()
	for _, w := range []string{"phone", "foam", "cat"} {
		require.NoError(t, ix.AddWord(w))
	}

	matches := ix.FindSimilar("fone")
	require.Len(t, matches, 1, "only the homophone should surface")
	assert.Equal(t, "phone", matches[0].Word)
	assert.Equal(t, 1.0, matches[0].Weight, "the best match is normalized to 1")
}

func TestFindSimilarExcludesQueryWord(t *testing.T) {
	ix := NewIndex()
	require.NoError(t, ix.AddWord("phone"))
	require.NoError(t, ix.AddWord("fone"))

	matches := ix.FindSimilar("phone")
	words := make([]string, 0, len(matches))
	for _, m := range matches {
		words = append(words, m.Word)
	}
	assert.Contains(t, words, "fone")
	assert.NotContains(t, words, "phone", "a word never matches itself")
}

func TestFindSimilarTieBreaksAlphabetically(t *testing.T) {
	ix := NewIndex()
	// Both share every code class with the query, so both normalize to 1.
	require.NoError(t, ix.AddWord("phone"))
	require.NoError(t, ix.AddWord("fanna"))

	matches := ix.FindSimilar("fone")
	require.Len(t, matches, 2)
	assert.Equal(t, "fanna", matches[0].Word)
	assert.Equal(t, "phone", matches[1].Word)
	assert.Equal(t, matches[0].Weight, matches[1].Weight)
}

func TestFindSimilarDegenerateInputs(t *testing.T) {
	ix := NewIndex()
	assert.Empty(t, ix.FindSimilar("hello"), "empty index yields nothing")
	assert.Empty(t, ix.FindSimilar("   "), "blank query yields nothing")

	require.NoError(t, ix.AddWord("hello"))
	assert.Empty(t, ix.FindSimilar("xylophone"), "no shared codes yields nothing")
}

func TestAddWordEmpty(t *testing.T) {
	ix := NewIndex()
	err := ix.AddWord("  ")
	assert.ErrorIs(t, err, ErrEmptyWord)
}

func TestSortMatches(t *testing.T) {
	matches := []Match{
		{Word: "beta", Weight: 0.5},
		{Word: "alpha", Weight: 0.5},
		{Word: "gamma", Weight: 0.9},
	}
	sortMatches(matches)

	assert.Equal(t, "gamma", matches[0].Word, "heaviest first")
	assert.Equal(t, "alpha", matches[1].Word, "alphabetical within equal weight")
	assert.Equal(t, "beta", matches[2].Word)
}

func TestStats(t *testing.T) {
	ix := NewIndex()
	require.NoError(t, ix.AddWord("phone"))
	require.NoError(t, ix.AddWord("cat"))

	stats := ix.Stats()
	assert.Equal(t, 2, stats["primaryCodes"])
	assert.Equal(t, 2, stats["refinedCodes"])
	assert.GreaterOrEqual(t, stats["cachedCodes"], 2)
}
