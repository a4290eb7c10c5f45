package lexicon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertValidation(t *testing.T) {
	testCases := []struct {
		word        string
		frequency   int
		wantErr     bool
		description string
	}{
		{"hello", 10, false, "plain lowercase word"},
		{"Hello", 10, false, "uppercase is normalized, not rejected"},
		{"héllo", 10, false, "accented letters are letters"},
		{"", 10, true, "empty word"},
		{"hello123", 10, true, "digits rejected under strict policy"},
		{"hello world", 10, true, "whitespace rejected under strict policy"},
		{"don't", 10, true, "punctuation rejected under strict policy"},
		{"hello", -1, true, "negative frequency"},
	}

	ix := New()
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			err := ix.Insert(tc.word, tc.frequency, nil)
			if tc.wantErr {
				require.Error(t, err)
				var invalid *InvalidInputError
				assert.True(t, errors.As(err, &invalid), "error should be *InvalidInputError, got %T", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPermissivePolicy(t *testing.T) {
	ix := NewWithPolicy(false)

	require.NoError(t, ix.Insert("hello123", 5, nil))
	assert.True(t, ix.Contains("hello123"))

	err := ix.Insert("", 5, nil)
	assert.Error(t, err, "empty words are rejected even without strict validation")
}

func TestInsertKeepsMaxFrequency(t *testing.T) {
	ix := New()

	require.NoError(t, ix.Insert("hello", 100, nil))
	require.NoError(t, ix.Insert("hello", 40, nil))
	assert.Equal(t, 100, ix.FrequencyOf("hello"), "lower re-insert must not shrink frequency")

	require.NoError(t, ix.Insert("hello", 250, nil))
	assert.Equal(t, 250, ix.FrequencyOf("hello"))
	assert.Equal(t, 250, ix.MaxFrequency())
	assert.Equal(t, 1, ix.Len(), "re-inserts must not duplicate the word")
}

func TestInsertMergesMetadata(t *testing.T) {
	ix := New()

	require.NoError(t, ix.Insert("run", 10, &Metadata{PartOfSpeech: "verb"}))
	require.NoError(t, ix.Insert("run", 10, &Metadata{Definition: "to move quickly"}))

	entry, ok := ix.Lookup("run")
	require.True(t, ok)
	assert.Equal(t, "verb", entry.PartOfSpeech, "earlier metadata survives a merge")
	assert.Equal(t, "to move quickly", entry.Definition)
}

func TestCaseInsensitiveReads(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert("Hello", 10, nil))

	assert.True(t, ix.Contains("HELLO"))
	assert.Equal(t, 10, ix.FrequencyOf("hEllO"))

	entry, ok := ix.Lookup("HELLO")
	require.True(t, ok)
	assert.Equal(t, "hello", entry.Word, "stored form is lowercase")
}

func TestLookupReturnsCopy(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert("hello", 10, nil))

	entry, ok := ix.Lookup("hello")
	require.True(t, ok)
	entry.Frequency = 9999

	assert.Equal(t, 10, ix.FrequencyOf("hello"), "mutating a lookup result must not touch the index")
}

func TestCandidatesNearLength(t *testing.T) {
	ix := New()
	words := map[string]int{
		"happy":   100,
		"happily": 80,
		"haply":   5,
		"help":    60,
		"hi":      90,
		"banana":  70,
	}
	for w, f := range words {
		require.NoError(t, ix.Insert(w, f, nil))
	}

	testCases := []struct {
		query       string
		tolerance   int
		want        []string
		description string
	}{
		{"hapy", 2, []string{"happy", "haply", "help", "hi"}, "length band 2..6 intersected with h bucket"},
		{"happily", 2, []string{"happy", "haply"}, "band 5..9 excludes the short h words"},
		{"banan", 2, []string{"banana"}, "different first char isolates its own bucket"},
		{"zebra", 2, nil, "unknown first char yields nothing"},
		{"", 2, nil, "empty query yields nothing"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := ix.CandidatesNearLength(tc.query, tc.tolerance)
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestCandidatesIncludeQueryWordItself(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert("happy", 100, nil))

	got := ix.CandidatesNearLength("happy", 2)
	assert.Contains(t, got, "happy", "narrowing does not filter the query; callers decide")
}

func TestPrefixMatches(t *testing.T) {
	ix := New()
	for _, w := range []string{"help", "helper", "helping", "hello", "helicopter"} {
		require.NoError(t, ix.Insert(w, 10, nil))
	}

	testCases := []struct {
		prefix      string
		includeSelf bool
		want        []string
		description string
	}{
		{"help", false, []string{"helper", "helping"}, "extensions only by default"},
		{"help", true, []string{"help", "helper", "helping"}, "includeSelf keeps the exact match"},
		{"hel", false, []string{"help", "helper", "helping", "hello", "helicopter"}, "prefix that is not itself a word"},
		{"helz", false, nil, "unknown prefix"},
		{"", false, nil, "empty prefix"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := ix.PrefixMatches(tc.prefix, tc.includeSelf)
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestStats(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Insert("hi", 5, nil))
	require.NoError(t, ix.Insert("ho", 7, nil))
	require.NoError(t, ix.Insert("banana", 3, nil))

	stats := ix.Stats()
	assert.Equal(t, 3, stats["totalWords"])
	assert.Equal(t, 7, stats["maxFrequency"])
	assert.Equal(t, 2, stats["lengthBuckets"])
	assert.Equal(t, 2, stats["firstCharBuckets"])
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.bin")

	ix := New()
	require.NoError(t, ix.Insert("hello", 100, &Metadata{PartOfSpeech: "interjection"}))
	require.NoError(t, ix.Insert("help", 60, nil))
	require.NoError(t, ix.SaveSnapshot(path))

	restored := New()
	require.NoError(t, restored.LoadSnapshot(path))

	assert.Equal(t, ix.Words(), restored.Words())
	assert.Equal(t, 100, restored.FrequencyOf("hello"))
	assert.Equal(t, 100, restored.MaxFrequency())

	entry, ok := restored.Lookup("hello")
	require.True(t, ok)
	assert.Equal(t, "interjection", entry.PartOfSpeech)

	got := restored.PrefixMatches("hel", false)
	assert.ElementsMatch(t, []string{"hello", "help"}, got, "buckets are rebuilt on load")
}

func TestSnapshotMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	ix := New()
	require.NoError(t, ix.LoadSnapshot(filepath.Join(dir, "absent.bin")), "missing snapshot is a fresh start")
	assert.Equal(t, 0, ix.Len())

	corrupt := filepath.Join(dir, "corrupt.bin")
	require.NoError(t, os.WriteFile(corrupt, []byte("not msgpack at all"), 0644))
	require.NoError(t, ix.LoadSnapshot(corrupt), "corrupt snapshot is discarded, not fatal")
	assert.Equal(t, 0, ix.Len())
}
