// Package dictionary loads vocabulary files into the engine: compact binary
// chunks (dict_NNNN.bin) or plain text word lists. The binary layout is a
// little-endian int32 entry count followed by, per entry, a uint16 byte
// length, the UTF-8 word bytes, and a uint32 frequency.
package dictionary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/lexiserve/pkg/lexicon"
)

const (
	// maxWordBytes bounds a single encoded word; anything longer means the
	// file is corrupt or not ours.
	maxWordBytes = 128
	// maxEntries bounds the declared entry count of one chunk.
	maxEntries = 10_000_000
	// DefaultChunkSize is how many entries Convert packs per binary chunk.
	DefaultChunkSize = 10000
)

// ErrNoDictionaryFiles means a data directory held nothing loadable.
var ErrNoDictionaryFiles = errors.New("dictionary: no dictionary files found")

// InsertFunc consumes one vocabulary entry. Engine.AddWord and
// lexicon.Index.Insert both satisfy it. A returned error skips the entry,
// it never aborts the file.
type InsertFunc func(word string, frequency int, meta *lexicon.Metadata) error

// Stats counts what a load actually did.
type Stats struct {
	Files   int
	Words   int
	Skipped int
}

func (s *Stats) add(o Stats) {
	s.Files += o.Files
	s.Words += o.Words
	s.Skipped += o.Skipped
}

// WordEntry is one (word, frequency) pair for SaveBinary and Convert.
type WordEntry struct {
	Word      string
	Frequency int
}

// LoadBinary streams one binary chunk into insert. Structural damage
// (truncation, absurd lengths) aborts with an error; entries the sink
// rejects are counted as skipped and do not.
func LoadBinary(path string, insert InsertFunc) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open dictionary %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return Stats{}, fmt.Errorf("failed to read entry count from %s: %w", path, err)
	}
	if count < 0 || count > maxEntries {
		return Stats{}, fmt.Errorf("dictionary %s declares %d entries, refusing", path, count)
	}

	stats := Stats{Files: 1}
	buf := make([]byte, maxWordBytes)
	for i := int32(0); i < count; i++ {
		var wordLen uint16
		if err := binary.Read(r, binary.LittleEndian, &wordLen); err != nil {
			return stats, fmt.Errorf("truncated dictionary %s at entry %d: %w", path, i, err)
		}
		if int(wordLen) > maxWordBytes {
			return stats, fmt.Errorf("dictionary %s entry %d claims a %d byte word, refusing", path, i, wordLen)
		}
		if _, err := io.ReadFull(r, buf[:wordLen]); err != nil {
			return stats, fmt.Errorf("truncated dictionary %s at entry %d: %w", path, i, err)
		}
		var freq uint32
		if err := binary.Read(r, binary.LittleEndian, &freq); err != nil {
			return stats, fmt.Errorf("truncated dictionary %s at entry %d: %w", path, i, err)
		}

		if err := insert(string(buf[:wordLen]), int(freq), nil); err != nil {
			stats.Skipped++
			continue
		}
		stats.Words++
	}
	return stats, nil
}

// LoadText reads a plain word list: one word per line, an optional
// frequency after whitespace, # comments and blank lines ignored.
func LoadText(path string, insert InsertFunc) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open dictionary %s: %w", path, err)
	}
	defer f.Close()

	stats := Stats{Files: 1}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		freq := 1
		if len(fields) > 1 {
			parsed, err := strconv.Atoi(fields[1])
			if err != nil || parsed < 0 {
				log.Warnf("Skipping malformed frequency at %s:%d", path, line)
				stats.Skipped++
				continue
			}
			freq = parsed
		}

		if err := insert(fields[0], freq, nil); err != nil {
			stats.Skipped++
			continue
		}
		stats.Words++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read dictionary %s: %w", path, err)
	}
	return stats, nil
}

// LoadDir loads every dictionary in dir: binary chunks in numbered order
// first, then text lists. Individual bad files are skipped with a warning;
// only a directory with nothing loadable at all is an error.
func LoadDir(dir string, insert InsertFunc) (Stats, error) {
	bins, err := filepath.Glob(filepath.Join(dir, "dict_*.bin"))
	if err != nil {
		return Stats{}, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	texts, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return Stats{}, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(bins)
	sort.Strings(texts)

	if len(bins) == 0 && len(texts) == 0 {
		return Stats{}, fmt.Errorf("%w in %s", ErrNoDictionaryFiles, dir)
	}

	var total Stats
	load := func(path string, loadFile func(string, InsertFunc) (Stats, error)) {
		if err := ValidateFile(path); err != nil {
			log.Warnf("Skipping dictionary: %v", err)
			return
		}
		stats, err := loadFile(path, insert)
		total.add(stats)
		if err != nil {
			log.Warnf("Dictionary %s partially loaded: %v", path, err)
		}
	}
	for _, path := range bins {
		load(path, LoadBinary)
	}
	for _, path := range texts {
		load(path, LoadText)
	}

	log.Debugf("Loaded %d words from %d dictionary files in %s (%d skipped)",
		total.Words, total.Files, dir, total.Skipped)
	return total, nil
}

// SaveBinary writes entries as one binary chunk.
func SaveBinary(path string, entries []WordEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dictionary %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	werr := binary.Write(w, binary.LittleEndian, int32(len(entries)))
	for _, e := range entries {
		if werr != nil {
			break
		}
		if len(e.Word) == 0 || len(e.Word) > maxWordBytes {
			werr = fmt.Errorf("cannot encode %q: word length out of range", e.Word)
			break
		}
		if e.Frequency < 0 {
			werr = fmt.Errorf("cannot encode %q: negative frequency", e.Word)
			break
		}
		if werr = binary.Write(w, binary.LittleEndian, uint16(len(e.Word))); werr != nil {
			break
		}
		if _, werr = w.WriteString(e.Word); werr != nil {
			break
		}
		werr = binary.Write(w, binary.LittleEndian, uint32(e.Frequency))
	}
	if werr == nil {
		werr = w.Flush()
	}
	if werr != nil {
		f.Close()
		return fmt.Errorf("failed to write dictionary %s: %w", path, werr)
	}
	return f.Close()
}

// Convert reads a text word list and writes numbered binary chunks of at
// most chunkSize entries into outDir, returning the chunk paths.
func Convert(textPath, outDir string, chunkSize int) ([]string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var entries []WordEntry
	collect := func(word string, freq int, _ *lexicon.Metadata) error {
		entries = append(entries, WordEntry{Word: strings.ToLower(word), Frequency: freq})
		return nil
	}
	if _, err := LoadText(textPath, collect); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("dictionary: nothing to convert in %s", textPath)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	var paths []string
	for i := 0; i < len(entries); i += chunkSize {
		end := i + chunkSize
		if end > len(entries) {
			end = len(entries)
		}
		path := filepath.Join(outDir, fmt.Sprintf("dict_%04d.bin", len(paths)+1))
		if err := SaveBinary(path, entries[i:end]); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	log.Debugf("Converted %s into %d chunks under %s", textPath, len(paths), outDir)
	return paths, nil
}
