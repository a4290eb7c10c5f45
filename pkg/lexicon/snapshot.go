package lexicon

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
	"github.com/vmihailenco/msgpack/v5"
)

// snapshotFormatVersion guards against loading snapshots written by an
// incompatible layout. Bump on any change to the snapshot struct.
const snapshotFormatVersion = "1"

type snapshot struct {
	Version string  `msgpack:"version"`
	Entries []Entry `msgpack:"entries"`
}

// SaveSnapshot serializes the full vocabulary to path with msgpack.
// The copy is taken under the read lock; encoding and IO happen outside it.
func (ix *Index) SaveSnapshot(path string) error {
	ix.mu.RLock()
	entries := make([]Entry, 0, len(ix.entries))
	for _, entry := range ix.entries {
		entries = append(entries, *entry)
	}
	ix.mu.RUnlock()

	data, err := msgpack.Marshal(snapshot{
		Version: snapshotFormatVersion,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal lexicon snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write lexicon snapshot: %w", err)
	}

	log.Debugf("Saved lexicon snapshot: %d words to %s", len(entries), path)
	return nil
}

// LoadSnapshot replaces the index contents with the snapshot at path.
// A missing file is not an error; the index simply starts empty. Corrupt or
// version-mismatched snapshots are logged and discarded the same way, since
// the vocabulary can always be rebuilt from its dictionary sources.
func (ix *Index) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read lexicon snapshot: %w", err)
	}

	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		log.Warnf("Discarding corrupt lexicon snapshot %s: %v", path, err)
		return nil
	}
	if snap.Version != snapshotFormatVersion {
		log.Warnf("Discarding lexicon snapshot %s: version %q, want %q", path, snap.Version, snapshotFormatVersion)
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.entries = make(map[string]*Entry, len(snap.Entries))
	ix.byLength = make(map[int]map[string]struct{})
	ix.byFirstChar = make(map[rune]map[string]struct{})
	ix.prefixes = patricia.NewTrie()
	ix.maxFrequency = 0

	for i := range snap.Entries {
		entry := snap.Entries[i]
		if entry.Word == "" {
			continue
		}
		ix.addLocked(&entry)
	}

	log.Debugf("Loaded lexicon snapshot: %d words from %s", len(snap.Entries), path)
	return nil
}
