package cache

import (
	"errors"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// diskEntry is the msgpack envelope stored per key. Timestamps are absolute
// wall-clock nanoseconds so TTLs survive restarts.
type diskEntry[V any] struct {
	Value       V     `msgpack:"v"`
	InsertedAt  int64 `msgpack:"ia"`
	ExpiresAt   int64 `msgpack:"ea"`
	AccessCount int   `msgpack:"ac"`
	LastAccess  int64 `msgpack:"la"`
}

// diskMeta decodes just the age fields of an envelope for the overflow sweep.
type diskMeta struct {
	InsertedAt int64 `msgpack:"ia"`
	LastAccess int64 `msgpack:"la"`
}

// diskTier wraps badger as the cold tier. Not locked itself: every call
// happens under the owning Cache's lock. IO failures degrade to misses with
// a logged warning, never to errors on the query path.
type diskTier[V any] struct {
	db   *badger.DB
	keys int
}

func openDiskTier[V any](dir string) (*diskTier[V], error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}

	t := &diskTier[V]{db: db}
	t.keys = t.count()
	return t, nil
}

func (t *diskTier[V]) count() int {
	n := 0
	_ = t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n
}

func (t *diskTier[V]) size() int {
	return t.keys
}

// read returns the stored entry for key, or false on absence, expiry,
// corruption, or IO failure. Expired and corrupt entries are purged.
func (t *diskTier[V]) read(key string, now time.Time) (*memEntry[V], bool) {
	var raw []byte
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false
	}
	if err != nil {
		log.Warnf("Treating as miss: %v", &IOError{Op: "read", Key: key, Err: err})
		return nil, false
	}

	var env diskEntry[V]
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		log.Warnf("Purging corrupt entry: %v", &IOError{Op: "decode", Key: key, Err: err})
		t.remove(key)
		return nil, false
	}
	if now.UnixNano() > env.ExpiresAt {
		t.remove(key)
		return nil, false
	}

	return &memEntry[V]{
		value:       env.Value,
		insertedAt:  time.Unix(0, env.InsertedAt),
		expiresAt:   time.Unix(0, env.ExpiresAt),
		lastAccess:  time.Unix(0, env.LastAccess),
		accessCount: env.AccessCount,
	}, true
}

func (t *diskTier[V]) remove(key string) {
	removed := false
	err := t.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		removed = true
		return txn.Delete([]byte(key))
	})
	if err != nil {
		log.Warnf("%v", &IOError{Op: "delete", Key: key, Err: err})
		return
	}
	if removed {
		t.keys--
	}
}

// write demotes a memory entry to disk and sweeps the tier when it
// overflows maxItems.
func (t *diskTier[V]) write(key string, entry *memEntry[V], maxItems int) {
	raw, err := msgpack.Marshal(diskEntry[V]{
		Value:       entry.value,
		InsertedAt:  entry.insertedAt.UnixNano(),
		ExpiresAt:   entry.expiresAt.UnixNano(),
		AccessCount: entry.accessCount,
		LastAccess:  entry.lastAccess.UnixNano(),
	})
	if err != nil {
		log.Warnf("Dropping demoted entry: %v", &IOError{Op: "encode", Key: key, Err: err})
		return
	}

	isNew := false
	err = t.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			isNew = true
		} else if err != nil {
			return err
		}
		return txn.Set([]byte(key), raw)
	})
	if err != nil {
		log.Warnf("Dropping demoted entry: %v", &IOError{Op: "write", Key: key, Err: err})
		return
	}
	if isNew {
		t.keys++
	}
	if t.keys > maxItems {
		t.dropOldestHalf()
	}
}

// dropOldestHalf destructively removes the least recently touched half of
// the tier. Disk eviction does not cascade anywhere; the entries are gone.
func (t *diskTier[V]) dropOldestHalf() {
	type aged struct {
		key  string
		last int64
	}
	var entries []aged

	err := t.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				var meta diskMeta
				if err := msgpack.Unmarshal(val, &meta); err != nil {
					// Unreadable entries age out first.
					entries = append(entries, aged{key: key})
					return nil
				}
				last := meta.LastAccess
				if last == 0 {
					last = meta.InsertedAt
				}
				entries = append(entries, aged{key: key, last: last})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Warnf("Disk cache sweep scan failed: %v", err)
		return
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].last < entries[j].last })

	batch := t.db.NewWriteBatch()
	defer batch.Cancel()
	for _, e := range entries[:len(entries)/2] {
		if err := batch.Delete([]byte(e.key)); err != nil {
			log.Warnf("Disk cache sweep delete failed: %v", err)
			break
		}
	}
	if err := batch.Flush(); err != nil {
		log.Warnf("Disk cache sweep flush failed: %v", err)
	}

	// Recount rather than guess how much of the batch landed.
	before := t.keys
	t.keys = t.count()
	log.Debugf("Disk cache sweep: %d entries down to %d", before, t.keys)
}

func (t *diskTier[V]) drop() error {
	if err := t.db.DropAll(); err != nil {
		return &IOError{Op: "clear", Err: err}
	}
	t.keys = 0
	return nil
}

func (t *diskTier[V]) close() error {
	if err := t.db.Close(); err != nil {
		return &IOError{Op: "close", Err: err}
	}
	return nil
}
