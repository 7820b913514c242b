package index

import (
	"encoding/binary"
	"fmt"
	"slices"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/MikhailWahib/diarydb/internal/record"
)

var idsBucket = []byte("ids")

// BoltIndex keeps the table in a bbolt file, one key per id with a
// msgpack-encoded Entry as the value. Updates stay in memory until Save
// commits them in a single transaction.
type BoltIndex struct {
	path    string
	bdb     *bbolt.DB
	entries map[record.ObjectID]Entry
	dirty   map[record.ObjectID]struct{}
}

// OpenBolt opens or creates the bbolt index at path and loads it.
func OpenBolt(path string) (*BoltIndex, error) {
	bdb, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open key index: %w", err)
	}
	idx := &BoltIndex{
		path:    path,
		bdb:     bdb,
		entries: make(map[record.ObjectID]Entry),
		dirty:   make(map[record.ObjectID]struct{}),
	}
	if err := idx.load(); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

func (idx *BoltIndex) load() error {
	return idx.bdb.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(idsBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if len(k) != 4 {
				return fmt.Errorf("%w: key %x", ErrCorrupt, k)
			}
			var e Entry
			if err := msgpack.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("%w: value of %x: %v", ErrCorrupt, k, err)
			}
			idx.entries[record.ObjectID(binary.BigEndian.Uint32(k))] = e
			return nil
		})
	})
}

func boltKey(id record.ObjectID) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(id))
}

func (idx *BoltIndex) Get(id record.ObjectID) (Entry, bool) {
	e, ok := idx.entries[id]
	return e, ok
}

func (idx *BoltIndex) Update(id record.ObjectID, offset, length int64) {
	idx.entries[id] = Entry{Offset: offset, Length: length}
	idx.dirty[id] = struct{}{}
}

func (idx *BoltIndex) Len() int {
	return len(idx.entries)
}

func (idx *BoltIndex) IDs() []record.ObjectID {
	ids := make([]record.ObjectID, 0, len(idx.entries))
	for id := range idx.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Save writes the ids updated since the last Save.
func (idx *BoltIndex) Save() error {
	if len(idx.dirty) == 0 {
		return nil
	}
	err := idx.bdb.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(idsBucket)
		if err != nil {
			return err
		}
		for id := range idx.dirty {
			v, err := msgpack.Marshal(idx.entries[id])
			if err != nil {
				return err
			}
			if err := b.Put(boltKey(id), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save key index: %w", err)
	}
	clear(idx.dirty)
	return nil
}

func (idx *BoltIndex) Close() error {
	if idx.bdb == nil {
		return nil
	}
	bdb := idx.bdb
	idx.bdb = nil
	return bdb.Close()
}

// Path returns the index file path
func (idx *BoltIndex) Path() string {
	return idx.path
}
