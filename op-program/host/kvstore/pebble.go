package kvstore

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

// PebbleKV is a disk-backed key-value store, with PebbleDB as the underlying DBMS.
// PebbleKV is safe for concurrent use with a single PebbleKV instance.
type PebbleKV struct {
	sync.RWMutex
	db *pebble.DB
}

var (
	_ KV       = (*PebbleKV)(nil)
	_ Iterable = (*PebbleKV)(nil)
)

// NewPebbleKV creates a PebbleKV that puts/gets pre-images as files in the given directory path.
// The path must exist, or subsequent Put/Get calls will error when it does not.
func NewPebbleKV(path string) (*PebbleKV, error) {
	cache := pebble.NewCache(int64(32 * 1024 * 1024))
	defer cache.Unref()
	opts := &pebble.Options{
		Cache:                    cache,
		MaxConcurrentCompactions: runtime.NumCPU,
		Levels: []pebble.LevelOptions{
			{Compression: pebble.SnappyCompression},
		},
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebbledb at %s: %w", path, err)
	}
	return &PebbleKV{db: db}, nil
}

func (d *PebbleKV) Put(k common.Hash, v []byte) error {
	d.Lock()
	defer d.Unlock()
	_, closer, err := d.db.Get(k.Bytes())
	if err == nil {
		return closer.Close()
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("failed to look up pre-image %s: %w", k, err)
	}
	return d.db.Set(k.Bytes(), v, pebble.NoSync)
}

func (d *PebbleKV) Get(k common.Hash) ([]byte, error) {
	d.RLock()
	defer d.RUnlock()
	dat, closer, err := d.db.Get(k.Bytes())
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return common.CopyBytes(dat), nil
}

func (d *PebbleKV) ForEach(fn func(k common.Hash, v []byte) error) error {
	d.RLock()
	defer d.RUnlock()
	iter, err := d.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return fmt.Errorf("failed to open pebble iterator: %w", err)
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if len(iter.Key()) != common.HashLength {
			continue
		}
		if err := fn(common.BytesToHash(iter.Key()), common.CopyBytes(iter.Value())); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (d *PebbleKV) Close() error {
	d.Lock()
	defer d.Unlock()
	return d.db.Close()
}
