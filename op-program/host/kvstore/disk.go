package kvstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// DiskKV is a disk-backed key-value store, every key-value pair is a hex-encoded .txt file,
// with the key as filename.
// DiskKV is safe for concurrent use with a single DiskKV instance.
// DiskKV is safe for concurrent use between different DiskKV instances of the same disk directory as long as the
// file system supports atomic renames.
type DiskKV struct {
	sync.RWMutex
	path string
}

var (
	_ KV       = (*DiskKV)(nil)
	_ Iterable = (*DiskKV)(nil)
)

// NewDiskKV creates a DiskKV that puts/gets pre-images as files in the given directory path.
// The path must exist, or subsequent Put/Get calls will error when it does not.
func NewDiskKV(path string) *DiskKV {
	return &DiskKV{path: path}
}

func (d *DiskKV) pathKey(k common.Hash) string {
	return filepath.Join(d.path, k.String()+".txt")
}

func (d *DiskKV) Put(k common.Hash, v []byte) error {
	d.Lock()
	defer d.Unlock()
	if _, err := os.Stat(d.pathKey(k)); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat pre-image %s: %w", k, err)
	}
	f, err := os.CreateTemp(d.path, k.String()+".txt.*")
	if err != nil {
		return fmt.Errorf("failed to open temp file for pre-image %s: %w", k, err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write([]byte(hex.EncodeToString(v))); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write pre-image %s to disk: %w", k, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp pre-image %s file: %w", k, err)
	}
	if err := os.Rename(f.Name(), d.pathKey(k)); err != nil {
		return fmt.Errorf("failed to move temp file to final destination: %w", err)
	}
	return nil
}

func (d *DiskKV) Get(k common.Hash) ([]byte, error) {
	d.RLock()
	defer d.RUnlock()
	return d.read(d.pathKey(k))
}

func (d *DiskKV) read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to read pre-image file %s: %w", path, err)
	}
	v, err := hex.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode pre-image file %s: %w", path, err)
	}
	return v, nil
}

// ForEach visits every pre-image file of the directory. Other files are ignored.
func (d *DiskKV) ForEach(fn func(k common.Hash, v []byte) error) error {
	d.RLock()
	defer d.RUnlock()
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return fmt.Errorf("failed to list pre-image directory: %w", err)
	}
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".txt")
		if entry.IsDir() || !ok {
			continue
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(name, "0x"))
		if err != nil || len(raw) != common.HashLength {
			continue
		}
		v, err := d.read(filepath.Join(d.path, entry.Name()))
		if err != nil {
			return err
		}
		if err := fn(common.BytesToHash(raw), v); err != nil {
			return err
		}
	}
	return nil
}

func (d *DiskKV) Close() error {
	return nil
}
