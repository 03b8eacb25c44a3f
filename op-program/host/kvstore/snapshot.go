package kvstore

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/klauspost/compress/zstd"
)

// MaxSnapshotValueSize bounds a single pre-image of a snapshot.
const MaxSnapshotValueSize = 64 << 20

var ErrInvalidSnapshot = errors.New("invalid snapshot")

type snapshotEntry struct {
	key   common.Hash
	value []byte
}

// EncodeSnapshot writes the entries of the sources as a sequence of
// key (32 bytes) | value length (uint32, big-endian) | value, sorted by key.
// A key present in several sources is written once, with the value of the first source.
// Equal inputs always encode to equal bytes.
func EncodeSnapshot(w io.Writer, sources ...Iterable) (int, error) {
	seen := make(map[common.Hash]struct{})
	var entries []snapshotEntry
	for _, src := range sources {
		err := src.ForEach(func(k common.Hash, v []byte) error {
			if _, ok := seen[k]; ok {
				return nil
			}
			if len(v) > MaxSnapshotValueSize {
				return fmt.Errorf("pre-image %s of %d bytes exceeds snapshot limit", k, len(v))
			}
			seen[k] = struct{}{}
			entries = append(entries, snapshotEntry{key: k, value: common.CopyBytes(v)})
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	slices.SortFunc(entries, func(a, b snapshotEntry) int {
		return bytes.Compare(a.key[:], b.key[:])
	})

	bw := bufio.NewWriter(w)
	var lenBuf [4]byte
	for _, e := range entries {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(e.value)))
		if _, err := bw.Write(e.key[:]); err != nil {
			return 0, err
		}
		if _, err := bw.Write(lenBuf[:]); err != nil {
			return 0, err
		}
		if _, err := bw.Write(e.value); err != nil {
			return 0, err
		}
	}
	return len(entries), bw.Flush()
}

// DecodeSnapshot reads entries written by EncodeSnapshot into dst, and returns the number read.
func DecodeSnapshot(r io.Reader, dst KV) (int, error) {
	br := bufio.NewReader(r)
	var header [common.HashLength + 4]byte
	var prev *common.Hash
	n := 0
	for {
		if _, err := io.ReadFull(br, header[:]); errors.Is(err, io.EOF) {
			return n, nil
		} else if err != nil {
			return n, fmt.Errorf("%w: truncated entry header: %w", ErrInvalidSnapshot, err)
		}
		key := common.BytesToHash(header[:common.HashLength])
		if prev != nil && bytes.Compare(prev[:], key[:]) >= 0 {
			return n, fmt.Errorf("%w: key %s out of order", ErrInvalidSnapshot, key)
		}
		size := binary.BigEndian.Uint32(header[common.HashLength:])
		if size > MaxSnapshotValueSize {
			return n, fmt.Errorf("%w: value of %s has size %d", ErrInvalidSnapshot, key, size)
		}
		value := make([]byte, size)
		if _, err := io.ReadFull(br, value); err != nil {
			return n, fmt.Errorf("%w: truncated value of %s: %w", ErrInvalidSnapshot, key, err)
		}
		if err := dst.Put(key, value); err != nil {
			return n, fmt.Errorf("failed to store %s: %w", key, err)
		}
		prev = &key
		n++
	}
}

// WriteSnapshotFile writes the zstd-compressed snapshot of the sources to path, replacing it
// atomically.
func WriteSnapshotFile(path string, sources ...Iterable) (int, error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(f.Name())
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	n, err := EncodeSnapshot(zw, sources...)
	if err != nil {
		_ = zw.Close()
		_ = f.Close()
		return 0, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("failed to flush zstd stream: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close snapshot file: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return n, nil
}

// LoadSnapshotFile reads a snapshot file written by WriteSnapshotFile into memory.
func LoadSnapshotFile(path string) (*MemKV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()
	kv := NewMemKV()
	if _, err := DecodeSnapshot(zr, kv); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return kv, nil
}
