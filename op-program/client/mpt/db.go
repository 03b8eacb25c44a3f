package mpt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
)

// nodeStore serves hash-scheme trie node reads from a NodeFetcher. The trie database drops
// read errors and reports a missing node instead, so the first fetch or verification error is
// kept and returned in place of the error the trie surfaces.
type nodeStore struct {
	fetcher NodeFetcher
	// verified nodes of the current walk; the trie reads the root twice when opened
	nodes map[common.Hash][]byte
	err   error
}

var _ ethdb.KeyValueStore = (*nodeStore)(nil)

func (s *nodeStore) Get(key []byte) ([]byte, error) {
	if len(key) != common.HashLength {
		return nil, fmt.Errorf("%w: unexpected node key %x", ErrInvalidNode, key)
	}
	hash := common.BytesToHash(key)
	if node, ok := s.nodes[hash]; ok {
		return node, nil
	}
	node, err := s.fetcher.TriePreimage(hash)
	if err != nil {
		return nil, s.fail(fmt.Errorf("failed to fetch trie node %s: %w", hash, err))
	}
	if crypto.Keccak256Hash(node) != hash {
		return nil, s.fail(fmt.Errorf("%w: %s", ErrNodeHashMismatch, hash))
	}
	s.nodes[hash] = node
	return node, nil
}

func (s *nodeStore) fail(err error) error {
	if s.err == nil {
		s.err = err
	}
	return err
}

// wrap replaces an error surfaced by the trie with the fetch error that caused it, if any.
func (s *nodeStore) wrap(err error) error {
	if s.err != nil {
		return s.err
	}
	return fmt.Errorf("%w: %v", ErrInvalidNode, err)
}

func (s *nodeStore) Close() error {
	return nil
}

// Trie reads only use Get. The remaining methods are never called.

func (s *nodeStore) Has(key []byte) (bool, error) {
	panic("not supported")
}

func (s *nodeStore) Put(key []byte, value []byte) error {
	panic("not supported")
}

func (s *nodeStore) Delete(key []byte) error {
	panic("not supported")
}

func (s *nodeStore) DeleteRange(start, end []byte) error {
	panic("not supported")
}

func (s *nodeStore) Stat() (string, error) {
	panic("not supported")
}

func (s *nodeStore) SyncKeyValue() error {
	panic("not supported")
}

func (s *nodeStore) NewBatch() ethdb.Batch {
	panic("not supported")
}

func (s *nodeStore) NewBatchWithSize(size int) ethdb.Batch {
	panic("not supported")
}

func (s *nodeStore) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	panic("not supported")
}

func (s *nodeStore) Compact(start []byte, limit []byte) error {
	panic("not supported")
}
