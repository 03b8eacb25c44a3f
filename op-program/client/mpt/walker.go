package mpt

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
)

var (
	ErrNodeHashMismatch = errors.New("trie node does not match its hash")
	ErrInvalidNode      = errors.New("invalid trie node")
	ErrInvalidKey       = errors.New("invalid ordered-list key")
	ErrMissingIndex     = errors.New("ordered list is missing an index")
)

// NodeFetcher retrieves the RLP encoding of a trie node by its keccak256 hash.
type NodeFetcher interface {
	TriePreimage(hash common.Hash) ([]byte, error)
}

type NodeFetcherFn func(hash common.Hash) ([]byte, error)

func (fn NodeFetcherFn) TriePreimage(hash common.Hash) ([]byte, error) {
	return fn(hash)
}

// Leaf is a value of an ordered-list trie together with its position.
type Leaf struct {
	Index uint64
	Value []byte
}

// Walker enumerates the leaves of a trie, fetching nodes on demand.
type Walker interface {
	Walk(root common.Hash, fetcher NodeFetcher) ([]Leaf, error)
}

// OrderedListWalker walks tries keyed by RLP(index), such as the transaction and receipt tries
// of a block header. Every fetched node is checked against its hash, and the returned leaves
// are sorted by index with no gaps.
type OrderedListWalker struct{}

var _ Walker = OrderedListWalker{}

func (OrderedListWalker) Walk(root common.Hash, fetcher NodeFetcher) ([]Leaf, error) {
	if root == types.EmptyRootHash {
		return nil, nil
	}
	store := &nodeStore{fetcher: fetcher, nodes: make(map[common.Hash][]byte)}
	tdb := triedb.NewDatabase(rawdb.NewDatabase(store), nil)
	tr, err := trie.New(trie.TrieID(root), tdb)
	if err != nil {
		return nil, store.wrap(err)
	}
	nodes, err := tr.NodeIterator(nil)
	if err != nil {
		return nil, store.wrap(err)
	}
	var leaves []Leaf
	it := trie.NewIterator(nodes)
	for it.Next() {
		var index uint64
		if err := rlp.DecodeBytes(it.Key, &index); err != nil {
			return nil, fmt.Errorf("%w: %x: %v", ErrInvalidKey, it.Key, err)
		}
		leaves = append(leaves, Leaf{Index: index, Value: common.CopyBytes(it.Value)})
	}
	if it.Err != nil {
		return nil, store.wrap(it.Err)
	}
	sort.Slice(leaves, func(i, j int) bool {
		return leaves[i].Index < leaves[j].Index
	})
	for i, leaf := range leaves {
		if leaf.Index != uint64(i) {
			return nil, fmt.Errorf("%w: expected index %d, got %d", ErrMissingIndex, i, leaf.Index)
		}
	}
	return leaves, nil
}
