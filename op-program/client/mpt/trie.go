package mpt

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/trie"
)

type rawList []hexutil.Bytes

func (r rawList) Len() int {
	return len(r)
}

func (r rawList) EncodeIndex(i int, buf *bytes.Buffer) {
	buf.Write(r[i])
}

var _ types.DerivableList = rawList(nil)

// WriteTrie takes a list of values, and merkleizes them as ordered list trie,
// keyed by RLP(index). It returns the root, and the preimages of every hashed node.
func WriteTrie(values []hexutil.Bytes) (common.Hash, []hexutil.Bytes) {
	var out []hexutil.Bytes
	st := trie.NewStackTrie(func(path []byte, hash common.Hash, blob []byte) {
		out = append(out, common.CopyBytes(blob))
	})
	root := types.DeriveSha(rawList(values), st)
	return root, out
}

// ReadTrie walks the ordered list trie with the given root, and returns its values in order.
func ReadTrie(root common.Hash, fetcher NodeFetcher) ([]hexutil.Bytes, error) {
	leaves, err := OrderedListWalker{}.Walk(root, fetcher)
	if err != nil {
		return nil, err
	}
	out := make([]hexutil.Bytes, len(leaves))
	for i, leaf := range leaves {
		out[i] = leaf.Value
	}
	return out, nil
}
