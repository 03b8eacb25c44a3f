package l1

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/hashicorp/golang-lru/v2/simplelru"

	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/mpt"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

// blockCacheSize should be large enough to hold the L1 blocks a pipeline walks back over when it
// looks for an old enough origin.
const blockCacheSize = 3_000

var (
	ErrOracle   = errors.New("preimage oracle failure")
	ErrDecode   = errors.New("malformed L1 oracle data")
	ErrNotFound = errors.New("L1 block not found")
)

// OracleL1ChainProvider serves L1 chain data from the preimage oracle, anchored at the L1 head
// the run was booted with. Blocks past the head are never served.
type OracleL1ChainProvider struct {
	logger log.Logger
	oracle preimage.Oracle
	hinter preimage.Hinter
	walker mpt.Walker
	l1Head common.Hash

	mu        sync.Mutex
	headers   *simplelru.LRU[common.Hash, *types.Header]
	canonical map[uint64]common.Hash
	oldest    *types.Header
}

func NewOracleL1ChainProvider(logger log.Logger, oracle preimage.Oracle, hinter preimage.Hinter, walker mpt.Walker, l1Head common.Hash) *OracleL1ChainProvider {
	headers, _ := simplelru.NewLRU[common.Hash, *types.Header](blockCacheSize, nil)
	return &OracleL1ChainProvider{
		logger:    logger,
		oracle:    oracle,
		hinter:    hinter,
		walker:    walker,
		l1Head:    l1Head,
		headers:   headers,
		canonical: make(map[uint64]common.Hash),
	}
}

func (p *OracleL1ChainProvider) fetch(h preimage.Hint, key preimage.Key) ([]byte, error) {
	if err := p.hinter.Hint(h); err != nil {
		return nil, fmt.Errorf("%w: hint %q: %w", ErrOracle, h.Hint(), err)
	}
	data, err := p.oracle.Get(key)
	if err != nil {
		return nil, fmt.Errorf("%w: get %x: %w", ErrOracle, key.PreimageKey(), err)
	}
	return data, nil
}

func (p *OracleL1ChainProvider) headerByHash(hash common.Hash) (*types.Header, error) {
	p.mu.Lock()
	header, ok := p.headers.Get(hash)
	p.mu.Unlock()
	if ok {
		return header, nil
	}
	data, err := p.fetch(BlockHeaderHint(hash), preimage.Keccak256Key(hash))
	if err != nil {
		return nil, err
	}
	header = new(types.Header)
	if err := rlp.DecodeBytes(data, header); err != nil {
		return nil, fmt.Errorf("%w: header %s: %w", ErrDecode, hash, err)
	}
	if actual := header.Hash(); actual != hash {
		return nil, fmt.Errorf("%w: header %s hashes to %s", ErrDecode, hash, actual)
	}
	p.mu.Lock()
	p.headers.Add(hash, header)
	p.mu.Unlock()
	return header, nil
}

// HeaderByHash returns the L1 header with the given hash.
func (p *OracleL1ChainProvider) HeaderByHash(ctx context.Context, hash common.Hash) (*types.Header, error) {
	return p.headerByHash(hash)
}

func (p *OracleL1ChainProvider) InfoByHash(ctx context.Context, hash common.Hash) (eth.BlockInfo, error) {
	header, err := p.headerByHash(hash)
	if err != nil {
		return nil, err
	}
	return eth.HeaderBlockInfoTrusted(hash, header), nil
}

func (p *OracleL1ChainProvider) L1BlockRefByHash(ctx context.Context, hash common.Hash) (eth.L1BlockRef, error) {
	info, err := p.InfoByHash(ctx, hash)
	if err != nil {
		return eth.L1BlockRef{}, err
	}
	return eth.InfoToL1BlockRef(info), nil
}

// L1BlockRefByNumber returns the canonical L1 block at height n, as seen from the L1 head.
// Every block between the head and the lowest block walked to so far is indexed by number.
func (p *OracleL1ChainProvider) L1BlockRefByNumber(ctx context.Context, n uint64) (eth.L1BlockRef, error) {
	p.mu.Lock()
	hash, ok := p.canonical[n]
	oldest := p.oldest
	p.mu.Unlock()
	if ok {
		return p.L1BlockRefByHash(ctx, hash)
	}

	if oldest == nil {
		head, err := p.headerByHash(p.l1Head)
		if err != nil {
			return eth.L1BlockRef{}, err
		}
		p.mu.Lock()
		p.canonical[head.Number.Uint64()] = p.l1Head
		p.oldest = head
		p.mu.Unlock()
		oldest = head
	}
	if n > oldest.Number.Uint64() {
		return eth.L1BlockRef{}, fmt.Errorf("%w: block %d is past the L1 head", ErrNotFound, n)
	}
	current := oldest
	for current.Number.Uint64() > n {
		parentNum := current.Number.Uint64() - 1
		parent, err := p.headerByHash(current.ParentHash)
		if err != nil {
			return eth.L1BlockRef{}, fmt.Errorf("failed to walk back to L1 block %d: %w", n, err)
		}
		if parent.Number.Uint64() != parentNum {
			return eth.L1BlockRef{}, fmt.Errorf("%w: parent of L1 block %d has number %d", ErrDecode, parentNum+1, parent.Number)
		}
		p.mu.Lock()
		p.canonical[parentNum] = current.ParentHash
		p.oldest = parent
		p.mu.Unlock()
		current = parent
	}
	return eth.InfoToL1BlockRef(eth.HeaderBlockInfo(current)), nil
}

func (p *OracleL1ChainProvider) InfoAndTxsByHash(ctx context.Context, hash common.Hash) (eth.BlockInfo, types.Transactions, error) {
	header, err := p.headerByHash(hash)
	if err != nil {
		return nil, nil, err
	}
	if err := p.hinter.Hint(TransactionsHint(hash)); err != nil {
		return nil, nil, fmt.Errorf("%w: hint transactions of %s: %w", ErrOracle, hash, err)
	}
	opaqueTxs, err := p.readTrie(header.TxHash)
	if err != nil {
		return nil, nil, fmt.Errorf("transactions of %s: %w", hash, err)
	}
	txs, err := eth.DecodeTransactions(opaqueTxs)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: transactions of %s: %w", ErrDecode, hash, err)
	}
	return eth.HeaderBlockInfoTrusted(hash, header), txs, nil
}

func (p *OracleL1ChainProvider) ReceiptsByHash(ctx context.Context, hash common.Hash) (eth.BlockInfo, types.Receipts, error) {
	info, txs, err := p.InfoAndTxsByHash(ctx, hash)
	if err != nil {
		return nil, nil, err
	}
	if err := p.hinter.Hint(ReceiptsHint(hash)); err != nil {
		return nil, nil, fmt.Errorf("%w: hint receipts of %s: %w", ErrOracle, hash, err)
	}
	opaqueReceipts, err := p.readTrie(info.ReceiptHash())
	if err != nil {
		return nil, nil, fmt.Errorf("receipts of %s: %w", hash, err)
	}
	receipts, err := eth.DecodeRawReceipts(eth.ToBlockID(info), opaqueReceipts, eth.TransactionsToHashes(txs))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: receipts of %s: %w", ErrDecode, hash, err)
	}
	return info, receipts, nil
}

func (p *OracleL1ChainProvider) readTrie(root common.Hash) ([]eth.Data, error) {
	fetcher := mpt.NodeFetcherFn(func(hash common.Hash) ([]byte, error) {
		data, err := p.oracle.Get(preimage.Keccak256Key(hash))
		if err != nil {
			return nil, fmt.Errorf("%w: trie node %s: %w", ErrOracle, hash, err)
		}
		return data, nil
	})
	leaves, err := p.walker.Walk(root, fetcher)
	if err != nil {
		if errors.Is(err, ErrOracle) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	out := make([]eth.Data, len(leaves))
	for i, leaf := range leaves {
		out[i] = leaf.Value
	}
	return out, nil
}
