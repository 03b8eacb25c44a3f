package l2

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/mantlenetworkio/op-multiblock/op-node/rollup"
	"github.com/mantlenetworkio/op-multiblock/op-node/rollup/derive"
	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/metrics"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/mpt"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

// Oracle request sources, as reported to metrics.
const (
	sourceHeader   = "l2-header"
	sourceTrieNode = "l2-trie-node"
	sourceCode     = "l2-code"
)

// OracleL2ChainProvider serves L2 chain data from the preimage oracle.
//
// Every block it learns about is cached by number for the lifetime of the run. Data fetched
// from the oracle is written once per number and never replaced. Blocks produced by local
// execution enter through Commit, which is the only path that overwrites cached entries.
// The cache lock is never held while waiting on the oracle.
type OracleL2ChainProvider struct {
	logger     log.Logger
	metrics    metrics.Metricer
	oracle     preimage.Oracle
	hinter     preimage.Hinter
	walker     mpt.Walker
	rollupCfg  *rollup.Config
	outputRoot common.Hash

	mu       sync.Mutex
	head     *types.Header
	headers  map[uint64]*types.Header
	numbers  map[common.Hash]uint64
	refs     map[uint64]eth.L2BlockRef
	payloads map[uint64]*eth.ExecutionPayloadEnvelope
	sysCfgs  map[uint64]eth.SystemConfig
}

var _ mpt.NodeFetcher = (*OracleL2ChainProvider)(nil)

func NewOracleL2ChainProvider(logger log.Logger, m metrics.Metricer, oracle preimage.Oracle, hinter preimage.Hinter,
	walker mpt.Walker, rollupCfg *rollup.Config, outputRoot common.Hash) *OracleL2ChainProvider {
	return &OracleL2ChainProvider{
		logger:     logger,
		metrics:    m,
		oracle:     oracle,
		hinter:     hinter,
		walker:     walker,
		rollupCfg:  rollupCfg,
		outputRoot: outputRoot,
		headers:    make(map[uint64]*types.Header),
		numbers:    make(map[common.Hash]uint64),
		refs:       make(map[uint64]eth.L2BlockRef),
		payloads:   make(map[uint64]*eth.ExecutionPayloadEnvelope),
		sysCfgs:    make(map[uint64]eth.SystemConfig),
	}
}

func (p *OracleL2ChainProvider) hint(h preimage.Hint) error {
	hint := h.Hint()
	kind, _, _ := strings.Cut(hint, " ")
	p.metrics.RecordHint(kind)
	if err := p.hinter.Hint(h); err != nil {
		return fmt.Errorf("%w: hint %q: %w", ErrOracle, hint, err)
	}
	return nil
}

func (p *OracleL2ChainProvider) get(source string, key preimage.Key) ([]byte, error) {
	p.metrics.RecordOracleRequest(source)
	data, err := p.oracle.Get(key)
	if err != nil {
		return nil, fmt.Errorf("%w: get %x: %w", ErrOracle, key.PreimageKey(), err)
	}
	return data, nil
}

// HeaderByHash fetches and decodes the header with the given hash. The decoded header must
// hash to the requested value.
func (p *OracleL2ChainProvider) HeaderByHash(hash common.Hash) (*types.Header, error) {
	if err := p.hint(BlockHeaderHint(hash)); err != nil {
		return nil, err
	}
	data, err := p.get(sourceHeader, preimage.Keccak256Key(hash))
	if err != nil {
		return nil, err
	}
	var header types.Header
	if err := rlp.DecodeBytes(data, &header); err != nil {
		return nil, fmt.Errorf("%w: header %s: %w", ErrDecode, hash, err)
	}
	if actual := header.Hash(); actual != hash {
		return nil, fmt.Errorf("%w: header %s hashes to %s", ErrDecode, hash, actual)
	}
	return &header, nil
}

// Head returns the L2 block committed to by the starting output root.
func (p *OracleL2ChainProvider) Head() (*types.Header, error) {
	p.mu.Lock()
	head := p.head
	p.mu.Unlock()
	if head != nil {
		return head, nil
	}
	output, err := OutputByRoot(p.oracle, p.hinter, p.outputRoot)
	if err != nil {
		return nil, err
	}
	header, err := p.HeaderByHash(output.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch head of output root %s: %w", p.outputRoot, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.head == nil {
		p.head = header
		p.logger.Debug("Resolved starting L2 head", "number", header.Number, "hash", header.Hash())
	}
	p.storeHeader(header)
	return p.head, nil
}

func (p *OracleL2ChainProvider) cachedHeader(n uint64) (*types.Header, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	header, ok := p.headers[n]
	return header, ok
}

// storeHeader is the verified-fetch write path for headers. The caller must hold the lock.
func (p *OracleL2ChainProvider) storeHeader(header *types.Header) {
	n := header.Number.Uint64()
	if _, ok := p.headers[n]; ok {
		return
	}
	p.headers[n] = header
	p.numbers[header.Hash()] = n
}

// HeaderByNumber returns the header at height n, walking parent links back from the starting
// head when the height is not cached yet.
func (p *OracleL2ChainProvider) HeaderByNumber(ctx context.Context, n uint64) (*types.Header, error) {
	if header, ok := p.cachedHeader(n); ok {
		p.metrics.RecordCacheHit(metrics.TableHeaders)
		return header, nil
	}
	p.metrics.RecordCacheMiss(metrics.TableHeaders)

	head, err := p.Head()
	if err != nil {
		return nil, err
	}
	if headNum := head.Number.Uint64(); n > headNum {
		return nil, fmt.Errorf("%w: requested %d, head is %d", ErrRange, n, headNum)
	}
	current := head
	for current.Number.Uint64() > n {
		parentNum := current.Number.Uint64() - 1
		if parent, ok := p.cachedHeader(parentNum); ok && parent.Hash() == current.ParentHash {
			current = parent
			continue
		}
		parent, err := p.HeaderByHash(current.ParentHash)
		if err != nil {
			return nil, fmt.Errorf("failed to walk back to block %d: %w", n, err)
		}
		if parent.Number.Uint64() != parentNum {
			return nil, fmt.Errorf("%w: parent of block %d has number %d", ErrDecode, parentNum+1, parent.Number)
		}
		p.mu.Lock()
		p.storeHeader(parent)
		p.mu.Unlock()
		current = parent
	}
	return current, nil
}

// PayloadByNumber returns the execution payload of block n. The transactions are read from the
// transactions trie of the block header and the payload is only cached if all of them decode.
func (p *OracleL2ChainProvider) PayloadByNumber(ctx context.Context, n uint64) (*eth.ExecutionPayloadEnvelope, error) {
	p.mu.Lock()
	env, ok := p.payloads[n]
	p.mu.Unlock()
	if ok {
		p.metrics.RecordCacheHit(metrics.TablePayloads)
		return env, nil
	}
	p.metrics.RecordCacheMiss(metrics.TablePayloads)

	header, err := p.HeaderByNumber(ctx, n)
	if err != nil {
		return nil, err
	}
	env, err = p.payloadForHeader(header)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.payloads[n]; ok {
		return existing, nil
	}
	p.payloads[n] = env
	return env, nil
}

func (p *OracleL2ChainProvider) payloadForHeader(header *types.Header) (*eth.ExecutionPayloadEnvelope, error) {
	hash := header.Hash()
	if err := p.hint(TransactionsHint(hash)); err != nil {
		return nil, err
	}
	leaves, err := p.walker.Walk(header.TxHash, p)
	if err != nil {
		if errors.Is(err, ErrOracle) {
			return nil, fmt.Errorf("failed to read transactions of block %s: %w", hash, err)
		}
		return nil, fmt.Errorf("%w: transactions of block %s: %w", ErrDecode, hash, err)
	}
	txs := make(types.Transactions, len(leaves))
	for i, leaf := range leaves {
		var tx types.Transaction
		if err := tx.UnmarshalBinary(leaf.Value); err != nil {
			return nil, fmt.Errorf("%w: transaction %d of block %s: %w", ErrDecode, leaf.Index, hash, err)
		}
		txs[i] = &tx
	}
	var withdrawals *types.Withdrawals
	if p.rollupCfg.IsCanyon(header.Time) {
		withdrawals = &types.Withdrawals{}
	}
	env, err := eth.BlockAsPayloadEnv(header, txs, withdrawals)
	if err != nil {
		return nil, fmt.Errorf("%w: block %s: %w", ErrDecode, hash, err)
	}
	return env, nil
}

// L2BlockRefByNumber returns the block ref of block n, derived from its payload.
func (p *OracleL2ChainProvider) L2BlockRefByNumber(ctx context.Context, n uint64) (eth.L2BlockRef, error) {
	p.mu.Lock()
	ref, ok := p.refs[n]
	p.mu.Unlock()
	if ok {
		p.metrics.RecordCacheHit(metrics.TableBlockRefs)
		return ref, nil
	}
	p.metrics.RecordCacheMiss(metrics.TableBlockRefs)

	env, err := p.PayloadByNumber(ctx, n)
	if err != nil {
		return eth.L2BlockRef{}, err
	}
	ref, err = derive.PayloadToBlockRef(p.rollupCfg, env.ExecutionPayload)
	if err != nil {
		return eth.L2BlockRef{}, fmt.Errorf("%w: block ref of %d: %w", ErrDerivation, n, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.refs[n]; ok {
		return existing, nil
	}
	p.refs[n] = ref
	return ref, nil
}

// SystemConfigByNumber returns the system config that was in effect for block n.
func (p *OracleL2ChainProvider) SystemConfigByNumber(ctx context.Context, n uint64, cfg *rollup.Config) (eth.SystemConfig, error) {
	p.mu.Lock()
	sysCfg, ok := p.sysCfgs[n]
	p.mu.Unlock()
	if ok {
		p.metrics.RecordCacheHit(metrics.TableSystemConfigs)
		return sysCfg, nil
	}
	p.metrics.RecordCacheMiss(metrics.TableSystemConfigs)

	env, err := p.PayloadByNumber(ctx, n)
	if err != nil {
		return eth.SystemConfig{}, err
	}
	sysCfg, err = derive.PayloadToSystemConfig(cfg, env.ExecutionPayload)
	if err != nil {
		return eth.SystemConfig{}, fmt.Errorf("%w: system config of %d: %w", ErrDerivation, n, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.sysCfgs[n]; ok {
		return existing, nil
	}
	p.sysCfgs[n] = sysCfg
	return sysCfg, nil
}

func (p *OracleL2ChainProvider) cachedNumber(hash common.Hash) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.numbers[hash]
	return n, ok
}

// L2BlockRefByHash returns the block ref of the block with the given hash. Blocks that are not
// part of the cached chain are served without being cached.
func (p *OracleL2ChainProvider) L2BlockRefByHash(ctx context.Context, hash common.Hash) (eth.L2BlockRef, error) {
	if n, ok := p.cachedNumber(hash); ok {
		return p.L2BlockRefByNumber(ctx, n)
	}
	env, err := p.payloadByHash(hash)
	if err != nil {
		return eth.L2BlockRef{}, err
	}
	ref, err := derive.PayloadToBlockRef(p.rollupCfg, env.ExecutionPayload)
	if err != nil {
		return eth.L2BlockRef{}, fmt.Errorf("%w: block ref of %s: %w", ErrDerivation, hash, err)
	}
	return ref, nil
}

// SystemConfigByL2Hash is SystemConfigByNumber for callers that address blocks by hash.
func (p *OracleL2ChainProvider) SystemConfigByL2Hash(ctx context.Context, hash common.Hash) (eth.SystemConfig, error) {
	if n, ok := p.cachedNumber(hash); ok {
		return p.SystemConfigByNumber(ctx, n, p.rollupCfg)
	}
	env, err := p.payloadByHash(hash)
	if err != nil {
		return eth.SystemConfig{}, err
	}
	sysCfg, err := derive.PayloadToSystemConfig(p.rollupCfg, env.ExecutionPayload)
	if err != nil {
		return eth.SystemConfig{}, fmt.Errorf("%w: system config of %s: %w", ErrDerivation, hash, err)
	}
	return sysCfg, nil
}

func (p *OracleL2ChainProvider) payloadByHash(hash common.Hash) (*eth.ExecutionPayloadEnvelope, error) {
	header, err := p.HeaderByHash(hash)
	if err != nil {
		return nil, err
	}
	return p.payloadForHeader(header)
}

// TriePreimage returns the trie node with the given hash. Callers are expected to have hinted
// the enclosing trie already.
func (p *OracleL2ChainProvider) TriePreimage(hash common.Hash) ([]byte, error) {
	return p.get(sourceTrieNode, preimage.Keccak256Key(hash))
}

// CodeByHash returns the contract bytecode with the given code hash.
func (p *OracleL2ChainProvider) CodeByHash(hash common.Hash) ([]byte, error) {
	if err := p.hint(CodeHint(hash)); err != nil {
		return nil, err
	}
	return p.get(sourceCode, preimage.Keccak256Key(hash))
}

func (p *OracleL2ChainProvider) HintTrieNode(hash common.Hash) error {
	return p.hint(StateNodeHint(hash))
}

func (p *OracleL2ChainProvider) HintAccountProof(address common.Address, blockNumber uint64) error {
	return p.hint(AccountProofHint{BlockNumber: blockNumber, Address: address})
}

func (p *OracleL2ChainProvider) HintStorageProof(address common.Address, slot common.Hash, blockNumber uint64) error {
	return p.hint(StorageProofHint{BlockNumber: blockNumber, Address: address, Slot: slot})
}

// Commit stores a block produced by local execution. The header, payload, block ref and system
// config of the block all replace whatever was cached for its number, without consulting the
// oracle.
func (p *OracleL2ChainProvider) Commit(header *types.Header, env *eth.ExecutionPayloadEnvelope, cfg *rollup.Config) (eth.L2BlockRef, error) {
	n := header.Number.Uint64()
	hash := header.Hash()
	payload := env.ExecutionPayload
	if uint64(payload.BlockNumber) != n || payload.BlockHash != hash {
		return eth.L2BlockRef{}, fmt.Errorf("payload %s does not match header %s:%d", payload.ID(), hash, n)
	}
	ref, err := derive.PayloadToBlockRef(cfg, payload)
	if err != nil {
		return eth.L2BlockRef{}, fmt.Errorf("%w: block ref of %d: %w", ErrDerivation, n, err)
	}
	sysCfg, err := derive.PayloadToSystemConfig(cfg, payload)
	if err != nil {
		return eth.L2BlockRef{}, fmt.Errorf("%w: system config of %d: %w", ErrDerivation, n, err)
	}

	p.mu.Lock()
	if prev, ok := p.headers[n]; ok {
		delete(p.numbers, prev.Hash())
	}
	p.headers[n] = header
	p.numbers[hash] = n
	p.payloads[n] = env
	p.refs[n] = ref
	p.sysCfgs[n] = sysCfg
	p.mu.Unlock()

	p.metrics.RecordCommit()
	p.logger.Debug("Committed L2 block", "block", ref, "l1Origin", ref.L1Origin)
	return ref, nil
}
