package l2

import (
	"context"
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/op-multiblock/op-node/rollup"
	"github.com/mantlenetworkio/op-multiblock/op-node/rollup/derive"
	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/l2/test"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/metrics"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/mpt"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
	"github.com/mantlenetworkio/op-multiblock/op-service/testlog"
)

func setupProvider(t *testing.T, length int) (*OracleL2ChainProvider, *test.StubOracle, *test.Chain, *rollup.Config) {
	rng := rand.New(rand.NewSource(1234))
	cfg := test.RollupConfig()
	oracle := test.NewStubOracle()
	chain := test.NewChain(t, rng, cfg, oracle, length)
	logger := testlog.Logger(t, log.LevelDebug)
	p := NewOracleL2ChainProvider(logger, metrics.NoopMetrics, oracle, oracle, mpt.OrderedListWalker{}, cfg, chain.OutputRoot)
	return p, oracle, chain, cfg
}

func TestHeaderByHash(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		p, oracle, chain, _ := setupProvider(t, 3)
		want := chain.L2[1]
		header, err := p.HeaderByHash(want.Hash())
		require.NoError(t, err)
		require.Equal(t, want.Hash(), header.Hash())
		require.Equal(t, []string{BlockHeaderHint(want.Hash()).Hint()}, oracle.Hints)
	})

	t.Run("Missing", func(t *testing.T) {
		p, _, _, _ := setupProvider(t, 3)
		_, err := p.HeaderByHash(common.Hash{0xab})
		require.ErrorIs(t, err, ErrOracle)
	})

	t.Run("Malformed", func(t *testing.T) {
		p, oracle, _, _ := setupProvider(t, 3)
		hash := common.Hash{0xcd}
		oracle.Put(preimage.Keccak256Key(hash), []byte{0x01, 0x02})
		_, err := p.HeaderByHash(hash)
		require.ErrorIs(t, err, ErrDecode)
	})

	t.Run("HashMismatch", func(t *testing.T) {
		p, oracle, chain, _ := setupProvider(t, 3)
		data, err := rlp.EncodeToBytes(chain.L2[2])
		require.NoError(t, err)
		hash := common.Hash{0xef}
		oracle.Put(preimage.Keccak256Key(hash), data)
		_, err = p.HeaderByHash(hash)
		require.ErrorIs(t, err, ErrDecode)
	})
}

func TestHeaderByNumber(t *testing.T) {
	p, oracle, chain, _ := setupProvider(t, 6)
	ctx := context.Background()

	for i := len(chain.L2) - 1; i >= 0; i-- {
		want := chain.L2[i]
		header, err := p.HeaderByNumber(ctx, want.Number.Uint64())
		require.NoError(t, err)
		require.Equal(t, want.Hash(), header.Hash())

		oracle.ResetCalls()
		again, err := p.HeaderByNumber(ctx, want.Number.Uint64())
		require.NoError(t, err)
		require.Same(t, header, again)
		require.Zero(t, oracle.Calls(), "cached header must not hit the oracle")
	}

	_, err := p.HeaderByNumber(ctx, chain.Head().Number.Uint64()+1)
	require.ErrorIs(t, err, ErrRange)
}

func TestHeaderByNumberWalksOnce(t *testing.T) {
	p, oracle, chain, _ := setupProvider(t, 6)
	ctx := context.Background()

	_, err := p.HeaderByNumber(ctx, 0)
	require.NoError(t, err)

	// every intermediate header was cached by the walk
	oracle.ResetCalls()
	for _, want := range chain.L2 {
		header, err := p.HeaderByNumber(ctx, want.Number.Uint64())
		require.NoError(t, err)
		require.Equal(t, want.Hash(), header.Hash())
	}
	require.Zero(t, oracle.Calls())
}

func TestHeadFromOutputRoot(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		p, oracle, chain, _ := setupProvider(t, 3)
		head, err := p.Head()
		require.NoError(t, err)
		require.Equal(t, chain.Output.BlockHash, head.Hash())
		require.Contains(t, oracle.Hints, StartingOutputHint(chain.OutputRoot).Hint())
	})

	t.Run("Invalid", func(t *testing.T) {
		p, oracle, _, _ := setupProvider(t, 3)
		p.outputRoot = oracle.PutKeccak([]byte("not an output"))
		_, err := p.HeaderByNumber(context.Background(), 0)
		require.ErrorIs(t, err, ErrInvalidOutputRoot)
	})
}

func TestPayloadByNumber(t *testing.T) {
	p, oracle, chain, _ := setupProvider(t, 4)
	ctx := context.Background()

	for i, header := range chain.L2 {
		env, err := p.PayloadByNumber(ctx, header.Number.Uint64())
		require.NoError(t, err)
		payload := env.ExecutionPayload
		require.Equal(t, header.Hash(), payload.BlockHash)
		require.Equal(t, header.ParentHash, payload.ParentHash)
		require.Nil(t, payload.Withdrawals, "canyon is not active")

		want, err := eth.EncodeTransactions(chain.Txs[i])
		require.NoError(t, err)
		require.Len(t, payload.Transactions, len(want))
		for j := range want {
			require.Equal(t, hexutil.Bytes(want[j]), hexutil.Bytes(payload.Transactions[j]))
		}

		oracle.ResetCalls()
		again, err := p.PayloadByNumber(ctx, header.Number.Uint64())
		require.NoError(t, err)
		require.Same(t, env, again)
		require.Zero(t, oracle.Calls())
	}
}

func TestPayloadByNumberCanyonWithdrawals(t *testing.T) {
	p, _, chain, cfg := setupProvider(t, 3)
	cfg.ActivateAtGenesis(rollup.Canyon)
	env, err := p.PayloadByNumber(context.Background(), chain.Head().Number.Uint64())
	require.NoError(t, err)
	require.NotNil(t, env.ExecutionPayload.Withdrawals)
	require.Empty(t, *env.ExecutionPayload.Withdrawals)
}

func TestPayloadByNumberHintsTransactions(t *testing.T) {
	p, oracle, chain, _ := setupProvider(t, 3)
	head := chain.Head()
	_, err := p.PayloadByNumber(context.Background(), head.Number.Uint64())
	require.NoError(t, err)
	require.Contains(t, oracle.Hints, TransactionsHint(head.Hash()).Hint())
}

func TestPayloadByNumberDecodeFailure(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	cfg := test.RollupConfig()
	oracle := test.NewStubOracle()
	chain := test.NewChain(t, rng, cfg, oracle, 2)

	// a block whose transactions trie holds a leaf that is not a transaction
	root, nodes := mpt.WriteTrie([]hexutil.Bytes{{0x7e, 0x01, 0x02}})
	for _, node := range nodes {
		oracle.PutKeccak(node)
	}
	bad := types.CopyHeader(chain.Head())
	bad.ParentHash = chain.Head().Hash()
	bad.Number = new(big.Int).Add(chain.Head().Number, common.Big1)
	bad.Time = cfg.TimestampForBlock(bad.Number.Uint64())
	bad.TxHash = root
	data, err := rlp.EncodeToBytes(bad)
	require.NoError(t, err)
	oracle.PutKeccak(data)
	output := &eth.OutputV0{BlockHash: bad.Hash()}
	outputRoot := oracle.PutKeccak(output.Marshal())

	p := NewOracleL2ChainProvider(testlog.Logger(t, log.LevelDebug), metrics.NoopMetrics, oracle, oracle,
		mpt.OrderedListWalker{}, cfg, outputRoot)
	num := bad.Number.Uint64()
	_, err = p.PayloadByNumber(context.Background(), num)
	require.ErrorIs(t, err, ErrDecode)
	require.NotContains(t, p.payloads, num)

	_, err = p.L2BlockRefByNumber(context.Background(), num)
	require.ErrorIs(t, err, ErrDecode)
	require.NotContains(t, p.refs, num)
}

func TestPayloadByNumberOracleFailure(t *testing.T) {
	p, oracle, chain, _ := setupProvider(t, 3)
	head := chain.Head()
	_, err := p.HeaderByNumber(context.Background(), head.Number.Uint64())
	require.NoError(t, err)

	oracle.GetErr = errors.New("connection lost")
	_, err = p.PayloadByNumber(context.Background(), head.Number.Uint64())
	require.ErrorIs(t, err, ErrOracle)
	require.NotErrorIs(t, err, ErrDecode)
	require.NotContains(t, p.payloads, head.Number.Uint64())
}

func TestL2BlockRefAndSystemConfig(t *testing.T) {
	p, oracle, chain, cfg := setupProvider(t, 4)
	ctx := context.Background()

	for i, header := range chain.L2 {
		num := header.Number.Uint64()
		ref, err := p.L2BlockRefByNumber(ctx, num)
		require.NoError(t, err)
		require.Equal(t, header.Hash(), ref.Hash)
		require.Equal(t, num, ref.Number)
		if i == 0 {
			require.Equal(t, cfg.Genesis.L1, ref.L1Origin)
		} else {
			require.Equal(t, chain.L1[i].Hash(), ref.L1Origin.Hash)
		}

		sysCfg, err := p.SystemConfigByNumber(ctx, num, cfg)
		require.NoError(t, err)
		require.Equal(t, cfg.Genesis.SystemConfig, sysCfg)

		oracle.ResetCalls()
		_, err = p.L2BlockRefByNumber(ctx, num)
		require.NoError(t, err)
		_, err = p.SystemConfigByNumber(ctx, num, cfg)
		require.NoError(t, err)
		require.Zero(t, oracle.Calls())
	}
}

func TestL2BlockRefByHash(t *testing.T) {
	p, oracle, chain, _ := setupProvider(t, 4)
	ctx := context.Background()
	target := chain.L2[2]

	// not known yet, so it is resolved without touching the number caches
	ref, err := p.L2BlockRefByHash(ctx, target.Hash())
	require.NoError(t, err)
	require.Equal(t, target.Hash(), ref.Hash)
	require.NotContains(t, p.refs, target.Number.Uint64())

	_, err = p.HeaderByNumber(ctx, target.Number.Uint64())
	require.NoError(t, err)
	oracle.ResetCalls()
	sysCfg, err := p.SystemConfigByL2Hash(ctx, target.Hash())
	require.NoError(t, err)
	require.Equal(t, p.rollupCfg.Genesis.SystemConfig, sysCfg)
	require.Contains(t, p.sysCfgs, target.Number.Uint64())
}

func TestCommit(t *testing.T) {
	p, oracle, chain, cfg := setupProvider(t, 3)
	ctx := context.Background()
	parent := chain.Head()

	dep, err := derive.L1InfoDeposit(cfg, cfg.Genesis.SystemConfig, 1, eth.HeaderBlockInfo(chain.L1Head()), nil, parent.Time+cfg.BlockTime)
	require.NoError(t, err)
	txs := types.Transactions{types.NewTx(dep)}
	header := &types.Header{
		ParentHash: parent.Hash(),
		Number:     new(big.Int).Add(parent.Number, common.Big1),
		Time:       parent.Time + cfg.BlockTime,
		GasLimit:   parent.GasLimit,
		BaseFee:    big.NewInt(7),
		Difficulty: common.Big0,
		TxHash:     types.DeriveSha(txs, trie.NewStackTrie(nil)),
	}
	env, err := eth.BlockAsPayloadEnv(header, txs, nil)
	require.NoError(t, err)

	oracle.ResetCalls()
	ref, err := p.Commit(header, env, cfg)
	require.NoError(t, err)
	require.Zero(t, oracle.Calls(), "commit must not consult the oracle")

	num := header.Number.Uint64()
	require.Equal(t, header.Hash(), ref.Hash)
	require.Equal(t, uint64(1), ref.SequenceNumber)
	require.Equal(t, chain.L1Head().Hash(), ref.L1Origin.Hash)

	require.Same(t, header, p.headers[num])
	require.Same(t, env, p.payloads[num])
	require.Equal(t, ref, p.refs[num])
	require.Equal(t, cfg.Genesis.SystemConfig, p.sysCfgs[num])

	gotHeader, err := p.HeaderByNumber(ctx, num)
	require.NoError(t, err)
	require.Same(t, header, gotHeader)
	gotEnv, err := p.PayloadByNumber(ctx, num)
	require.NoError(t, err)
	require.Same(t, env, gotEnv)
	gotRef, err := p.L2BlockRefByNumber(ctx, num)
	require.NoError(t, err)
	require.Equal(t, ref, gotRef)
	gotRef, err = p.L2BlockRefByHash(ctx, header.Hash())
	require.NoError(t, err)
	require.Equal(t, ref, gotRef)
	_, err = p.SystemConfigByNumber(ctx, num, cfg)
	require.NoError(t, err)
	require.Zero(t, oracle.Calls())
}

func TestCommitRejectsMismatchedPayload(t *testing.T) {
	p, _, chain, cfg := setupProvider(t, 2)
	header := chain.Head()
	env, err := eth.BlockAsPayloadEnv(chain.L2[0], nil, nil)
	require.NoError(t, err)
	_, err = p.Commit(header, env, cfg)
	require.ErrorContains(t, err, "does not match header")
	require.Empty(t, p.payloads)
}

func TestCodeByHash(t *testing.T) {
	p, oracle, _, _ := setupProvider(t, 1)
	code := []byte{0x60, 0x00, 0x60, 0x00, 0xf3}
	hash := oracle.PutKeccak(code)
	oracle.ResetCalls()

	got, err := p.CodeByHash(hash)
	require.NoError(t, err)
	require.Equal(t, code, got)
	require.Equal(t, []string{CodeHint(hash).Hint()}, oracle.Hints)

	node, err := p.TriePreimage(hash)
	require.NoError(t, err)
	require.Equal(t, code, node)
	require.Len(t, oracle.Hints, 1, "trie node fetches are not hinted")
}

func TestHintFailure(t *testing.T) {
	p, oracle, _, _ := setupProvider(t, 1)
	oracle.HintErr = errors.New("hint channel closed")
	require.ErrorIs(t, p.HintTrieNode(common.Hash{0x01}), ErrOracle)
	require.ErrorIs(t, p.HintAccountProof(common.Address{0x02}, 7), ErrOracle)
	require.ErrorIs(t, p.HintStorageProof(common.Address{0x02}, common.Hash{0x03}, 7), ErrOracle)
	_, err := p.CodeByHash(common.Hash{0x04})
	require.ErrorIs(t, err, ErrOracle)
}
