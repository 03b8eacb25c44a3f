package l1

import (
	"context"
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/l2/test"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/mpt"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
	"github.com/mantlenetworkio/op-multiblock/op-service/testlog"
)

// blockWithReceipts stores a block with transactions and receipts in the oracle.
func blockWithReceipts(t *testing.T, rng *rand.Rand, oracle *test.StubOracle) (*types.Header, types.Transactions, types.Receipts) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := types.LatestSignerForChainID(big.NewInt(900))
	var txs types.Transactions
	var receipts types.Receipts
	for i := 0; i < 5; i++ {
		tx, err := types.SignNewTx(key, signer, &types.DynamicFeeTx{
			ChainID:   big.NewInt(900),
			Nonce:     uint64(i),
			GasTipCap: big.NewInt(1),
			GasFeeCap: big.NewInt(10),
			Gas:       21_000,
			To:        &common.Address{0x42},
			Value:     big.NewInt(rng.Int63n(1000)),
		})
		require.NoError(t, err)
		txs = append(txs, tx)
		receipts = append(receipts, &types.Receipt{
			Type:              types.DynamicFeeTxType,
			Status:            types.ReceiptStatusSuccessful,
			CumulativeGasUsed: uint64(i+1) * 21_000,
			Logs:              []*types.Log{{Address: common.Address{byte(i)}, Data: []byte{byte(i)}}},
		})
	}
	opaqueReceipts, err := eth.EncodeReceipts(receipts)
	require.NoError(t, err)
	receiptRoot, nodes := mpt.WriteTrie(opaqueReceipts)
	for _, node := range nodes {
		oracle.PutKeccak(node)
	}
	header := &types.Header{
		Number:      big.NewInt(77),
		Time:        1234,
		BaseFee:     big.NewInt(3),
		Difficulty:  common.Big0,
		TxHash:      test.PutTransactions(t, oracle, txs),
		ReceiptHash: receiptRoot,
	}
	data, err := rlp.EncodeToBytes(header)
	require.NoError(t, err)
	oracle.PutKeccak(data)
	return header, txs, receipts
}

func TestInfoAndReceipts(t *testing.T) {
	rng := rand.New(rand.NewSource(123))
	oracle := test.NewStubOracle()
	header, txs, receipts := blockWithReceipts(t, rng, oracle)
	hash := header.Hash()

	hints := new(mock.Mock)
	hinter := preimage.HinterFn(func(v preimage.Hint) error {
		hints.MethodCalled("hint", v.Hint())
		return nil
	})
	p := NewOracleL1ChainProvider(testlog.Logger(t, log.LevelDebug), oracle, hinter, mpt.OrderedListWalker{}, hash)
	ctx := context.Background()

	hints.On("hint", BlockHeaderHint(hash).Hint()).Once().Return()
	info, err := p.InfoByHash(ctx, hash)
	require.NoError(t, err)
	hints.AssertExpectations(t)
	require.Equal(t, hash, info.Hash())
	require.Equal(t, uint64(77), info.NumberU64())

	// the header is cached, only the transactions are hinted
	hints.On("hint", TransactionsHint(hash).Hint()).Once().Return()
	_, gotTxs, err := p.InfoAndTxsByHash(ctx, hash)
	require.NoError(t, err)
	hints.AssertExpectations(t)
	require.Len(t, gotTxs, len(txs))
	for i, tx := range gotTxs {
		require.Equal(t, txs[i].Hash(), tx.Hash())
	}

	hints.On("hint", TransactionsHint(hash).Hint()).Once().Return()
	hints.On("hint", ReceiptsHint(hash).Hint()).Once().Return()
	_, gotReceipts, err := p.ReceiptsByHash(ctx, hash)
	require.NoError(t, err)
	hints.AssertExpectations(t)
	require.Len(t, gotReceipts, len(receipts))
	for i, r := range gotReceipts {
		require.Equal(t, txs[i].Hash(), r.TxHash)
		require.Equal(t, hash, r.BlockHash)
		require.Equal(t, uint64(21_000), r.GasUsed)
	}
}

func TestL1BlockRefByNumber(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cfg := test.RollupConfig()
	oracle := test.NewStubOracle()
	chain := test.NewChain(t, rng, cfg, oracle, 8)
	p := NewOracleL1ChainProvider(testlog.Logger(t, log.LevelDebug), oracle, oracle, mpt.OrderedListWalker{}, chain.L1Head().Hash())
	ctx := context.Background()

	// walk down in two steps, then make sure everything walked over is served without the oracle
	for _, i := range []int{5, 1} {
		ref, err := p.L1BlockRefByNumber(ctx, chain.L1[i].Number.Uint64())
		require.NoError(t, err)
		require.Equal(t, chain.L1[i].Hash(), ref.Hash)
	}
	oracle.ResetCalls()
	for _, header := range chain.L1[1:] {
		ref, err := p.L1BlockRefByNumber(ctx, header.Number.Uint64())
		require.NoError(t, err)
		require.Equal(t, header.Hash(), ref.Hash)
		require.Equal(t, header.ParentHash, ref.ParentHash)
	}
	require.Zero(t, oracle.Calls())

	_, err := p.L1BlockRefByNumber(ctx, chain.L1Head().Number.Uint64()+1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHeaderErrors(t *testing.T) {
	oracle := test.NewStubOracle()
	p := NewOracleL1ChainProvider(testlog.Logger(t, log.LevelDebug), oracle, oracle, mpt.OrderedListWalker{}, common.Hash{})
	ctx := context.Background()

	_, err := p.HeaderByHash(ctx, common.Hash{0x01})
	require.ErrorIs(t, err, ErrOracle)

	garbage := oracle.PutKeccak([]byte{0xc0, 0x01})
	_, err = p.HeaderByHash(ctx, garbage)
	require.ErrorIs(t, err, ErrDecode)

	oracle.HintErr = errors.New("closed")
	_, err = p.HeaderByHash(ctx, common.Hash{0x02})
	require.ErrorIs(t, err, ErrOracle)
}
