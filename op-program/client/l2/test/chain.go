package test

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/op-multiblock/op-node/rollup"
	"github.com/mantlenetworkio/op-multiblock/op-node/rollup/derive"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/mpt"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
	"github.com/mantlenetworkio/op-multiblock/op-service/testutils"
)

// RollupConfig returns a config for synthetic chains. Its genesis block ids are filled in by
// NewChain.
func RollupConfig() *rollup.Config {
	return &rollup.Config{
		Genesis: rollup.Genesis{
			L1:     eth.BlockID{Number: 100},
			L2:     eth.BlockID{Number: 0},
			L2Time: 10_000,
			SystemConfig: eth.SystemConfig{
				BatcherAddr: common.Address{0xba},
				Scalar:      eth.Bytes32{31: 0x01},
				GasLimit:    30_000_000,
			},
		},
		BlockTime:              2,
		L1ChainID:              big.NewInt(900),
		L2ChainID:              big.NewInt(901),
		BatchInboxAddress:      common.Address{0xff, 0x01},
		DepositContractAddress: common.Address{0xde},
		L1SystemConfigAddress:  common.Address{0x5c},
	}
}

// Chain is a synthetic L1 and L2 chain whose headers, transaction tries and output root have all
// been stored in a StubOracle. L2 block i has L1 block i as its origin.
type Chain struct {
	L1         []*types.Header
	L2         []*types.Header
	Txs        []types.Transactions
	Output     *eth.OutputV0
	OutputRoot common.Hash
}

// NewChain builds length L1 and L2 blocks, starting at the genesis of cfg, and points the
// genesis of cfg at the first blocks built.
func NewChain(t *testing.T, rng *rand.Rand, cfg *rollup.Config, oracle *StubOracle, length int) *Chain {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := types.LatestSignerForChainID(cfg.L2ChainID)

	chain := &Chain{}
	for i := 0; i < length; i++ {
		l1 := &types.Header{
			Number:     new(big.Int).SetUint64(cfg.Genesis.L1.Number + uint64(i)),
			Time:       cfg.Genesis.L2Time + uint64(i)*cfg.BlockTime,
			BaseFee:    big.NewInt(int64(rng.Intn(1000) + 1)),
			Difficulty: common.Big0,
			GasLimit:   30_000_000,
			Root:       testutils.RandomHash(rng),
		}
		if i > 0 {
			l1.ParentHash = chain.L1[i-1].Hash()
		}
		putHeader(t, oracle, l1)
		chain.L1 = append(chain.L1, l1)
	}
	cfg.Genesis.L1 = eth.BlockID{Hash: chain.L1[0].Hash(), Number: chain.L1[0].Number.Uint64()}

	for i := 0; i < length; i++ {
		num := cfg.Genesis.L2.Number + uint64(i)
		header := &types.Header{
			Number:      new(big.Int).SetUint64(num),
			Time:        cfg.TimestampForBlock(num),
			GasLimit:    cfg.Genesis.SystemConfig.GasLimit,
			BaseFee:     big.NewInt(7),
			Difficulty:  common.Big0,
			UncleHash:   types.EmptyUncleHash,
			ReceiptHash: types.EmptyReceiptsHash,
			Root:        testutils.RandomHash(rng),
		}
		var txs types.Transactions
		if i > 0 {
			header.ParentHash = chain.L2[i-1].Hash()
			dep, err := derive.L1InfoDeposit(cfg, cfg.Genesis.SystemConfig, 0, eth.HeaderBlockInfo(chain.L1[i]), nil, header.Time)
			require.NoError(t, err)
			tx, err := types.SignNewTx(key, signer, &types.DynamicFeeTx{
				ChainID:   cfg.L2ChainID,
				Nonce:     uint64(i),
				GasTipCap: big.NewInt(1),
				GasFeeCap: big.NewInt(100),
				Gas:       21_000,
				To:        &common.Address{0x01},
				Value:     big.NewInt(int64(rng.Intn(1000))),
			})
			require.NoError(t, err)
			txs = types.Transactions{types.NewTx(dep), tx}
		}
		header.TxHash = PutTransactions(t, oracle, txs)
		putHeader(t, oracle, header)
		chain.L2 = append(chain.L2, header)
		chain.Txs = append(chain.Txs, txs)
	}
	cfg.Genesis.L2 = eth.BlockID{Hash: chain.L2[0].Hash(), Number: chain.L2[0].Number.Uint64()}

	head := chain.L2[length-1]
	chain.Output = &eth.OutputV0{
		StateRoot:                eth.Bytes32(head.Root),
		MessagePasserStorageRoot: eth.Bytes32(testutils.RandomHash(rng)),
		BlockHash:                head.Hash(),
	}
	chain.OutputRoot = oracle.PutKeccak(chain.Output.Marshal())
	return chain
}

// Head returns the L2 block committed to by the output root.
func (c *Chain) Head() *types.Header {
	return c.L2[len(c.L2)-1]
}

// L1Head returns the last L1 block of the chain.
func (c *Chain) L1Head() *types.Header {
	return c.L1[len(c.L1)-1]
}

// PutTransactions stores the transactions trie of txs and returns its root.
func PutTransactions(t *testing.T, oracle *StubOracle, txs types.Transactions) common.Hash {
	opaque, err := eth.EncodeTransactions(txs)
	require.NoError(t, err)
	root, nodes := mpt.WriteTrie(opaque)
	for _, node := range nodes {
		oracle.PutKeccak(node)
	}
	return root
}

func putHeader(t *testing.T, oracle *StubOracle, header *types.Header) {
	data, err := rlp.EncodeToBytes(header)
	require.NoError(t, err)
	oracle.PutKeccak(data)
}
