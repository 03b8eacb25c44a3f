package eth

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestDecodeRawReceipts(t *testing.T) {
	receipts := []*types.Receipt{
		{Type: types.LegacyTxType, Status: types.ReceiptStatusSuccessful, CumulativeGasUsed: 21000,
			Logs: []*types.Log{{Address: common.Address{0x01}}}},
		{Type: types.DynamicFeeTxType, Status: types.ReceiptStatusFailed, CumulativeGasUsed: 50000,
			Logs: []*types.Log{{Address: common.Address{0x02}}, {Address: common.Address{0x03}}}},
	}
	raw, err := EncodeReceipts(receipts)
	require.NoError(t, err)

	block := BlockID{Hash: common.Hash{0xbb}, Number: 12}
	txHashes := []common.Hash{{0x01}, {0x02}}
	got, err := DecodeRawReceipts(block, raw, txHashes)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, uint64(21000), got[0].GasUsed)
	require.Equal(t, uint64(29000), got[1].GasUsed)
	require.Equal(t, txHashes[1], got[1].TxHash)
	require.Equal(t, uint(1), got[1].TransactionIndex)
	require.Equal(t, uint(2), got[1].Logs[1].Index)
	require.Equal(t, block.Hash, got[1].Logs[1].BlockHash)

	_, err = DecodeRawReceipts(block, raw, txHashes[:1])
	require.Error(t, err)
}
