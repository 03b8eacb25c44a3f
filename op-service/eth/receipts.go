package eth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// EncodeReceipts returns the typed consensus encoding of each receipt, the form stored as
// receipts trie leaves.
func EncodeReceipts(receipts []*types.Receipt) ([]hexutil.Bytes, error) {
	out := make([]hexutil.Bytes, 0, len(receipts))
	for i, r := range receipts {
		enc, err := r.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode receipt %d: %w", i, err)
		}
		out = append(out, enc)
	}
	return out, nil
}

// DecodeRawReceipts is the inverse of EncodeReceipts. It also derives the fields that the
// consensus encoding omits, except for contract addresses.
func DecodeRawReceipts(block BlockID, raw []hexutil.Bytes, txHashes []common.Hash) ([]*types.Receipt, error) {
	if len(raw) != len(txHashes) {
		return nil, fmt.Errorf("receipt count %d does not match transaction count %d", len(raw), len(txHashes))
	}
	receipts := make([]*types.Receipt, len(raw))
	for i, enc := range raw {
		r := new(types.Receipt)
		if err := r.UnmarshalBinary(enc); err != nil {
			return nil, fmt.Errorf("decode receipt %d: %w", i, err)
		}
		r.TxHash = txHashes[i]
		r.TransactionIndex = uint(i)
		receipts[i] = r
	}
	deriveReceiptFields(block, receipts)
	return receipts, nil
}

func deriveReceiptFields(block BlockID, receipts []*types.Receipt) {
	var logIndex uint
	var cumulative uint64
	for _, r := range receipts {
		r.BlockHash = block.Hash
		r.BlockNumber = new(big.Int).SetUint64(block.Number)
		r.GasUsed = r.CumulativeGasUsed - cumulative
		cumulative = r.CumulativeGasUsed
		for _, l := range r.Logs {
			l.BlockHash = block.Hash
			l.BlockNumber = block.Number
			l.TxHash = r.TxHash
			l.TxIndex = r.TransactionIndex
			l.Index = logIndex
			logIndex++
		}
	}
}
