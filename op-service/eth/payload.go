package eth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

type ExecutionPayloadEnvelope struct {
	ParentBeaconBlockRoot *common.Hash      `json:"parentBeaconBlockRoot,omitempty"`
	ExecutionPayload      *ExecutionPayload `json:"executionPayload"`
}

func (env *ExecutionPayloadEnvelope) ID() BlockID {
	return env.ExecutionPayload.ID()
}

type ExecutionPayload struct {
	ParentHash    common.Hash     `json:"parentHash"`
	FeeRecipient  common.Address  `json:"feeRecipient"`
	StateRoot     Bytes32         `json:"stateRoot"`
	ReceiptsRoot  Bytes32         `json:"receiptsRoot"`
	LogsBloom     types.Bloom     `json:"logsBloom"`
	PrevRandao    Bytes32         `json:"prevRandao"`
	BlockNumber   Uint64Quantity  `json:"blockNumber"`
	GasLimit      Uint64Quantity  `json:"gasLimit"`
	GasUsed       Uint64Quantity  `json:"gasUsed"`
	Timestamp     Uint64Quantity  `json:"timestamp"`
	ExtraData     Data            `json:"extraData"`
	BaseFeePerGas Uint256Quantity `json:"baseFeePerGas"`
	BlockHash     common.Hash     `json:"blockHash"`
	// Array of transaction objects, each object is a byte list (DATA) representing
	// TransactionType || TransactionPayload or LegacyTransaction as defined in EIP-2718
	Transactions []Data `json:"transactions"`
	// Nil if not present (Bedrock)
	Withdrawals *types.Withdrawals `json:"withdrawals,omitempty"`
	// Nil if not present (Bedrock, Canyon, Delta)
	BlobGasUsed *Uint64Quantity `json:"blobGasUsed,omitempty"`
	// Nil if not present (Bedrock, Canyon, Delta)
	ExcessBlobGas *Uint64Quantity `json:"excessBlobGas,omitempty"`
}

func (payload *ExecutionPayload) ID() BlockID {
	return BlockID{Hash: payload.BlockHash, Number: uint64(payload.BlockNumber)}
}

func (payload *ExecutionPayload) ParentID() BlockID {
	n := uint64(payload.BlockNumber)
	if n > 0 {
		n -= 1
	}
	return BlockID{Hash: payload.ParentHash, Number: n}
}

// BlockAsPayload assembles an execution payload from a sealed header and its decoded body.
// A nil withdrawals list marks a pre-Canyon block.
func BlockAsPayload(header *types.Header, txs types.Transactions, withdrawals *types.Withdrawals) (*ExecutionPayload, error) {
	opaqueTxs, err := EncodeTransactions(txs)
	if err != nil {
		return nil, err
	}
	var baseFee uint256.Int
	if header.BaseFee != nil {
		overflow := baseFee.SetFromBig(header.BaseFee)
		if overflow {
			return nil, fmt.Errorf("base fee overflows uint256: %s", header.BaseFee)
		}
	}
	payload := &ExecutionPayload{
		ParentHash:    header.ParentHash,
		FeeRecipient:  header.Coinbase,
		StateRoot:     Bytes32(header.Root),
		ReceiptsRoot:  Bytes32(header.ReceiptHash),
		LogsBloom:     header.Bloom,
		PrevRandao:    Bytes32(header.MixDigest),
		BlockNumber:   Uint64Quantity(header.Number.Uint64()),
		GasLimit:      Uint64Quantity(header.GasLimit),
		GasUsed:       Uint64Quantity(header.GasUsed),
		Timestamp:     Uint64Quantity(header.Time),
		ExtraData:     Data(header.Extra),
		BaseFeePerGas: Uint256Quantity(baseFee),
		BlockHash:     header.Hash(),
		Transactions:  opaqueTxs,
		Withdrawals:   withdrawals,
	}
	if header.BlobGasUsed != nil {
		v := Uint64Quantity(*header.BlobGasUsed)
		payload.BlobGasUsed = &v
	}
	if header.ExcessBlobGas != nil {
		v := Uint64Quantity(*header.ExcessBlobGas)
		payload.ExcessBlobGas = &v
	}
	return payload, nil
}

// BlockAsPayloadEnv is BlockAsPayload, wrapped with the parent beacon block root of the header.
func BlockAsPayloadEnv(header *types.Header, txs types.Transactions, withdrawals *types.Withdrawals) (*ExecutionPayloadEnvelope, error) {
	payload, err := BlockAsPayload(header, txs, withdrawals)
	if err != nil {
		return nil, err
	}
	return &ExecutionPayloadEnvelope{
		ExecutionPayload:      payload,
		ParentBeaconBlockRoot: header.ParentBeaconRoot,
	}, nil
}
