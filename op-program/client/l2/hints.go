package l2

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
)

const (
	HintL2BlockHeader         = "l2-block-header"
	HintL2Transactions        = "l2-transactions"
	HintL2Code                = "l2-code"
	HintStartingL2Output      = "starting-l2-output"
	HintL2StateNode           = "l2-state-node"
	HintL2AccountProof        = "l2-account-proof"
	HintL2AccountStorageProof = "l2-account-storage-proof"
)

type BlockHeaderHint common.Hash

var _ preimage.Hint = BlockHeaderHint{}

func (l BlockHeaderHint) Hint() string {
	return HintL2BlockHeader + " " + hexutil.Encode(l[:])
}

type TransactionsHint common.Hash

var _ preimage.Hint = TransactionsHint{}

func (l TransactionsHint) Hint() string {
	return HintL2Transactions + " " + hexutil.Encode(l[:])
}

type CodeHint common.Hash

var _ preimage.Hint = CodeHint{}

func (l CodeHint) Hint() string {
	return HintL2Code + " " + hexutil.Encode(l[:])
}

// StartingOutputHint announces the output root the run starts from.
type StartingOutputHint common.Hash

var _ preimage.Hint = StartingOutputHint{}

func (l StartingOutputHint) Hint() string {
	return HintStartingL2Output + " " + hexutil.Encode(l[:])
}

type StateNodeHint common.Hash

var _ preimage.Hint = StateNodeHint{}

func (l StateNodeHint) Hint() string {
	return HintL2StateNode + " " + hexutil.Encode(l[:])
}

// AccountProofHint asks the host to prepare the account proof of Address at BlockNumber.
// The payload is the 8-byte big-endian block number followed by the address.
type AccountProofHint struct {
	BlockNumber uint64
	Address     common.Address
}

var _ preimage.Hint = AccountProofHint{}

func (l AccountProofHint) Hint() string {
	payload := make([]byte, 0, 8+common.AddressLength)
	payload = binary.BigEndian.AppendUint64(payload, l.BlockNumber)
	payload = append(payload, l.Address[:]...)
	return HintL2AccountProof + " " + hexutil.Encode(payload)
}

// StorageProofHint asks the host to prepare the proof of one storage slot.
// The payload is the block number, the address and the 32-byte slot.
type StorageProofHint struct {
	BlockNumber uint64
	Address     common.Address
	Slot        common.Hash
}

var _ preimage.Hint = StorageProofHint{}

func (l StorageProofHint) Hint() string {
	payload := make([]byte, 0, 8+common.AddressLength+common.HashLength)
	payload = binary.BigEndian.AppendUint64(payload, l.BlockNumber)
	payload = append(payload, l.Address[:]...)
	payload = append(payload, l.Slot[:]...)
	return HintL2AccountStorageProof + " " + hexutil.Encode(payload)
}
