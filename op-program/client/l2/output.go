package l2

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

// OutputByRoot retrieves the output committed to by root. The preimage must be exactly
// eth.OutputV0Size bytes long. Only the trailing 32 bytes, the hash of the L2 block the output
// commits to, are interpreted: the version word and the two state commitments are copied
// without being checked.
func OutputByRoot(oracle preimage.Oracle, hinter preimage.Hinter, root common.Hash) (*eth.OutputV0, error) {
	if err := hinter.Hint(StartingOutputHint(root)); err != nil {
		return nil, fmt.Errorf("%w: hint output root %s: %w", ErrOracle, root, err)
	}
	data, err := oracle.Get(preimage.Keccak256Key(root))
	if err != nil {
		return nil, fmt.Errorf("%w: output root %s: %w", ErrOracle, root, err)
	}
	if len(data) != eth.OutputV0Size {
		return nil, fmt.Errorf("%w: %s: expected %d bytes, got %d", ErrInvalidOutputRoot, root, eth.OutputV0Size, len(data))
	}
	var output eth.OutputV0
	copy(output.StateRoot[:], data[32:64])
	copy(output.MessagePasserStorageRoot[:], data[64:96])
	copy(output.BlockHash[:], data[96:128])
	return &output, nil
}
