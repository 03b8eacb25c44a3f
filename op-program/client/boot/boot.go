package boot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mantlenetworkio/op-multiblock/op-node/rollup"
	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

// BootInfo is the fixed input of a derivation run.
type BootInfo struct {
	L1Head             common.Hash
	L2OutputRoot       common.Hash
	L2Claim            common.Hash
	L2ClaimBlockNumber uint64
	L2ChainID          eth.ChainID

	RollupConfig *rollup.Config
}

type BootstrapClient struct {
	r preimage.Oracle
}

func NewBootstrapClient(r preimage.Oracle) *BootstrapClient {
	return &BootstrapClient{r: r}
}

func (br *BootstrapClient) getHash(key preimage.LocalIndexKey) (common.Hash, error) {
	data, err := br.r.Get(key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to read local key %d: %w", key, err)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("local key %d: expected 32 bytes, got %d", key, len(data))
	}
	return common.Hash(data), nil
}

func (br *BootstrapClient) getUint64(key preimage.LocalIndexKey) (uint64, error) {
	data, err := br.r.Get(key)
	if err != nil {
		return 0, fmt.Errorf("failed to read local key %d: %w", key, err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("local key %d: expected 8 bytes, got %d", key, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// BootInfo reads the boot inputs from the local keys of the oracle. The rollup config must be
// valid and belong to the L2 chain that was booted.
func (br *BootstrapClient) BootInfo() (*BootInfo, error) {
	l1Head, err := br.getHash(L1HeadLocalIndex)
	if err != nil {
		return nil, err
	}
	l2OutputRoot, err := br.getHash(L2OutputRootLocalIndex)
	if err != nil {
		return nil, err
	}
	l2Claim, err := br.getHash(L2ClaimLocalIndex)
	if err != nil {
		return nil, err
	}
	l2ClaimBlockNumber, err := br.getUint64(L2ClaimBlockNumberLocalIndex)
	if err != nil {
		return nil, err
	}
	l2ChainID, err := br.getUint64(L2ChainIDLocalIndex)
	if err != nil {
		return nil, err
	}
	rawRollupCfg, err := br.r.Get(RollupConfigLocalIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to read rollup config: %w", err)
	}
	rollupCfg := new(rollup.Config)
	if err := rollupCfg.ParseRollupConfig(bytes.NewReader(rawRollupCfg)); err != nil {
		return nil, err
	}
	if err := rollupCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid rollup config: %w", err)
	}
	if rollupCfg.L2ChainID.Cmp(eth.ChainIDFromUInt64(l2ChainID).ToBig()) != 0 {
		return nil, fmt.Errorf("rollup config is for L2 chain %v, booted chain is %d", rollupCfg.L2ChainID, l2ChainID)
	}
	return &BootInfo{
		L1Head:             l1Head,
		L2OutputRoot:       l2OutputRoot,
		L2Claim:            l2Claim,
		L2ClaimBlockNumber: l2ClaimBlockNumber,
		L2ChainID:          eth.ChainIDFromUInt64(l2ChainID),
		RollupConfig:       rollupCfg,
	}, nil
}

// LocalPreimages encodes the boot info as the local key pre-images BootInfo reads back.
func (b *BootInfo) LocalPreimages() (map[preimage.LocalIndexKey][]byte, error) {
	rollupCfg, err := json.Marshal(b.RollupConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rollup config: %w", err)
	}
	if !b.L2ChainID.IsUint64() {
		return nil, fmt.Errorf("L2 chain ID %v does not fit 8 bytes", b.L2ChainID)
	}
	return map[preimage.LocalIndexKey][]byte{
		L1HeadLocalIndex:             b.L1Head.Bytes(),
		L2OutputRootLocalIndex:       b.L2OutputRoot.Bytes(),
		L2ClaimLocalIndex:            b.L2Claim.Bytes(),
		L2ClaimBlockNumberLocalIndex: binary.BigEndian.AppendUint64(nil, b.L2ClaimBlockNumber),
		L2ChainIDLocalIndex:          binary.BigEndian.AppendUint64(nil, eth.EvilChainIDToUInt64(b.L2ChainID)),
		RollupConfigLocalIndex:       rollupCfg,
	}, nil
}
