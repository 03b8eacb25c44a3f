package driver

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/boot"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/l2"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

type L1Source interface {
	L1BlockRefByNumber(ctx context.Context, n uint64) (eth.L1BlockRef, error)
}

type L2Source interface {
	HeaderByHash(hash common.Hash) (*types.Header, error)
	L2BlockRefByNumber(ctx context.Context, n uint64) (eth.L2BlockRef, error)
}

// FindStartupInfo resolves the point a run starts deriving from: the L2 block committed to by
// the starting output root, and the L1 block that is its origin.
func FindStartupInfo(ctx context.Context, oracle preimage.Oracle, hinter preimage.Hinter, bootInfo *boot.BootInfo,
	l1Source L1Source, l2Source L2Source) (eth.L1BlockRef, eth.L2BlockRef, *types.Header, error) {
	output, err := l2.OutputByRoot(oracle, hinter, bootInfo.L2OutputRoot)
	if err != nil {
		return eth.L1BlockRef{}, eth.L2BlockRef{}, nil, fmt.Errorf("failed to read starting output: %w", err)
	}
	header, err := l2Source.HeaderByHash(output.BlockHash)
	if err != nil {
		return eth.L1BlockRef{}, eth.L2BlockRef{}, nil, fmt.Errorf("failed to fetch safe head header %s: %w", output.BlockHash, err)
	}
	safeHead, err := l2Source.L2BlockRefByNumber(ctx, header.Number.Uint64())
	if err != nil {
		return eth.L1BlockRef{}, eth.L2BlockRef{}, nil, fmt.Errorf("failed to fetch safe head block ref: %w", err)
	}
	if safeHead.Hash != output.BlockHash {
		return eth.L1BlockRef{}, eth.L2BlockRef{}, nil, fmt.Errorf("safe head %s does not match output block %s", safeHead, output.BlockHash)
	}
	l1Origin, err := l1Source.L1BlockRefByNumber(ctx, safeHead.L1Origin.Number)
	if err != nil {
		return eth.L1BlockRef{}, eth.L2BlockRef{}, nil, fmt.Errorf("failed to fetch L1 origin %d: %w", safeHead.L1Origin.Number, err)
	}
	return l1Origin, safeHead, header, nil
}
