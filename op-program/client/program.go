package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/op-multiblock/op-node/rollup"
	"github.com/mantlenetworkio/op-multiblock/op-node/rollup/derive"
	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/boot"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/driver"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/l1"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/l2"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/metrics"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/mpt"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

const DefaultMaxIdleSteps = 10_000

var (
	ErrTooManyIdleSteps = errors.New("too many consecutive pipeline steps without progress")
	ErrParentMismatch   = errors.New("attributes do not build on the safe head")
)

// BlockExecutor executes derived payload attributes on top of parent and returns the sealed
// block. Execution is outside this program: its results are trusted as-is.
type BlockExecutor interface {
	ExecutePayload(ctx context.Context, parent *types.Header, attrs *derive.AttributesWithParent) (*types.Header, *eth.ExecutionPayloadEnvelope, error)
}

// PipelineBuilder creates a derivation pipeline reading from the oracle-backed chain providers.
type PipelineBuilder func(cfg *rollup.Config, l1Source *l1.OracleL1ChainProvider, l2Source *l2.OracleL2ChainProvider,
	l1Origin eth.L1BlockRef, safeHead eth.L2BlockRef) (derive.Pipeline, error)

type Config struct {
	// MaxIdleSteps bounds the number of consecutive steps that prepare no attributes.
	MaxIdleSteps int
	// OracleCacheSize is the number of preimages kept in memory. Zero uses the default.
	OracleCacheSize int
}

func (c Config) withDefaults() Config {
	if c.MaxIdleSteps <= 0 {
		c.MaxIdleSteps = DefaultMaxIdleSteps
	}
	if c.OracleCacheSize <= 0 {
		c.OracleCacheSize = preimage.DefaultCacheSize
	}
	return c
}

// RunProgram bootstraps from the oracle and derives L2 blocks from the starting output root up
// to the claim block. Every prepared block is handed to the executor, and the sealed result is
// committed to the L2 provider before it becomes the new safe head.
// It returns the safe head that was reached.
func RunProgram(ctx context.Context, logger log.Logger, m metrics.Metricer, oracle preimage.Oracle, hinter preimage.Hinter,
	cfg Config, newPipeline PipelineBuilder, executor BlockExecutor) (eth.L2BlockRef, error) {
	cfg = cfg.withDefaults()
	cached := preimage.NewCachingOracle(oracle, cfg.OracleCacheSize)

	bootInfo, err := boot.NewBootstrapClient(cached).BootInfo()
	if err != nil {
		return eth.L2BlockRef{}, fmt.Errorf("failed to bootstrap: %w", err)
	}
	logger.Info("Program bootstrapped", "l1Head", bootInfo.L1Head, "outputRoot", bootInfo.L2OutputRoot,
		"claimBlock", bootInfo.L2ClaimBlockNumber, "chainID", bootInfo.L2ChainID)

	rollupCfg := bootInfo.RollupConfig
	l1Source := l1.NewOracleL1ChainProvider(logger, cached, hinter, mpt.OrderedListWalker{}, bootInfo.L1Head)
	l2Source := l2.NewOracleL2ChainProvider(logger, m, cached, hinter, mpt.OrderedListWalker{}, rollupCfg, bootInfo.L2OutputRoot)

	d, err := driver.NewDriver(ctx, logger, m, bootInfo, cached, hinter, l1Source, l2Source,
		func(l1Origin eth.L1BlockRef, safeHead eth.L2BlockRef) (derive.Pipeline, error) {
			return newPipeline(rollupCfg, l1Source, l2Source, l1Origin, safeHead)
		})
	if err != nil {
		return eth.L2BlockRef{}, err
	}

	idle := 0
	for d.SafeHead().Number < d.ClaimBlock() {
		if err := ctx.Err(); err != nil {
			return d.SafeHead(), err
		}
		attrs, err := d.ProducePayloads(ctx)
		if err != nil {
			return d.SafeHead(), err
		}
		if step := d.LastStep(); step.Err != nil && errors.Is(step.Err, derive.ErrCritical) {
			return d.SafeHead(), fmt.Errorf("derivation failed at safe head %s: %w", d.SafeHead(), step.Err)
		}
		if len(attrs) == 0 {
			idle++
			if idle >= cfg.MaxIdleSteps {
				return d.SafeHead(), fmt.Errorf("%w: %d steps at safe head %s", ErrTooManyIdleSteps, idle, d.SafeHead())
			}
			continue
		}
		idle = 0
		for _, a := range attrs {
			if err := executeAndCommit(ctx, logger, d, l2Source, rollupCfg, executor, a); err != nil {
				return d.SafeHead(), err
			}
		}
	}
	logger.Info("Derivation complete", "safeHead", d.SafeHead(), "claimBlock", d.ClaimBlock())
	return d.SafeHead(), nil
}

func executeAndCommit(ctx context.Context, logger log.Logger, d *driver.Driver, l2Source *l2.OracleL2ChainProvider,
	rollupCfg *rollup.Config, executor BlockExecutor, attrs *derive.AttributesWithParent) error {
	safeHead := d.SafeHead()
	if attrs.Parent.Hash != safeHead.Hash {
		return fmt.Errorf("%w: parent %s, safe head %s", ErrParentMismatch, attrs.Parent, safeHead)
	}
	header, env, err := executor.ExecutePayload(ctx, d.SafeHeadHeader(), attrs)
	if err != nil {
		return fmt.Errorf("failed to execute block %d: %w", attrs.TargetNumber(), err)
	}
	if header.ParentHash != safeHead.Hash {
		return fmt.Errorf("%w: executed block %s has parent %s", ErrParentMismatch, header.Hash(), header.ParentHash)
	}
	ref, err := l2Source.Commit(header, env, rollupCfg)
	if err != nil {
		return fmt.Errorf("failed to commit block %d: %w", attrs.TargetNumber(), err)
	}
	d.UpdateSafeHead(ref, header)
	logger.Info("Executed block", "block", ref, "l1Origin", ref.L1Origin)
	return nil
}
