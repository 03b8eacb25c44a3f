package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/op-multiblock/op-node/rollup/derive"
	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/boot"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/metrics"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

// PipelineFactory creates the derivation pipeline, starting from the given L1 origin and safe head.
type PipelineFactory func(l1Origin eth.L1BlockRef, safeHead eth.L2BlockRef) (derive.Pipeline, error)

// Driver steps a derivation pipeline and collects the payload attributes it prepares, up to and
// including the attributes of the claimed block.
//
// The driver does not move its safe head by itself: after executing a block the caller must
// pass the new head to UpdateSafeHead, or the next step derives from the same parent again.
type Driver struct {
	logger  log.Logger
	metrics metrics.Metricer

	pipeline   derive.Pipeline
	claimBlock uint64

	safeHead       eth.L2BlockRef
	safeHeadHeader *types.Header
	lastStep       derive.StepResult
}

func NewDriver(ctx context.Context, logger log.Logger, m metrics.Metricer, bootInfo *boot.BootInfo,
	oracle preimage.Oracle, hinter preimage.Hinter, l1Source L1Source, l2Source L2Source,
	newPipeline PipelineFactory) (*Driver, error) {
	l1Origin, safeHead, header, err := FindStartupInfo(ctx, oracle, hinter, bootInfo, l1Source, l2Source)
	if err != nil {
		return nil, err
	}
	logger.Info("Found startup info", "l1Origin", l1Origin, "safeHead", safeHead, "claimBlock", bootInfo.L2ClaimBlockNumber)
	pipeline, err := newPipeline(l1Origin, safeHead)
	if err != nil {
		return nil, fmt.Errorf("failed to create derivation pipeline: %w", err)
	}
	d := newDriver(logger, m, pipeline, bootInfo.L2ClaimBlockNumber)
	d.UpdateSafeHead(safeHead, header)
	return d, nil
}

func newDriver(logger log.Logger, m metrics.Metricer, pipeline derive.Pipeline, claimBlock uint64) *Driver {
	return &Driver{
		logger:     logger,
		metrics:    m,
		pipeline:   pipeline,
		claimBlock: claimBlock,
	}
}

// ProducePayloads steps the pipeline once from the current safe head. If the step prepared
// attributes, they are drained and returned, stopping after the attributes of the claim block.
// Every other outcome returns no attributes, and the caller is expected to call again.
// Stage errors are logged rather than returned; LastStep exposes them to the caller.
func (d *Driver) ProducePayloads(ctx context.Context) ([]*derive.AttributesWithParent, error) {
	result := d.pipeline.Step(ctx, d.safeHead)
	d.lastStep = result
	d.metrics.RecordStep(result.Outcome.String())

	switch result.Outcome {
	case derive.PreparedAttributes:
		var out []*derive.AttributesWithParent
		for {
			attrs, ok := d.pipeline.NextAttributes()
			if !ok {
				break
			}
			out = append(out, attrs)
			if attrs.TargetNumber() == d.claimBlock {
				d.logger.Info("Prepared attributes of claimed block", "block", d.claimBlock)
				break
			}
		}
		d.logger.Debug("Prepared payload attributes", "count", len(out), "safeHead", d.safeHead, "origin", d.pipeline.Origin())
		return out, nil
	case derive.AdvancedOrigin:
		origin := d.pipeline.Origin()
		d.metrics.RecordL1Ref("l1_origin", origin)
		d.logger.Debug("Advanced L1 origin", "origin", origin)
	case derive.OriginAdvanceErr:
		d.logger.Error("Failed to advance L1 origin", "origin", d.pipeline.Origin(), "err", result.Err)
	case derive.StepFailed:
		if errors.Is(result.Err, derive.NotEnoughData) {
			d.logger.Debug("Not enough data to make progress", "origin", d.pipeline.Origin())
		} else {
			d.logger.Error("Derivation step failed", "safeHead", d.safeHead, "err", result.Err)
		}
	default:
		return nil, fmt.Errorf("unknown pipeline step outcome: %v", result.Outcome)
	}
	return nil, nil
}

// LastStep returns the result of the most recent pipeline step.
func (d *Driver) LastStep() derive.StepResult {
	return d.lastStep
}

// UpdateSafeHead replaces the safe head the pipeline is stepped from.
func (d *Driver) UpdateSafeHead(ref eth.L2BlockRef, header *types.Header) {
	d.safeHead = ref
	d.safeHeadHeader = header
	d.metrics.RecordL2Ref("safe_head", ref)
}

func (d *Driver) SafeHead() eth.L2BlockRef {
	return d.safeHead
}

func (d *Driver) SafeHeadHeader() *types.Header {
	return d.safeHeadHeader
}

func (d *Driver) ClaimBlock() uint64 {
	return d.claimBlock
}
