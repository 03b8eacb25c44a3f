package host

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"

	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/boot"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/driver"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/l1"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/l2"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/metrics"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/mpt"
	"github.com/mantlenetworkio/op-multiblock/op-program/host/config"
	"github.com/mantlenetworkio/op-multiblock/op-program/host/kvstore"
	"github.com/mantlenetworkio/op-multiblock/op-program/host/types"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

var (
	ErrMissingPreimage  = errors.New("missing pre-image")
	ErrPreimageMismatch = errors.New("pre-image does not match its key")
)

// SnapshotOracle serves pre-images from a store of collected pre-images.
// Keccak256 pre-images are checked against their key before they are returned.
type SnapshotOracle struct {
	source kvstore.PreimageSource
}

var _ preimage.Oracle = (*SnapshotOracle)(nil)

func NewSnapshotOracle(source kvstore.PreimageSource) *SnapshotOracle {
	return &SnapshotOracle{source: source}
}

func (o *SnapshotOracle) Get(key preimage.Key) ([]byte, error) {
	k := common.Hash(key.PreimageKey())
	value, err := o.source(k)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMissingPreimage, k)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read pre-image %s: %w", k, err)
	}
	if preimage.KeyTypeOf(k) == preimage.Keccak256KeyType {
		if preimage.Keccak256Key(crypto.Keccak256Hash(value)).PreimageKey() != k {
			return nil, fmt.Errorf("%w: %s", ErrPreimageMismatch, k)
		}
	}
	return value, nil
}

// NoopHinter drops every hint. Snapshots are complete, so nothing is fetched on demand.
type NoopHinter struct{}

var _ preimage.Hinter = NoopHinter{}

func (NoopHinter) Hint(preimage.Hint) error {
	return nil
}

// PreimageStore is a KV store that can be exported.
type PreimageStore interface {
	kvstore.KV
	kvstore.Iterable
}

// OpenKV opens the pre-image store in the datadir of cfg.
func OpenKV(cfg *config.Config) (PreimageStore, error) {
	if _, err := os.Stat(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("failed to open datadir: %w", err)
	}
	switch cfg.DataFormat {
	case types.DataFormatDirectory:
		return kvstore.NewDiskKV(cfg.DataDir), nil
	case types.DataFormatPebble:
		return kvstore.NewPebbleKV(cfg.DataDir)
	default:
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidDataFormat, cfg.DataFormat)
	}
}

// Export writes the pre-images of the datadir, plus the local pre-images of the configured run,
// to the snapshot file. It returns the number of entries written.
func Export(ctx context.Context, logger log.Logger, cfg *config.Config) (n int, err error) {
	if err := cfg.Check(); err != nil {
		return 0, fmt.Errorf("invalid config: %w", err)
	}
	cfg.Rollup.LogDescription(logger)
	local, err := kvstore.NewLocalPreimageSource(cfg.BootInfo())
	if err != nil {
		return 0, err
	}
	kv, err := OpenKV(cfg)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := kv.Close(); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("failed to close pre-image store: %w", closeErr)).ErrorOrNil()
		}
	}()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	logger.Info("Exporting pre-images", "datadir", cfg.DataDir, "format", cfg.DataFormat, "snapshot", cfg.Snapshot)
	n, err = kvstore.WriteSnapshotFile(cfg.Snapshot, local, kv)
	if err != nil {
		return 0, err
	}
	logger.Info("Snapshot written", "entries", n, "snapshot", cfg.Snapshot)
	return n, nil
}

// InspectResult describes the starting point recovered from a snapshot.
type InspectResult struct {
	BootInfo *boot.BootInfo
	L1Origin eth.L1BlockRef
	SafeHead eth.L2BlockRef
	// Blocks holds the safe head followed by its ancestors, newest first.
	Blocks []eth.L2BlockRef
}

// Inspect boots from the snapshot file and resolves the starting safe head, its L1 origin,
// and up to InspectBlocks ancestors of the safe head. It fails when the snapshot lacks any
// pre-image needed for that.
// When cfg carries a rollup config, the local inputs are taken from cfg instead of the snapshot.
func Inspect(ctx context.Context, logger log.Logger, cfg *config.Config) (*InspectResult, error) {
	if err := cfg.CheckSnapshot(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	kv, err := kvstore.LoadSnapshotFile(cfg.Snapshot)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded snapshot", "snapshot", cfg.Snapshot, "entries", kv.Len())

	source := kvstore.PreimageSource(kv.Get)
	if cfg.Rollup != nil {
		if err := cfg.Rollup.Check(); err != nil {
			return nil, fmt.Errorf("invalid rollup config: %w", err)
		}
		local, err := kvstore.NewLocalPreimageSource(cfg.BootInfo())
		if err != nil {
			return nil, err
		}
		logger.Info("Overriding snapshot boot info", "l1Head", cfg.L1Head, "outputRoot", cfg.L2OutputRoot,
			"claimBlock", cfg.L2ClaimBlockNumber)
		source = kvstore.NewPreimageSourceSplitter(local.Get, kv.Get).Get
	}
	return inspect(ctx, logger, metrics.NewMetrics("inspect"), NewSnapshotOracle(source), cfg.InspectBlocks)
}

func inspect(ctx context.Context, logger log.Logger, m metrics.Metricer, oracle preimage.Oracle, depth uint64) (*InspectResult, error) {
	var hinter NoopHinter
	bootInfo, err := boot.NewBootstrapClient(oracle).BootInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap: %w", err)
	}
	bootInfo.RollupConfig.LogDescription(logger)

	l1Source := l1.NewOracleL1ChainProvider(logger, oracle, hinter, mpt.OrderedListWalker{}, bootInfo.L1Head)
	l2Source := l2.NewOracleL2ChainProvider(logger, m, oracle, hinter, mpt.OrderedListWalker{}, bootInfo.RollupConfig, bootInfo.L2OutputRoot)
	l1Origin, safeHead, _, err := driver.FindStartupInfo(ctx, oracle, hinter, bootInfo, l1Source, l2Source)
	if err != nil {
		return nil, err
	}
	logger.Info("Found starting point", "safeHead", safeHead, "l1Origin", l1Origin, "claimBlock", bootInfo.L2ClaimBlockNumber)

	res := &InspectResult{
		BootInfo: bootInfo,
		L1Origin: l1Origin,
		SafeHead: safeHead,
		Blocks:   []eth.L2BlockRef{safeHead},
	}
	genesis := bootInfo.RollupConfig.Genesis.L2.Number
	for i := uint64(1); i <= depth && safeHead.Number >= genesis+i; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref, err := l2Source.L2BlockRefByNumber(ctx, safeHead.Number-i)
		if err != nil {
			return nil, fmt.Errorf("failed to load L2 block %d: %w", safeHead.Number-i, err)
		}
		logger.Debug("Found block", "block", ref, "l1Origin", ref.L1Origin)
		res.Blocks = append(res.Blocks, ref)
	}
	return res, nil
}
