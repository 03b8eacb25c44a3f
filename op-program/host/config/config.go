package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/mantlenetworkio/op-multiblock/op-node/rollup"
	"github.com/mantlenetworkio/op-multiblock/op-program/client/boot"
	"github.com/mantlenetworkio/op-multiblock/op-program/host/flags"
	"github.com/mantlenetworkio/op-multiblock/op-program/host/types"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

var (
	ErrMissingRollupConfig = errors.New("missing rollup config")
	ErrInvalidL1Head       = errors.New("invalid l1 head")
	ErrInvalidL2OutputRoot = errors.New("invalid l2 output root")
	ErrInvalidL2Claim      = errors.New("invalid l2 claim")
	ErrInvalidL2ClaimBlock = errors.New("invalid l2 claim block number")
	ErrDataDirRequired     = errors.New("datadir must be specified")
	ErrInvalidDataFormat   = errors.New("invalid data format")
	ErrSnapshotRequired    = errors.New("snapshot path must be specified")
	ErrInvalidConfigFile   = errors.New("invalid config file")
)

type Config struct {
	Rollup *rollup.Config
	// DataDir is the directory to read pre-image data from when exporting a snapshot.
	DataDir string
	// DataFormat specifies the format of the data in DataDir.
	DataFormat types.DataFormat
	// Snapshot is the path of the snapshot file written by export and read by inspect.
	Snapshot string

	// L1Head is the block hash of the L1 chain head block
	L1Head common.Hash
	// L2OutputRoot is the agreed L2 output root to start derivation from
	L2OutputRoot common.Hash
	// L2Claim is the claimed L2 output root
	L2Claim common.Hash
	// L2ClaimBlockNumber is the block number derivation runs to.
	// Must be above 0 and to be a valid claim needs to be above the L2 block of L2OutputRoot.
	L2ClaimBlockNumber uint64

	// InspectBlocks is the number of blocks below the starting safe head that inspect looks up.
	InspectBlocks uint64
}

// Check validates the config needed to assemble a snapshot.
func (c *Config) Check() error {
	if c.Rollup == nil {
		return ErrMissingRollupConfig
	}
	if err := c.Rollup.Check(); err != nil {
		return fmt.Errorf("invalid rollup config: %w", err)
	}
	if c.L1Head == (common.Hash{}) {
		return ErrInvalidL1Head
	}
	if c.L2OutputRoot == (common.Hash{}) {
		return ErrInvalidL2OutputRoot
	}
	if c.L2ClaimBlockNumber == 0 {
		return ErrInvalidL2ClaimBlock
	}
	if c.DataDir == "" {
		return ErrDataDirRequired
	}
	if !slices.Contains(types.SupportedDataFormats, c.DataFormat) {
		return fmt.Errorf("%w: %v", ErrInvalidDataFormat, c.DataFormat)
	}
	return c.CheckSnapshot()
}

// CheckSnapshot validates the config needed to read a snapshot.
func (c *Config) CheckSnapshot() error {
	if c.Snapshot == "" {
		return ErrSnapshotRequired
	}
	return nil
}

// BootInfo returns the boot inputs a run over the exported snapshot starts from.
func (c *Config) BootInfo() *boot.BootInfo {
	return &boot.BootInfo{
		L1Head:             c.L1Head,
		L2OutputRoot:       c.L2OutputRoot,
		L2Claim:            c.L2Claim,
		L2ClaimBlockNumber: c.L2ClaimBlockNumber,
		L2ChainID:          eth.ChainIDFromBig(c.Rollup.L2ChainID),
		RollupConfig:       c.Rollup,
	}
}

// NewConfig creates a Config with all optional values set to the CLI default value
func NewConfig(rollupCfg *rollup.Config, l1Head, l2OutputRoot, l2Claim common.Hash, l2ClaimBlockNum uint64) *Config {
	return &Config{
		Rollup:             rollupCfg,
		DataFormat:         types.DataFormatDirectory,
		L1Head:             l1Head,
		L2OutputRoot:       l2OutputRoot,
		L2Claim:            l2Claim,
		L2ClaimBlockNumber: l2ClaimBlockNum,
	}
}

// fileConfig is the TOML form of the flags.
type fileConfig struct {
	DataDir       string `toml:"datadir"`
	DataFormat    string `toml:"data_format"`
	Snapshot      string `toml:"snapshot"`
	RollupConfig  string `toml:"rollup_config"`
	L1Head        string `toml:"l1_head"`
	L2OutputRoot  string `toml:"l2_output_root"`
	L2Claim       string `toml:"l2_claim"`
	L2BlockNumber uint64 `toml:"l2_block_number"`
	InspectBlocks uint64 `toml:"inspect_blocks"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfigFile, strings.Join(keys, ", "))
	}
	return &fc, nil
}

// NewConfigFromCLI reads the config from the optional TOML file, then from the flags. A flag
// that is set, directly or through its environment variable, overrides the file.
func NewConfigFromCLI(ctx *cli.Context) (*Config, error) {
	fc := &fileConfig{DataFormat: ctx.String(flags.DataFormat.Name)}
	if path := ctx.Path(flags.ConfigFile.Name); path != "" {
		loaded, err := loadFileConfig(path)
		if err != nil {
			return nil, err
		}
		if loaded.DataFormat == "" {
			loaded.DataFormat = fc.DataFormat
		}
		fc = loaded
	}
	str := func(flag string, fromFile string) string {
		if ctx.IsSet(flag) {
			return ctx.String(flag)
		}
		return fromFile
	}
	u64 := func(flag string, fromFile uint64) uint64 {
		if ctx.IsSet(flag) {
			return ctx.Uint64(flag)
		}
		return fromFile
	}

	cfg := &Config{
		DataDir:            str(flags.DataDir.Name, fc.DataDir),
		DataFormat:         types.DataFormat(str(flags.DataFormat.Name, fc.DataFormat)),
		Snapshot:           str(flags.Snapshot.Name, fc.Snapshot),
		L2ClaimBlockNumber: u64(flags.L2BlockNumber.Name, fc.L2BlockNumber),
		InspectBlocks:      u64(flags.InspectBlocks.Name, fc.InspectBlocks),
	}
	var err error
	if cfg.L1Head, err = parseHash(str(flags.L1Head.Name, fc.L1Head), ErrInvalidL1Head); err != nil {
		return nil, err
	}
	if cfg.L2OutputRoot, err = parseHash(str(flags.L2OutputRoot.Name, fc.L2OutputRoot), ErrInvalidL2OutputRoot); err != nil {
		return nil, err
	}
	if cfg.L2Claim, err = parseHash(str(flags.L2Claim.Name, fc.L2Claim), ErrInvalidL2Claim); err != nil {
		return nil, err
	}
	if path := str(flags.RollupConfig.Name, fc.RollupConfig); path != "" {
		if cfg.Rollup, err = loadRollupConfig(path); err != nil {
			return nil, fmt.Errorf("invalid rollup config: %w", err)
		}
	}
	return cfg, nil
}

// parseHash accepts an empty string as the zero hash, and otherwise requires 32 hex bytes.
// The zero hash is a valid claim, so it is not rejected here.
func parseHash(s string, errInvalid error) (common.Hash, error) {
	if s == "" {
		return common.Hash{}, nil
	}
	raw := common.FromHex(s)
	if len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %q", errInvalid, s)
	}
	return common.BytesToHash(raw), nil
}

func loadRollupConfig(rollupConfigPath string) (*rollup.Config, error) {
	file, err := os.Open(rollupConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rollup config: %w", err)
	}
	defer file.Close()

	var rollupConfig rollup.Config
	return &rollupConfig, rollupConfig.ParseRollupConfig(file)
}
