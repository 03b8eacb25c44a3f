package main

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/op-multiblock/op-node/rollup"
	"github.com/mantlenetworkio/op-multiblock/op-program/host/config"
	"github.com/mantlenetworkio/op-multiblock/op-program/host/types"
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
	oplog "github.com/mantlenetworkio/op-multiblock/op-service/log"
)

var (
	l1Head       = common.HexToHash("0xa1")
	l2OutputRoot = common.HexToHash("0xb2")
	l2Claim      = common.HexToHash("0xc3")
	claimBlock   = uint64(1203)
)

// flagSet is a minimal valid set of export flags, keyed by flag name.
type flagSet map[string]string

func baseFlags(t *testing.T) flagSet {
	return flagSet{
		"rollup.config":  writeRollupConfig(t, testRollupConfig()),
		"l1.head":        l1Head.Hex(),
		"l2.outputroot":  l2OutputRoot.Hex(),
		"l2.claim":       l2Claim.Hex(),
		"l2.blocknumber": strconv.FormatUint(claimBlock, 10),
		"datadir":        "/tmp/preimages",
		"snapshot":       "/tmp/preimages.snap",
	}
}

func (f flagSet) with(name, value string) flagSet {
	f[name] = value
	return f
}

func (f flagSet) without(names ...string) flagSet {
	for _, name := range names {
		delete(f, name)
	}
	return f
}

func (f flagSet) args(extra ...string) []string {
	out := make([]string, 0, len(f)+len(extra))
	for name, value := range f {
		out = append(out, "--"+name+"="+value)
	}
	return append(out, extra...)
}

// export runs the export command with a capturing action.
func export(args []string) (log.Logger, *config.Config, error) {
	var (
		gotLogger log.Logger
		gotCfg    *config.Config
	)
	err := run(append([]string{"op-multiblock", "export"}, args...), Actions{
		Export: func(_ context.Context, logger log.Logger, cfg *config.Config) error {
			gotLogger, gotCfg = logger, cfg
			return nil
		},
	})
	return gotLogger, gotCfg, err
}

func mustExport(t *testing.T, args []string) *config.Config {
	_, cfg, err := export(args)
	require.NoError(t, err)
	return cfg
}

func requireExportError(t *testing.T, args []string, contains string) {
	_, _, err := export(args)
	require.ErrorContains(t, err, contains)
}

func TestDefaults(t *testing.T) {
	flags := baseFlags(t)
	want := config.NewConfig(testRollupConfig(), l1Head, l2OutputRoot, l2Claim, claimBlock)
	want.DataDir = flags["datadir"]
	want.Snapshot = flags["snapshot"]
	require.Equal(t, want, mustExport(t, flags.args()))
}

func TestLogFlags(t *testing.T) {
	for _, lvl := range []string{"trace", "debug", "info", "warn", "error", "crit"} {
		t.Run("level-"+lvl, func(t *testing.T) {
			logger, _, err := export(baseFlags(t).args("--log.level", lvl))
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
	for _, format := range []oplog.FormatType{oplog.FormatText, oplog.FormatTerminal, oplog.FormatLogFmt, oplog.FormatJSON, oplog.FormatJSONMs} {
		t.Run("format-"+format.String(), func(t *testing.T) {
			_, _, err := export(baseFlags(t).args("--log.format", format.String()))
			require.NoError(t, err)
		})
	}
	t.Run("BadLevel", func(t *testing.T) {
		requireExportError(t, baseFlags(t).args("--log.level=loud"), "unknown level: loud")
	})
	t.Run("BadFormat", func(t *testing.T) {
		requireExportError(t, baseFlags(t).args("--log.format=xml"), `unknown log format: "xml"`)
	})
}

func TestRollupConfigFlag(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		requireExportError(t, baseFlags(t).without("rollup.config").args(), config.ErrMissingRollupConfig.Error())
	})
	t.Run("FailsCheck", func(t *testing.T) {
		cfg := testRollupConfig()
		cfg.BlockTime = 0
		flags := baseFlags(t).with("rollup.config", writeRollupConfig(t, cfg))
		requireExportError(t, flags.args(), rollup.ErrBlockTimeZero.Error())
	})
	t.Run("Unreadable", func(t *testing.T) {
		flags := baseFlags(t).with("rollup.config", filepath.Join(t.TempDir(), "absent.json"))
		_, _, err := export(flags.args())
		require.Error(t, err)
	})
}

func TestHashFlags(t *testing.T) {
	tests := []struct {
		flag     string
		err      error
		optional bool
		get      func(*config.Config) common.Hash
	}{
		{"l1.head", config.ErrInvalidL1Head, false, func(c *config.Config) common.Hash { return c.L1Head }},
		{"l2.outputroot", config.ErrInvalidL2OutputRoot, false, func(c *config.Config) common.Hash { return c.L2OutputRoot }},
		{"l2.claim", config.ErrInvalidL2Claim, true, func(c *config.Config) common.Hash { return c.L2Claim }},
	}
	for _, tc := range tests {
		t.Run(tc.flag, func(t *testing.T) {
			value := common.HexToHash("0x1234")
			cfg := mustExport(t, baseFlags(t).with(tc.flag, value.Hex()).args())
			require.Equal(t, value, tc.get(cfg))

			requireExportError(t, baseFlags(t).with(tc.flag, "0x1234").args(), tc.err.Error())

			if tc.optional {
				cfg := mustExport(t, baseFlags(t).without(tc.flag).args())
				require.Equal(t, common.Hash{}, tc.get(cfg))
			} else {
				requireExportError(t, baseFlags(t).without(tc.flag).args(), tc.err.Error())
			}
		})
	}
}

func TestClaimBlockFlag(t *testing.T) {
	cfg := mustExport(t, baseFlags(t).with("l2.blocknumber", "4321").args())
	require.Equal(t, uint64(4321), cfg.L2ClaimBlockNumber)

	requireExportError(t, baseFlags(t).without("l2.blocknumber").args(), config.ErrInvalidL2ClaimBlock.Error())
	requireExportError(t, baseFlags(t).with("l2.blocknumber", "latest").args(), `invalid value "latest" for flag -l2.blocknumber`)
}

func TestStorageFlags(t *testing.T) {
	t.Run("DataDir", func(t *testing.T) {
		cfg := mustExport(t, baseFlags(t).with("datadir", "/var/lib/preimages").args())
		require.Equal(t, "/var/lib/preimages", cfg.DataDir)
		requireExportError(t, baseFlags(t).without("datadir").args(), config.ErrDataDirRequired.Error())
	})

	t.Run("DataFormat", func(t *testing.T) {
		for _, format := range types.SupportedDataFormats {
			cfg := mustExport(t, baseFlags(t).args("--data.format", string(format)))
			require.Equal(t, format, cfg.DataFormat)
		}
		requireExportError(t, baseFlags(t).args("--data.format", "leveldb"), "invalid data format: leveldb")
	})

	t.Run("Snapshot", func(t *testing.T) {
		requireExportError(t, baseFlags(t).without("snapshot").args(), config.ErrSnapshotRequired.Error())
	})

	t.Run("InspectBlocks", func(t *testing.T) {
		require.Zero(t, mustExport(t, baseFlags(t).args()).InspectBlocks)
		cfg := mustExport(t, baseFlags(t).args("--inspect.blocks", "12"))
		require.Equal(t, uint64(12), cfg.InspectBlocks)
	})
}

func TestInspectCommand(t *testing.T) {
	var got *config.Config
	inspect := Actions{Inspect: func(_ context.Context, _ log.Logger, cfg *config.Config) error {
		got = cfg
		return nil
	}}

	require.NoError(t, run([]string{"op-multiblock", "inspect", "--snapshot", "/tmp/run.snap"}, inspect))
	require.Equal(t, "/tmp/run.snap", got.Snapshot)

	err := run([]string{"op-multiblock", "inspect"}, inspect)
	require.ErrorIs(t, err, config.ErrSnapshotRequired)
}

func TestConfigFileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.toml")
	require.NoError(t, os.WriteFile(path, []byte("datadir = \"/from/file\"\nl2_block_number = 99\n"), 0o644))

	cfg := mustExport(t, baseFlags(t).without("datadir").args("--config", path))
	require.Equal(t, "/from/file", cfg.DataDir)
	require.Equal(t, claimBlock, cfg.L2ClaimBlockNumber, "explicit flag wins over the file")
}

// TestEnvVars runs last: environment values are kept by the shared flag definitions.
func TestEnvVars(t *testing.T) {
	t.Setenv("OP_MULTIBLOCK_DATADIR", "/from/env")
	t.Setenv("OP_MULTIBLOCK_L2_BLOCK_NUM", "77")
	cfg := mustExport(t, baseFlags(t).without("datadir", "l2.blocknumber").args())
	require.Equal(t, "/from/env", cfg.DataDir)
	require.Equal(t, uint64(77), cfg.L2ClaimBlockNumber)
}

func testRollupConfig() *rollup.Config {
	return &rollup.Config{
		Genesis: rollup.Genesis{
			L1:     eth.BlockID{Hash: common.Hash{0x01}, Number: 100},
			L2:     eth.BlockID{Hash: common.Hash{0x02}},
			L2Time: 1000,
			SystemConfig: eth.SystemConfig{
				BatcherAddr: common.Address{0xba},
				Scalar:      eth.Bytes32{31: 0x01},
				GasLimit:    30_000_000,
			},
		},
		BlockTime:              2,
		L1ChainID:              big.NewInt(1),
		L2ChainID:              big.NewInt(5000),
		BatchInboxAddress:      common.Address{0xff},
		DepositContractAddress: common.Address{0xdc},
		L1SystemConfigAddress:  common.Address{0x5c},
	}
}

func writeRollupConfig(t *testing.T, cfg *rollup.Config) string {
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "rollup.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
