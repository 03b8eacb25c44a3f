package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mantlenetworkio/op-multiblock/op-program/host/types"
	service "github.com/mantlenetworkio/op-multiblock/op-service"
	oplog "github.com/mantlenetworkio/op-multiblock/op-service/log"
)

const EnvVarPrefix = "OP_MULTIBLOCK"

func prefixEnvVars(name string) []string {
	return service.PrefixEnvVar(EnvVarPrefix, name)
}

var (
	ConfigFile = &cli.PathFlag{
		Name:      "config",
		Usage:     "TOML file with default values for the other flags. Flags set explicitly take precedence.",
		EnvVars:   prefixEnvVars("CONFIG"),
		TakesFile: true,
	}
	DataDir = &cli.StringFlag{
		Name:    "datadir",
		Usage:   "Directory holding the collected pre-image data",
		EnvVars: prefixEnvVars("DATADIR"),
	}
	DataFormat = &cli.StringFlag{
		Name:    "data.format",
		Usage:   fmt.Sprintf("Format of the pre-image data in datadir. Available formats: %v", types.SupportedDataFormats),
		EnvVars: prefixEnvVars("DATA_FORMAT"),
		Value:   string(types.DataFormatDirectory),
	}
	Snapshot = &cli.PathFlag{
		Name:      "snapshot",
		Usage:     "Path of the zstd-compressed pre-image snapshot",
		EnvVars:   prefixEnvVars("SNAPSHOT"),
		TakesFile: true,
	}
	RollupConfig = &cli.PathFlag{
		Name:      "rollup.config",
		Usage:     "Rollup chain parameters",
		EnvVars:   prefixEnvVars("ROLLUP_CONFIG"),
		TakesFile: true,
	}
	L1Head = &cli.StringFlag{
		Name:    "l1.head",
		Usage:   "Hash of the L1 head block. Derivation stops after this block is processed.",
		EnvVars: prefixEnvVars("L1_HEAD"),
	}
	L2OutputRoot = &cli.StringFlag{
		Name:    "l2.outputroot",
		Usage:   "Agreed L2 Output Root to start derivation from",
		EnvVars: prefixEnvVars("L2_OUTPUT_ROOT"),
	}
	L2Claim = &cli.StringFlag{
		Name:    "l2.claim",
		Usage:   "Claimed L2 output root",
		EnvVars: prefixEnvVars("L2_CLAIM"),
	}
	L2BlockNumber = &cli.Uint64Flag{
		Name:    "l2.blocknumber",
		Usage:   "Number of the L2 block derivation runs to",
		EnvVars: prefixEnvVars("L2_BLOCK_NUM"),
	}
	InspectBlocks = &cli.Uint64Flag{
		Name:    "inspect.blocks",
		Usage:   "Number of L2 blocks below the starting safe head to look up when inspecting a snapshot",
		EnvVars: prefixEnvVars("INSPECT_BLOCKS"),
		Value:   0,
	}
)

// Flags contains the list of configuration options available to the binary.
var Flags []cli.Flag

var programFlags = []cli.Flag{
	ConfigFile,
	DataDir,
	DataFormat,
	Snapshot,
	RollupConfig,
	L1Head,
	L2OutputRoot,
	L2Claim,
	L2BlockNumber,
	InspectBlocks,
}

func init() {
	Flags = append(Flags, oplog.CLIFlags(EnvVarPrefix)...)
	Flags = append(Flags, programFlags...)
}
