package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/mantlenetworkio/op-multiblock/op-program/client/metrics"
	"github.com/mantlenetworkio/op-multiblock/op-program/host"
	"github.com/mantlenetworkio/op-multiblock/op-program/host/config"
	"github.com/mantlenetworkio/op-multiblock/op-program/host/flags"
	opservice "github.com/mantlenetworkio/op-multiblock/op-service"
	oplog "github.com/mantlenetworkio/op-multiblock/op-service/log"
)

var (
	Version   = "v0.0.0"
	GitCommit = ""
	GitDate   = ""
)

// VersionWithMeta holds the textual version string including the metadata.
var VersionWithMeta = opservice.FormatVersion(Version, GitCommit, GitDate, "")

func main() {
	args := os.Args
	if err := run(args, Actions{Export: exportPreimages, Inspect: inspectSnapshot}); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

// ConfigAction is run with the logger and config parsed from the command line.
type ConfigAction func(ctx context.Context, log log.Logger, config *config.Config) error

type Actions struct {
	Export  ConfigAction
	Inspect ConfigAction
}

// run parses the supplied args to create a config.Config instance, sets up logging
// then calls the action of the selected subcommand.
func run(args []string, actions Actions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp()
	app.Version = VersionWithMeta
	app.Name = "op-multiblock"
	app.Usage = "Multi-block L2 derivation over collected pre-images"
	app.Description = "Assembles pre-image snapshots for multi-block derivation runs and checks that a snapshot can start one."
	app.Commands = []*cli.Command{
		{
			Name:   "export",
			Usage:  "Write the pre-images of a datadir and the run inputs to a snapshot file",
			Flags:  flags.Flags,
			Action: configAction(actions.Export, (*config.Config).Check),
		},
		{
			Name:   "inspect",
			Usage:  "Resolve the starting safe head and L1 origin of a run from its snapshot",
			Flags:  flags.Flags,
			Action: configAction(actions.Inspect, (*config.Config).CheckSnapshot),
		},
		{
			Name:  "doc",
			Usage: "Documentation of the program",
			Subcommands: []*cli.Command{
				{
					Name:   "metrics",
					Usage:  "Dumps a list of supported metrics to stdout",
					Action: documentMetrics,
				},
			},
		},
	}
	return app.RunContext(ctx, args)
}

func configAction(action ConfigAction, check func(*config.Config) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		logger := oplog.NewLogger(ctx.App.Writer, oplog.ReadCLIConfig(ctx))
		oplog.SetGlobalLogHandler(logger.Handler())
		logger.Info("Starting op-multiblock", "version", VersionWithMeta, "command", ctx.Command.Name)

		cfg, err := config.NewConfigFromCLI(ctx)
		if err != nil {
			return err
		}
		if err := check(cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return action(ctx.Context, logger, cfg)
	}
}

func exportPreimages(ctx context.Context, logger log.Logger, cfg *config.Config) error {
	_, err := host.Export(ctx, logger, cfg)
	return err
}

func inspectSnapshot(ctx context.Context, logger log.Logger, cfg *config.Config) error {
	res, err := host.Inspect(ctx, logger, cfg)
	if err != nil {
		return err
	}
	logger.Info("Snapshot can start a run",
		"l1Head", res.BootInfo.L1Head,
		"safeHead", res.SafeHead,
		"l1Origin", res.L1Origin,
		"claimBlock", res.BootInfo.L2ClaimBlockNumber,
		"claim", res.BootInfo.L2Claim)
	for _, ref := range res.Blocks[1:] {
		logger.Info("Ancestor block", "block", ref, "l1Origin", ref.L1Origin)
	}
	return nil
}

func documentMetrics(ctx *cli.Context) error {
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Metric", "Type", "Description", "Labels"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAutoWrapText(false)
	for _, m := range metrics.NewMetrics("default").Document() {
		table.Append([]string{"`" + m.Name + "`", m.Type, m.Help, strings.Join(m.Labels, ", ")})
	}
	table.Render()
	return nil
}
