package log

import (
	"bytes"
	"encoding/json"
	"flag"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func readConfig(t *testing.T, args ...string) CLIConfig {
	app := cli.NewApp()
	app.Flags = CLIFlags("TEST")
	var cfg CLIConfig
	app.Action = func(ctx *cli.Context) error {
		cfg = ReadCLIConfig(ctx)
		return nil
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
	return cfg
}

func TestReadCLIConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg := readConfig(t)
		require.Equal(t, log.LevelInfo, cfg.Level)
		require.Equal(t, FormatText, cfg.Format)
	})

	t.Run("Set", func(t *testing.T) {
		cfg := readConfig(t, "--log.level=debug", "--log.format=json", "--log.color=true")
		require.Equal(t, log.LevelDebug, cfg.Level)
		require.Equal(t, FormatJSON, cfg.Format)
		require.True(t, cfg.Color)
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		app := cli.NewApp()
		app.Flags = CLIFlags("TEST")
		app.Action = func(*cli.Context) error { return nil }
		require.Error(t, app.Run([]string{"test", "--log.level=loud"}))
	})
}

func TestLevelFromString(t *testing.T) {
	for in, want := range map[string]int{"TRACE": int(log.LevelTrace), "dbug": int(log.LevelDebug), "warn": int(log.LevelWarn), "crit": int(log.LevelCrit)} {
		lvl, err := LevelFromString(in)
		require.NoError(t, err)
		require.Equal(t, want, int(lvl))
	}
	_, err := LevelFromString("")
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, CLIConfig{Level: log.LevelInfo, Format: FormatJSON})
	logger.Debug("hidden")
	logger.Info("shown", "block", 7)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "shown", rec["msg"])
	require.EqualValues(t, 7, rec["block"])

	buf.Reset()
	NewLogger(&buf, CLIConfig{Level: log.LevelInfo, Format: FormatLogFmtMs}).Info("ms", "n", 1)
	require.Contains(t, buf.String(), "lvl=info")
	require.Contains(t, buf.String(), "msg=ms")
}

var _ flag.Value = (*LevelFlagValue)(nil)
