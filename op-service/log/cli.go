package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

const (
	LevelFlagName  = "log.level"
	FormatFlagName = "log.format"
	ColorFlagName  = "log.color"
)

type FormatType string

const (
	FormatText     FormatType = "text"
	FormatTerminal FormatType = "terminal"
	FormatLogFmt   FormatType = "logfmt"
	FormatJSON     FormatType = "json"
	FormatLogFmtMs FormatType = "logfmtms"
	FormatJSONMs   FormatType = "jsonms"
)

var formats = []FormatType{FormatText, FormatTerminal, FormatLogFmt, FormatJSON, FormatLogFmtMs, FormatJSONMs}

func (f FormatType) String() string {
	return string(f)
}

// FormatHandler returns a constructor for handlers of the format.
func FormatHandler(ft FormatType, color bool) (func(io.Writer, slog.Level) slog.Handler, error) {
	switch ft {
	case FormatJSON:
		return func(w io.Writer, lvl slog.Level) slog.Handler { return log.JSONHandlerWithLevel(w, lvl) }, nil
	case FormatJSONMs:
		return func(w io.Writer, lvl slog.Level) slog.Handler { return JSONMsHandlerWithLevel(w, lvl) }, nil
	case FormatLogFmt:
		return func(w io.Writer, lvl slog.Level) slog.Handler { return log.LogfmtHandlerWithLevel(w, lvl) }, nil
	case FormatLogFmtMs:
		return func(w io.Writer, lvl slog.Level) slog.Handler { return LogfmtMsHandlerWithLevel(w, lvl) }, nil
	case FormatText, FormatTerminal:
		return func(w io.Writer, lvl slog.Level) slog.Handler { return log.NewTerminalHandlerWithLevel(w, lvl, color) }, nil
	default:
		return nil, fmt.Errorf("unknown log format: %q", ft)
	}
}

// FormatFlagValue is a cli.Generic for the log format.
type FormatFlagValue FormatType

func (fv *FormatFlagValue) Set(value string) error {
	v := FormatType(strings.ToLower(value))
	if _, err := FormatHandler(v, false); err != nil {
		return err
	}
	*fv = FormatFlagValue(v)
	return nil
}

func (fv FormatFlagValue) String() string {
	return string(fv)
}

// LevelFlagValue is a cli.Generic for the log level.
type LevelFlagValue slog.Level

func (lv *LevelFlagValue) Set(value string) error {
	if v, err := LevelFromString(value); err != nil {
		return err
	} else {
		*lv = LevelFlagValue(v)
	}
	return nil
}

func (lv LevelFlagValue) String() string {
	return strings.ToLower(log.LevelString(slog.Level(lv)))
}

func (lv LevelFlagValue) Level() slog.Level {
	return slog.Level(lv)
}

// LevelFromString parses trace, debug, info, warn, error and crit, case-insensitively.
func LevelFromString(lvlString string) (slog.Level, error) {
	switch strings.ToLower(lvlString) {
	case "trace", "trce":
		return log.LevelTrace, nil
	case "debug", "dbug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error", "eror":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return log.LevelDebug, fmt.Errorf("unknown level: %v", lvlString)
	}
}

func CLIFlags(envPrefix string) []cli.Flag {
	return []cli.Flag{
		&cli.GenericFlag{
			Name:     LevelFlagName,
			Category: "LOGGING",
			Usage:    "The lowest log level that will be output",
			Value:    func() *LevelFlagValue { v := LevelFlagValue(log.LevelInfo); return &v }(),
			EnvVars:  []string{envPrefix + "_LOG_LEVEL"},
		},
		&cli.GenericFlag{
			Name:     FormatFlagName,
			Category: "LOGGING",
			Usage:    fmt.Sprintf("Format the log output. Supported formats: %v", formats),
			Value:    func() *FormatFlagValue { v := FormatFlagValue(FormatText); return &v }(),
			EnvVars:  []string{envPrefix + "_LOG_FORMAT"},
		},
		&cli.BoolFlag{
			Name:     ColorFlagName,
			Category: "LOGGING",
			Usage:    "Color the log output if in terminal mode. Defaults to color when stdout is a terminal",
			EnvVars:  []string{envPrefix + "_LOG_COLOR"},
		},
	}
}

type CLIConfig struct {
	Level  slog.Level
	Color  bool
	Format FormatType
}

// DefaultCLIConfig logs info and above as text, colored when stdout is a terminal.
func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		Level:  log.LevelInfo,
		Format: FormatText,
		Color:  isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
}

func ReadCLIConfig(ctx *cli.Context) CLIConfig {
	cfg := DefaultCLIConfig()
	if lv, ok := ctx.Generic(LevelFlagName).(*LevelFlagValue); ok {
		cfg.Level = lv.Level()
	}
	if fv, ok := ctx.Generic(FormatFlagName).(*FormatFlagValue); ok {
		cfg.Format = FormatType(*fv)
	}
	if ctx.IsSet(ColorFlagName) {
		cfg.Color = ctx.Bool(ColorFlagName)
	}
	return cfg
}

// NewLogHandler creates a handler writing to wr. Unknown formats fall back to text.
func NewLogHandler(wr io.Writer, cfg CLIConfig) slog.Handler {
	mk, err := FormatHandler(cfg.Format, cfg.Color)
	if err != nil {
		mk, _ = FormatHandler(FormatText, cfg.Color)
	}
	return mk(wr, cfg.Level)
}

func NewLogger(wr io.Writer, cfg CLIConfig) log.Logger {
	return log.NewLogger(NewLogHandler(wr, cfg))
}

// SetGlobalLogHandler sets the handler of the go-ethereum root logger.
func SetGlobalLogHandler(h slog.Handler) {
	log.SetDefault(log.NewLogger(h))
}
