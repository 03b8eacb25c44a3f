package log

import (
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"reflect"
	"time"

	elog "github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// timeFormatMs is RFC3339 with millisecond precision and a numeric zone.
const timeFormatMs = "2006-01-02T15:04:05.000-0700"

// JSONMsHandlerWithLevel emits JSON records with millisecond timestamps under the "t" key.
func JSONMsHandlerWithLevel(wr io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(wr, msHandlerOptions(level, false))
}

// LogfmtMsHandlerWithLevel emits logfmt records with millisecond timestamps under the "t" key.
func LogfmtMsHandlerWithLevel(wr io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(wr, msHandlerOptions(level, true))
}

func msHandlerOptions(level slog.Level, logfmt bool) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			return replaceMsAttr(attr, logfmt)
		},
	}
}

func replaceMsAttr(attr slog.Attr, logfmt bool) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() != slog.KindTime {
			break
		}
		if logfmt {
			return slog.String("t", attr.Value.Time().Format(timeFormatMs))
		}
		return slog.Attr{Key: "t", Value: attr.Value}
	case slog.LevelKey:
		if l, ok := attr.Value.Any().(slog.Level); ok {
			return slog.String("lvl", elog.LevelString(l))
		}
	}

	switch v := attr.Value.Any().(type) {
	case time.Time:
		if logfmt {
			attr.Value = slog.StringValue(v.Format(timeFormatMs))
		}
	case *big.Int:
		attr.Value = nilSafeString(v, func() string { return v.String() })
	case *uint256.Int:
		attr.Value = nilSafeString(v, v.Dec)
	case fmt.Stringer:
		attr.Value = nilSafeString(v, v.String)
	}
	return attr
}

// nilSafeString renders "<nil>" for nil pointers instead of calling into them.
func nilSafeString(v any, str func() string) slog.Value {
	if v == nil {
		return slog.StringValue("<nil>")
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return slog.StringValue("<nil>")
	}
	return slog.StringValue(str())
}
