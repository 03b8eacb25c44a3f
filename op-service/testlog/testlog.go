// Package testlog routes go-ethereum style logging into the log of a running test.
package testlog

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

var useColor = os.Getenv("OP_TESTLOG_DISABLE_COLOR") != "true"

// Testing is the subset of testing.TB the test logger needs.
type Testing interface {
	Logf(format string, args ...any)
	Helper()
	Name() string
}

// HandlerMod wraps the handler of a test logger.
type HandlerMod func(slog.Handler) slog.Handler

// Logger returns a logger that prints records at or above level into the log of t.
func Logger(t Testing, level slog.Level) log.Logger {
	return LoggerWithHandlerMod(t, level)
}

func LoggerWithHandlerMod(t Testing, level slog.Level, mods ...HandlerMod) log.Logger {
	out := &testOutput{t: t}
	var h slog.Handler = &testHandler{
		out:   out,
		inner: log.NewTerminalHandlerWithLevel(&out.buf, level, useColor),
	}
	for _, mod := range mods {
		h = mod(h)
	}
	return log.NewLogger(h)
}

// testOutput buffers the terminal rendering of one record and forwards it line by line.
type testOutput struct {
	t   Testing
	mu  sync.Mutex
	buf bytes.Buffer
}

func (o *testOutput) emit(render func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.buf.Reset()
	if err := render(); err != nil {
		return err
	}
	scanner := bufio.NewScanner(&o.buf)
	for scanner.Scan() {
		o.logf("%s", scanner.Text())
	}
	return scanner.Err()
}

func (o *testOutput) logf(format string, args ...any) {
	// t.Logf panics once the test has finished, which background goroutines may outlive.
	defer func() {
		if r := recover(); r != nil {
			_, _ = os.Stderr.WriteString("testlog: dropped record after test end\n")
		}
	}()
	o.t.Helper()
	o.t.Logf(format, args...)
}

type testHandler struct {
	out   *testOutput
	inner slog.Handler
}

func (h *testHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *testHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.out.emit(func() error { return h.inner.Handle(ctx, r) })
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &testHandler{out: h.out, inner: h.inner.WithAttrs(attrs)}
}

func (h *testHandler) WithGroup(name string) slog.Handler {
	return &testHandler{out: h.out, inner: h.inner.WithGroup(name)}
}
