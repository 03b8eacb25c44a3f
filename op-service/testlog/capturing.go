package testlog

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// CapturedRecord is a handled record plus the attributes bound to the logger that emitted it.
type CapturedRecord struct {
	slog.Record
	bound []slog.Attr
}

// AttrValue returns the value of the first attribute named key, record attributes first.
func (r *CapturedRecord) AttrValue(key string) any {
	var out any
	r.Record.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			out = a.Value.Any()
			return false
		}
		return true
	})
	if out != nil {
		return out
	}
	for _, a := range r.bound {
		if a.Key == key {
			return a.Value.Any()
		}
	}
	return nil
}

type recordStore struct {
	mu      sync.Mutex
	records []*CapturedRecord
}

// CapturingHandler keeps every record it forwards. Derived handlers share the same store.
type CapturingHandler struct {
	next  slog.Handler
	store *recordStore
	bound []slog.Attr
}

func WrapCaptureLogger(h slog.Handler) slog.Handler {
	return &CapturingHandler{next: h, store: new(recordStore)}
}

// CaptureLogger returns a test logger together with the handler capturing its records.
func CaptureLogger(t Testing, level slog.Level) (log.Logger, *CapturingHandler) {
	var capture *CapturingHandler
	logger := LoggerWithHandlerMod(t, level, func(h slog.Handler) slog.Handler {
		capture = WrapCaptureLogger(h).(*CapturingHandler)
		return capture
	})
	return logger, capture
}

func (c *CapturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return c.next.Enabled(ctx, level)
}

func (c *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	c.store.mu.Lock()
	c.store.records = append(c.store.records, &CapturedRecord{Record: r.Clone(), bound: c.bound})
	c.store.mu.Unlock()
	return c.next.Handle(ctx, r)
}

func (c *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make([]slog.Attr, 0, len(c.bound)+len(attrs))
	bound = append(append(bound, c.bound...), attrs...)
	return &CapturingHandler{next: c.next.WithAttrs(attrs), store: c.store, bound: bound}
}

func (c *CapturingHandler) WithGroup(name string) slog.Handler {
	return &CapturingHandler{next: c.next.WithGroup(name), store: c.store}
}

func (c *CapturingHandler) Clear() {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.records = nil
}

type LogFilter func(r *CapturedRecord) bool

func NewLevelFilter(level slog.Level) LogFilter {
	return func(r *CapturedRecord) bool { return r.Level == level }
}

func NewMessageFilter(msg string) LogFilter {
	return func(r *CapturedRecord) bool { return r.Message == msg }
}

func NewMessageContainsFilter(substr string) LogFilter {
	return func(r *CapturedRecord) bool { return strings.Contains(r.Message, substr) }
}

// NewAttributesFilter matches records with an attribute key whose value renders as value.
func NewAttributesFilter(key, value string) LogFilter {
	return func(r *CapturedRecord) bool {
		v := r.AttrValue(key)
		return v != nil && slog.AnyValue(v).String() == value
	}
}

// NewErrContainsFilter matches records whose "err" attribute is an error mentioning substr.
func NewErrContainsFilter(substr string) LogFilter {
	return func(r *CapturedRecord) bool {
		err, ok := r.AttrValue("err").(error)
		return ok && strings.Contains(err.Error(), substr)
	}
}

// FindLog returns the first record matching every filter, or nil.
func (c *CapturingHandler) FindLog(filters ...LogFilter) *CapturedRecord {
	if logs := c.FindLogs(filters...); len(logs) > 0 {
		return logs[0]
	}
	return nil
}

func (c *CapturingHandler) FindLogs(filters ...LogFilter) []*CapturedRecord {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	var out []*CapturedRecord
	for _, r := range c.store.records {
		if matchesAll(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

func matchesAll(r *CapturedRecord, filters []LogFilter) bool {
	for _, f := range filters {
		if !f(r) {
			return false
		}
	}
	return true
}
