package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// SwappableHandler wraps a slog.Handler that can be atomically replaced at
// runtime. Handlers derived through WithAttrs and WithGroup share the slot,
// so loggers created before a Swap follow it.
type SwappableHandler struct {
	slot  *atomic.Pointer[slog.Handler]
	chain []func(slog.Handler) slog.Handler
}

// NewSwappableHandler creates a handler with an initial handler.
func NewSwappableHandler(initial slog.Handler) *SwappableHandler {
	sh := &SwappableHandler{slot: new(atomic.Pointer[slog.Handler])}
	sh.slot.Store(&initial)
	return sh
}

// Swap atomically replaces the underlying handler for sh and every handler
// derived from it.
func (sh *SwappableHandler) Swap(newHandler slog.Handler) {
	sh.slot.Store(&newHandler)
}

func (sh *SwappableHandler) current() slog.Handler {
	h := *sh.slot.Load()
	for _, apply := range sh.chain {
		h = apply(h)
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (sh *SwappableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*sh.slot.Load()).Enabled(ctx, level)
}

// Handle handles the Record.
func (sh *SwappableHandler) Handle(ctx context.Context, r slog.Record) error {
	return sh.current().Handle(ctx, r)
}

// WithAttrs returns a handler that adds attrs to whatever handler is current.
func (sh *SwappableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return sh
	}
	return sh.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup returns a handler that opens group name on whatever handler is current.
func (sh *SwappableHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return sh
	}
	return sh.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (sh *SwappableHandler) derive(op func(slog.Handler) slog.Handler) *SwappableHandler {
	chain := make([]func(slog.Handler) slog.Handler, len(sh.chain), len(sh.chain)+1)
	copy(chain, sh.chain)
	return &SwappableHandler{slot: sh.slot, chain: append(chain, op)}
}
