// Package logging provides structured JSON logging with pass ID propagation.
// It wraps Go's built-in log/slog with plugkit-specific helpers: a per-pass
// ID injected when a discovery pass starts and extracted from context.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
)

type contextKey string

const passIDKey contextKey = "pass_id"

// Logger is the package-level structured logger. Callers should prefer
// FromContext(ctx) to automatically attach the discovery pass ID.
var Logger *slog.Logger

func init() {
	Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// Setup (re-)initialises the package logger. level is one of debug/info/warn/error
// (default info). format is "json" (default) or "text".
func Setup(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// NewPassID generates a random 16-byte hex pass ID.
func NewPassID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// WithPassID stores a pass ID in the context.
func WithPassID(ctx context.Context, passID string) context.Context {
	return context.WithValue(ctx, passIDKey, passID)
}

// PassIDFromContext retrieves the pass ID stored in the context.
func PassIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(passIDKey).(string)
	return v
}

// FromContext returns a *slog.Logger pre-annotated with the pass_id from ctx.
func FromContext(ctx context.Context) *slog.Logger {
	if id := PassIDFromContext(ctx); id != "" {
		return Logger.With("pass_id", id)
	}
	return Logger
}
