// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger is the leveled key/value logger used across the repo. Packages
// take a module logger via WithContext and log call-sites with alternating
// key/value pairs.
type Logger interface {
	With(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
}

type logger struct {
	inner *slog.Logger
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

func (l *logger) Debug(msg string, ctx ...any) { l.inner.Debug(msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.inner.Info(msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.inner.Warn(msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.inner.Error(msg, ctx...) }

var root atomic.Pointer[logger]

func init() {
	SetDefault(NewLogger(TextHandler(os.Stderr, slog.LevelInfo)))
}

// NewLogger creates a logger over the given handler.
func NewLogger(h slog.Handler) Logger {
	return &logger{inner: slog.New(h)}
}

// SetDefault sets the process-wide root logger.
func SetDefault(l Logger) {
	if lg, ok := l.(*logger); ok {
		root.Store(lg)
	}
}

// WithContext returns a child of the root logger carrying the given
// context pairs, typically ("pkg", name).
func WithContext(ctx ...any) Logger {
	return root.Load().With(ctx...)
}

// TextHandler creates a human-readable handler at the given level.
func TextHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// JSONHandler creates a JSON handler at the given level.
func JSONHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// DiscardHandler drops every record; tests use it to silence output.
func DiscardHandler() slog.Handler {
	return discardHandler{}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Package-level convenience on the root logger.

func Debug(msg string, ctx ...any) { root.Load().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { root.Load().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { root.Load().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { root.Load().Error(msg, ctx...) }
