// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package logging wires slog up for the CLI and the agent. The CLI logs to a
// rotated file only, the agent fans out to file, console and optionally an
// OTLP collector through a single MultiLevelHandler.
package logging

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/netgrid-labs/stencil/internal/util"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

// NoLoggingLevel sits above every standard level and disables a sink.
const NoLoggingLevel = slog.Level(100)

// SetupInitialLogging is the bootstrap logger used before configuration is
// loaded. Everything goes to stdout.
func SetupInitialLogging() {
	w := os.Stdout
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC3339,
		}),
	))

	redirectStdLog()
}

// SetupClientLogging routes CLI logs to a rotated file so command output
// stays clean for piping.
func SetupClientLogging(logFilePath string) {
	if err := util.EnsureFileFolderHierarchy(logFilePath); err != nil {
		slog.Error("Failed to create log folder hierarchy", "error", err)
		return
	}

	lumber := &lumberjack.Logger{
		Filename: logFilePath,
		Compress: true,
	}

	handler := &MultiLevelHandler{
		fileHandler: tint.NewHandler(lumber, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC3339,
		}),
	}

	slog.SetDefault(slog.New(handler))

	redirectStdLog()
}

// SetupAgentLogging configures the long-running agent: rotated file always,
// console and OTLP per config.
func SetupAgentLogging(loggingConfig *pkgmodel.LoggingConfig, otelHandler slog.Handler) {
	if err := util.EnsureFileFolderHierarchy(loggingConfig.FilePath); err != nil {
		slog.Error("Failed to create log folder hierarchy", "error", err)
		return
	}

	lumber := &lumberjack.Logger{
		Filename: loggingConfig.FilePath,
		Compress: true,
	}

	var consoleHandler slog.Handler = nil
	if loggingConfig.ConsoleLogLevel != NoLoggingLevel {
		consoleHandler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      loggingConfig.ConsoleLogLevel,
			TimeFormat: time.RFC3339,
		})
	}

	handler := &MultiLevelHandler{
		fileHandler: tint.NewHandler(lumber, &tint.Options{
			Level:      loggingConfig.FileLogLevel,
			TimeFormat: time.RFC3339,
		}),
		consoleHandler: consoleHandler,
		otelHandler:    otelHandler,
	}

	slog.SetDefault(slog.New(handler))

	redirectStdLog()
}

// redirectStdLog sends the standard library logger through slog in case some
// deep dependency still uses it.
func redirectStdLog() {
	lw := &slogWriter{}
	log.Default().SetOutput(lw)
	log.SetOutput(lw)
}

// MultiLevelHandler fans a record out to up to three sinks, each with its own
// level gate.
type MultiLevelHandler struct {
	fileHandler    slog.Handler
	consoleHandler slog.Handler
	otelHandler    slog.Handler
}

func (h *MultiLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.fileHandler.Enabled(ctx, level) {
		return true
	}
	if h.consoleHandler != nil && h.consoleHandler.Enabled(ctx, level) {
		return true
	}
	if h.otelHandler != nil && h.otelHandler.Enabled(ctx, level) {
		return true
	}
	return false
}

func (h *MultiLevelHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.fileHandler.Enabled(ctx, r.Level) {
		if err := h.fileHandler.Handle(ctx, r); err != nil {
			return err
		}
	}

	if h.consoleHandler != nil && h.consoleHandler.Enabled(ctx, r.Level) {
		if err := h.consoleHandler.Handle(ctx, r); err != nil {
			return err
		}
	}

	if h.otelHandler != nil && h.otelHandler.Enabled(ctx, r.Level) {
		if err := h.otelHandler.Handle(ctx, r); err != nil {
			return err
		}
	}

	return nil
}

func (h *MultiLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandler := &MultiLevelHandler{
		fileHandler: h.fileHandler.WithAttrs(attrs),
	}

	if h.consoleHandler != nil {
		newHandler.consoleHandler = h.consoleHandler.WithAttrs(attrs)
	}

	if h.otelHandler != nil {
		newHandler.otelHandler = h.otelHandler.WithAttrs(attrs)
	}

	return newHandler
}

func (h *MultiLevelHandler) WithGroup(name string) slog.Handler {
	newHandler := &MultiLevelHandler{
		fileHandler: h.fileHandler.WithGroup(name),
	}

	if h.consoleHandler != nil {
		newHandler.consoleHandler = h.consoleHandler.WithGroup(name)
	}

	if h.otelHandler != nil {
		newHandler.otelHandler = h.otelHandler.WithGroup(name)
	}

	return newHandler
}
