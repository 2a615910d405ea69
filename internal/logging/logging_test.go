// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

//go:build unit

package logging

import (
	"context"
	"log"
	"log/slog"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type TestWriter struct {
	Entries []string
}

func NewTestWriter() *TestWriter {
	return &TestWriter{
		Entries: make([]string, 0),
	}
}

func (w *TestWriter) Write(p []byte) (n int, err error) {
	w.Entries = append(w.Entries, string(p))
	return len(p), nil
}

func (w *TestWriter) Contains(substr string) bool {
	for _, entry := range w.Entries {
		if strings.Contains(entry, substr) {
			return true
		}
	}

	return false
}

func TestLogging_DirectSlogInfo(t *testing.T) {
	writer := NewTestWriter()
	slog.SetDefault(slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo})))

	slog.Info("test info")

	if !writer.Contains("test info") {
		t.Error("expected 'test info' in log entries")
	}
}

func TestLogging_LogProxyInfo(t *testing.T) {
	writer := NewTestWriter()
	slog.SetDefault(slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo})))
	lw := &slogWriter{}
	log.SetOutput(lw)

	log.Print("ERROR: test info")

	if !writer.Contains("test info") {
		t.Error("expected 'test info' in log entries")
	}
}

func TestLogging_EchoInfo(t *testing.T) {
	writer := NewTestWriter()
	slog.SetDefault(slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo})))
	e := echo.New()
	e.HideBanner = true
	e.Logger = NewEchoLogger()

	e.Logger.Info("test info")

	if !writer.Contains("test info") {
		t.Error("expected 'test info' in log entries")
	}
}

func TestLogging_MultiLevelHandlerGatesPerSink(t *testing.T) {
	fileWriter := NewTestWriter()
	consoleWriter := NewTestWriter()

	handler := &MultiLevelHandler{
		fileHandler:    slog.NewTextHandler(fileWriter, &slog.HandlerOptions{Level: slog.LevelDebug}),
		consoleHandler: slog.NewTextHandler(consoleWriter, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(handler)

	logger.Debug("debug entry")
	logger.Error("error entry")

	if !fileWriter.Contains("debug entry") || !fileWriter.Contains("error entry") {
		t.Error("expected the file sink to receive both entries")
	}
	if consoleWriter.Contains("debug entry") {
		t.Error("expected the console sink to gate out debug entries")
	}
	if !consoleWriter.Contains("error entry") {
		t.Error("expected the console sink to receive error entries")
	}
}

func TestLogging_MultiLevelHandlerWithAttrs(t *testing.T) {
	writer := NewTestWriter()

	handler := &MultiLevelHandler{
		fileHandler: slog.NewTextHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}
	logger := slog.New(handler).With("stack", "campus")

	logger.Info("attributed entry")

	if !writer.Contains("stack=campus") {
		t.Error("expected attached attributes in log entries")
	}
}

func TestLogging_CaptureFromConcurrentWriters(t *testing.T) {
	capture := NewTestLogCaptureQuiet()
	logger := slog.New(slog.NewTextHandler(capture, &slog.HandlerOptions{Level: slog.LevelInfo}))

	done := make(chan struct{})
	go func() {
		logger.Info("from goroutine")
		close(done)
	}()
	logger.Info("from test")
	<-done

	if !capture.ContainsAll("from goroutine", "from test") {
		t.Errorf("expected both entries, got %v", capture.GetEntries())
	}

	capture.Clear()
	if len(capture.GetEntries()) != 0 {
		t.Error("expected no entries after Clear")
	}
}

func TestLogging_NoLoggingLevelDisablesSink(t *testing.T) {
	handler := &MultiLevelHandler{
		fileHandler: slog.NewTextHandler(NewTestWriter(), &slog.HandlerOptions{Level: NoLoggingLevel}),
	}

	if handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected the handler to be disabled at every standard level")
	}
}
