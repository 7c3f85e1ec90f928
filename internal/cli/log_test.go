package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("info message should be logged")
	}
}

func TestLoggerContext_RoundTrip(t *testing.T) {
	logger := newLogger(&bytes.Buffer{}, log.DebugLevel)
	ctx := withLogger(context.Background(), logger)

	if got := loggerFromContext(ctx); got != logger {
		t.Error("logger should round-trip through the context")
	}
}

func TestLoggerFromContext_Fallback(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Error("missing logger should fall back to the default")
	}
}
