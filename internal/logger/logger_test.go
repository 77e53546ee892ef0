package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer and restores the
// previous writer, level and format on cleanup.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	prevOut, prevColor := output, useColor
	output, useColor = buf, false
	mu.Unlock()
	prevLevel := currentLevel.Load()
	prevFormat := currentFormat.Load()
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output, useColor = prevOut, prevColor
		mu.Unlock()
		currentLevel.Store(prevLevel)
		currentFormat.Store(prevFormat)
		reconfigure()
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugShowsEverything", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		for _, s := range []string{"DEBUG", "INFO", "WARN", "ERROR", "debug message", "error message"} {
			assert.Contains(t, out, s)
		}
	})

	t.Run("WarnFiltersDebugAndInfo", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("warn")

		Debug("debug message")
		Info("info message")
		Warn("warn message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
	})

	t.Run("ErrorIsNeverFiltered", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("ERROR")

		Warn("warn message")
		Error("error message")

		assert.NotContains(t, buf.String(), "warn message")
		assert.Contains(t, buf.String(), "error message")
	})

	t.Run("InvalidLevelIsIgnored", func(t *testing.T) {
		captureOutput(t)
		SetLevel("WARN")
		SetLevel("verbose")
		assert.Equal(t, LevelWarn, GetLevel())
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{" INFO ", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"Error", LevelError, true},
		{"trace", LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestTextFormat(t *testing.T) {
	t.Run("StructuredFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")
		SetFormat("text")

		Info("transfer completed", TransferID("t-1"), "status", "completed")

		out := buf.String()
		assert.Contains(t, out, "[INFO] transfer completed")
		assert.Contains(t, out, "transfer_id=t-1")
		assert.Contains(t, out, "status=completed")
	})

	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf := captureOutput(t)
		Info("fetch", Locator("file:///tmp/my file.vtk"))
		assert.Contains(t, buf.String(), `locator="file:///tmp/my file.vtk"`)
	})

	t.Run("NilErrorIsDropped", func(t *testing.T) {
		buf := captureOutput(t)
		Info("ok", Err(nil))
		assert.NotContains(t, buf.String(), "error=")
	})

	t.Run("GroupsAreDotted", func(t *testing.T) {
		buf := captureOutput(t)
		With("component", "pool").WithGroup("stats").Info("snapshot", "pending", 3)
		out := buf.String()
		assert.Contains(t, out, "component=pool")
		assert.Contains(t, out, "stats.pending=3")
	})
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("json")

	Warn("handler failed", Err(errors.New("boom")), EntityID("e-7"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "handler failed", rec["msg"])
	assert.Equal(t, "boom", rec["error"])
	assert.Equal(t, "e-7", rec["entity_id"])
}

func TestContextFields(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("DEBUG")

	lc := NewLogContext("t-9", "node-1", "download").WithTrace("abc", "def")
	ctx := WithContext(context.Background(), lc)

	DebugCtx(ctx, "dispatching", "extra", 1)

	out := buf.String()
	assert.Contains(t, out, "trace_id=abc")
	assert.Contains(t, out, "span_id=def")
	assert.Contains(t, out, "transfer_id=t-9")
	assert.Contains(t, out, "entity_id=node-1")
	assert.Contains(t, out, "direction=download")
	assert.Less(t, strings.Index(out, "trace_id"), strings.Index(out, "extra=1"))

	assert.Nil(t, FromContext(context.Background()))
	var nilLC *LogContext
	assert.Nil(t, nilLC.WithTrace("a", "b"))
	assert.Zero(t, nilLC.DurationMs())
}

func TestContextFieldsNotRepeated(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("DEBUG")

	ctx := WithContext(context.Background(), NewLogContext("t-9", "node-1", "download"))
	WarnCtx(ctx, "persist failed", TransferID("t-9"), "entity_id", "node-1", Status("failed"))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "transfer_id="))
	assert.Equal(t, 1, strings.Count(out, "entity_id="))
	assert.Contains(t, out, "direction=download")
}

func TestInitWithFile(t *testing.T) {
	path := t.TempDir() + "/dittoio.log"
	captureOutput(t)

	require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
	Info("to file")

	t.Cleanup(func() {
		mu.Lock()
		if logFile != nil {
			_ = logFile.Close()
			logFile = nil
		}
		mu.Unlock()
	})

	err := Init(Config{Output: t.TempDir() + "/missing/dir/x.log"})
	assert.Error(t, err)
}

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("line", slog.Int("worker", i))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20*50, strings.Count(buf.String(), "\n"))
}
