package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGlobalHelpersUseInstalledLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Debug("hidden")
	Info("stem uploaded", String("stem", "drums"), Int("completed", 1))
	Error("upload failed", ErrorField(errors.New("boom")))

	if logs.Len() != 2 {
		t.Fatalf("logged %d entries, want 2", logs.Len())
	}
	first := logs.All()[0]
	if first.Message != "stem uploaded" || first.ContextMap()["stem"] != "drums" {
		t.Errorf("first entry = %+v", first)
	}
	if logs.All()[1].Level != zapcore.ErrorLevel {
		t.Errorf("second entry level = %v, want error", logs.All()[1].Level)
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stemshare.log")
	l, err := New(Config{Level: "debug", OutputPath: path, MaxSize: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be enabled")
	}
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "loud"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if l.Core().Enabled(zapcore.DebugLevel) || !l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("unknown level should fall back to info")
	}
}
