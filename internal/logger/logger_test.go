package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogFunctionsCarryFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	UseLogger(zap.New(core))
	defer UseLogger(zap.NewNop())

	LogInfo("volume mounted", map[string]interface{}{"blocks": 20})
	LogDebug("block allocated", map[string]interface{}{"block": 3})
	LogWarn("skipping pointer", nil)
	LogError("write failed", errors.New("volume full"), map[string]interface{}{"inode": 0})

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("expected 4 log entries, got %d", len(entries))
	}

	if entries[0].ContextMap()["blocks"] != int64(20) {
		t.Errorf("unexpected fields on info entry: %v", entries[0].ContextMap())
	}

	errFields := entries[3].ContextMap()
	if errFields["error"] != "volume full" || errFields["inode"] != int64(0) {
		t.Errorf("unexpected fields on error entry: %v", errFields)
	}
}

func TestLogErrorWithNilError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	UseLogger(zap.New(core))
	defer UseLogger(zap.NewNop())

	LogError("nothing went wrong", nil, nil)

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	if _, ok := logs.AllUntimed()[0].ContextMap()["error"]; ok {
		t.Error("nil error should not produce an error field")
	}
}

func TestInitLoggerWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := LoggerConfig{Debug: true, LogFormat: "json", LogFile: dir + "/logs/simplefs.log"}

	if err := InitLogger(cfg); err != nil {
		t.Fatalf("InitLogger failed: %v", err)
	}
	defer UseLogger(zap.NewNop())

	LogDebug("hello", nil)
	_ = Sync()
}
