package logging

import "testing"

func TestNewZapLogger_ValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := NewZapLogger(level)
		if err != nil {
			t.Fatalf("level %q: unexpected error: %v", level, err)
		}
		logger.Info("test message", "level", level)
	}
}

func TestNewZapLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	logger, err := NewZapLogger("not-a-level")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Warn("still logs at default level")
}
