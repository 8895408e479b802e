package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWrapLogsObjectUnderKey(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Wrap(zap.New(core))

	log.WarnObj("zatca request rejected", "zatca_rejection", map[string]any{"endpoint": "compliance"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel || entries[0].Message != "zatca request rejected" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	if _, ok := entries[0].ContextMap()["zatca_rejection"]; !ok {
		t.Fatalf("missing zatca_rejection field: %v", entries[0].ContextMap())
	}
}

func TestWrapNilIsNop(t *testing.T) {
	if _, ok := Wrap(nil).(*NopLogger); !ok {
		t.Fatalf("expected NopLogger for nil zap logger")
	}
}
