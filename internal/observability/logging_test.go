package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func withCapturedDefault(t *testing.T, format string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(NewLogger(&buf, format, slog.LevelDebug))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestContextValuesAccumulate(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-123")
	ctx = WithTarget(ctx, "MyGame")
	ctx = WithStage(ctx, "setup")

	lc := GetContext(ctx)
	if lc.BuildID != "build-123" || lc.Target != "MyGame" || lc.Stage != "setup" {
		t.Fatalf("unexpected log context %+v", lc)
	}

	// Overriding the stage keeps the rest.
	lc = GetContext(WithStage(ctx, "compile"))
	if lc.Stage != "compile" || lc.BuildID != "build-123" {
		t.Fatalf("unexpected log context after override %+v", lc)
	}
}

func TestEmptyContext(t *testing.T) {
	if lc := GetContext(context.Background()); lc != (LogContext{}) {
		t.Fatalf("expected empty context, got %+v", lc)
	}
}

func TestInfoContextAddsAttributes(t *testing.T) {
	buf := withCapturedDefault(t, "text")

	ctx := WithStage(WithBuildID(context.Background(), "b1"), "policy")
	InfoContext(ctx, "checking", slog.String("module", "Core"))

	out := buf.String()
	for _, want := range []string{"build.id=b1", "stage=policy", "module=Core", "msg=checking"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestLevelsAndJSON(t *testing.T) {
	buf := withCapturedDefault(t, "json")
	ctx := WithTarget(context.Background(), "Tool")

	DebugContext(ctx, "d")
	WarnContext(ctx, "w")
	ErrorContext(ctx, "e")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if rec["level"] != "WARN" || rec["target"] != "Tool" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestAttrsSkipEmptyFields(t *testing.T) {
	attrs := LogContext{Target: "Shooter"}.Attrs()
	if len(attrs) != 1 || attrs[0].Key != "target" || attrs[0].Value.String() != "Shooter" {
		t.Fatalf("unexpected attrs %v", attrs)
	}
}
