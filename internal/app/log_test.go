package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "save archived",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tsave archived\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "character matched",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tcharacter matched\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "imported",
			attrs:   []slog.Attr{slog.String("name", "Alina"), slog.Int("level", 81)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\timported\tname=Alina\tlevel=81\n",
		},
		{
			name:    "group attr is flattened",
			opID:    "op-1",
			level:   slog.LevelWarn,
			message: "skipped",
			attrs:   []slog.Attr{slog.Group("save", slog.String("kind", "stash"), slog.Int64("size", 7))},
			want:    "2024-06-15T14:30:45Z\tWARN\top-1\tskipped\tsave.kind=stash\tsave.size=7\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &logHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestLogHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &logHandler{w: &buf, opID: "op-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*logHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("checksum", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "\tcomponent=vault\tchecksum=abc\n") {
		t.Errorf("Handle() output = %q, want pre-set attr before record attr", got)
	}
}

func TestLogHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	h := &logHandler{opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*logHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestLogHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = &logHandler{w: &buf, opID: "op-1"}
	h = h.WithGroup("import").WithAttrs([]slog.Attr{slog.String("file", "a.json")})

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "done", 0)
	r.AddAttrs(slog.String("status", "Created"))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := "2024-01-01T00:00:00Z\tINFO\top-1\tdone\timport.file=a.json\timport.status=Created\n"
	if got := buf.String(); got != want {
		t.Errorf("Handle() output =\n%q\nwant:\n%q", got, want)
	}
}

func TestLogHandler_Enabled(t *testing.T) {
	all := &logHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !all.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}

	info := &logHandler{level: slog.LevelInfo}
	if info.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(DEBUG) = true with INFO minimum, want false")
	}
	if !info.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(ERROR) = false with INFO minimum, want true")
	}
}

func TestTeeHandler(t *testing.T) {
	var all, infoOnly bytes.Buffer
	logger := slog.New(&teeHandler{handlers: []slog.Handler{
		&logHandler{w: &all, opID: "op-1"},
		&logHandler{w: &infoOnly, opID: "op-1", level: slog.LevelInfo},
	}})

	logger.Debug("looking up character")
	logger.Info("imported", "name", "Alina")

	if got := strings.Count(all.String(), "\n"); got != 2 {
		t.Errorf("unfiltered handler wrote %d lines, want 2: %q", got, all.String())
	}
	if got := strings.Count(infoOnly.String(), "\n"); got != 1 {
		t.Errorf("INFO handler wrote %d lines, want 1: %q", got, infoOnly.String())
	}
	if !strings.Contains(infoOnly.String(), "name=Alina") {
		t.Errorf("INFO handler output = %q, want name=Alina", infoOnly.String())
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-op")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("newLogger() returned nil logger")
	}

	logger.Debug("file only", "k", "v")
	if err := f.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "d2sm.log"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "\tDEBUG\ttest-op\tfile only\tk=v\n") {
		t.Errorf("log file = %q, want the debug record", data)
	}
}
