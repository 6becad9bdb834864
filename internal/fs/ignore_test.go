package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines, comments and bad patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.bak", "[", "/"})
		if len(m.patterns) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
		}
		if m.patterns[0].pattern != "*.bak" {
			t.Errorf("expected *.bak, got %s", m.patterns[0].pattern)
		}
	})

	t.Run("classifies patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.bak", "backup/*.d2s", "old/"})
		if m.patterns[0].matchPath || m.patterns[0].dirOnly {
			t.Errorf("*.bak = %+v, want basename pattern", m.patterns[0])
		}
		if !m.patterns[1].matchPath {
			t.Error("backup/*.d2s should be a path pattern")
		}
		if !m.patterns[2].dirOnly || m.patterns[2].pattern != "old" {
			t.Errorf("old/ = %+v, want directory pattern", m.patterns[2])
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		isDir        bool
		want         bool
	}{
		{"basename glob in root", []string{"*.bak"}, "Alina.d2s.bak", false, true},
		{"basename glob in subdirectory", []string{"*.bak"}, filepath.Join("mods", "Alina.bak"), false, true},
		{"basename glob other extension", []string{"*.bak"}, "Alina.d2s", false, false},
		{"exact basename", []string{"Alina.d2s"}, filepath.Join("ladder", "Alina.d2s"), false, true},
		{"path glob", []string{"backup/*.d2s"}, filepath.Join("backup", "Alina.d2s"), false, true},
		{"path glob wrong directory", []string{"backup/*.d2s"}, filepath.Join("ladder", "Alina.d2s"), false, false},
		{"directory pattern matches directory", []string{"backup/"}, "backup", true, true},
		{"directory pattern skips files", []string{"backup/"}, "backup", false, false},
		{"question mark", []string{"?.d2s"}, "A.d2s", false, true},
		{"character class", []string{"*.d2[si]"}, "SharedStashSoftCoreV2.d2i", false, true},
		{"no patterns", nil, "Alina.d2s", false, false},
		{"empty path", []string{"*"}, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.relativePath, tt.isDir); got != tt.want {
				t.Errorf("Match(%q, %v) = %v, want %v", tt.relativePath, tt.isDir, got, tt.want)
			}
		})
	}
}

func TestIgnoreMatcher_Ignored(t *testing.T) {
	m := NewIgnoreMatcher([]string{"backup/", "*.bak"})

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join("backup", "Alina.d2s"), true},
		{filepath.Join("backup", "2024", "Alina.d2s"), true},
		{filepath.Join("ladder", "Alina.d2s"), false},
		{filepath.Join("ladder", "Alina.bak"), true},
		{"Alina.d2s", false},
	}
	for _, tt := range tests {
		if got := m.Ignored(tt.path); got != tt.want {
			t.Errorf("Ignored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads patterns from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		content := "*.bak\n# comment\n\nbackup/\nold/*.d2s\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		// Raw lines include blanks and comments; NewIgnoreMatcher filters them.
		if len(patterns) != 5 {
			t.Fatalf("expected 5 raw lines, got %d", len(patterns))
		}
		if m := NewIgnoreMatcher(patterns); len(m.patterns) != 3 {
			t.Errorf("expected 3 parsed patterns, got %d", len(m.patterns))
		}
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if patterns != nil {
			t.Errorf("expected nil patterns, got %v", patterns)
		}
	})
}
