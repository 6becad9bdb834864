package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-directory ignore file read when scanning a save
// directory. It is never archived itself.
const IgnoreFileName = ".d2smignore"

type ignorePattern struct {
	pattern   string
	matchPath bool // match the whole relative path instead of the basename
	dirOnly   bool // pattern ended in '/'
}

// IgnoreMatcher checks paths relative to a scanned directory against
// gitignore-like patterns:
//
//	*.bak       basename glob, at any depth
//	backup/*    glob over the whole relative path
//	backup/     a directory and everything below it
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped, as are patterns
// that filepath.Match would reject.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		p := ignorePattern{}
		if strings.HasSuffix(raw, "/") {
			p.dirOnly = true
			raw = strings.TrimRight(raw, "/")
		}
		if raw == "" {
			continue
		}
		if _, err := path.Match(raw, ""); err != nil {
			continue
		}
		p.pattern = raw
		p.matchPath = strings.Contains(raw, "/")
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether a single entry is ignored. It does not look at the
// entry's parent directories; see Ignored.
func (m *IgnoreMatcher) Match(relativePath string, isDir bool) bool {
	if relativePath == "" || relativePath == "." {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	basename := path.Base(normalized)

	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		subject := basename
		if p.matchPath {
			subject = normalized
		}
		if ok, _ := path.Match(p.pattern, subject); ok {
			return true
		}
	}
	return false
}

// Ignored reports whether the file at relativePath, or any directory
// above it, is ignored.
func (m *IgnoreMatcher) Ignored(relativePath string) bool {
	normalized := filepath.ToSlash(relativePath)
	if m.Match(normalized, false) {
		return true
	}
	for dir := path.Dir(normalized); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if m.Match(dir, true) {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns its raw lines.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
