// Package fs is the real-filesystem side of save discovery: resolving
// user-supplied paths, scanning save directories and applying ignore
// patterns.
package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"d2sm/internal/d2s"
	"d2sm/internal/d2sm"
)

// OSFilesystemManager implements d2sm.FilesystemManager on the os package.
type OSFilesystemManager struct {
	ignore []string
}

// NewOSFilesystemManager creates a filesystem manager. ignorePatterns come
// from the config and apply to every scanned directory, in addition to the
// directory's own .d2smignore.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	return &OSFilesystemManager{ignore: ignorePatterns}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*d2sm.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if !info.Mode().IsRegular() && !info.IsDir() {
		return nil, fmt.Errorf("not a regular file or directory: %s (%s)", absPath, info.Mode().Type())
	}

	return d2sm.NewPath(absPath, info.IsDir(), info), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path *d2sm.Path) (io.ReadCloser, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	return os.Open(path.String())
}

// Stat returns fresh file info for a path.
func (m *OSFilesystemManager) Stat(path *d2sm.Path) (fs.FileInfo, error) {
	return os.Stat(path.String())
}

// FindSaves returns the regular files under dir with a save extension, in
// lexical order. Ignored files and directories are skipped.
func (m *OSFilesystemManager) FindSaves(dir *d2sm.Path, recursive bool) ([]*d2sm.Path, error) {
	if !dir.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir.String())
	}

	matcher, err := m.matcher(dir.String())
	if err != nil {
		return nil, err
	}

	var paths []*d2sm.Path
	root := dir.String()
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive || matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !isSaveFile(p) || matcher.Match(rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		paths = append(paths, d2sm.NewPath(p, false, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return paths, nil
}

// IsIgnored reports whether path is excluded by the ignore patterns that
// apply when scanning root.
func (m *OSFilesystemManager) IsIgnored(path *d2sm.Path, root string) (bool, error) {
	rel, err := filepath.Rel(root, path.String())
	if err != nil {
		return false, fmt.Errorf("relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}

	matcher, err := m.matcher(root)
	if err != nil {
		return false, err
	}
	return matcher.Ignored(rel), nil
}

func (m *OSFilesystemManager) matcher(root string) (*IgnoreMatcher, error) {
	local, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := append(slices.Clone(m.ignore), local...)
	return NewIgnoreMatcher(patterns), nil
}

func isSaveFile(p string) bool {
	return slices.Contains(d2s.Extensions(), strings.ToLower(filepath.Ext(p)))
}

// Compile-time check
var _ d2sm.FilesystemManager = (*OSFilesystemManager)(nil)
