package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"d2sm/internal/d2sm"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory filesystem for testing. Paths are
// stored as given, so tests should use absolute paths.
type MockFilesystemManager struct {
	files   map[string]*MockFile
	ignored map[string]bool
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:   make(map[string]*MockFile),
		ignored: make(map[string]bool),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.files[path] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     time.Now(),
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.files[path] = &MockFile{
		Permissions: 0755,
		ModTime:     time.Now(),
		IsDirectory: true,
	}
}

// Ignore makes IsIgnored report true for path, and FindSaves skip it.
func (m *MockFilesystemManager) Ignore(path string) {
	m.ignored[path] = true
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*d2sm.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}
	return d2sm.NewPath(absPath, file.IsDirectory, newMockFileInfo(absPath, file)), nil
}

func (m *MockFilesystemManager) Open(path *d2sm.Path) (io.ReadCloser, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path.String())
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

func (m *MockFilesystemManager) Stat(path *d2sm.Path) (fs.FileInfo, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	return newMockFileInfo(path.String(), file), nil
}

// FindSaves returns files under dir with a save extension, sorted by path.
func (m *MockFilesystemManager) FindSaves(dir *d2sm.Path, recursive bool) ([]*d2sm.Path, error) {
	if !dir.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir.String())
	}

	prefix := dir.String() + string(filepath.Separator)
	var paths []string
	for p, file := range m.files {
		if file.IsDirectory || !strings.HasPrefix(p, prefix) || m.ignored[p] {
			continue
		}
		if !recursive && filepath.Dir(p) != dir.String() {
			continue
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".d2s", ".d2i":
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	result := make([]*d2sm.Path, len(paths))
	for i, p := range paths {
		result[i] = d2sm.NewPath(p, false, newMockFileInfo(p, m.files[p]))
	}
	return result, nil
}

func (m *MockFilesystemManager) IsIgnored(path *d2sm.Path, root string) (bool, error) {
	return m.ignored[path.String()], nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func newMockFileInfo(path string, file *MockFile) *mockFileInfo {
	mode := file.Permissions
	if file.IsDirectory {
		mode |= fs.ModeDir
	}
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		mode:    mode,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ d2sm.FilesystemManager = (*MockFilesystemManager)(nil)
