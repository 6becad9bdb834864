package d2sm

import (
	"io"
	"io/fs"
)

// FilesystemManager abstracts file access so the service can be tested
// without touching the real filesystem.
type FilesystemManager interface {
	// Resolve makes rawPath absolute, stats it and rejects anything that is
	// not a regular file or directory.
	Resolve(rawPath string) (*Path, error)

	// Open opens a file for reading.
	Open(path *Path) (io.ReadCloser, error)

	// Stat returns fresh file info, unlike Path.Info which is cached.
	Stat(path *Path) (fs.FileInfo, error)

	// FindSaves returns the save files (.d2s and .d2i) under a directory,
	// descending into subdirectories when recursive is set. Ignored files
	// are left out.
	FindSaves(dir *Path, recursive bool) ([]*Path, error)

	// IsIgnored reports whether path matches an ignore pattern relative to
	// root.
	IsIgnored(path *Path, root string) (bool, error)
}
