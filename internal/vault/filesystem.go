package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"d2sm/internal/d2sm"
)

// FileSystemVault keeps archives in a directory tree, usually on a mounted
// backup drive. Content is sharded by the first two characters of its key:
//
//	<root>/content/<k[:2]>/<key>
//	<root>/metadata/<hostID>/<name>
//	<root>/metadata/<hostID>/<name>.version
type FileSystemVault struct {
	name        string
	root        string
	contentDir  string
	metadataDir string
}

func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	v := &FileSystemVault{
		name:        name,
		root:        root,
		contentDir:  filepath.Join(root, "content"),
		metadataDir: filepath.Join(root, "metadata"),
	}
	for _, dir := range []string{v.contentDir, v.metadataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating vault directory %s: %w", dir, err)
		}
	}
	return v, nil
}

// PutContent stores a save under its vault key. Existing content is kept;
// the reader is still drained so a short stream is reported.
func (v *FileSystemVault) PutContent(key string, r io.Reader, size int64) error {
	dest, err := v.contentPath(key)
	if err != nil {
		return err
	}

	if _, err := os.Stat(dest); err == nil {
		n, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("reading content %s: %w", key, err)
		}
		return checkSize(size, n)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating shard directory: %w", err)
	}
	return atomicWrite(dest, r, size)
}

func (v *FileSystemVault) GetContent(key string, w io.Writer) error {
	src, err := v.contentPath(key)
	if err != nil {
		return err
	}
	if err := copyFrom(src, w); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("content not found: %s", key)
		}
		return err
	}
	return nil
}

// PutMetadata stores a named item for hostID, then its version. The
// version is written last so a reader never sees a version whose item is
// missing.
func (v *FileSystemVault) PutMetadata(hostID string, name string, r io.Reader, size int64, version int64) error {
	dest, err := v.metadataPath(hostID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating metadata directory for %s: %w", hostID, err)
	}
	if err := atomicWrite(dest, r, size); err != nil {
		return err
	}

	ver := strconv.FormatInt(version, 10)
	return atomicWrite(dest+".version", strings.NewReader(ver), int64(len(ver)))
}

// GetMetadataVersion returns 0 when the item has never been stored.
func (v *FileSystemVault) GetMetadataVersion(hostID string, name string) (int64, error) {
	path, err := v.metadataPath(hostID, name)
	if err != nil {
		return 0, err
	}

	raw, err := os.ReadFile(path + ".version")
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("reading metadata version: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing metadata version %q: %w", raw, err)
	}
	return version, nil
}

func (v *FileSystemVault) GetMetadata(hostID string, name string, w io.Writer) error {
	src, err := v.metadataPath(hostID, name)
	if err != nil {
		return err
	}
	if err := copyFrom(src, w); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("metadata %q not found for host: %s", name, hostID)
		}
		return err
	}
	return nil
}

// ValidateSetup checks that the root and both subdirectories exist.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.contentDir, v.metadataDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

func (v *FileSystemVault) contentPath(key string) (string, error) {
	if err := checkPathComponent(key); err != nil {
		return "", fmt.Errorf("invalid content key: %w", err)
	}
	shard := key
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(v.contentDir, shard, key), nil
}

func (v *FileSystemVault) metadataPath(hostID, name string) (string, error) {
	for _, part := range []string{hostID, name} {
		if err := checkPathComponent(part); err != nil {
			return "", fmt.Errorf("invalid metadata path: %w", err)
		}
	}
	return filepath.Join(v.metadataDir, hostID, name), nil
}

// checkPathComponent rejects anything that would leave its parent directory.
func checkPathComponent(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("bad path component %q", s)
	}
	return nil
}

func checkSize(want, got int64) error {
	if want != got {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", want, got)
	}
	return nil
}

// atomicWrite copies r into a temp file beside dest and renames it into
// place once size bytes have been written.
func atomicWrite(dest string, r io.Reader, size int64) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(dest), err)
	}
	if err := checkSize(size, n); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("moving %s into place: %w", filepath.Base(dest), err)
	}
	return nil
}

func copyFrom(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return nil
}

var _ d2sm.Vault = (*FileSystemVault)(nil)
