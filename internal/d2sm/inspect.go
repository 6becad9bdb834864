package d2sm

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"d2sm/internal/d2s"
	"d2sm/internal/errkind"
)

// SaveInfo describes a save file on disk. Header is set for character saves
// only.
type SaveInfo struct {
	Path     string
	Kind     d2s.SaveKind
	Size     int64
	Checksum string
	Header   *d2s.Header
}

// InspectSave loads a save, validates it and decodes the header of a
// character save.
func (s *Service) InspectSave(rawPath string) (*SaveInfo, error) {
	save, err := s.loadSave(rawPath)
	if err != nil {
		return nil, err
	}

	info := &SaveInfo{
		Path:     save.Path(),
		Kind:     save.Kind(),
		Size:     int64(save.Size()),
		Checksum: sha256Hex(save.Data()),
	}
	if save.Kind() == d2s.Character {
		h, err := d2s.Decode(save)
		if err != nil {
			return nil, fmt.Errorf("decoding header of %s: %w", save.Path(), err)
		}
		info.Header = h
	}

	s.logger.Debug("save inspected", "path", info.Path, "kind", info.Kind.String())
	return info, nil
}

// loadSave is d2s.Load over the FilesystemManager: the extension is checked
// before anything is read.
func (s *Service) loadSave(rawPath string) (*d2s.RawSave, error) {
	if _, err := d2s.DetectKind(rawPath); err != nil {
		return nil, err
	}

	path, err := s.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, errkind.Wrap(errkind.Io, "resolving save path", err)
	}
	data, err := s.readAll(path)
	if err != nil {
		return nil, errkind.Wrap(errkind.Io, "reading save file", err)
	}
	return d2s.NewRawSave(path.String(), data)
}

func (s *Service) readAll(path *Path) ([]byte, error) {
	f, err := s.fsmgr.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
