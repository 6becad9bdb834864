package d2s

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"d2sm/internal/errkind"
)

// SaveKind identifies which family of save file a path holds.
type SaveKind int

const (
	// Character is a single character save (.d2s).
	Character SaveKind = iota + 1
	// SharedStash is the shared stash save (.d2i).
	SharedStash
	// PlugYStash is the PlugY personal/shared stash. Recognized as a kind but
	// not mapped from any extension and not validated yet.
	PlugYStash
)

func (k SaveKind) String() string {
	switch k {
	case Character:
		return "character"
	case SharedStash:
		return "shared_stash"
	case PlugYStash:
		return "plugy_stash"
	default:
		return fmt.Sprintf("SaveKind(%d)", int(k))
	}
}

// Magic is the signature at offset 0 of character and shared stash saves.
var Magic = [4]byte{0x55, 0xAA, 0x55, 0xAA}

// extensionKinds maps lowercased extensions (without the dot) to kinds.
var extensionKinds = map[string]SaveKind{
	"d2s": Character,
	"d2i": SharedStash,
}

// Extensions returns the recognized save file extensions, with leading dots.
func Extensions() []string {
	return []string{".d2s", ".d2i"}
}

// DetectKind derives the save kind from the path's extension.
func DetectKind(path string) (SaveKind, error) {
	ext := filepath.Ext(path)
	if ext == "" || ext == "." {
		return 0, errkind.Newf(errkind.InvalidFormat, "save file has no extension: %s", path)
	}
	ext = ext[1:]
	if !utf8.ValidString(ext) {
		return 0, errkind.Newf(errkind.InvalidFormat, "save file extension is not valid UTF-8: %q", ext)
	}

	kind, ok := extensionKinds[strings.ToLower(ext)]
	if !ok {
		return 0, errkind.Newf(errkind.InvalidFormat, "save file extension is not valid: %q", ext)
	}
	return kind, nil
}

// RawSave is a save file whose kind has been detected and whose signature
// has been validated. It is only produced by Load and NewRawSave.
type RawSave struct {
	kind SaveKind
	path string
	data []byte
}

// Kind returns the detected save kind.
func (s *RawSave) Kind() SaveKind { return s.kind }

// Path returns the path the save was loaded from.
func (s *RawSave) Path() string { return s.path }

// Data returns the full file contents. Callers must not modify it.
func (s *RawSave) Data() []byte { return s.data }

// Size returns the length of the file in bytes.
func (s *RawSave) Size() int { return len(s.data) }

// Validate checks that data carries the signature expected for kind.
func Validate(kind SaveKind, data []byte) error {
	switch kind {
	case Character, SharedStash:
		if len(data) < len(Magic) {
			return errkind.Newf(errkind.InvalidFormat, "%s save is too short to carry a signature (%d bytes)", kind, len(data))
		}
		if !bytes.Equal(data[:len(Magic)], Magic[:]) {
			return errkind.Newf(errkind.InvalidFormat, "%s save has wrong signature % X", kind, data[:len(Magic)])
		}
		return nil
	default:
		return errkind.Newf(errkind.InvalidFormat, "unsupported save kind: %s", kind)
	}
}

// NewRawSave validates data against the kind detected from path.
func NewRawSave(path string, data []byte) (*RawSave, error) {
	kind, err := DetectKind(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(kind, data); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return &RawSave{kind: kind, path: path, data: data}, nil
}

// Load detects the kind of the save at path, reads it fully and validates
// its signature.
func Load(path string) (*RawSave, error) {
	if _, err := DetectKind(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.Wrap(errkind.Io, "reading save file", err)
	}

	return NewRawSave(path, data)
}
