package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// SaveHeader describes the header fields written by BuildCharacterSave.
// Zero values produce a valid save for an expansion Sorceress named "Alina".
type SaveHeader struct {
	Size         int
	Magic        []byte
	Version      uint32
	Status       uint8
	Class        uint8
	Level        uint8
	CreatedAt    uint32
	LastPlayedAt uint32
	Name         []byte // written verbatim into the 16-byte name field
}

// AlinaHeader matches testdata/test.d2s in the d2s package.
func AlinaHeader() SaveHeader {
	return SaveHeader{
		Size:         2912,
		Magic:        []byte{0x55, 0xAA, 0x55, 0xAA},
		Version:      99,
		Status:       0x20,
		Class:        1,
		Level:        81,
		CreatedAt:    1650000000,
		LastPlayedAt: 1700000000,
		Name:         []byte("Alina"),
	}
}

// BuildCharacterSave lays out a character save buffer at the current-format
// offsets.
func BuildCharacterSave(hdr SaveHeader) []byte {
	if hdr.Size == 0 {
		hdr.Size = 2912
	}
	if hdr.Magic == nil {
		hdr.Magic = []byte{0x55, 0xAA, 0x55, 0xAA}
	}
	if hdr.Version == 0 {
		hdr.Version = 99
	}
	if hdr.Name == nil {
		hdr.Name = []byte("Alina")
	}

	buf := make([]byte, hdr.Size)
	put := func(off int, b []byte) {
		if off < len(buf) {
			copy(buf[off:], b)
		}
	}
	le32 := func(v uint32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		return b
	}

	put(0x00, hdr.Magic)
	put(0x04, le32(hdr.Version))
	put(0x08, le32(uint32(hdr.Size)))
	put(0x24, []byte{hdr.Status})
	put(0x28, []byte{hdr.Class})
	put(0x2B, []byte{hdr.Level})
	put(0x2C, le32(hdr.CreatedAt))
	put(0x30, le32(hdr.LastPlayedAt))
	name := hdr.Name
	if len(name) > 16 {
		name = name[:16]
	}
	put(0x10B, name)
	return buf
}

// WriteSave writes data to name inside a fresh temp directory and returns the path.
func WriteSave(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing save fixture: %v", err)
	}
	return path
}
