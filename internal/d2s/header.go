package d2s

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"d2sm/internal/errkind"
)

// LegacyVersionMax is the newest format version without a decoder.
// Saves at or below it are rejected.
const LegacyVersionMax uint32 = 0x61

// MaxLevel is the highest character level.
const MaxLevel = 99

// Fixed positions shared by every layout.
const (
	magicOffset   = 0x00
	versionOffset = 0x04

	nameFieldSize = 16
	nameMinLen    = 2
	nameMaxLen    = 15
)

// MinHeaderSize is the smallest buffer the header decoder accepts: the name
// field of the current layout ends here.
const MinHeaderSize = 0x10B + nameFieldSize

// Header is the fixed-offset summary block of a character save.
type Header struct {
	Version      uint32
	Name         string
	Status       Status
	Progression  uint8
	ActiveArms   uint16
	Class        Class
	Level        uint8
	CreatedAt    uint32 // epoch seconds
	LastPlayedAt uint32 // epoch seconds
}

// Flags returns the unpacked status bits.
func (h *Header) Flags() StatusFlags {
	return h.Status.Flags()
}

// LastPlayed returns LastPlayedAt as a UTC time.
func (h *Header) LastPlayed() time.Time {
	return time.Unix(int64(h.LastPlayedAt), 0).UTC()
}

// Created returns CreatedAt as a UTC time.
func (h *Header) Created() time.Time {
	return time.Unix(int64(h.CreatedAt), 0).UTC()
}

// layout is the absolute offset table of one supported format version range.
type layout struct {
	name       string
	minVersion uint32 // inclusive

	status      int
	progression int
	activeArms  int
	class       int
	level       int
	created     int
	lastPlayed  int
	skills      int
	skillsSize  int
	nameField   int
}

// layouts lists the supported variants, newest first. A new format version
// gets its own entry rather than a branch inside DecodeHeader.
var layouts = []layout{
	{
		name:        "current",
		minVersion:  LegacyVersionMax + 1,
		status:      0x24,
		progression: 0x25,
		activeArms:  0x26,
		class:       0x28,
		// 0x29..0x2B padding
		level:      0x2B,
		created:    0x2C,
		lastPlayed: 0x30,
		// 0x34..0x38 padding
		skills:     0x38,
		skillsSize: 40,
		nameField:  0x10B,
	},
}

// layoutFor picks the layout for a format version.
func layoutFor(version uint32) (*layout, error) {
	for i := range layouts {
		if version >= layouts[i].minVersion {
			return &layouts[i], nil
		}
	}
	return nil, errkind.Newf(errkind.UnsupportedVersion, "save format version %d (0x%X) is not supported", version, version)
}

// reader does bounds-checked little-endian reads at absolute offsets.
type reader struct {
	data []byte
}

func (r reader) take(off, n int, field string) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(r.data) {
		return nil, errkind.Newf(errkind.Incomplete, "reading %s: need bytes [0x%X,0x%X), have %d", field, off, off+n, len(r.data))
	}
	return r.data[off : off+n], nil
}

func (r reader) u8(off int, field string) (uint8, error) {
	b, err := r.take(off, 1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r reader) u16(off int, field string) (uint16, error) {
	b, err := r.take(off, 2, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r reader) u32(off int, field string) (uint32, error) {
	b, err := r.take(off, 4, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// DecodeHeader extracts the character header from a full save buffer.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < MinHeaderSize {
		return nil, errkind.Newf(errkind.Incomplete, "character save is %d bytes, header needs at least %d", len(data), MinHeaderSize)
	}
	r := reader{data: data}

	magic, err := r.take(magicOffset, len(Magic), "signature")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, Magic[:]) {
		return nil, errkind.Newf(errkind.InvalidFormat, "wrong signature % X", magic)
	}

	version, err := r.u32(versionOffset, "version")
	if err != nil {
		return nil, err
	}
	l, err := layoutFor(version)
	if err != nil {
		return nil, err
	}

	h, err := l.decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding %s header (version %d): %w", l.name, version, err)
	}
	h.Version = version
	return h, nil
}

func (l *layout) decode(r reader) (*Header, error) {
	status, err := r.u8(l.status, "status")
	if err != nil {
		return nil, err
	}
	progression, err := r.u8(l.progression, "progression")
	if err != nil {
		return nil, err
	}
	arms, err := r.u16(l.activeArms, "active arms")
	if err != nil {
		return nil, err
	}
	code, err := r.u8(l.class, "class")
	if err != nil {
		return nil, err
	}
	class, err := ClassFromCode(code)
	if err != nil {
		return nil, err
	}
	level, err := r.u8(l.level, "level")
	if err != nil {
		return nil, err
	}
	if level > MaxLevel {
		return nil, errkind.Newf(errkind.Malformed, "level %d exceeds %d", level, MaxLevel)
	}
	created, err := r.u32(l.created, "created at")
	if err != nil {
		return nil, err
	}
	lastPlayed, err := r.u32(l.lastPlayed, "last played at")
	if err != nil {
		return nil, err
	}
	// Assigned skills are not modelled, but the block must be present.
	if _, err := r.take(l.skills, l.skillsSize, "assigned skills"); err != nil {
		return nil, err
	}
	field, err := r.take(l.nameField, nameFieldSize, "name")
	if err != nil {
		return nil, err
	}
	name, err := DecodeName(field)
	if err != nil {
		return nil, err
	}

	return &Header{
		Name:         name,
		Status:       Status(status),
		Progression:  progression,
		ActiveArms:   arms,
		Class:        class,
		Level:        level,
		CreatedAt:    created,
		LastPlayedAt: lastPlayed,
	}, nil
}

// DecodeName reads a character name from a fixed 16-byte name field: the run
// of non-null bytes at the start of the field, at least 2 and at most 15
// bytes long. Bytes after the run are padding.
func DecodeName(field []byte) (string, error) {
	if len(field) < nameFieldSize {
		return "", errkind.Newf(errkind.Incomplete, "name field is %d bytes, want %d", len(field), nameFieldSize)
	}

	n := 0
	for n < nameMaxLen && field[n] != 0x00 {
		n++
	}
	if n < nameMinLen {
		return "", errkind.Newf(errkind.Malformed, "name field holds %d leading non-null bytes, need at least %d", n, nameMinLen)
	}

	raw := field[:n]
	if !utf8.Valid(raw) {
		return "", errkind.Newf(errkind.Malformed, "name % X is not valid UTF-8", raw)
	}
	name := string(raw)
	for _, c := range name {
		if !unicode.IsPrint(c) {
			return "", errkind.Newf(errkind.Malformed, "name %q contains a non-printable character", name)
		}
	}
	return name, nil
}

// DecodeFile loads a character save from disk and decodes its header.
func DecodeFile(path string) (*Header, error) {
	save, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Decode(save)
}

// Decode decodes the header of a loaded save. Only character saves carry one.
func Decode(save *RawSave) (*Header, error) {
	if save.Kind() != Character {
		return nil, errkind.Newf(errkind.InvalidFormat, "%s saves have no character header", save.Kind())
	}
	h, err := DecodeHeader(save.Data())
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", save.Path(), err)
	}
	return h, nil
}
