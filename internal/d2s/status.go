package d2s

// Status is the raw character status byte at offset 0x24.
type Status uint8

// Status bits. Positions are fixed by the save format.
const (
	StatusHardcore  Status = 1 << 2
	StatusDied      Status = 1 << 3
	StatusExpansion Status = 1 << 5
	StatusLadder    Status = 1 << 6
)

// StatusFlags is the unpacked form of the named status bits.
type StatusFlags struct {
	Hardcore  bool `json:"hardcore"`
	Died      bool `json:"died"`
	Expansion bool `json:"expansion"`
	Ladder    bool `json:"ladder"`
}

// Has reports whether every bit in flag is set.
func (s Status) Has(flag Status) bool {
	return s&flag == flag
}

// Flags unpacks the named bits. Unnamed bits are ignored.
func (s Status) Flags() StatusFlags {
	return StatusFlags{
		Hardcore:  s.Has(StatusHardcore),
		Died:      s.Has(StatusDied),
		Expansion: s.Has(StatusExpansion),
		Ladder:    s.Has(StatusLadder),
	}
}

// Pack encodes the flags into a status byte with all other bits clear.
func (f StatusFlags) Pack() Status {
	var s Status
	if f.Hardcore {
		s |= StatusHardcore
	}
	if f.Died {
		s |= StatusDied
	}
	if f.Expansion {
		s |= StatusExpansion
	}
	if f.Ladder {
		s |= StatusLadder
	}
	return s
}
