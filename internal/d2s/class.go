package d2s

import (
	"fmt"
	"strings"

	"d2sm/internal/errkind"
)

// Class is a character class as encoded in the save header.
type Class uint8

const (
	Amazon Class = iota
	Sorceress
	Necromancer
	Paladin
	Barbarian
	Druid
	Assassin
)

var classNames = [...]string{
	Amazon:      "Amazon",
	Sorceress:   "Sorceress",
	Necromancer: "Necromancer",
	Paladin:     "Paladin",
	Barbarian:   "Barbarian",
	Druid:       "Druid",
	Assassin:    "Assassin",
}

// Classes returns every class in code order.
func Classes() []Class {
	return []Class{Amazon, Sorceress, Necromancer, Paladin, Barbarian, Druid, Assassin}
}

// ClassFromCode maps a header class byte to a Class.
func ClassFromCode(code uint8) (Class, error) {
	if int(code) >= len(classNames) {
		return 0, errkind.Newf(errkind.Malformed, "invalid character class code %d", code)
	}
	return Class(code), nil
}

// ParseClass maps a class name, case-insensitively, to a Class.
func ParseClass(name string) (Class, error) {
	for i, n := range classNames {
		if strings.EqualFold(n, name) {
			return Class(i), nil
		}
	}
	return 0, errkind.Newf(errkind.Malformed, "invalid character class %q", name)
}

// Valid reports whether c is one of the seven known classes.
func (c Class) Valid() bool {
	return int(c) < len(classNames)
}

func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
	return classNames[c]
}

// MarshalText encodes the class by name.
func (c Class) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, errkind.Newf(errkind.Malformed, "invalid character class code %d", uint8(c))
	}
	return []byte(classNames[c]), nil
}

// UnmarshalText decodes a class name.
func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := ParseClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
