// Package character is the in-memory model of a full character: header,
// attribute table and item trees, decoded from the JSON interchange form.
package character

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"unicode"

	"d2sm/internal/d2s"
	"d2sm/internal/errkind"
)

const (
	MaxNameLength = 15
	MaxLevel      = 99
)

// Header is the character summary carried by the interchange form.
type Header struct {
	Identifier string          `json:"identifier"`
	Name       string          `json:"name"`
	Level      uint8           `json:"level"`
	Class      d2s.Class       `json:"class"`
	Status     d2s.StatusFlags `json:"status"`
	Created    uint32          `json:"created"`
	LastPlayed uint32          `json:"last_played"`
}

// Attributes maps stat names to values.
type Attributes map[string]uint32

// Data is a fully decoded character.
type Data struct {
	Header      Header
	Attributes  Attributes
	Items       []Item
	CorpseItems []Item
	MercItems   []Item
}

// Decode parses interchange JSON into Data. Unknown fields are ignored.
// Every failure has kind errkind.Decode; shape failures wrap a *FieldError
// naming the offending field.
func Decode(payload []byte) (*Data, error) {
	var d Data
	if err := d.UnmarshalJSON(payload); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Data) UnmarshalJSON(payload []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return errkind.Wrap(errkind.Decode, "decoding character data", err)
	}

	if err := checkShape(raw, reflect.TypeOf(dataWire{}), ""); err != nil {
		return errkind.Wrap(errkind.Decode, "decoding character data", err)
	}

	var w dataWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return errkind.Wrap(errkind.Decode, "decoding character data", err)
	}

	decoded, err := fromWire(&w)
	if err != nil {
		return errkind.Wrap(errkind.Decode, "decoding character data", err)
	}
	*d = *decoded
	return nil
}

func (d Data) MarshalJSON() ([]byte, error) {
	w := dataWire{
		Header:      d.Header,
		Attributes:  d.Attributes,
		Items:       itemsToWire(d.Items),
		CorpseItems: itemsToWire(d.CorpseItems),
		MercItems:   itemsToWire(d.MercItems),
	}
	if w.Attributes == nil {
		w.Attributes = Attributes{}
	}
	return json.Marshal(w)
}

func fromWire(w *dataWire) (*Data, error) {
	if err := w.Header.validate("header"); err != nil {
		return nil, err
	}

	d := &Data{Header: w.Header, Attributes: w.Attributes}
	var err error
	if d.Items, err = itemsFromWire(w.Items, "items", false); err != nil {
		return nil, err
	}
	if d.CorpseItems, err = itemsFromWire(w.CorpseItems, "corpse_items", false); err != nil {
		return nil, err
	}
	if d.MercItems, err = itemsFromWire(w.MercItems, "merc_items", false); err != nil {
		return nil, err
	}
	return d, nil
}

func (h *Header) validate(path string) error {
	if n := len(h.Name); n == 0 || n > MaxNameLength {
		return fieldErrorf(joinField(path, "name"), "name must be 1 to %d bytes, got %d", MaxNameLength, n)
	}
	for _, c := range h.Name {
		if !unicode.IsPrint(c) {
			return fieldErrorf(joinField(path, "name"), "name %q contains a non-printable character", h.Name)
		}
	}
	if h.Level > MaxLevel {
		return fieldErrorf(joinField(path, "level"), "level %d exceeds %d", h.Level, MaxLevel)
	}
	return nil
}

// ItemCount returns the number of items in every list, socketed items
// included.
func (d *Data) ItemCount() int {
	n := 0
	count := func(*Item) { n++ }
	for _, list := range [][]Item{d.Items, d.CorpseItems, d.MercItems} {
		for i := range list {
			list[i].Walk(count)
		}
	}
	return n
}

func (h Header) String() string {
	return fmt.Sprintf("%s (level %d %s)", h.Name, h.Level, h.Class)
}
