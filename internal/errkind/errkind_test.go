package errkind

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{name: "op and cause", err: &Error{Kind: Io, Op: "reading save", Err: io.ErrUnexpectedEOF}, want: "reading save: unexpected EOF"},
		{name: "cause only", err: &Error{Kind: Io, Err: io.EOF}, want: "EOF"},
		{name: "op only", err: New(Malformed, "invalid class code 9"), want: "invalid class code 9"},
		{name: "kind only", err: &Error{Kind: Storage}, want: "storage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("loading save: %w", Wrap(Io, "open", io.EOF))
		if !Is(err, Io) {
			t.Error("Is(err, Io) = false, want true")
		}
		if Is(err, Storage) {
			t.Error("Is(err, Storage) = true, want false")
		}
		if !errors.Is(err, io.EOF) {
			t.Error("errors.Is(err, io.EOF) = false, want true")
		}
	})

	t.Run("matches inner kind", func(t *testing.T) {
		inner := New(Incomplete, "short buffer")
		outer := Wrap(Malformed, "decoding header", inner)
		if !Is(outer, Incomplete) {
			t.Error("Is(outer, Incomplete) = false, want true")
		}
		if KindOf(outer) != Malformed {
			t.Errorf("KindOf(outer) = %q, want %q", KindOf(outer), Malformed)
		}
	})

	t.Run("errors.Is compares kinds", func(t *testing.T) {
		err := Newf(UnsupportedVersion, "version %d", 96)
		if !errors.Is(err, New(UnsupportedVersion, "")) {
			t.Error("errors.Is() = false, want true for same kind")
		}
		if errors.Is(err, New(Decode, "")) {
			t.Error("errors.Is() = true, want false for different kind")
		}
	})

	t.Run("nil and plain errors", func(t *testing.T) {
		if Is(nil, Io) {
			t.Error("Is(nil) = true")
		}
		if Is(io.EOF, Io) {
			t.Error("Is(io.EOF) = true")
		}
		if KindOf(io.EOF) != "" {
			t.Errorf("KindOf(io.EOF) = %q, want empty", KindOf(io.EOF))
		}
		if Wrap(Io, "x", nil) != nil {
			t.Error("Wrap(nil) != nil")
		}
	})
}
