package d2sm

import (
	"context"
	"fmt"
	"time"

	"d2sm/internal/character"
	"d2sm/internal/model"
)

// ImportStatus tells whether an import created a character or matched one
// that already existed.
type ImportStatus int

const (
	StatusCreated ImportStatus = iota + 1
	// StatusUpdated means a character with the same name already existed.
	// The stored record is returned as is; no field is refreshed.
	StatusUpdated
)

func (s ImportStatus) String() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusUpdated:
		return "Updated"
	default:
		return fmt.Sprintf("ImportStatus(%d)", int(s))
	}
}

// ImportResult is the outcome of a successful import.
type ImportResult struct {
	Character *model.Character
	Status    ImportStatus
}

// Message is the user-facing summary, e.g. "Created character Alina".
func (r *ImportResult) Message() string {
	return fmt.Sprintf("%s character %s", r.Status, r.Character.Name)
}

// Importer is implemented by Service.
type Importer interface {
	Import(ctx context.Context, payload []byte) (*ImportResult, error)
}

// ImportMessage runs an import and renders the outcome as text: the
// result message on success, the error text otherwise.
func ImportMessage(ctx context.Context, importer Importer, payload []byte) string {
	res, err := importer.Import(ctx, payload)
	if err != nil {
		return err.Error()
	}
	return res.Message()
}

// Import decodes the interchange JSON of a character and finds or creates
// its record by exact name. Decode failures have kind errkind.Decode and
// database failures errkind.Storage.
func (s *Service) Import(ctx context.Context, payload []byte) (*ImportResult, error) {
	data, err := character.Decode(payload)
	if err != nil {
		return nil, err
	}

	record := NewCharacterRecord(&data.Header, s.clock.Now())
	s.logger.Debug("importing character", "name", record.Name, "items", data.ItemCount())

	store, err := s.database.Characters(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening character store: %w", err)
	}
	defer store.Close()

	existing, err := store.FindCharacterByName(ctx, record.Name)
	if err != nil {
		return nil, fmt.Errorf("finding character: %w", err)
	}
	if existing != nil {
		s.logger.Info("character matched", "name", existing.Name, "id", existing.ID)
		return &ImportResult{Character: existing, Status: StatusUpdated}, nil
	}

	stored, inserted, err := store.InsertCharacter(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("inserting character: %w", err)
	}
	if !inserted {
		s.logger.Info("character inserted concurrently", "name", stored.Name, "id", stored.ID)
		return &ImportResult{Character: stored, Status: StatusUpdated}, nil
	}

	s.logger.Info("character created", "name", stored.Name, "id", stored.ID)
	return &ImportResult{Character: stored, Status: StatusCreated}, nil
}

// NewCharacterRecord maps a decoded header to a new, unsaved record.
// SavedAt is the last-played time in UTC; a zero timestamp maps to the Unix
// epoch.
func NewCharacterRecord(h *character.Header, now time.Time) *model.Character {
	return &model.Character{
		Name:        h.Name,
		Level:       int64(h.Level),
		Class:       h.Class.String(),
		IsExpansion: h.Status.Expansion,
		HasDied:     h.Status.Died,
		IsHardcore:  h.Status.Hardcore,
		IsLadder:    h.Status.Ladder,
		SavedAt:     savedAt(h.LastPlayed),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func savedAt(lastPlayed uint32) time.Time {
	return time.Unix(int64(lastPlayed), 0).UTC()
}
