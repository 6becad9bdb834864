// Package model holds the rows persisted in the metadata database.
package model

import (
	"database/sql"
	"time"
)

// Character is a persisted character summary. Name is unique.
type Character struct {
	ID          int64
	Name        string
	Level       int64
	Class       string
	IsExpansion bool
	HasDied     bool
	IsHardcore  bool
	IsLadder    bool
	SavedAt     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SaveArchive records a save file stored in the vault. Checksum is the
// SHA-256 of the plaintext bytes; EncryptedChecksum is the vault key of the
// ciphertext when the save was archived encrypted.
type SaveArchive struct {
	ID                string
	Kind              string
	Path              string
	Checksum          string
	EncryptedChecksum sql.NullString
	Size              int64
	CharacterName     sql.NullString
	Version           sql.NullInt64
	ArchivedAt        time.Time
}

// VaultKey returns the checksum the archived bytes are stored under.
func (a *SaveArchive) VaultKey() string {
	if a.EncryptedChecksum.Valid {
		return a.EncryptedChecksum.String
	}
	return a.Checksum
}

// Operation is a CLI command that mutated the database.
type Operation struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Operation  string
	Parameters string
	Status     string
}
