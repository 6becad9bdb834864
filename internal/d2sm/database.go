package d2sm

import (
	"context"

	"d2sm/internal/model"
)

// Database provides metadata storage. Storage failures carry
// errkind.Storage.
type Database interface {
	// Characters acquires a dedicated connection for one find-or-create
	// sequence. The caller must Close the returned store on every path.
	Characters(ctx context.Context) (CharacterStore, error)

	// ListCharacters returns every persisted character ordered by name.
	ListCharacters(ctx context.Context) ([]*model.Character, error)

	// Save archive operations

	// FindSaveArchiveByChecksum returns the archive of the given plaintext
	// checksum, or nil when none exists.
	FindSaveArchiveByChecksum(ctx context.Context, checksum string) (*model.SaveArchive, error)

	// FindLatestSaveArchiveByPath returns the newest archive taken from path,
	// or nil.
	FindLatestSaveArchiveByPath(ctx context.Context, path string) (*model.SaveArchive, error)

	// CreateSaveArchive records a save stored in the vault.
	CreateSaveArchive(ctx context.Context, archive *model.SaveArchive) error

	// ListSaveArchives returns the most recent archives, newest first.
	ListSaveArchives(ctx context.Context, limit int) ([]*model.SaveArchive, error)

	// Operation tracking

	CreateOperation(ctx context.Context, operation string, parameters string) (*model.Operation, error)
	FinishOperation(ctx context.Context, id int64, status string) error
	ListOperations(ctx context.Context, limit int) ([]*model.Operation, error)
	MaxOperationID(ctx context.Context) (int64, error)

	// CheckMigrations verifies the schema is up to date.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(destPath string) error

	// Close closes the database.
	Close() error
}

// CharacterStore is a character lookup/insert session bound to a single
// connection.
type CharacterStore interface {
	// FindCharacterByName returns the character with exactly this name, or
	// nil when there is none.
	FindCharacterByName(ctx context.Context, name string) (*model.Character, error)

	// InsertCharacter inserts c. When another writer inserted the same name
	// first, the existing row is returned with inserted == false.
	InsertCharacter(ctx context.Context, c *model.Character) (stored *model.Character, inserted bool, err error)

	// Close releases the connection.
	Close() error
}
