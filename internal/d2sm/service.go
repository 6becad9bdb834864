// Package d2sm is the service layer of the save manager: it reconciles
// imported characters against the database and archives save files to a
// vault. Collaborators are passed in as interfaces.
package d2sm

import (
	"context"
	"fmt"

	"d2sm/internal/model"
)

// Service coordinates the database, vault, filesystem and encryptor to
// perform the operations the CLI exposes.
type Service struct {
	database  Database
	vault     Vault
	fsmgr     FilesystemManager
	encryptor Encryptor
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewService creates a Service. vault, fsmgr and encryptor may be nil for
// callers that only import characters.
func NewService(database Database, vault Vault, fsmgr FilesystemManager, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator) *Service {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	return &Service{
		database:  database,
		vault:     vault,
		fsmgr:     fsmgr,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// ListCharacters returns every persisted character ordered by name.
func (s *Service) ListCharacters(ctx context.Context) ([]*model.Character, error) {
	chars, err := s.database.ListCharacters(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	return chars, nil
}

// GetCharacter returns the character with exactly this name.
func (s *Service) GetCharacter(ctx context.Context, name string) (*model.Character, error) {
	store, err := s.database.Characters(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening character store: %w", err)
	}
	defer store.Close()

	c, err := store.FindCharacterByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("finding character: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("character not found: %s", name)
	}
	return c, nil
}

// GetHistory returns the most recent operations, newest first.
func (s *Service) GetHistory(ctx context.Context, limit int) ([]*model.Operation, error) {
	ops, err := s.database.ListOperations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// ListArchives returns the most recent save archives, newest first.
func (s *Service) ListArchives(ctx context.Context, limit int) ([]*model.SaveArchive, error) {
	archives, err := s.database.ListSaveArchives(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing save archives: %w", err)
	}
	return archives, nil
}
