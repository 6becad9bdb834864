package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"d2sm/internal/d2sm"
	"d2sm/internal/database/migrations"
	"d2sm/internal/errkind"
	"d2sm/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements d2sm.Database on SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *Queries
	path    string
}

// NewSQLiteDatabase opens the database at path, or an in-memory database
// for ":memory:".
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, queries: NewQueries(db), path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an already configured connection pool.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db, queries: NewQueries(db)}
}

// OpenConnection opens a configured SQLite pool. Every connection to
// ":memory:" is a separate database, so the in-memory pool is limited to a
// single connection.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Characters

func (s *SQLiteDatabase) Characters(ctx context.Context) (d2sm.CharacterStore, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, errkind.Wrap(errkind.Storage, "acquiring connection", err)
	}
	return &characterStore{conn: conn, queries: NewQueries(conn)}, nil
}

func (s *SQLiteDatabase) ListCharacters(ctx context.Context) ([]*model.Character, error) {
	chars, err := s.queries.ListCharacters(ctx)
	if err != nil {
		return nil, errkind.Wrap(errkind.Storage, "listing characters", err)
	}

	result := make([]*model.Character, len(chars))
	for i := range chars {
		result[i] = &chars[i]
	}
	return result, nil
}

// characterStore runs one lookup/insert sequence on a dedicated connection.
type characterStore struct {
	conn    *sql.Conn
	queries *Queries
}

func (c *characterStore) FindCharacterByName(ctx context.Context, name string) (*model.Character, error) {
	char, err := c.queries.GetCharacterByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errkind.Wrap(errkind.Storage, "finding character by name", err)
	}
	return &char, nil
}

func (c *characterStore) InsertCharacter(ctx context.Context, char *model.Character) (*model.Character, bool, error) {
	inserted, err := c.queries.InsertCharacter(ctx, InsertCharacterParams{
		Name:        char.Name,
		Level:       char.Level,
		Class:       char.Class,
		IsExpansion: char.IsExpansion,
		HasDied:     char.HasDied,
		IsHardcore:  char.IsHardcore,
		IsLadder:    char.IsLadder,
		SavedAt:     char.SavedAt,
		CreatedAt:   char.CreatedAt,
		UpdatedAt:   char.UpdatedAt,
	})
	if err != nil {
		return nil, false, errkind.Wrap(errkind.Storage, "inserting character", err)
	}

	// Read back either our row or the one that won the unique constraint.
	stored, err := c.FindCharacterByName(ctx, char.Name)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, errkind.Newf(errkind.Storage, "character %q missing after insert", char.Name)
	}
	return stored, inserted, nil
}

func (c *characterStore) Close() error {
	return c.conn.Close()
}

// Save archives

func (s *SQLiteDatabase) FindSaveArchiveByChecksum(ctx context.Context, checksum string) (*model.SaveArchive, error) {
	a, err := s.queries.GetSaveArchiveByChecksum(ctx, checksum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errkind.Wrap(errkind.Storage, "finding save archive by checksum", err)
	}
	return &a, nil
}

func (s *SQLiteDatabase) FindLatestSaveArchiveByPath(ctx context.Context, path string) (*model.SaveArchive, error) {
	a, err := s.queries.GetLatestSaveArchiveByPath(ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errkind.Wrap(errkind.Storage, "finding save archive by path", err)
	}
	return &a, nil
}

func (s *SQLiteDatabase) CreateSaveArchive(ctx context.Context, archive *model.SaveArchive) error {
	if err := s.queries.InsertSaveArchive(ctx, archive); err != nil {
		return errkind.Wrap(errkind.Storage, "creating save archive", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListSaveArchives(ctx context.Context, limit int) ([]*model.SaveArchive, error) {
	archives, err := s.queries.ListSaveArchives(ctx, int64(limit))
	if err != nil {
		return nil, errkind.Wrap(errkind.Storage, "listing save archives", err)
	}

	result := make([]*model.SaveArchive, len(archives))
	for i := range archives {
		result[i] = &archives[i]
	}
	return result, nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation string, parameters string) (*model.Operation, error) {
	op, err := s.queries.InsertOperation(ctx, InsertOperationParams{
		StartedAt:  time.Now(),
		Operation:  operation,
		Parameters: parameters,
	})
	if err != nil {
		return nil, errkind.Wrap(errkind.Storage, "creating operation", err)
	}
	return &op, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string) error {
	err := s.queries.UpdateOperationFinished(ctx, UpdateOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: time.Now(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return errkind.Wrap(errkind.Storage, "finishing operation", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*model.Operation, error) {
	ops, err := s.queries.ListOperations(ctx, int64(limit))
	if err != nil {
		return nil, errkind.Wrap(errkind.Storage, "listing operations", err)
	}

	result := make([]*model.Operation, len(ops))
	for i := range ops {
		result[i] = &ops[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) MaxOperationID(ctx context.Context) (int64, error) {
	id, err := s.queries.GetMaxOperationID(ctx)
	if err != nil {
		return 0, errkind.Wrap(errkind.Storage, "getting max operation id", err)
	}
	return id, nil
}

// Path returns the database file path, or ":memory:".
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// DB exposes the underlying pool for migrations.
func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

// CheckMigrations verifies the schema is up to date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate applies pending migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// BackupTo writes a complete copy of the database to destPath with
// VACUUM INTO. destPath must not exist.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return errkind.Wrap(errkind.Storage, "backing up database", err)
	}
	return nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ d2sm.Database = (*SQLiteDatabase)(nil)
