package database

import (
	"context"
	"database/sql"
	"time"

	"d2sm/internal/model"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the SQL of the metadata database, bound to one DBTX.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Characters

const characterColumns = `id, name, level, class, is_expansion, has_died, is_hardcore, is_ladder, saved_at, created_at, updated_at`

func scanCharacter(row rowScanner) (model.Character, error) {
	var c model.Character
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Level,
		&c.Class,
		&c.IsExpansion,
		&c.HasDied,
		&c.IsHardcore,
		&c.IsLadder,
		&c.SavedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

const getCharacterByName = `SELECT ` + characterColumns + ` FROM characters WHERE name = ?`

func (q *Queries) GetCharacterByName(ctx context.Context, name string) (model.Character, error) {
	return scanCharacter(q.db.QueryRowContext(ctx, getCharacterByName, name))
}

// insertCharacter affects no row when the name is already taken.
const insertCharacter = `INSERT INTO characters (
    name, level, class, is_expansion, has_died, is_hardcore, is_ladder, saved_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO NOTHING`

type InsertCharacterParams struct {
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

// InsertCharacter reports whether a row was inserted.
func (q *Queries) InsertCharacter(ctx context.Context, arg InsertCharacterParams) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertCharacter,
		arg.Name,
		arg.Level,
		arg.Class,
		arg.IsExpansion,
		arg.HasDied,
		arg.IsHardcore,
		arg.IsLadder,
		arg.SavedAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const listCharacters = `SELECT ` + characterColumns + ` FROM characters ORDER BY name`

func (q *Queries) ListCharacters(ctx context.Context) ([]model.Character, error) {
	rows, err := q.db.QueryContext(ctx, listCharacters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Save archives

const saveArchiveColumns = `id, kind, path, checksum, encrypted_checksum, size, character_name, version, archived_at`

func scanSaveArchive(row rowScanner) (model.SaveArchive, error) {
	var a model.SaveArchive
	err := row.Scan(
		&a.ID,
		&a.Kind,
		&a.Path,
		&a.Checksum,
		&a.EncryptedChecksum,
		&a.Size,
		&a.CharacterName,
		&a.Version,
		&a.ArchivedAt,
	)
	return a, err
}

const getSaveArchiveByChecksum = `SELECT ` + saveArchiveColumns + ` FROM save_archives WHERE checksum = ?`

func (q *Queries) GetSaveArchiveByChecksum(ctx context.Context, checksum string) (model.SaveArchive, error) {
	return scanSaveArchive(q.db.QueryRowContext(ctx, getSaveArchiveByChecksum, checksum))
}

const getLatestSaveArchiveByPath = `SELECT ` + saveArchiveColumns + ` FROM save_archives
WHERE path = ?
ORDER BY archived_at DESC, id DESC
LIMIT 1`

func (q *Queries) GetLatestSaveArchiveByPath(ctx context.Context, path string) (model.SaveArchive, error) {
	return scanSaveArchive(q.db.QueryRowContext(ctx, getLatestSaveArchiveByPath, path))
}

const insertSaveArchive = `INSERT INTO save_archives (` + saveArchiveColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSaveArchive(ctx context.Context, a *model.SaveArchive) error {
	_, err := q.db.ExecContext(ctx, insertSaveArchive,
		a.ID,
		a.Kind,
		a.Path,
		a.Checksum,
		a.EncryptedChecksum,
		a.Size,
		a.CharacterName,
		a.Version,
		a.ArchivedAt,
	)
	return err
}

const listSaveArchives = `SELECT ` + saveArchiveColumns + ` FROM save_archives
ORDER BY archived_at DESC, id DESC
LIMIT ?`

func (q *Queries) ListSaveArchives(ctx context.Context, limit int64) ([]model.SaveArchive, error) {
	rows, err := q.db.QueryContext(ctx, listSaveArchives, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.SaveArchive
	for rows.Next() {
		a, err := scanSaveArchive(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Operations

const operationColumns = `id, started_at, finished_at, operation, parameters, status`

func scanOperation(row rowScanner) (model.Operation, error) {
	var op model.Operation
	err := row.Scan(
		&op.ID,
		&op.StartedAt,
		&op.FinishedAt,
		&op.Operation,
		&op.Parameters,
		&op.Status,
	)
	return op, err
}

const insertOperation = `INSERT INTO import_operations (started_at, operation, parameters, status)
VALUES (?, ?, ?, 'running')`

type InsertOperationParams struct {
	StartedAt  time.Time
	Operation  string
	Parameters string
}

func (q *Queries) InsertOperation(ctx context.Context, arg InsertOperationParams) (model.Operation, error) {
	res, err := q.db.ExecContext(ctx, insertOperation, arg.StartedAt, arg.Operation, arg.Parameters)
	if err != nil {
		return model.Operation{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Operation{}, err
	}
	return model.Operation{
		ID:         id,
		StartedAt:  arg.StartedAt,
		Operation:  arg.Operation,
		Parameters: arg.Parameters,
		Status:     "running",
	}, nil
}

const updateOperationFinished = `UPDATE import_operations SET finished_at = ?, status = ? WHERE id = ?`

type UpdateOperationFinishedParams struct {
	FinishedAt sql.NullTime
	Status     string
	ID         int64
}

func (q *Queries) UpdateOperationFinished(ctx context.Context, arg UpdateOperationFinishedParams) error {
	_, err := q.db.ExecContext(ctx, updateOperationFinished, arg.FinishedAt, arg.Status, arg.ID)
	return err
}

const listOperations = `SELECT ` + operationColumns + ` FROM import_operations ORDER BY id DESC LIMIT ?`

func (q *Queries) ListOperations(ctx context.Context, limit int64) ([]model.Operation, error) {
	rows, err := q.db.QueryContext(ctx, listOperations, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMaxOperationID = `SELECT COALESCE(MAX(id), 0) FROM import_operations`

func (q *Queries) GetMaxOperationID(ctx context.Context) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, getMaxOperationID).Scan(&id)
	return id, err
}
