package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"d2sm/internal/errkind"
	"d2sm/internal/model"
)

// newTestDB creates a migrated in-memory database.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var testTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func newCharacter(name string, level int64) *model.Character {
	return &model.Character{
		Name:        name,
		Level:       level,
		Class:       "Sorceress",
		IsExpansion: true,
		SavedAt:     time.Unix(1700000000, 0).UTC(),
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
	}
}

func TestSQLiteDatabase_Characters(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nil when character not found", func(t *testing.T) {
		db := newTestDB(t)
		store, err := db.Characters(ctx)
		if err != nil {
			t.Fatalf("Characters() error = %v", err)
		}
		defer store.Close()

		c, err := store.FindCharacterByName(ctx, "Nobody")
		if err != nil {
			t.Fatalf("FindCharacterByName() error = %v", err)
		}
		if c != nil {
			t.Errorf("FindCharacterByName() = %+v, want nil", c)
		}
	})

	t.Run("inserts and finds a character", func(t *testing.T) {
		db := newTestDB(t)
		store, err := db.Characters(ctx)
		if err != nil {
			t.Fatalf("Characters() error = %v", err)
		}
		defer store.Close()

		stored, inserted, err := store.InsertCharacter(ctx, newCharacter("Alina", 81))
		if err != nil {
			t.Fatalf("InsertCharacter() error = %v", err)
		}
		if !inserted {
			t.Error("InsertCharacter() inserted = false, want true")
		}
		if stored.ID == 0 {
			t.Error("InsertCharacter() returned row without id")
		}

		found, err := store.FindCharacterByName(ctx, "Alina")
		if err != nil {
			t.Fatalf("FindCharacterByName() error = %v", err)
		}
		if found == nil {
			t.Fatal("FindCharacterByName() = nil")
		}
		if found.ID != stored.ID || found.Level != 81 || found.Class != "Sorceress" || !found.IsExpansion || found.HasDied {
			t.Errorf("FindCharacterByName() = %+v", found)
		}
		if !found.SavedAt.Equal(time.Unix(1700000000, 0)) {
			t.Errorf("SavedAt = %v", found.SavedAt)
		}
		if !found.CreatedAt.Equal(testTime) || !found.UpdatedAt.Equal(testTime) {
			t.Errorf("CreatedAt/UpdatedAt = %v/%v, want %v", found.CreatedAt, found.UpdatedAt, testTime)
		}
	})

	t.Run("conflicting insert returns the existing row", func(t *testing.T) {
		db := newTestDB(t)
		store, err := db.Characters(ctx)
		if err != nil {
			t.Fatalf("Characters() error = %v", err)
		}
		defer store.Close()

		first, _, err := store.InsertCharacter(ctx, newCharacter("Alina", 81))
		if err != nil {
			t.Fatalf("first InsertCharacter() error = %v", err)
		}
		second, inserted, err := store.InsertCharacter(ctx, newCharacter("Alina", 90))
		if err != nil {
			t.Fatalf("second InsertCharacter() error = %v", err)
		}
		if inserted {
			t.Error("second InsertCharacter() inserted = true, want false")
		}
		if second.ID != first.ID || second.Level != 81 {
			t.Errorf("second InsertCharacter() = %+v, want the first row", second)
		}
	})

	t.Run("names are case-sensitive", func(t *testing.T) {
		db := newTestDB(t)
		store, err := db.Characters(ctx)
		if err != nil {
			t.Fatalf("Characters() error = %v", err)
		}
		defer store.Close()

		if _, _, err := store.InsertCharacter(ctx, newCharacter("Alina", 81)); err != nil {
			t.Fatalf("InsertCharacter() error = %v", err)
		}
		c, err := store.FindCharacterByName(ctx, "alina")
		if err != nil {
			t.Fatalf("FindCharacterByName() error = %v", err)
		}
		if c != nil {
			t.Errorf("FindCharacterByName(alina) = %+v, want nil", c)
		}
	})

	t.Run("closing the store releases its connection", func(t *testing.T) {
		db := newTestDB(t)
		store, err := db.Characters(ctx)
		if err != nil {
			t.Fatalf("Characters() error = %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		// The in-memory pool holds one connection; a leaked store would
		// make this wait until the deadline.
		tctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if _, err := db.ListCharacters(tctx); err != nil {
			t.Errorf("ListCharacters() after Close error = %v", err)
		}
	})
}

func TestSQLiteDatabase_ListCharacters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	store, err := db.Characters(ctx)
	if err != nil {
		t.Fatalf("Characters() error = %v", err)
	}
	for _, name := range []string{"Zed", "Alina", "Mira"} {
		if _, _, err := store.InsertCharacter(ctx, newCharacter(name, 10)); err != nil {
			t.Fatalf("InsertCharacter(%s) error = %v", name, err)
		}
	}
	store.Close()

	chars, err := db.ListCharacters(ctx)
	if err != nil {
		t.Fatalf("ListCharacters() error = %v", err)
	}
	var names []string
	for _, c := range chars {
		names = append(names, c.Name)
	}
	if len(names) != 3 || names[0] != "Alina" || names[1] != "Mira" || names[2] != "Zed" {
		t.Errorf("ListCharacters() names = %v, want sorted", names)
	}
}

func TestSQLiteDatabase_SaveArchives(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and finds an archive", func(t *testing.T) {
		db := newTestDB(t)
		archive := &model.SaveArchive{
			ID:                "a-1",
			Kind:              "character",
			Path:              "/saves/Alina.d2s",
			Checksum:          "abc123",
			EncryptedChecksum: sql.NullString{String: "def456", Valid: true},
			Size:              2912,
			CharacterName:     sql.NullString{String: "Alina", Valid: true},
			Version:           sql.NullInt64{Int64: 99, Valid: true},
			ArchivedAt:        testTime,
		}
		if err := db.CreateSaveArchive(ctx, archive); err != nil {
			t.Fatalf("CreateSaveArchive() error = %v", err)
		}

		found, err := db.FindSaveArchiveByChecksum(ctx, "abc123")
		if err != nil {
			t.Fatalf("FindSaveArchiveByChecksum() error = %v", err)
		}
		if found == nil {
			t.Fatal("FindSaveArchiveByChecksum() = nil")
		}
		if found.VaultKey() != "def456" || found.CharacterName.String != "Alina" || found.Version.Int64 != 99 {
			t.Errorf("FindSaveArchiveByChecksum() = %+v", found)
		}
	})

	t.Run("stash archive has no character fields", func(t *testing.T) {
		db := newTestDB(t)
		archive := &model.SaveArchive{
			ID:         "a-1",
			Kind:       "shared_stash",
			Path:       "/saves/SharedStashSoftCoreV2.d2i",
			Checksum:   "abc123",
			Size:       128,
			ArchivedAt: testTime,
		}
		if err := db.CreateSaveArchive(ctx, archive); err != nil {
			t.Fatalf("CreateSaveArchive() error = %v", err)
		}
		found, err := db.FindSaveArchiveByChecksum(ctx, "abc123")
		if err != nil {
			t.Fatalf("FindSaveArchiveByChecksum() error = %v", err)
		}
		if found.CharacterName.Valid || found.Version.Valid || found.EncryptedChecksum.Valid {
			t.Errorf("FindSaveArchiveByChecksum() = %+v, want null optional fields", found)
		}
		if found.VaultKey() != "abc123" {
			t.Errorf("VaultKey() = %q, want plaintext checksum", found.VaultKey())
		}
	})

	t.Run("returns nil for unknown checksum", func(t *testing.T) {
		db := newTestDB(t)
		found, err := db.FindSaveArchiveByChecksum(ctx, "missing")
		if err != nil {
			t.Fatalf("FindSaveArchiveByChecksum() error = %v", err)
		}
		if found != nil {
			t.Errorf("FindSaveArchiveByChecksum() = %+v, want nil", found)
		}
	})

	t.Run("finds the latest archive of a path", func(t *testing.T) {
		db := newTestDB(t)
		for i, sum := range []string{"old", "new"} {
			err := db.CreateSaveArchive(ctx, &model.SaveArchive{
				ID:         "a-" + sum,
				Kind:       "character",
				Path:       "/saves/Alina.d2s",
				Checksum:   sum,
				Size:       2912,
				ArchivedAt: testTime.Add(time.Duration(i) * time.Hour),
			})
			if err != nil {
				t.Fatalf("CreateSaveArchive() error = %v", err)
			}
		}

		found, err := db.FindLatestSaveArchiveByPath(ctx, "/saves/Alina.d2s")
		if err != nil {
			t.Fatalf("FindLatestSaveArchiveByPath() error = %v", err)
		}
		if found == nil || found.Checksum != "new" {
			t.Errorf("FindLatestSaveArchiveByPath() = %+v, want checksum new", found)
		}

		missing, err := db.FindLatestSaveArchiveByPath(ctx, "/saves/Other.d2s")
		if err != nil {
			t.Fatalf("FindLatestSaveArchiveByPath() error = %v", err)
		}
		if missing != nil {
			t.Errorf("FindLatestSaveArchiveByPath() = %+v, want nil", missing)
		}
	})

	t.Run("lists newest first with limit", func(t *testing.T) {
		db := newTestDB(t)
		for i, id := range []string{"a-1", "a-2", "a-3"} {
			err := db.CreateSaveArchive(ctx, &model.SaveArchive{
				ID:         id,
				Kind:       "character",
				Path:       "/saves/" + id + ".d2s",
				Checksum:   "sum-" + id,
				Size:       1,
				ArchivedAt: testTime.Add(time.Duration(i) * time.Hour),
			})
			if err != nil {
				t.Fatalf("CreateSaveArchive() error = %v", err)
			}
		}

		archives, err := db.ListSaveArchives(ctx, 2)
		if err != nil {
			t.Fatalf("ListSaveArchives() error = %v", err)
		}
		if len(archives) != 2 || archives[0].ID != "a-3" || archives[1].ID != "a-2" {
			t.Errorf("ListSaveArchives() = %v", archives)
		}
	})
}

func TestSQLiteDatabase_Operations(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	max, err := db.MaxOperationID(ctx)
	if err != nil {
		t.Fatalf("MaxOperationID() error = %v", err)
	}
	if max != 0 {
		t.Errorf("MaxOperationID() = %d on empty table, want 0", max)
	}

	var last *model.Operation
	for _, name := range []string{"Import", "Archive", "Import"} {
		op, err := db.CreateOperation(ctx, name, "")
		if err != nil {
			t.Fatalf("CreateOperation() error = %v", err)
		}
		last = op
	}
	if err := db.FinishOperation(ctx, last.ID, "error"); err != nil {
		t.Fatalf("FinishOperation() error = %v", err)
	}

	ops, err := db.ListOperations(ctx, 10)
	if err != nil {
		t.Fatalf("ListOperations() error = %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("ListOperations() returned %d, want 3", len(ops))
	}
	if ops[0].ID != last.ID || ops[0].Status != "error" || !ops[0].FinishedAt.Valid {
		t.Errorf("newest operation = %+v", ops[0])
	}
	if ops[1].Status != "running" || ops[1].FinishedAt.Valid {
		t.Errorf("unfinished operation = %+v", ops[1])
	}

	max, err = db.MaxOperationID(ctx)
	if err != nil {
		t.Fatalf("MaxOperationID() error = %v", err)
	}
	if max != last.ID {
		t.Errorf("MaxOperationID() = %d, want %d", max, last.ID)
	}
}

func TestSQLiteDatabase_BackupTo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	store, err := db.Characters(ctx)
	if err != nil {
		t.Fatalf("Characters() error = %v", err)
	}
	if _, _, err := store.InsertCharacter(ctx, newCharacter("Alina", 81)); err != nil {
		t.Fatalf("InsertCharacter() error = %v", err)
	}
	store.Close()

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := db.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	copyDB, err := NewSQLiteDatabase(dest)
	if err != nil {
		t.Fatalf("opening backup error = %v", err)
	}
	defer copyDB.Close()

	if err := copyDB.CheckMigrations(); err != nil {
		t.Errorf("backup CheckMigrations() error = %v", err)
	}
	chars, err := copyDB.ListCharacters(ctx)
	if err != nil {
		t.Fatalf("ListCharacters() error = %v", err)
	}
	if len(chars) != 1 || chars[0].Name != "Alina" {
		t.Errorf("backup characters = %v", chars)
	}
}

func TestSQLiteDatabase_StorageErrors(t *testing.T) {
	ctx := context.Background()
	diskErr := errors.New("disk I/O error")

	newMock := func(t *testing.T) (*SQLiteDatabase, sqlmock.Sqlmock) {
		t.Helper()
		sqlDB, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock.New() error = %v", err)
		}
		t.Cleanup(func() { sqlDB.Close() })
		return NewSQLiteDatabaseFromDB(sqlDB), mock
	}

	t.Run("lookup failure", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`SELECT .* FROM characters WHERE name = \?`).
			WithArgs("Alina").
			WillReturnError(diskErr)

		store, err := db.Characters(ctx)
		if err != nil {
			t.Fatalf("Characters() error = %v", err)
		}
		defer store.Close()

		_, err = store.FindCharacterByName(ctx, "Alina")
		if !errkind.Is(err, errkind.Storage) || !errors.Is(err, diskErr) {
			t.Errorf("FindCharacterByName() error = %v, want storage error wrapping cause", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("insert failure", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`INSERT INTO characters`).WillReturnError(diskErr)

		store, err := db.Characters(ctx)
		if err != nil {
			t.Fatalf("Characters() error = %v", err)
		}
		defer store.Close()

		_, _, err = store.InsertCharacter(ctx, newCharacter("Alina", 81))
		if !errkind.Is(err, errkind.Storage) {
			t.Errorf("InsertCharacter() error = %v, want storage error", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("insert conflict reads back the winner", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`INSERT INTO characters`).WillReturnResult(sqlmock.NewResult(0, 0))
		rows := sqlmock.NewRows([]string{
			"id", "name", "level", "class", "is_expansion", "has_died", "is_hardcore", "is_ladder",
			"saved_at", "created_at", "updated_at",
		}).AddRow(7, "Alina", 70, "Sorceress", true, false, false, false, testTime, testTime, testTime)
		mock.ExpectQuery(`SELECT .* FROM characters WHERE name = \?`).WithArgs("Alina").WillReturnRows(rows)

		store, err := db.Characters(ctx)
		if err != nil {
			t.Fatalf("Characters() error = %v", err)
		}
		defer store.Close()

		stored, inserted, err := store.InsertCharacter(ctx, newCharacter("Alina", 81))
		if err != nil {
			t.Fatalf("InsertCharacter() error = %v", err)
		}
		if inserted || stored.ID != 7 || stored.Level != 70 {
			t.Errorf("InsertCharacter() = %+v, inserted=%v; want existing row 7", stored, inserted)
		}
	})

	t.Run("list failure", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`SELECT .* FROM characters ORDER BY name`).WillReturnError(diskErr)

		_, err := db.ListCharacters(ctx)
		if !errkind.Is(err, errkind.Storage) {
			t.Errorf("ListCharacters() error = %v, want storage error", err)
		}
	})

	t.Run("archive insert failure", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`INSERT INTO save_archives`).WillReturnError(diskErr)

		err := db.CreateSaveArchive(ctx, &model.SaveArchive{ID: "a-1", Checksum: "abc", ArchivedAt: testTime})
		if !errkind.Is(err, errkind.Storage) {
			t.Errorf("CreateSaveArchive() error = %v, want storage error", err)
		}
	})
}
