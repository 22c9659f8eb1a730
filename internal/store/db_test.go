package store

import (
	"testing"
)

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
}

func TestSchemaVersion(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 {
		t.Errorf("SchemaVersion = %d, want 2", v)
	}
}

func TestTablesExist(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	tables := []string{"schema_versions", "memos", "memo_relations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMemosConstraints(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	// Valid insert
	_, err = db.Exec(`
		INSERT INTO memos (uid, content, visibility, state, display_time, created_at, updated_at)
		VALUES ('m1', 'hello', 'PUBLIC', 'NORMAL', 1000, 1000, 1000)
	`)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}

	// Invalid visibility
	_, err = db.Exec(`
		INSERT INTO memos (uid, content, visibility, state, display_time, created_at, updated_at)
		VALUES ('m2', 'hello', 'SECRET', 'NORMAL', 1000, 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for invalid visibility, got nil")
	}

	// Invalid state
	_, err = db.Exec(`
		INSERT INTO memos (uid, content, visibility, state, display_time, created_at, updated_at)
		VALUES ('m3', 'hello', 'PUBLIC', 'DELETED', 1000, 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for invalid state, got nil")
	}

	// Duplicate uid
	_, err = db.Exec(`
		INSERT INTO memos (uid, content, display_time, created_at, updated_at)
		VALUES ('m1', 'again', 1000, 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for duplicate uid, got nil")
	}
}

func TestRelationsConstraints(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	// Unknown memos violate the foreign keys
	_, err = db.Exec(`
		INSERT INTO memo_relations (memo_uid, related_uid, type, created_at)
		VALUES ('nope', 'nada', 'REFERENCE', 1000)
	`)
	if err == nil {
		t.Error("expected foreign key error, got nil")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	// Running migrate again should be a no-op
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 {
		t.Errorf("SchemaVersion after re-migrate = %d, want 2", v)
	}
}

func TestWALMode(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	var mode string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	if err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	// In-memory databases may use "memory" mode instead of WAL
	if mode != "wal" && mode != "memory" {
		t.Errorf("journal_mode = %q, want wal or memory", mode)
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	var fk int
	err = db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}
