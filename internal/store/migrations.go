package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "memos: notes with derived filter properties",
		SQL: `
CREATE TABLE memos (
    id             INTEGER PRIMARY KEY,
    uid            TEXT NOT NULL UNIQUE,
    creator        TEXT NOT NULL DEFAULT '',
    content        TEXT NOT NULL,
    visibility     TEXT NOT NULL DEFAULT 'PRIVATE' CHECK (visibility IN ('PUBLIC', 'PROTECTED', 'PRIVATE')),
    state          TEXT NOT NULL DEFAULT 'NORMAL' CHECK (state IN ('NORMAL', 'ARCHIVED')),
    pinned         INTEGER NOT NULL DEFAULT 0,
    parent_uid     TEXT,

    -- Derived from content on every write
    tags           TEXT NOT NULL DEFAULT '[]',
    has_link       INTEGER NOT NULL DEFAULT 0,
    has_task_list  INTEGER NOT NULL DEFAULT 0,
    has_code       INTEGER NOT NULL DEFAULT 0,

    display_time   INTEGER NOT NULL,
    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL,

    FOREIGN KEY (parent_uid) REFERENCES memos(uid) ON DELETE CASCADE
);

CREATE INDEX idx_memos_display ON memos(state, display_time DESC, id DESC);
CREATE INDEX idx_memos_parent  ON memos(parent_uid);
CREATE INDEX idx_memos_creator ON memos(creator);
`,
	},
	{
		Version:     2,
		Description: "memo_relations: references and comments between memos",
		SQL: `
CREATE TABLE memo_relations (
    memo_uid       TEXT NOT NULL,
    related_uid    TEXT NOT NULL,
    type           TEXT NOT NULL CHECK (type IN ('REFERENCE', 'COMMENT')),
    created_at     INTEGER NOT NULL,

    PRIMARY KEY (memo_uid, related_uid, type),
    FOREIGN KEY (memo_uid) REFERENCES memos(uid) ON DELETE CASCADE,
    FOREIGN KEY (related_uid) REFERENCES memos(uid) ON DELETE CASCADE
);

CREATE INDEX idx_relations_related ON memo_relations(related_uid);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
