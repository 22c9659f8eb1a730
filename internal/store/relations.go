package store

import (
	"fmt"
	"time"
)

// Relation types.
const (
	RelationReference = "REFERENCE"
	RelationComment   = "COMMENT"
)

// Relations are the memos linked to one memo by REFERENCE relations.
type Relations struct {
	// Referencing are the memos this memo points at.
	Referencing []Memo `json:"referencing"`
	// ReferencedBy are the memos that point at this memo.
	ReferencedBy []Memo `json:"referenced_by"`
}

// AddReference records that memoUID references relatedUID. Adding the
// same reference twice is a no-op.
func (db *DB) AddReference(memoUID, relatedUID string) error {
	if memoUID == relatedUID {
		return fmt.Errorf("add reference: %w: memo cannot reference itself", ErrInvalidInput)
	}
	for _, uid := range []string{memoUID, relatedUID} {
		if _, err := db.GetMemo(uid); err != nil {
			return fmt.Errorf("add reference: %w", err)
		}
	}
	_, err := db.Exec(`
		INSERT OR IGNORE INTO memo_relations (memo_uid, related_uid, type, created_at)
		VALUES (?, ?, ?, ?)
	`, memoUID, relatedUID, RelationReference, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("add reference: %w", err)
	}
	return nil
}

// RemoveReference deletes a reference. Returns ErrNotFound if it did not exist.
func (db *DB) RemoveReference(memoUID, relatedUID string) error {
	result, err := db.Exec(`
		DELETE FROM memo_relations WHERE memo_uid = ? AND related_uid = ? AND type = ?
	`, memoUID, relatedUID, RelationReference)
	if err != nil {
		return fmt.Errorf("remove reference: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("reference %s -> %s: %w", memoUID, relatedUID, ErrNotFound)
	}
	return nil
}

// ListRelations returns the references in both directions for a memo.
// Archived memos are left out.
func (db *DB) ListRelations(uid string) (*Relations, error) {
	if _, err := db.GetMemo(uid); err != nil {
		return nil, err
	}

	referencing, err := db.relatedMemos(`
		SELECT `+prefixed("m.")+` FROM memo_relations r
		JOIN memos m ON m.uid = r.related_uid
		WHERE r.memo_uid = ? AND r.type = ? AND m.state = 'NORMAL'
		ORDER BY r.created_at, m.id
	`, uid)
	if err != nil {
		return nil, fmt.Errorf("list referencing: %w", err)
	}

	referencedBy, err := db.relatedMemos(`
		SELECT `+prefixed("m.")+` FROM memo_relations r
		JOIN memos m ON m.uid = r.memo_uid
		WHERE r.related_uid = ? AND r.type = ? AND m.state = 'NORMAL'
		ORDER BY r.created_at, m.id
	`, uid)
	if err != nil {
		return nil, fmt.Errorf("list referenced by: %w", err)
	}

	return &Relations{Referencing: referencing, ReferencedBy: referencedBy}, nil
}

func (db *DB) relatedMemos(query, uid string) ([]Memo, error) {
	rows, err := db.Query(query, uid, RelationReference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemos(rows)
}
