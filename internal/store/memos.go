package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/memofeed/internal/markdown"
)

// Visibility values.
const (
	VisibilityPublic    = "PUBLIC"
	VisibilityProtected = "PROTECTED"
	VisibilityPrivate   = "PRIVATE"
)

// State values.
const (
	StateNormal   = "NORMAL"
	StateArchived = "ARCHIVED"
)

// Property holds flags derived from a memo's content.
type Property struct {
	HasLink     bool `json:"has_link"`
	HasTaskList bool `json:"has_task_list"`
	HasCode     bool `json:"has_code"`
}

// Memo is a single note.
type Memo struct {
	ID          int64    `json:"-"`
	UID         string   `json:"uid"`
	Creator     string   `json:"creator"`
	Content     string   `json:"content"`
	Visibility  string   `json:"visibility"`
	State       string   `json:"state"`
	Pinned      bool     `json:"pinned"`
	ParentUID   string   `json:"parent_uid,omitempty"`
	Tags        []string `json:"tags"`
	Property    Property `json:"property"`
	DisplayTime int64    `json:"display_time"`
	CreatedAt   int64    `json:"created_at"`
	UpdatedAt   int64    `json:"updated_at"`
}

// MemoUpdate lists the fields to change; nil fields are left alone.
type MemoUpdate struct {
	Content     *string `json:"content,omitempty"`
	Visibility  *string `json:"visibility,omitempty"`
	State       *string `json:"state,omitempty"`
	Pinned      *bool   `json:"pinned,omitempty"`
	DisplayTime *int64  `json:"display_time,omitempty"`
}

func validVisibility(v string) bool {
	return v == VisibilityPublic || v == VisibilityProtected || v == VisibilityPrivate
}

func validState(s string) bool {
	return s == StateNormal || s == StateArchived
}

// derive refreshes tags and properties from the content.
func (m *Memo) derive() {
	p := markdown.Inspect(m.Content)
	m.Tags = p.Tags
	if m.Tags == nil {
		m.Tags = []string{}
	}
	m.Property = Property{HasLink: p.HasLink, HasTaskList: p.HasTaskList, HasCode: p.HasCode}
}

// CreateMemo inserts a memo, filling in the uid, defaults and derived
// properties. A memo with a ParentUID is a comment and also gets a
// COMMENT relation to its parent.
func (db *DB) CreateMemo(m *Memo) error {
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("create memo: %w: content required", ErrInvalidInput)
	}
	if m.UID == "" {
		m.UID = uuid.NewString()
	}
	if m.Visibility == "" {
		m.Visibility = VisibilityPrivate
	}
	if m.State == "" {
		m.State = StateNormal
	}
	if !validVisibility(m.Visibility) {
		return fmt.Errorf("create memo: %w: visibility %q", ErrInvalidInput, m.Visibility)
	}
	if !validState(m.State) {
		return fmt.Errorf("create memo: %w: state %q", ErrInvalidInput, m.State)
	}

	now := time.Now().UnixMilli()
	if m.DisplayTime == 0 {
		m.DisplayTime = now
	}
	m.derive()
	tags, _ := json.Marshal(m.Tags)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("create memo: %w", err)
	}
	defer tx.Rollback()

	if m.ParentUID != "" {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM memos WHERE uid = ?`, m.ParentUID).Scan(&exists); err != nil {
			return fmt.Errorf("create memo: check parent: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("create memo: parent %s: %w", m.ParentUID, ErrNotFound)
		}
	}

	result, err := tx.Exec(`
		INSERT INTO memos (uid, creator, content, visibility, state, pinned, parent_uid,
			tags, has_link, has_task_list, has_code, display_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?)
	`, m.UID, m.Creator, m.Content, m.Visibility, m.State, boolInt(m.Pinned), m.ParentUID,
		string(tags), boolInt(m.Property.HasLink), boolInt(m.Property.HasTaskList), boolInt(m.Property.HasCode),
		m.DisplayTime, now, now)
	if err != nil {
		return fmt.Errorf("create memo: %w", err)
	}

	if m.ParentUID != "" {
		if _, err := tx.Exec(`
			INSERT INTO memo_relations (memo_uid, related_uid, type, created_at)
			VALUES (?, ?, ?, ?)
		`, m.UID, m.ParentUID, RelationComment, now); err != nil {
			return fmt.Errorf("create memo: comment relation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create memo: %w", err)
	}

	m.ID, _ = result.LastInsertId()
	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

var memoFields = []string{"id", "uid", "creator", "content", "visibility", "state", "pinned", "parent_uid",
	"tags", "has_link", "has_task_list", "has_code", "display_time", "created_at", "updated_at"}

var memoColumns = strings.Join(memoFields, ", ")

// prefixed qualifies the memo columns with a table alias.
func prefixed(alias string) string {
	cols := make([]string, len(memoFields))
	for i, f := range memoFields {
		cols[i] = alias + f
	}
	return strings.Join(cols, ", ")
}

// GetMemo returns a memo by uid, or ErrNotFound.
func (db *DB) GetMemo(uid string) (*Memo, error) {
	row := db.QueryRow(`SELECT `+memoColumns+` FROM memos WHERE uid = ?`, uid)
	m, err := scanMemo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memo %s: %w", uid, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get memo: %w", err)
	}
	return m, nil
}

// UpdateMemo applies the non-nil fields of u and returns the updated memo.
// Content changes re-derive tags and properties.
func (db *DB) UpdateMemo(uid string, u MemoUpdate) (*Memo, error) {
	m, err := db.GetMemo(uid)
	if err != nil {
		return nil, err
	}

	if u.Content != nil {
		if strings.TrimSpace(*u.Content) == "" {
			return nil, fmt.Errorf("update memo: %w: content required", ErrInvalidInput)
		}
		m.Content = *u.Content
		m.derive()
	}
	if u.Visibility != nil {
		if !validVisibility(*u.Visibility) {
			return nil, fmt.Errorf("update memo: %w: visibility %q", ErrInvalidInput, *u.Visibility)
		}
		m.Visibility = *u.Visibility
	}
	if u.State != nil {
		if !validState(*u.State) {
			return nil, fmt.Errorf("update memo: %w: state %q", ErrInvalidInput, *u.State)
		}
		m.State = *u.State
	}
	if u.Pinned != nil {
		m.Pinned = *u.Pinned
	}
	if u.DisplayTime != nil {
		m.DisplayTime = *u.DisplayTime
	}

	m.UpdatedAt = time.Now().UnixMilli()
	tags, _ := json.Marshal(m.Tags)
	_, err = db.Exec(`
		UPDATE memos SET content = ?, visibility = ?, state = ?, pinned = ?, tags = ?,
			has_link = ?, has_task_list = ?, has_code = ?, display_time = ?, updated_at = ?
		WHERE id = ?
	`, m.Content, m.Visibility, m.State, boolInt(m.Pinned), string(tags),
		boolInt(m.Property.HasLink), boolInt(m.Property.HasTaskList), boolInt(m.Property.HasCode),
		m.DisplayTime, m.UpdatedAt, m.ID)
	if err != nil {
		return nil, fmt.Errorf("update memo: %w", err)
	}
	return m, nil
}

// DeleteMemo removes a memo together with its comments and relations.
func (db *DB) DeleteMemo(uid string) error {
	result, err := db.Exec(`DELETE FROM memos WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("delete memo: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("memo %s: %w", uid, ErrNotFound)
	}
	return nil
}

// ListComments returns the comments on a memo, oldest first.
func (db *DB) ListComments(parentUID string) ([]Memo, error) {
	if _, err := db.GetMemo(parentUID); err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT `+memoColumns+` FROM memos
		WHERE parent_uid = ? AND state = 'NORMAL'
		ORDER BY display_time, id
	`, parentUID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	return scanMemos(rows)
}

// CountMemos returns the number of top-level memos in the given state.
func (db *DB) CountMemos(state string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM memos WHERE parent_uid IS NULL AND state = ?`, state).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count memos: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemo(r rowScanner) (*Memo, error) {
	var m Memo
	var pinned, hasLink, hasTask, hasCode int
	var parent sql.NullString
	var tags string
	if err := r.Scan(&m.ID, &m.UID, &m.Creator, &m.Content, &m.Visibility, &m.State, &pinned, &parent,
		&tags, &hasLink, &hasTask, &hasCode, &m.DisplayTime, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Pinned = pinned != 0
	m.ParentUID = parent.String
	m.Property = Property{HasLink: hasLink != 0, HasTaskList: hasTask != 0, HasCode: hasCode != 0}
	if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil || m.Tags == nil {
		m.Tags = []string{}
	}
	return &m, nil
}

func scanMemos(rows *sql.Rows) ([]Memo, error) {
	memos := []Memo{}
	for rows.Next() {
		m, err := scanMemo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memo: %w", err)
		}
		memos = append(memos, *m)
	}
	return memos, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
