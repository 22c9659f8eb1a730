package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Order is a supported sort order for memo listings.
type Order string

const (
	OrderDisplayTimeDesc Order = "display_time desc"
	OrderDisplayTimeAsc  Order = "display_time asc"
	OrderPinnedFirst     Order = "pinned desc, display_time desc"
)

// DefaultOrder is used when no order is given.
const DefaultOrder = OrderDisplayTimeDesc

// Page size bounds.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ParseOrder normalizes an order_by string. An empty string yields
// DefaultOrder.
func ParseOrder(s string) (Order, error) {
	norm := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	norm = strings.ReplaceAll(norm, " ,", ",")
	switch Order(norm) {
	case "":
		return DefaultOrder, nil
	case OrderDisplayTimeDesc, OrderDisplayTimeAsc, OrderPinnedFirst:
		return Order(norm), nil
	}
	return "", fmt.Errorf("%w: unsupported order %q", ErrInvalidInput, s)
}

func (o Order) orderBy() string {
	switch o {
	case OrderDisplayTimeAsc:
		return "display_time ASC, id ASC"
	case OrderPinnedFirst:
		return "pinned DESC, display_time DESC, id DESC"
	}
	return "display_time DESC, id DESC"
}

// after renders the keyset condition for rows that sort after c.
func (o Order) after(c cursor) (string, []any) {
	switch o {
	case OrderDisplayTimeAsc:
		return "(display_time, id) > (?, ?)", []any{c.DisplayTime, c.ID}
	case OrderPinnedFirst:
		return "(pinned, display_time, id) < (?, ?, ?)", []any{c.Pinned, c.DisplayTime, c.ID}
	}
	return "(display_time, id) < (?, ?)", []any{c.DisplayTime, c.ID}
}

// cursor is the sort key of the last row on a page. Tokens are opaque to
// clients and bound to the order they were issued for.
type cursor struct {
	Order       Order `json:"o"`
	Pinned      int   `json:"p"`
	DisplayTime int64 `json:"t"`
	ID          int64 `json:"i"`
}

func encodeCursor(o Order, m Memo) string {
	b, _ := json.Marshal(cursor{Order: o, Pinned: boolInt(m.Pinned), DisplayTime: m.DisplayTime, ID: m.ID})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(token string, o Order) (cursor, error) {
	var c cursor
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.Order != o {
		return c, fmt.Errorf("%w: issued for order %q", ErrInvalidCursor, c.Order)
	}
	return c, nil
}

// ListOptions controls ListMemos.
type ListOptions struct {
	Filter    Filter
	OrderBy   Order
	State     string
	PageSize  int
	PageToken string
}

// ListResult is one page of memos.
type ListResult struct {
	Memos         []Memo `json:"memos"`
	NextPageToken string `json:"next_page_token"`
}

// ListMemos returns one page of top-level memos. NextPageToken is empty
// on the last page.
func (db *DB) ListMemos(opts ListOptions) (*ListResult, error) {
	order := opts.OrderBy
	if order == "" {
		order = DefaultOrder
	}
	state := opts.State
	if state == "" {
		state = StateNormal
	}
	if !validState(state) {
		return nil, fmt.Errorf("list memos: %w: state %q", ErrInvalidInput, state)
	}
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	conds := []string{"parent_uid IS NULL", "state = ?"}
	args := []any{state}

	fc, fa := opts.Filter.where()
	conds = append(conds, fc...)
	args = append(args, fa...)

	if opts.PageToken != "" {
		c, err := decodeCursor(opts.PageToken, order)
		if err != nil {
			return nil, fmt.Errorf("list memos: %w", err)
		}
		cond, ca := order.after(c)
		conds = append(conds, cond)
		args = append(args, ca...)
	}

	query := `SELECT ` + memoColumns + ` FROM memos WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY ` + order.orderBy() + ` LIMIT ?`
	args = append(args, size+1)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memos: %w", err)
	}
	defer rows.Close()

	memos, err := scanMemos(rows)
	if err != nil {
		return nil, fmt.Errorf("list memos: %w", err)
	}

	result := &ListResult{Memos: memos}
	if len(memos) > size {
		result.Memos = memos[:size]
		result.NextPageToken = encodeCursor(order, memos[size-1])
	}
	return result, nil
}
