package store

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func seedMemos(t *testing.T, db *DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		mustCreate(t, db, &Memo{Content: fmt.Sprintf("memo %d", i), DisplayTime: int64(i) * 1000})
	}
}

func TestListMemosPagination(t *testing.T) {
	db := testDB(t)
	seedMemos(t, db, 25)

	var all []Memo
	token := ""
	pages := 0
	for {
		res, err := db.ListMemos(ListOptions{PageSize: 10, PageToken: token})
		if err != nil {
			t.Fatalf("ListMemos page %d: %v", pages, err)
		}
		all = append(all, res.Memos...)
		pages++
		if res.NextPageToken == "" {
			break
		}
		token = res.NextPageToken
		if pages > 5 {
			t.Fatal("pagination did not terminate")
		}
	}

	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if len(all) != 25 {
		t.Fatalf("got %d memos, want 25", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].DisplayTime >= all[i-1].DisplayTime {
			t.Fatalf("not descending at %d: %d after %d", i, all[i].DisplayTime, all[i-1].DisplayTime)
		}
	}
}

func TestListMemosExactPageHasNoToken(t *testing.T) {
	db := testDB(t)
	seedMemos(t, db, 10)

	res, err := db.ListMemos(ListOptions{PageSize: 10})
	if err != nil {
		t.Fatalf("ListMemos: %v", err)
	}
	if len(res.Memos) != 10 || res.NextPageToken != "" {
		t.Errorf("got %d memos, token %q; want 10 and no token", len(res.Memos), res.NextPageToken)
	}
}

func TestListMemosEqualDisplayTimes(t *testing.T) {
	db := testDB(t)
	for i := 0; i < 5; i++ {
		mustCreate(t, db, &Memo{Content: fmt.Sprintf("same %d", i), DisplayTime: 5000})
	}

	seen := make(map[string]bool)
	token := ""
	for {
		res, err := db.ListMemos(ListOptions{PageSize: 2, PageToken: token})
		if err != nil {
			t.Fatalf("ListMemos: %v", err)
		}
		for _, m := range res.Memos {
			if seen[m.UID] {
				t.Fatalf("memo %s returned twice", m.UID)
			}
			seen[m.UID] = true
		}
		if res.NextPageToken == "" {
			break
		}
		token = res.NextPageToken
	}
	if len(seen) != 5 {
		t.Errorf("saw %d memos, want 5", len(seen))
	}
}

func TestListMemosOrders(t *testing.T) {
	db := testDB(t)
	seedMemos(t, db, 3)
	pinned := mustCreate(t, db, &Memo{Content: "old but pinned", DisplayTime: 1, Pinned: true})

	res, err := db.ListMemos(ListOptions{OrderBy: OrderDisplayTimeAsc})
	if err != nil {
		t.Fatalf("ListMemos asc: %v", err)
	}
	if res.Memos[0].UID != pinned.UID || res.Memos[3].Content != "memo 3" {
		t.Errorf("asc order wrong: first %q last %q", res.Memos[0].Content, res.Memos[3].Content)
	}

	res, err = db.ListMemos(ListOptions{OrderBy: OrderPinnedFirst, PageSize: 2})
	if err != nil {
		t.Fatalf("ListMemos pinned: %v", err)
	}
	if res.Memos[0].UID != pinned.UID || res.Memos[1].Content != "memo 3" {
		t.Errorf("pinned order wrong: %q, %q", res.Memos[0].Content, res.Memos[1].Content)
	}

	next, err := db.ListMemos(ListOptions{OrderBy: OrderPinnedFirst, PageSize: 2, PageToken: res.NextPageToken})
	if err != nil {
		t.Fatalf("ListMemos pinned page 2: %v", err)
	}
	if len(next.Memos) != 2 || next.Memos[0].Content != "memo 2" || next.Memos[1].Content != "memo 1" {
		t.Errorf("pinned page 2 = %+v", next.Memos)
	}
}

func TestListMemosState(t *testing.T) {
	db := testDB(t)
	mustCreate(t, db, &Memo{Content: "live"})
	mustCreate(t, db, &Memo{Content: "gone", State: StateArchived})

	res, err := db.ListMemos(ListOptions{State: StateArchived})
	if err != nil {
		t.Fatalf("ListMemos: %v", err)
	}
	if len(res.Memos) != 1 || res.Memos[0].Content != "gone" {
		t.Errorf("archived listing = %+v", res.Memos)
	}
	if _, err := db.ListMemos(ListOptions{State: "LOST"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad state err = %v, want ErrInvalidInput", err)
	}
}

func TestListMemosBadToken(t *testing.T) {
	db := testDB(t)
	seedMemos(t, db, 3)

	if _, err := db.ListMemos(ListOptions{PageToken: "!!not-base64"}); !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("garbage token err = %v, want ErrInvalidCursor", err)
	}

	res, err := db.ListMemos(ListOptions{PageSize: 1})
	if err != nil {
		t.Fatalf("ListMemos: %v", err)
	}
	_, err = db.ListMemos(ListOptions{PageSize: 1, PageToken: res.NextPageToken, OrderBy: OrderDisplayTimeAsc})
	if !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("token reused across orders err = %v, want ErrInvalidCursor", err)
	}
}

func TestListMemosFilters(t *testing.T) {
	db := testDB(t)
	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()

	mustCreate(t, db, &Memo{Content: "learning #go/generics", Visibility: VisibilityPublic, DisplayTime: 1000})
	mustCreate(t, db, &Memo{Content: "#golang is not #go", DisplayTime: 2000})
	mustCreate(t, db, &Memo{Content: "see https://example.com", DisplayTime: day})
	mustCreate(t, db, &Memo{Content: "- [ ] 100% done_ish", Pinned: true, DisplayTime: 3000})
	mustCreate(t, db, &Memo{Content: "```\ncode\n```", Creator: "bob", DisplayTime: 4000})

	tests := []struct {
		filter string
		want   int
	}{
		{"", 5},
		{"tagSearch:go", 2},
		{"tagSearch:golang", 1},
		{"tagSearch:go%2Fgenerics", 1},
		{"visibility:PUBLIC", 1},
		{"visibility:PUBLIC,visibility:PRIVATE", 5},
		{"contentSearch:100%25", 1},
		{"contentSearch:_", 1},
		{"displayTime:2024-03-01", 1},
		{"pinned:true", 1},
		{"pinned:false", 4},
		{"creator:bob", 1},
		{"property.hasLink", 1},
		{"property.hasTaskList", 1},
		{"property.hasCode", 1},
		{"property.hasLink:false", 4},
		{"property.hasLink:false,property.hasCode:false", 3},
		{"property.hasTaskList:true,pinned:true", 1},
		{"tagSearch:go,visibility:PUBLIC", 1},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			f, err := ParseFilter(tt.filter)
			if err != nil {
				t.Fatalf("ParseFilter: %v", err)
			}
			res, err := db.ListMemos(ListOptions{Filter: f})
			if err != nil {
				t.Fatalf("ListMemos: %v", err)
			}
			if len(res.Memos) != tt.want {
				t.Errorf("got %d memos, want %d", len(res.Memos), tt.want)
			}
		})
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in   string
		want Order
		ok   bool
	}{
		{"", DefaultOrder, true},
		{"display_time desc", OrderDisplayTimeDesc, true},
		{"DISPLAY_TIME ASC", OrderDisplayTimeAsc, true},
		{"pinned desc ,  display_time desc", OrderPinnedFirst, true},
		{"content asc", "", false},
	}
	for _, tt := range tests {
		got, err := ParseOrder(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParseOrder(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseOrder(%q) err = %v, want ErrInvalidInput", tt.in, err)
		}
	}
}
