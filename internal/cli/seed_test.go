package cli

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/lazypower/memofeed/internal/store"
)

func TestSeedMemos(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	uids, err := seedMemos(db, 40, rand.New(rand.NewPCG(7, 7)), now)
	if err != nil {
		t.Fatalf("seedMemos: %v", err)
	}
	if len(uids) != 40 {
		t.Fatalf("got %d uids, want 40", len(uids))
	}

	res, err := db.ListMemos(store.ListOptions{PageSize: store.MaxPageSize})
	if err != nil {
		t.Fatalf("ListMemos: %v", err)
	}
	if len(res.Memos) != 40 {
		t.Errorf("listed %d top-level memos, want 40", len(res.Memos))
	}
	for _, m := range res.Memos {
		if m.Content == "" {
			t.Errorf("memo %s has no content", m.UID)
		}
		if m.DisplayTime > now.UnixMilli() {
			t.Errorf("memo %s displays in the future", m.UID)
		}
	}
}

func TestSampleContentDeterministic(t *testing.T) {
	a := sampleContent(rand.New(rand.NewPCG(3, 3)))
	b := sampleContent(rand.New(rand.NewPCG(3, 3)))
	if a != b {
		t.Errorf("same seed gave different content:\n%q\n%q", a, b)
	}
}
