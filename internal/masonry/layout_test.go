package masonry

import (
	"reflect"
	"testing"
)

func TestLayoutAppendKeepsPlacements(t *testing.T) {
	l := NewLayout(2, Options{PlaceholderHeight: 100})
	l.SetItems([]string{"a", "b"})
	before := l.Distribution()

	l.SetItems([]string{"a", "b", "c", "d"})
	after := l.Distribution()

	for c, col := range before {
		if !reflect.DeepEqual(after[c][:len(col)], col) {
			t.Errorf("column %d prefix changed: %v -> %v", c, col, after[c])
		}
	}
	if l.Len() != 4 {
		t.Errorf("Len = %d, want 4", l.Len())
	}
}

func TestLayoutHeightChangeDoesNotReshuffle(t *testing.T) {
	l := NewLayout(2, Options{PlaceholderHeight: 100})
	l.SetItems([]string{"a", "b"})
	// a -> col0, b -> col1 with placeholder heights.
	want := Distribution{{0}, {1}}
	if got := l.Distribution(); !reflect.DeepEqual(got, want) {
		t.Fatalf("initial = %v, want %v", got, want)
	}

	// a turns out to be tall: it stays put, column totals update.
	l.SetHeight("a", 400)
	if got := l.Distribution(); !reflect.DeepEqual(got, want) {
		t.Errorf("after SetHeight = %v, want %v", got, want)
	}
	if got := l.ColumnHeights(); !reflect.DeepEqual(got, []float64{400, 100}) {
		t.Errorf("ColumnHeights = %v, want [400 100]", got)
	}

	// Future placements see the updated height.
	l.SetItems([]string{"a", "b", "c", "d"})
	want = Distribution{{0}, {1, 2, 3}}
	if got := l.Distribution(); !reflect.DeepEqual(got, want) {
		t.Errorf("after append = %v, want %v", got, want)
	}
}

func TestLayoutHeightBeforePlacement(t *testing.T) {
	l := NewLayout(2, Options{PlaceholderHeight: 100})
	l.SetHeight("a", 10)
	l.SetItems([]string{"a", "b", "c"})
	// a(10) -> col0, b(100) -> col1, c -> col0 (10 < 100).
	want := Distribution{{0, 2}, {1}}
	if got := l.Distribution(); !reflect.DeepEqual(got, want) {
		t.Errorf("Distribution = %v, want %v", got, want)
	}
}

func TestLayoutColumnChangeRecomputes(t *testing.T) {
	l := NewLayout(2, Options{})
	ids := []string{"A", "B", "C", "D"}
	l.SetHeight("A", 100)
	l.SetHeight("B", 50)
	l.SetHeight("C", 80)
	l.SetHeight("D", 20)
	l.SetItems(ids)

	l.SetColumns(1)
	if got, want := l.Distribution(), (Distribution{{0, 1, 2, 3}}); !reflect.DeepEqual(got, want) {
		t.Errorf("1 column = %v, want %v", got, want)
	}

	l.SetColumns(2)
	if got, want := l.Distribution(), (Distribution{{0, 3}, {1, 2}}); !reflect.DeepEqual(got, want) {
		t.Errorf("2 columns = %v, want %v", got, want)
	}
}

func TestLayoutListMode(t *testing.T) {
	l := NewLayout(3, Options{})
	l.SetItems([]string{"a", "b", "c", "d"})
	l.SetListMode(true)

	if l.Columns() != 1 {
		t.Fatalf("Columns = %d, want 1", l.Columns())
	}
	if got, want := l.Distribution(), (Distribution{{0, 1, 2, 3}}); !reflect.DeepEqual(got, want) {
		t.Errorf("list mode = %v, want %v", got, want)
	}

	// Column count changes are remembered but masked by list mode.
	l.SetColumns(4)
	if l.Columns() != 1 {
		t.Errorf("Columns in list mode = %d, want 1", l.Columns())
	}
	l.SetListMode(false)
	if l.Columns() != 4 {
		t.Errorf("Columns after list mode = %d, want 4", l.Columns())
	}
}

func TestLayoutNonAppendRecomputes(t *testing.T) {
	l := NewLayout(2, Options{PlaceholderHeight: 10})
	l.SetItems([]string{"a", "b", "c"})
	l.SetItems([]string{"x", "y"})

	if got, want := l.Distribution(), (Distribution{{0}, {1}}); !reflect.DeepEqual(got, want) {
		t.Errorf("Distribution = %v, want %v", got, want)
	}
	if l.ID(0) != "x" {
		t.Errorf("ID(0) = %q, want x", l.ID(0))
	}
}

func TestLayoutPrefixHeight(t *testing.T) {
	l := NewLayout(2, Options{PlaceholderHeight: 100})
	l.SetPrefixHeight(150)
	l.SetItems([]string{"a", "b"})
	// col0 starts at 150: a -> col1 (0), b -> col1 (100 < 150).
	if got, want := l.Distribution(), (Distribution{{}, {0, 1}}); !reflect.DeepEqual(got, want) {
		t.Errorf("Distribution = %v, want %v", got, want)
	}
	if l.Height() != 200 {
		t.Errorf("Height = %v, want 200", l.Height())
	}
}
