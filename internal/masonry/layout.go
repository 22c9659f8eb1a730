package masonry

import "slices"

// Layout keeps a distribution up to date as items are appended and their
// real heights become known. Placed items never move between columns
// unless the column count changes; height updates only affect where
// future items go.
//
// A Layout belongs to a single view and is not safe for concurrent use.
type Layout struct {
	opts     Options
	columns  int
	listMode bool

	ids     []string
	where   map[string][]int // id -> item indices
	heights map[string]float64

	dist  Distribution
	colOf []int
	acc   []float64
}

// NewLayout returns an empty layout with the given column count.
func NewLayout(columns int, opts Options) *Layout {
	l := &Layout{
		opts:    opts,
		columns: columns,
		where:   make(map[string][]int),
		heights: make(map[string]float64),
	}
	l.recompute()
	return l
}

// Columns returns the effective column count (1 in list mode).
func (l *Layout) Columns() int {
	if l.listMode || l.columns < 1 {
		return 1
	}
	return l.columns
}

// Distribution returns a copy of the current column assignment.
func (l *Layout) Distribution() Distribution {
	out := make(Distribution, len(l.dist))
	for i, col := range l.dist {
		out[i] = slices.Clone(col)
	}
	return out
}

// ColumnHeights returns the accumulated height of every column.
func (l *Layout) ColumnHeights() []float64 {
	return slices.Clone(l.acc)
}

// Height returns the tallest column, i.e. the content height.
func (l *Layout) Height() float64 {
	var tallest float64
	for _, h := range l.acc {
		if h > tallest {
			tallest = h
		}
	}
	return tallest
}

// Len returns the number of placed items.
func (l *Layout) Len() int { return len(l.ids) }

// ID returns the identity of the item at index i.
func (l *Layout) ID(i int) string { return l.ids[i] }

// SetItems replaces the item list. When the new list only appends to the
// previous one, existing placements are kept and just the tail is placed.
// Any other change recomputes from scratch with the known heights.
func (l *Layout) SetItems(ids []string) {
	if len(ids) >= len(l.ids) && slices.Equal(ids[:len(l.ids)], l.ids) {
		for _, id := range ids[len(l.ids):] {
			l.place(id)
		}
		return
	}
	l.ids = slices.Clone(ids)
	l.recompute()
}

// SetColumns changes the requested column count. A change in the
// effective count triggers a full recompute.
func (l *Layout) SetColumns(n int) {
	before := l.Columns()
	l.columns = n
	if l.Columns() != before {
		l.recompute()
	}
}

// SetListMode forces a single column while enabled.
func (l *Layout) SetListMode(on bool) {
	before := l.Columns()
	l.listMode = on
	if l.Columns() != before {
		l.recompute()
	}
}

// ListMode reports whether list mode is enabled.
func (l *Layout) ListMode() bool { return l.listMode }

// SetPrefixHeight updates the height of the header above column 0.
func (l *Layout) SetPrefixHeight(h float64) {
	if h < 0 {
		h = 0
	}
	l.acc[0] += h - l.opts.PrefixHeight
	l.opts.PrefixHeight = h
}

// SetHeight records the measured height of an item. If the item is
// already placed its column total is corrected in place; it is not moved.
// Negative heights are ignored.
func (l *Layout) SetHeight(id string, h float64) {
	if h < 0 {
		return
	}
	old := heightOf(id, l.heights, l.opts)
	l.heights[id] = h
	for _, i := range l.where[id] {
		l.acc[l.colOf[i]] += h - old
	}
}

func (l *Layout) place(id string) {
	i := len(l.ids)
	l.ids = append(l.ids, id)
	col := shortest(l.acc)
	l.dist[col] = append(l.dist[col], i)
	l.colOf = append(l.colOf, col)
	l.acc[col] += heightOf(id, l.heights, l.opts)
	l.where[id] = append(l.where[id], i)
}

func (l *Layout) recompute() {
	l.dist, l.acc = distribute(l.ids, l.Columns(), l.heights, l.opts)
	l.colOf = make([]int, len(l.ids))
	for c, col := range l.dist {
		for _, i := range col {
			l.colOf[i] = c
		}
	}
	clear(l.where)
	for i, id := range l.ids {
		l.where[id] = append(l.where[id], i)
	}
}
