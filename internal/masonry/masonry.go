package masonry

import "math"

// DefaultPlaceholderHeight is used for items whose rendered height is not
// known yet.
const DefaultPlaceholderHeight = 200

// Distribution maps a column index to the ordered indices of the items
// placed in it.
type Distribution [][]int

// Options tunes a distribution pass.
type Options struct {
	// PlaceholderHeight is charged for items with no measured height.
	// Zero means DefaultPlaceholderHeight.
	PlaceholderHeight float64
	// PrefixHeight is pre-loaded into column 0, which also hosts the
	// header (editor, filter chips) above the first card.
	PrefixHeight float64
}

func (o Options) placeholder() float64 {
	if o.PlaceholderHeight <= 0 {
		return DefaultPlaceholderHeight
	}
	return o.PlaceholderHeight
}

// Distribute assigns each id to the column with the smallest accumulated
// height, lowest index winning ties. Unmeasured ids are charged the
// placeholder height. columns < 1 is treated as a single column.
func Distribute(ids []string, columns int, heights map[string]float64, opts Options) Distribution {
	d, _ := distribute(ids, columns, heights, opts)
	return d
}

func distribute(ids []string, columns int, heights map[string]float64, opts Options) (Distribution, []float64) {
	if columns < 1 {
		columns = 1
	}
	dist := make(Distribution, columns)
	for i := range dist {
		dist[i] = []int{}
	}
	acc := make([]float64, columns)
	acc[0] = opts.PrefixHeight

	for i, id := range ids {
		col := shortest(acc)
		dist[col] = append(dist[col], i)
		acc[col] += heightOf(id, heights, opts)
	}
	return dist, acc
}

func heightOf(id string, heights map[string]float64, opts Options) float64 {
	if h, ok := heights[id]; ok && h >= 0 {
		return h
	}
	return opts.placeholder()
}

// shortest returns the index of the smallest value; the first one wins ties.
func shortest(acc []float64) int {
	best := 0
	for i := 1; i < len(acc); i++ {
		if acc[i] < acc[best] {
			best = i
		}
	}
	return best
}

// ColumnsForWidth picks a column count for a container width. List mode
// always yields one column. Otherwise the width is divided by the minimum
// column width; two or more fit columns are rounded, anything less is a
// single column.
func ColumnsForWidth(width, minColumnWidth int, listMode bool) int {
	if listMode || width <= 0 || minColumnWidth <= 0 {
		return 1
	}
	scale := float64(width) / float64(minColumnWidth)
	if scale < 2 {
		return 1
	}
	return int(math.Round(scale))
}
