package extract

import (
	"sort"
	"strings"

	"github.com/receiptwise/expense-tracker/internal/recognize"
)

// textLine is one reading-order line of the document: fragments joined
// left-to-right, with the indexes of the source fragments.
type textLine struct {
	Text      string
	Fragments []int
}

// groupLines arranges fragments into top-to-bottom reading order. Three
// regimes, in preference order: the recognizer's own line indexes, clustering
// by bounding-box vertical midpoint, and finally the given fragment order
// (one fragment per line).
func groupLines(frags []recognize.Fragment) []textLine {
	if len(frags) == 0 {
		return nil
	}

	indexed := true
	positioned := true
	for _, f := range frags {
		if f.Line < 0 {
			indexed = false
		}
		if len(f.Vertices) == 0 {
			positioned = false
		}
	}

	switch {
	case indexed:
		return groupByIndex(frags)
	case positioned:
		return groupByGeometry(frags)
	default:
		lines := make([]textLine, 0, len(frags))
		for i, f := range frags {
			t := strings.TrimSpace(f.Text)
			if t == "" {
				continue
			}
			lines = append(lines, textLine{Text: t, Fragments: []int{i}})
		}
		return lines
	}
}

func groupByIndex(frags []recognize.Fragment) []textLine {
	byLine := map[int][]int{}
	var order []int
	for i, f := range frags {
		if _, ok := byLine[f.Line]; !ok {
			order = append(order, f.Line)
		}
		byLine[f.Line] = append(byLine[f.Line], i)
	}
	sort.Ints(order)

	var lines []textLine
	for _, ln := range order {
		idx := byLine[ln]
		sort.SliceStable(idx, func(a, b int) bool {
			return minX(frags[idx[a]]) < minX(frags[idx[b]])
		})
		lines = appendLine(lines, frags, idx)
	}
	return lines
}

func groupByGeometry(frags []recognize.Fragment) []textLine {
	order := make([]int, len(frags))
	for i := range frags {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return midY(frags[order[a]]) < midY(frags[order[b]])
	})

	// Tolerance is a fraction of the median fragment height, so tall and
	// small print cluster equally well.
	heights := make([]int64, 0, len(frags))
	for _, f := range frags {
		if h := height(f); h > 0 {
			heights = append(heights, h)
		}
	}
	tol := int64(8)
	if len(heights) > 0 {
		sort.Slice(heights, func(a, b int) bool { return heights[a] < heights[b] })
		if t := heights[len(heights)/2] * 6 / 10; t > 0 {
			tol = t
		}
	}

	var lines []textLine
	var current []int
	var currentY int64
	flush := func() {
		if len(current) == 0 {
			return
		}
		sort.SliceStable(current, func(a, b int) bool {
			return minX(frags[current[a]]) < minX(frags[current[b]])
		})
		lines = appendLine(lines, frags, current)
		current = nil
	}
	for _, i := range order {
		y := midY(frags[i])
		if len(current) > 0 && y-currentY > tol {
			flush()
		}
		if len(current) == 0 {
			currentY = y
		}
		current = append(current, i)
	}
	flush()
	return lines
}

func appendLine(lines []textLine, frags []recognize.Fragment, idx []int) []textLine {
	var parts []string
	var kept []int
	for _, i := range idx {
		t := strings.TrimSpace(frags[i].Text)
		if t == "" {
			continue
		}
		parts = append(parts, t)
		kept = append(kept, i)
	}
	if len(parts) == 0 {
		return lines
	}
	return append(lines, textLine{Text: strings.Join(parts, " "), Fragments: kept})
}

func minX(f recognize.Fragment) int64 {
	if len(f.Vertices) == 0 {
		return 0
	}
	m := f.Vertices[0].X
	for _, v := range f.Vertices[1:] {
		if v.X < m {
			m = v.X
		}
	}
	return m
}

func midY(f recognize.Fragment) int64 {
	if len(f.Vertices) == 0 {
		return 0
	}
	lo, hi := f.Vertices[0].Y, f.Vertices[0].Y
	for _, v := range f.Vertices[1:] {
		if v.Y < lo {
			lo = v.Y
		}
		if v.Y > hi {
			hi = v.Y
		}
	}
	return (lo + hi) / 2
}

func height(f recognize.Fragment) int64 {
	if len(f.Vertices) == 0 {
		return 0
	}
	lo, hi := f.Vertices[0].Y, f.Vertices[0].Y
	for _, v := range f.Vertices[1:] {
		if v.Y < lo {
			lo = v.Y
		}
		if v.Y > hi {
			hi = v.Y
		}
	}
	return hi - lo
}
