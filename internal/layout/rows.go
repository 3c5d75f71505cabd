package layout

import (
	"math"
	"sort"
	"strings"

	"splitcheck/internal/ocr"
)

// minRowThreshold absorbs OCR box jitter on tiny glyphs; below this distance
// two fragments always count as the same visual line.
const minRowThreshold = 12.0

// row accumulates fragments judged to belong to one visual line of the check.
// centerY drifts as fragments join, it is not the centroid of all members.
type row struct {
	centerY   float64
	fragments []ocr.TextFragment
}

// ReconstructRows groups unordered text fragments into reading-order lines of
// the original check and serializes each line left to right.
//
// Grouping is a greedy pass over fragments sorted by vertical center: each
// fragment joins the nearest open row if it is within the threshold, otherwise
// it opens a new row. The threshold is derived from the median fragment height
// so it scales with image resolution and font size.
func ReconstructRows(fragments []ocr.TextFragment) []string {
	if len(fragments) == 0 {
		return nil
	}

	threshold := rowThreshold(fragments)

	sorted := make([]ocr.TextFragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return verticalCenter(sorted[i]) < verticalCenter(sorted[j])
	})

	var rows []*row
	for _, f := range sorted {
		cy := verticalCenter(f)

		nearest := -1
		nearestDist := math.MaxFloat64
		for i, r := range rows {
			if d := math.Abs(r.centerY - cy); d < nearestDist {
				nearest = i
				nearestDist = d
			}
		}

		if nearest >= 0 && nearestDist <= threshold {
			r := rows[nearest]
			r.fragments = append(r.fragments, f)
			r.centerY = (r.centerY + cy) / 2
		} else {
			rows = append(rows, &row{centerY: cy, fragments: []ocr.TextFragment{f}})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].centerY < rows[j].centerY
	})

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		sort.SliceStable(r.fragments, func(i, j int) bool {
			return r.fragments[i].Box.Left < r.fragments[j].Box.Left
		})

		parts := make([]string, 0, len(r.fragments))
		for _, f := range r.fragments {
			parts = append(parts, strings.TrimSpace(f.Text))
		}

		line := strings.TrimSpace(strings.Join(parts, "   "))
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	return lines
}

// rowThreshold derives the vertical-proximity threshold from the median
// fragment height. For an even count the upper middle element is taken.
func rowThreshold(fragments []ocr.TextFragment) float64 {
	heights := make([]int, 0, len(fragments))
	for _, f := range fragments {
		h := f.Box.Bottom - f.Box.Top
		if h < 1 {
			h = 1
		}
		heights = append(heights, h)
	}
	sort.Ints(heights)

	median := heights[len(heights)/2]
	return math.Max(minRowThreshold, float64(median)*0.7)
}

func verticalCenter(f ocr.TextFragment) float64 {
	return float64(f.Box.Top+f.Box.Bottom) / 2
}
