package reading

import (
	"math"
)

// DefaultLinesPerPage is the line count of one page in the page indicator.
const DefaultLinesPerPage = 20

// Position is the reading position exposed to the view.
type Position struct {
	ScrollPosition     float64 `json:"scrollPosition"`
	ProgressPercentage float64 `json:"progressPercentage"`
}

// Percentage converts a scroll offset into a completion percentage in
// [0,100]. Content that cannot scroll (extent <= 0) is always 0%.
func Percentage(scrollPosition, maxScrollableExtent float64) float64 {
	if !finite(scrollPosition) || !finite(maxScrollableExtent) || maxScrollableExtent <= 0 {
		return 0
	}
	return clampPercent(scrollPosition / maxScrollableExtent * 100)
}

// TotalPages is the number of pages needed for lines at linesPerPage.
func TotalPages(lines, linesPerPage int) int {
	if lines <= 0 {
		return 0
	}
	if linesPerPage <= 0 {
		linesPerPage = DefaultLinesPerPage
	}
	return (lines + linesPerPage - 1) / linesPerPage
}

// CurrentPage maps a percentage onto a 1-based page number.
func CurrentPage(percentage float64, totalPages int) int {
	if totalPages <= 0 {
		return 0
	}
	page := int(math.Ceil(clampPercent(percentage) / 100 * float64(totalPages)))
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

func clampPercent(v float64) float64 {
	switch {
	case !finite(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func clampScroll(v float64) float64 {
	if !finite(v) || v < 0 {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
