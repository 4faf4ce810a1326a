package services

import "strconv"

const (
	DefaultLimit = 20
	MinLimit     = 5
	MaxLimit     = 50
)

// Page is a validated page request: Page >= 1, Limit within [MinLimit, MaxLimit].
type Page struct {
	Page  int
	Limit int
}

// NewPage normalizes raw values. Non-positive values mean "not given".
func NewPage(page, limit int) Page {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Page{Page: max(page, 1), Limit: clampLimit(limit)}
}

// ParsePage reads query values. Absent or malformed values take their
// defaults; a given limit is clamped, so limit=0 yields MinLimit.
func ParsePage(page, limit string) Page {
	p, err := strconv.Atoi(page)
	if err != nil {
		p = 1
	}
	l, err := strconv.Atoi(limit)
	if err != nil {
		l = DefaultLimit
	}
	return Page{Page: max(p, 1), Limit: clampLimit(l)}
}

func clampLimit(limit int) int {
	return min(max(limit, MinLimit), MaxLimit)
}

type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func paginate[T any](items []T, p Page) ([]T, PageInfo) {
	info := PageInfo{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      len(items),
		TotalPages: (len(items) + p.Limit - 1) / p.Limit,
	}
	// compare before multiplying: a huge page would overflow the offset
	if p.Page < 1 || p.Page > info.TotalPages {
		return []T{}, info
	}
	start := (p.Page - 1) * p.Limit
	end := min(start+p.Limit, len(items))
	return items[start:end], info
}
