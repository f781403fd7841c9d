package services

import "math"

// PageSize is fixed for every paginated listing.
const PageSize = 10

type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPagination(page int, total int64) Pagination {
	if page < 1 {
		page = 1
	}
	return Pagination{
		Page:       page,
		PerPage:    PageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(PageSize))),
	}
}
