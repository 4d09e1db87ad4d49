package pagination

const DefaultPage = 1

// Params holds page/limit inputs after normalization.
type Params struct {
	Page  int
	Limit int
}

// Meta is the pagination block returned next to list results.
type Meta struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// Normalize applies the default page and clamps limit into [1, maxLimit],
// using defaultLimit when no positive limit was requested.
func Normalize(page, limit, defaultLimit, maxLimit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Offset is the number of rows to skip for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// MetaFor computes the pagination block for a total row count.
func (p Params) MetaFor(total int64) Meta {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Meta{
		Page:        p.Page,
		Limit:       p.Limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: p.Page < totalPages,
		HasPrevPage: p.Page > 1,
	}
}
