package model

// Estimate is the pre-flight export size prediction. Count is treated as the
// authoritative row bound for rank-range validation; Bytes is always an
// approximation used only to scale progress.
type Estimate struct {
	Count int64 `json:"total_count"`
	Bytes int64 `json:"estimated_csv_bytes"`
}

// Pagination echoes the backend's pagination envelope.
type Pagination struct {
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	TotalCount  int64 `json:"total_count"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}
