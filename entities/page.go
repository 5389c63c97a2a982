package entities

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// ListQuery is a normalized read request. Page and Limit are always >= 1
// once the reader has normalized them.
type ListQuery struct {
	Search string
	Page   int
	Limit  int
}

// Offset returns the number of rows to skip for the query's page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// RecordFilter restricts store reads. An empty Search matches every record.
type RecordFilter struct {
	Search string
}

// Pagination is the metadata returned alongside a page of records.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalRecords int  `json:"totalRecords"`
	Limit        int  `json:"limit"`
	HasNext      bool `json:"hasNext"`
	HasPrev      bool `json:"hasPrev"`
	NextPage     int  `json:"nextPage"`
	PrevPage     int  `json:"prevPage"`
}

// NewPagination computes page metadata from a matching-record count.
func NewPagination(page, limit, totalRecords int) Pagination {
	totalPages := 0
	if totalRecords > 0 {
		totalPages = (totalRecords + limit - 1) / limit
	}

	return Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalRecords: totalRecords,
		Limit:        limit,
		HasNext:      page < totalPages,
		HasPrev:      page > 1,
		NextPage:     page + 1,
		PrevPage:     page - 1,
	}
}

// EmptyPagination is the zeroed metadata returned when a read fails.
func EmptyPagination() Pagination {
	return Pagination{
		CurrentPage: DefaultPage,
		Limit:       DefaultLimit,
	}
}

// PageResult is one page of records. Failed is set when the store read failed;
// Records is then empty and Pagination zeroed.
type PageResult struct {
	Records    []MedicationRecord `json:"records"`
	Pagination Pagination         `json:"pagination"`
	Failed     bool               `json:"-"`
}
