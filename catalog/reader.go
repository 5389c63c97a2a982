package catalog

import (
	"context"
	"strings"

	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
	"github.com/rxcatalog/medications-catalog/logging"
)

// PaginatedReader serves filtered, newest-first pages of stored records.
type PaginatedReader struct {
	store interfaces.RecordStore
}

// NewPaginatedReader creates a reader over the given store.
func NewPaginatedReader(store interfaces.RecordStore) *PaginatedReader {
	return &PaginatedReader{store: store}
}

// NormalizeQuery applies defaults: page below 1 becomes 1, a non-positive
// limit becomes the default page size, the search term is trimmed.
func NormalizeQuery(q entities.ListQuery) entities.ListQuery {
	if q.Page < 1 {
		q.Page = entities.DefaultPage
	}
	if q.Limit <= 0 {
		q.Limit = entities.DefaultLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Read returns one page. A store failure yields an empty page with zeroed
// metadata and Failed set; the raw error is logged, not returned.
func (r *PaginatedReader) Read(ctx context.Context, query entities.ListQuery) entities.PageResult {
	query = NormalizeQuery(query)
	filter := entities.RecordFilter{Search: query.Search}

	total, err := r.store.Count(ctx, filter)
	if err != nil {
		return r.failed(query, err)
	}

	records, err := r.store.List(ctx, filter, query.Limit, query.Offset())
	if err != nil {
		return r.failed(query, err)
	}
	if records == nil {
		records = make([]entities.MedicationRecord, 0)
	}

	return entities.PageResult{
		Records:    records,
		Pagination: entities.NewPagination(query.Page, query.Limit, total),
	}
}

func (r *PaginatedReader) failed(query entities.ListQuery, err error) entities.PageResult {
	logging.Error("Database error", "operation", "list", "page", query.Page, "limit", query.Limit, "error", err)
	return entities.PageResult{
		Records:    make([]entities.MedicationRecord, 0),
		Pagination: entities.EmptyPagination(),
		Failed:     true,
	}
}
