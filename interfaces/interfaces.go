// Package interfaces defines core abstractions for the medications catalog
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"

	"github.com/rxcatalog/medications-catalog/entities"
	rxentities "github.com/rxcatalog/medications-catalog/rxnav/entities"
)

// RecordStore defines the contract for durable medication storage.
// Implementations enforce uniqueness of Rxcui themselves; callers may rely on
// InsertIfAbsent never creating a second row for the same identifier.
type RecordStore interface {
	// ExistsByRxcui reports whether a record with exactly this rxcui is stored.
	ExistsByRxcui(ctx context.Context, rxcui string) (bool, error)

	// InsertIfAbsent inserts the record in one atomic step. inserted is false
	// when a record with the same rxcui already exists.
	InsertIfAbsent(ctx context.Context, rec entities.NewMedication) (id int64, inserted bool, err error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, filter entities.RecordFilter) (int, error)

	// List returns matching records ordered by creation time, newest first.
	List(ctx context.Context, filter entities.RecordFilter, limit, offset int) ([]entities.MedicationRecord, error)

	// DeleteByID removes a record. removed is false when no row matched.
	DeleteByID(ctx context.Context, id int64) (removed bool, err error)

	// Lifecycle and observability
	Ping(ctx context.Context) error
	Stats() entities.StoreStats
	Close() error
}

// ConceptLookup defines the contract for the external drug-terminology service.
type ConceptLookup interface {
	// Drugs queries the service by free-text name and returns its raw response.
	Drugs(ctx context.Context, name string) (*rxentities.DrugsResponse, error)
}

// Catalog is the request-level facade over the catalog core.
type Catalog interface {
	Search(ctx context.Context, term string) ([]entities.CandidateRecord, error)
	Save(ctx context.Context, candidate entities.CandidateRecord) entities.SaveResult
	SaveMultiple(ctx context.Context, candidates []entities.CandidateRecord) entities.BatchOutcome
	List(ctx context.Context, query entities.ListQuery) entities.PageResult
	Delete(ctx context.Context, id int64) (entities.DeleteResult, error)
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	Search(w http.ResponseWriter, r *http.Request)
	Save(w http.ResponseWriter, r *http.Request)
	SaveMultiple(w http.ResponseWriter, r *http.Request)
	ListSaved(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	// This will stay in all versions
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck(ctx context.Context) (status string, details map[string]any, httpStatus int)
}

// DataValidator defines the contract for boundary validation.
type DataValidator interface {
	// ValidateInput validates free-text user input such as search terms
	ValidateInput(input string) error

	// ValidateCandidate checks that a candidate can enter the pipeline
	ValidateCandidate(c entities.CandidateRecord) error

	// ValidateID parses and validates a record id
	ValidateID(input string) (int64, error)
}

// Scheduler defines the contract for background job scheduling.
type Scheduler interface {
	Start() error
	Stop()
}
