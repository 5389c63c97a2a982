// Package catalog implements the medication catalog core: the dedup gate,
// best-effort batch persistence, paginated reads and deletion, behind a
// request-level Service facade.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
	"github.com/rxcatalog/medications-catalog/logging"
	"github.com/rxcatalog/medications-catalog/rxnav"
)

// Compile-time check to ensure Service implements the Catalog interface
var _ interfaces.Catalog = (*Service)(nil)

// Service wires the lookup, persister, reader and store together.
type Service struct {
	store     interfaces.RecordStore
	lookup    interfaces.ConceptLookup
	persister *BulkPersister
	reader    *PaginatedReader
}

// NewService creates the catalog facade. lookup may be nil for callers that
// never search.
func NewService(store interfaces.RecordStore, lookup interfaces.ConceptLookup, validator interfaces.DataValidator) *Service {
	return &Service{
		store:     store,
		lookup:    lookup,
		persister: NewBulkPersister(store, validator, NewKeyLock()),
		reader:    NewPaginatedReader(store),
	}
}

// Search queries the lookup service and returns the savable candidates.
// An empty result is not an error.
func (s *Service) Search(ctx context.Context, term string) ([]entities.CandidateRecord, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: empty search term", entities.ErrValidation)
	}
	if s.lookup == nil {
		return nil, fmt.Errorf("%w: no lookup configured", entities.ErrExternalService)
	}

	resp, err := s.lookup.Drugs(ctx, term)
	if err != nil {
		logging.Error("Error fetching medication data", "term", term, "error", err)
		return nil, err
	}

	return rxnav.ExtractCandidates(resp), nil
}

// Save persists one candidate.
func (s *Service) Save(ctx context.Context, candidate entities.CandidateRecord) entities.SaveResult {
	return s.persister.Save(ctx, candidate)
}

// SaveMultiple persists a batch with best-effort semantics.
func (s *Service) SaveMultiple(ctx context.Context, candidates []entities.CandidateRecord) entities.BatchOutcome {
	return s.persister.SaveMultiple(ctx, candidates)
}

// List serves one page of stored records.
func (s *Service) List(ctx context.Context, query entities.ListQuery) entities.PageResult {
	return s.reader.Read(ctx, query)
}

// Delete removes the record with the given id. A missing record is reported
// through the result, not as an error.
func (s *Service) Delete(ctx context.Context, id int64) (entities.DeleteResult, error) {
	removed, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		logging.Error("Error deleting medication", "id", id, "error", err)
		return entities.DeleteResult{ID: id}, fmt.Errorf("delete medication %d: %w", id, err)
	}

	if removed {
		logging.Info("Medication deleted", "id", id)
	}
	return entities.DeleteResult{Removed: removed, ID: id}, nil
}
