package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
	"github.com/rxcatalog/medications-catalog/logging"
	"github.com/rxcatalog/medications-catalog/metrics"
	"github.com/rxcatalog/medications-catalog/validation"
)

// Messages returned to callers of single and batch saves.
const (
	MsgMissingFields   = "Missing required fields"
	MsgAlreadyExists   = "Medication already exists in database"
	MsgSaved           = "Medication saved successfully"
	MsgSaveFailed      = "Error saving medication"
	MsgBatchCompleted  = "Operation completed successfully"
	MsgNothingSaved    = "No medications were saved. "
	MsgNoMedications   = "No medications provided"
	msgItemMissing     = "Missing required fields for medication: %s"
	msgItemInvalid     = "Invalid medication %s: %v"
	msgItemSaveFailure = "Failed to save medication: %s"
)

// BulkPersister runs candidates through validate, dedup check, synonym
// defaulting and insert. Items are processed strictly in order so a duplicate
// introduced earlier in a batch is visible to later items.
type BulkPersister struct {
	store     interfaces.RecordStore
	gate      *DedupGate
	validator interfaces.DataValidator
	locks     *KeyLock
}

// NewBulkPersister creates a persister. A nil validator falls back to the
// default boundary validator.
func NewBulkPersister(store interfaces.RecordStore, validator interfaces.DataValidator, locks *KeyLock) *BulkPersister {
	if validator == nil {
		validator = validation.NewDataValidator()
	}
	if locks == nil {
		locks = NewKeyLock()
	}
	return &BulkPersister{
		store:     store,
		gate:      NewDedupGate(store),
		validator: validator,
		locks:     locks,
	}
}

// SaveMultiple persists a batch with best-effort semantics. The batch fails
// only when nothing was saved and nothing was skipped.
func (p *BulkPersister) SaveMultiple(ctx context.Context, candidates []entities.CandidateRecord) entities.BatchOutcome {
	batchID := uuid.NewString()
	outcome := entities.BatchOutcome{
		Errors: make([]string, 0),
		Items:  make([]entities.ItemResult, 0, len(candidates)),
	}

	for _, candidate := range candidates {
		item := p.persistOne(ctx, candidate)
		outcome.Items = append(outcome.Items, item)

		if item.Outcome == entities.OutcomeInvalid || item.Outcome == entities.OutcomeFailed {
			outcome.Errors = append(outcome.Errors, item.Message)
		}
	}

	outcome.SavedCount = outcome.Count(entities.OutcomeSaved)
	outcome.SkippedCount = outcome.Count(entities.OutcomeDuplicate)
	outcome.Success = outcome.SavedCount > 0 || outcome.SkippedCount > 0
	metrics.ObserveBatch(outcome)

	logging.Info("Batch processed",
		"batch_id", batchID,
		"size", len(candidates),
		"saved", outcome.SavedCount,
		"skipped", outcome.SkippedCount,
		"errors", len(outcome.Errors),
		"success", outcome.Success,
	)

	return outcome
}

// Save persists a single candidate and reports a duplicate as a distinct
// "already exists" failure.
func (p *BulkPersister) Save(ctx context.Context, candidate entities.CandidateRecord) entities.SaveResult {
	item := p.persistOne(ctx, candidate)
	metrics.ObserveBatch(entities.BatchOutcome{Items: []entities.ItemResult{item}})

	result := entities.SaveResult{Outcome: item.Outcome}
	switch item.Outcome {
	case entities.OutcomeSaved:
		result.Success = true
		result.Message = MsgSaved
		result.ID = item.ID
	case entities.OutcomeDuplicate:
		result.Message = MsgAlreadyExists
	case entities.OutcomeInvalid:
		result.Message = MsgMissingFields
		if !errors.Is(item.Err, validation.ErrMissingRequiredFields) {
			result.Message = item.Message
		}
	default:
		result.Message = MsgSaveFailed
	}

	return result
}

// persistOne walks one candidate to a terminal state. It never panics on a
// store failure; failures are reported in the returned item.
func (p *BulkPersister) persistOne(ctx context.Context, candidate entities.CandidateRecord) entities.ItemResult {
	item := entities.ItemResult{Rxcui: candidate.Rxcui}

	if err := p.validator.ValidateCandidate(candidate); err != nil {
		item.Outcome = entities.OutcomeInvalid
		item.Err = err
		if errors.Is(err, validation.ErrMissingRequiredFields) {
			item.Message = fmt.Sprintf(msgItemMissing, candidate.Label())
		} else {
			item.Message = fmt.Sprintf(msgItemInvalid, candidate.Label(), err)
		}
		return item
	}

	unlock := p.locks.Lock(candidate.Rxcui)
	defer unlock()

	presence, err := p.gate.Check(ctx, candidate.Rxcui)
	if err != nil {
		return p.failed(item, candidate, err)
	}
	if presence == Exists {
		item.Outcome = entities.OutcomeDuplicate
		return item
	}

	id, inserted, err := p.store.InsertIfAbsent(ctx, entities.NewMedication{
		Name:    candidate.Name,
		Synonym: candidate.EffectiveSynonym(),
		Rxcui:   candidate.Rxcui,
	})
	switch {
	case errors.Is(err, entities.ErrDuplicate):
		inserted = false
	case err != nil:
		return p.failed(item, candidate, err)
	}

	if !inserted {
		// Another writer stored the same rxcui between the check and the insert
		logging.Debug("Medication became a duplicate concurrently", "rxcui", candidate.Rxcui)
		item.Outcome = entities.OutcomeDuplicate
		return item
	}

	item.Outcome = entities.OutcomeSaved
	item.ID = id
	return item
}

func (p *BulkPersister) failed(item entities.ItemResult, candidate entities.CandidateRecord, err error) entities.ItemResult {
	logging.Error("Error saving medication", "rxcui", candidate.Rxcui, "error", err)
	item.Outcome = entities.OutcomeFailed
	item.Err = err
	item.Message = fmt.Sprintf(msgItemSaveFailure, candidate.Name)
	return item
}
