// Package entities holds the domain types shared by the catalog, the stores
// and the request layer.
package entities

import (
	"strings"
	"time"
)

// MedicationRecord is a persisted catalog entry. At most one record exists per Rxcui.
type MedicationRecord struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Synonym   string    `json:"synonym"`
	Rxcui     string    `json:"rxcui"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CandidateRecord is an unpersisted record coming from the lookup service or
// directly from a caller. Synonym is optional.
type CandidateRecord struct {
	Rxcui   string `json:"rxcui"`
	Name    string `json:"name"`
	Synonym string `json:"synonym,omitempty"`
}

// Label returns the text used to name the candidate in error messages:
// the name when present, the rxcui otherwise.
func (c CandidateRecord) Label() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return c.Rxcui
}

// EffectiveSynonym returns the synonym to persist, defaulting to the name.
func (c CandidateRecord) EffectiveSynonym() string {
	if strings.TrimSpace(c.Synonym) != "" {
		return c.Synonym
	}
	return c.Name
}

// NewMedication is the insert payload handed to a RecordStore.
type NewMedication struct {
	Name    string
	Synonym string
	Rxcui   string
}

// StoreStats is a point-in-time view of a store's connection pool.
type StoreStats struct {
	Driver      string `json:"driver"`
	MaxConns    int    `json:"max_conns"`
	OpenConns   int    `json:"open_conns"`
	InUseConns  int    `json:"in_use_conns"`
	IdleConns   int    `json:"idle_conns"`
	WaitCount   int64  `json:"wait_count"`
	QueuedOps   int    `json:"queued_ops"`
	RejectedOps int64  `json:"rejected_ops"`
}
