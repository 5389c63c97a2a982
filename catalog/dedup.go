package catalog

import (
	"context"
	"fmt"

	"github.com/rxcatalog/medications-catalog/interfaces"
)

// Presence is the answer of the dedup gate for one identifier.
type Presence int

const (
	Absent Presence = iota
	Exists
)

func (p Presence) String() string {
	if p == Exists {
		return "exists"
	}
	return "absent"
}

// DedupGate is the sole authority on whether an rxcui is already stored.
// It performs an exact-match lookup and has no side effects.
type DedupGate struct {
	store interfaces.RecordStore
}

// NewDedupGate creates a gate reading from the given store.
func NewDedupGate(store interfaces.RecordStore) *DedupGate {
	return &DedupGate{store: store}
}

// Check reports whether rxcui is present in the store.
func (g *DedupGate) Check(ctx context.Context, rxcui string) (Presence, error) {
	found, err := g.store.ExistsByRxcui(ctx, rxcui)
	if err != nil {
		return Absent, fmt.Errorf("dedup check for rxcui %s: %w", rxcui, err)
	}
	if found {
		return Exists, nil
	}
	return Absent, nil
}
