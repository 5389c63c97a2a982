package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
)

// Compile-time check to ensure MemoryStore implements RecordStore
var _ interfaces.RecordStore = (*MemoryStore)(nil)

// MemoryStore is a process-local RecordStore. It enforces rxcui uniqueness
// under its own lock and is used for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []entities.MedicationRecord
	byRxcui map[string]int64
	nextID  int64
	now     func() time.Time
	closed  bool
}

// NewMemoryStore creates an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates an empty store stamping records with now().
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		records: make([]entities.MedicationRecord, 0),
		byRxcui: make(map[string]int64),
		nextID:  1,
		now:     now,
	}
}

func (m *MemoryStore) ExistsByRxcui(ctx context.Context, rxcui string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.usable(ctx); err != nil {
		return false, err
	}
	_, ok := m.byRxcui[rxcui]
	return ok, nil
}

func (m *MemoryStore) InsertIfAbsent(ctx context.Context, rec entities.NewMedication) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.usable(ctx); err != nil {
		return 0, false, err
	}
	if _, ok := m.byRxcui[rec.Rxcui]; ok {
		return 0, false, nil
	}

	now := m.now()
	id := m.nextID
	m.nextID++

	m.records = append(m.records, entities.MedicationRecord{
		ID:        id,
		Name:      rec.Name,
		Synonym:   rec.Synonym,
		Rxcui:     rec.Rxcui,
		CreatedAt: now,
		UpdatedAt: now,
	})
	m.byRxcui[rec.Rxcui] = id

	return id, true, nil
}

func (m *MemoryStore) Count(ctx context.Context, filter entities.RecordFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.usable(ctx); err != nil {
		return 0, err
	}
	return len(m.matching(filter)), nil
}

func (m *MemoryStore) List(ctx context.Context, filter entities.RecordFilter, limit, offset int) ([]entities.MedicationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.usable(ctx); err != nil {
		return nil, err
	}

	matched := m.matching(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) || limit <= 0 {
		return make([]entities.MedicationRecord, 0), nil
	}

	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}

func (m *MemoryStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.usable(ctx); err != nil {
		return false, err
	}

	for i, rec := range m.records {
		if rec.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			delete(m.byRxcui, rec.Rxcui)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usable(ctx)
}

func (m *MemoryStore) Stats() entities.StoreStats {
	return entities.StoreStats{Driver: DriverMemory}
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// usable must be called with the lock held
func (m *MemoryStore) usable(ctx context.Context) error {
	if m.closed {
		return fmt.Errorf("%w: store is closed", entities.ErrPersistence)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", entities.ErrPersistence, err)
	}
	return nil
}

// matching returns a copy of the records selected by filter. Must be called
// with the lock held.
func (m *MemoryStore) matching(filter entities.RecordFilter) []entities.MedicationRecord {
	if filter.Search == "" {
		return append([]entities.MedicationRecord(nil), m.records...)
	}

	// A Caser is stateful, so each call gets its own
	term := foldSearch(filter.Search)

	matched := make([]entities.MedicationRecord, 0)
	for _, rec := range m.records {
		if strings.Contains(foldSearch(rec.Name), term) ||
			strings.Contains(foldSearch(rec.Synonym), term) ||
			strings.Contains(foldSearch(rec.Rxcui), term) {
			matched = append(matched, rec)
		}
	}
	return matched
}
