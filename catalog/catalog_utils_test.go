package catalog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
	rxentities "github.com/rxcatalog/medications-catalog/rxnav/entities"
	"github.com/rxcatalog/medications-catalog/store"
)

// ============================================================================
// TEST DATA FACTORY
// ============================================================================

type TestDataFactory struct{}

func NewTestDataFactory() *TestDataFactory {
	return &TestDataFactory{}
}

func (f *TestDataFactory) CreateCandidate(rxcui, name, synonym string) entities.CandidateRecord {
	return entities.CandidateRecord{Rxcui: rxcui, Name: name, Synonym: synonym}
}

// CreateCandidates returns count valid candidates with rxcuis 1001, 1002, ...
func (f *TestDataFactory) CreateCandidates(count int) []entities.CandidateRecord {
	out := make([]entities.CandidateRecord, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, f.CreateCandidate(
			fmt.Sprintf("%d", 1000+i),
			fmt.Sprintf("Medication %02d Oral Tablet", i),
			"",
		))
	}
	return out
}

// NewTickingStore returns a memory store whose clock advances one second per
// insert, making created-at ordering deterministic.
func NewTickingStore() *store.MemoryStore {
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	return store.NewMemoryStoreWithClock(func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Second)
	})
}

// ============================================================================
// MOCK RECORD STORE
// ============================================================================

// MockRecordStore delegates to an in-memory store and injects failures per
// operation.
type MockRecordStore struct {
	inner interfaces.RecordStore

	existsErr error
	insertErr error
	countErr  error
	listErr   error
	deleteErr error
	pingErr   error

	// raceOnInsert makes InsertIfAbsent behave as if another writer won
	raceOnInsert bool
	// failInsertFor fails inserts only for this rxcui
	failInsertFor string

	existsCalls atomic.Int32
	insertCalls atomic.Int32
}

var _ interfaces.RecordStore = (*MockRecordStore)(nil)

type MockRecordStoreBuilder struct {
	mock *MockRecordStore
}

func NewMockRecordStoreBuilder() *MockRecordStoreBuilder {
	return &MockRecordStoreBuilder{mock: &MockRecordStore{inner: store.NewMemoryStore()}}
}

func (b *MockRecordStoreBuilder) WithInner(inner interfaces.RecordStore) *MockRecordStoreBuilder {
	b.mock.inner = inner
	return b
}

func (b *MockRecordStoreBuilder) WithExistsError(err error) *MockRecordStoreBuilder {
	b.mock.existsErr = err
	return b
}

func (b *MockRecordStoreBuilder) WithInsertError(err error) *MockRecordStoreBuilder {
	b.mock.insertErr = err
	return b
}

func (b *MockRecordStoreBuilder) WithInsertErrorFor(rxcui string, err error) *MockRecordStoreBuilder {
	b.mock.failInsertFor = rxcui
	b.mock.insertErr = err
	return b
}

func (b *MockRecordStoreBuilder) WithCountError(err error) *MockRecordStoreBuilder {
	b.mock.countErr = err
	return b
}

func (b *MockRecordStoreBuilder) WithListError(err error) *MockRecordStoreBuilder {
	b.mock.listErr = err
	return b
}

func (b *MockRecordStoreBuilder) WithDeleteError(err error) *MockRecordStoreBuilder {
	b.mock.deleteErr = err
	return b
}

func (b *MockRecordStoreBuilder) WithLostInsertRace() *MockRecordStoreBuilder {
	b.mock.raceOnInsert = true
	return b
}

func (b *MockRecordStoreBuilder) Build() *MockRecordStore {
	return b.mock
}

func (m *MockRecordStore) ExistsByRxcui(ctx context.Context, rxcui string) (bool, error) {
	m.existsCalls.Add(1)
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.inner.ExistsByRxcui(ctx, rxcui)
}

func (m *MockRecordStore) InsertIfAbsent(ctx context.Context, rec entities.NewMedication) (int64, bool, error) {
	m.insertCalls.Add(1)
	if m.insertErr != nil && (m.failInsertFor == "" || m.failInsertFor == rec.Rxcui) {
		return 0, false, m.insertErr
	}
	if m.raceOnInsert {
		return 0, false, nil
	}
	return m.inner.InsertIfAbsent(ctx, rec)
}

func (m *MockRecordStore) Count(ctx context.Context, filter entities.RecordFilter) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.inner.Count(ctx, filter)
}

func (m *MockRecordStore) List(ctx context.Context, filter entities.RecordFilter, limit, offset int) ([]entities.MedicationRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.inner.List(ctx, filter, limit, offset)
}

func (m *MockRecordStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	return m.inner.DeleteByID(ctx, id)
}

func (m *MockRecordStore) Ping(ctx context.Context) error {
	if m.pingErr != nil {
		return m.pingErr
	}
	return m.inner.Ping(ctx)
}

func (m *MockRecordStore) Stats() entities.StoreStats {
	return m.inner.Stats()
}

func (m *MockRecordStore) Close() error {
	return m.inner.Close()
}

// ============================================================================
// MOCK CONCEPT LOOKUP
// ============================================================================

type mockLookup struct {
	resp  *rxentities.DrugsResponse
	err   error
	terms []string
}

func (m *mockLookup) Drugs(ctx context.Context, name string) (*rxentities.DrugsResponse, error) {
	m.terms = append(m.terms, name)
	return m.resp, m.err
}

func strPtr(s string) *string { return &s }

// aspirinResponse has one branded, one clinical and one ingredient group
func aspirinResponse() *rxentities.DrugsResponse {
	return &rxentities.DrugsResponse{
		DrugGroup: &rxentities.DrugGroup{
			Name: strPtr("aspirin"),
			ConceptGroup: []rxentities.ConceptGroup{
				{Tty: "IN"},
				{
					Tty: rxentities.TtyBrandedDrug,
					ConceptProperties: []rxentities.ConceptProperty{
						{Rxcui: "212033", Name: "aspirin 325 MG Oral Tablet [Bayer]", Synonym: "Bayer 325 MG Oral Tablet", Tty: "SBD"},
					},
				},
				{
					Tty: rxentities.TtyClinicalDrug,
					ConceptProperties: []rxentities.ConceptProperty{
						{Rxcui: "198467", Name: "aspirin 325 MG Delayed Release Oral Tablet", Tty: "SCD"},
					},
				},
			},
		},
	}
}
