package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
)

// ============================================================================
// MOCK CATALOG
// ============================================================================

type MockCatalog struct {
	candidates []entities.CandidateRecord
	searchErr  error
	saveResult entities.SaveResult
	batch      entities.BatchOutcome
	page       entities.PageResult
	deleteRes  entities.DeleteResult
	deleteErr  error

	lastSearch string
	lastSaved  []entities.CandidateRecord
	lastQuery  entities.ListQuery
	lastDelete int64
}

var _ interfaces.Catalog = (*MockCatalog)(nil)

func (m *MockCatalog) Search(ctx context.Context, term string) ([]entities.CandidateRecord, error) {
	m.lastSearch = term
	return m.candidates, m.searchErr
}

func (m *MockCatalog) Save(ctx context.Context, c entities.CandidateRecord) entities.SaveResult {
	m.lastSaved = []entities.CandidateRecord{c}
	return m.saveResult
}

func (m *MockCatalog) SaveMultiple(ctx context.Context, cs []entities.CandidateRecord) entities.BatchOutcome {
	m.lastSaved = cs
	return m.batch
}

func (m *MockCatalog) List(ctx context.Context, q entities.ListQuery) entities.PageResult {
	m.lastQuery = q
	return m.page
}

func (m *MockCatalog) Delete(ctx context.Context, id int64) (entities.DeleteResult, error) {
	m.lastDelete = id
	return m.deleteRes, m.deleteErr
}

type MockCatalogBuilder struct {
	mock *MockCatalog
}

func NewMockCatalogBuilder() *MockCatalogBuilder {
	return &MockCatalogBuilder{mock: &MockCatalog{}}
}

func (b *MockCatalogBuilder) WithCandidates(cs ...entities.CandidateRecord) *MockCatalogBuilder {
	b.mock.candidates = cs
	return b
}

func (b *MockCatalogBuilder) WithSearchError(err error) *MockCatalogBuilder {
	b.mock.searchErr = err
	return b
}

func (b *MockCatalogBuilder) WithSaveResult(r entities.SaveResult) *MockCatalogBuilder {
	b.mock.saveResult = r
	return b
}

func (b *MockCatalogBuilder) WithBatch(o entities.BatchOutcome) *MockCatalogBuilder {
	b.mock.batch = o
	return b
}

func (b *MockCatalogBuilder) WithPage(p entities.PageResult) *MockCatalogBuilder {
	b.mock.page = p
	return b
}

func (b *MockCatalogBuilder) WithDelete(r entities.DeleteResult, err error) *MockCatalogBuilder {
	b.mock.deleteRes = r
	b.mock.deleteErr = err
	return b
}

func (b *MockCatalogBuilder) Build() *MockCatalog {
	return b.mock
}

// ============================================================================
// MOCK HEALTH CHECKER
// ============================================================================

type MockHealthChecker struct {
	status string
	data   map[string]any
	code   int
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) (string, map[string]any, int) {
	return m.status, m.data, m.code
}

// ============================================================================
// HELPERS
// ============================================================================

func newTestRouter(h *HTTPHandlerImpl) http.Handler {
	r := chi.NewRouter()
	r.Post("/search", h.Search)
	r.Post("/save", h.Save)
	r.Post("/save_multiple", h.SaveMultiple)
	r.Get("/saved", h.ListSaved)
	r.Post("/delete/{id}", h.Delete)
	r.Delete("/medications/{id}", h.Delete)
	r.Get("/health", h.HealthCheck)
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func doForm(t *testing.T, handler http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rr.Body.String(), err)
	}
	return v
}
