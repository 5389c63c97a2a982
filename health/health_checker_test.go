package health

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/store"
)

// stubStore overrides ping, count and stats of a memory store
type stubStore struct {
	*store.MemoryStore
	pingErr  error
	countErr error
	stats    entities.StoreStats
}

func (s *stubStore) Ping(ctx context.Context) error {
	if s.pingErr != nil {
		return s.pingErr
	}
	return s.MemoryStore.Ping(ctx)
}

func (s *stubStore) Count(ctx context.Context, f entities.RecordFilter) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.MemoryStore.Count(ctx, f)
}

func (s *stubStore) Stats() entities.StoreStats {
	return s.stats
}

func TestHealthCheck(t *testing.T) {
	down := errors.New("connection refused")

	tests := []struct {
		name       string
		store      *stubStore
		wantStatus string
		wantCode   int
	}{
		{
			name:       "healthy",
			store:      &stubStore{MemoryStore: store.NewMemoryStore(), stats: entities.StoreStats{Driver: "memory"}},
			wantStatus: "healthy",
			wantCode:   http.StatusOK,
		},
		{
			name:       "ping fails",
			store:      &stubStore{MemoryStore: store.NewMemoryStore(), pingErr: down},
			wantStatus: "unhealthy",
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name:       "count fails",
			store:      &stubStore{MemoryStore: store.NewMemoryStore(), countErr: down},
			wantStatus: "unhealthy",
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name:       "operations queued",
			store:      &stubStore{MemoryStore: store.NewMemoryStore(), stats: entities.StoreStats{Driver: "postgres", MaxConns: 4, InUseConns: 4, QueuedOps: 3}},
			wantStatus: "degraded",
			wantCode:   http.StatusOK,
		},
		{
			name:       "pool fully checked out",
			store:      &stubStore{MemoryStore: store.NewMemoryStore(), stats: entities.StoreStats{Driver: "sqlite", MaxConns: 2, InUseConns: 2}},
			wantStatus: "degraded",
			wantCode:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data, code := NewHealthChecker(tt.store).HealthCheck(context.Background())

			if status != tt.wantStatus {
				t.Errorf("status = %s, want %s", status, tt.wantStatus)
			}
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if _, ok := data["pool"]; !ok {
				t.Error("expected pool details")
			}
			if tt.wantCode == http.StatusOK {
				if _, ok := data["records"]; !ok {
					t.Error("expected record count when the store is reachable")
				}
			}
		})
	}
}

func TestHealthCheckReportsNewRejections(t *testing.T) {
	st := &stubStore{MemoryStore: store.NewMemoryStore(), stats: entities.StoreStats{Driver: "postgres", MaxConns: 4, RejectedOps: 2}}
	checker := NewHealthChecker(st)

	steps := []struct {
		rejected   int64
		wantStatus string
	}{
		{2, "degraded"},
		{2, "healthy"},
		{5, "degraded"},
		{5, "healthy"},
	}

	for i, step := range steps {
		st.stats.RejectedOps = step.rejected
		status, _, code := checker.HealthCheck(context.Background())
		if status != step.wantStatus || code != http.StatusOK {
			t.Errorf("check %d with %d rejected: got %s/%d, want %s/200", i, step.rejected, status, code, step.wantStatus)
		}
	}
}

func TestHealthCheckCountsRecords(t *testing.T) {
	st := store.NewMemoryStore()
	_, _, _ = st.InsertIfAbsent(context.Background(), entities.NewMedication{Rxcui: "1191", Name: "Aspirin", Synonym: "Aspirin"})

	_, data, _ := NewHealthChecker(st).HealthCheck(context.Background())
	if data["records"] != 1 {
		t.Errorf("records = %v, want 1", data["records"])
	}
	if data["driver"] != "memory" {
		t.Errorf("driver = %v, want memory", data["driver"])
	}
}
