// Package health provides health checking functionality for the medications catalog.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
)

const pingTimeout = 2 * time.Second

var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store interfaces.RecordStore

	// RejectedOps observed by the previous check
	lastRejected atomic.Int64
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(store interfaces.RecordStore) *HealthCheckerImpl {
	return &HealthCheckerImpl{store: store}
}

// HealthCheck derives status from the record store:
// an unreachable store is unhealthy (503). Work waiting for a connection, or
// admission rejections since the previous check, is degraded (200).
// Anything else is healthy.
func (h *HealthCheckerImpl) HealthCheck(ctx context.Context) (status string, data map[string]any, httpStatus int) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	stats := h.store.Stats()
	newlyRejected := stats.RejectedOps - h.lastRejected.Swap(stats.RejectedOps)
	data = map[string]any{
		"driver": stats.Driver,
		"pool": map[string]any{
			"max_conns":                 stats.MaxConns,
			"open_conns":                stats.OpenConns,
			"in_use_conns":              stats.InUseConns,
			"idle_conns":                stats.IdleConns,
			"queued_ops":                stats.QueuedOps,
			"rejected_ops":              stats.RejectedOps,
			"rejected_since_last_check": newlyRejected,
		},
	}

	if err := h.store.Ping(ctx); err != nil {
		data["error"] = "record store unreachable"
		return "unhealthy", data, http.StatusServiceUnavailable
	}

	records, err := h.store.Count(ctx, entities.RecordFilter{})
	if err != nil {
		data["error"] = "record store query failed"
		return "unhealthy", data, http.StatusServiceUnavailable
	}
	data["records"] = records

	if stats.QueuedOps > 0 || newlyRejected > 0 || (stats.MaxConns > 0 && stats.InUseConns >= stats.MaxConns) {
		return "degraded", data, http.StatusOK
	}

	return "healthy", data, http.StatusOK
}
