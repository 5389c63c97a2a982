package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rxcatalog/medications-catalog/entities"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics records request count, latency and in-flight requests per route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		HTTPRequestInFlight.Inc()
		defer HTTPRequestInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		// Unmatched routes share one label to keep cardinality bounded
		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		HTTPRequestTotals.WithLabelValues(
			r.Method,
			path,
			strconv.Itoa(wrapped.statusCode),
		).Inc()

		HTTPRequestDuration.WithLabelValues(
			r.Method,
			path,
		).Observe(duration)
	})
}

// ObserveBatch adds the per-item outcomes of a save operation.
func ObserveBatch(outcome entities.BatchOutcome) {
	for _, state := range []entities.ItemOutcome{
		entities.OutcomeSaved,
		entities.OutcomeDuplicate,
		entities.OutcomeInvalid,
		entities.OutcomeFailed,
	} {
		if n := outcome.Count(state); n > 0 {
			BatchItemsTotal.WithLabelValues(state.String()).Add(float64(n))
		}
	}
}

// ObserveStore publishes pool statistics and the record count.
func ObserveStore(stats entities.StoreStats, records int) {
	CatalogRecords.Set(float64(records))
	StorePoolConns.WithLabelValues("max").Set(float64(stats.MaxConns))
	StorePoolConns.WithLabelValues("open").Set(float64(stats.OpenConns))
	StorePoolConns.WithLabelValues("in_use").Set(float64(stats.InUseConns))
	StorePoolConns.WithLabelValues("idle").Set(float64(stats.IdleConns))
	StorePoolConns.WithLabelValues("queued").Set(float64(stats.QueuedOps))
}
