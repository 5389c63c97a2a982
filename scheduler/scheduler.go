// Package scheduler runs the periodic catalog statistics job: it refreshes
// the record and pool gauges and warns when the store pool is saturated.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
	"github.com/rxcatalog/medications-catalog/logging"
	"github.com/rxcatalog/medications-catalog/metrics"
)

const refreshTimeout = 10 * time.Second

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler refreshes catalog statistics on a fixed interval.
type Scheduler struct {
	store           interfaces.RecordStore
	intervalMinutes int
	scheduler       *gocron.Scheduler

	mu           sync.Mutex
	lastRejected int64
	last         Snapshot
}

// Snapshot is the result of the latest refresh.
type Snapshot struct {
	Records   int
	Stats     entities.StoreStats
	Refreshed time.Time
	Err       error
}

// NewScheduler creates a scheduler refreshing every intervalMinutes.
func NewScheduler(store interfaces.RecordStore, intervalMinutes int) *Scheduler {
	if intervalMinutes < 1 {
		intervalMinutes = 15
	}
	return &Scheduler{
		store:           store,
		intervalMinutes: intervalMinutes,
		scheduler:       gocron.NewScheduler(time.Local),
	}
}

// Start runs an immediate refresh, then schedules the periodic job.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.
		Every(s.intervalMinutes).Minutes().
		SingletonMode().
		Do(func() { s.Refresh(context.Background()) })
	if err != nil {
		logging.Error("Failed to schedule statistics refresh", "error", err)
		return fmt.Errorf("failed to schedule statistics refresh: %w", err)
	}

	// gocron runs the first occurrence immediately
	s.scheduler.StartAsync()
	logging.Info("Statistics refresh scheduled", "interval_minutes", s.intervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Refresh reads the record count and pool statistics and publishes them.
func (s *Scheduler) Refresh(ctx context.Context) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	snap := Snapshot{Stats: s.store.Stats(), Refreshed: time.Now()}

	records, err := s.store.Count(ctx, entities.RecordFilter{})
	if err != nil {
		logging.Error("Failed to refresh catalog statistics", "error", err)
		snap.Err = err
	} else {
		snap.Records = records
		metrics.ObserveStore(snap.Stats, records)
	}

	s.mu.Lock()
	newlyRejected := snap.Stats.RejectedOps - s.lastRejected
	s.lastRejected = snap.Stats.RejectedOps
	s.last = snap
	s.mu.Unlock()

	if snap.Stats.QueuedOps > 0 || newlyRejected > 0 {
		logging.Warn("Store pool saturated",
			"driver", snap.Stats.Driver,
			"in_use", snap.Stats.InUseConns,
			"max", snap.Stats.MaxConns,
			"queued", snap.Stats.QueuedOps,
			"rejected_since_last", newlyRejected,
		)
	}

	logging.Debug("Catalog statistics refreshed", "records", snap.Records, "driver", snap.Stats.Driver)
	return snap
}

// Last returns the latest snapshot.
func (s *Scheduler) Last() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
