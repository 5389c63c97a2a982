package store

import (
	"context"
	"sync/atomic"

	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
	"golang.org/x/sync/semaphore"
)

// Compile-time check to ensure AdmissionStore implements RecordStore
var _ interfaces.RecordStore = (*AdmissionStore)(nil)

// AdmissionStore bounds how many operations may wait on the underlying pool.
// Up to maxConns operations run and up to queueLimit more wait; anything
// beyond fails fast with entities.ErrPoolExhausted.
type AdmissionStore struct {
	inner    interfaces.RecordStore
	slots    *semaphore.Weighted
	maxConns int64
	pending  atomic.Int64
	rejected atomic.Int64
}

// WithAdmission wraps inner with an admission gate.
func WithAdmission(inner interfaces.RecordStore, maxConns, queueLimit int) *AdmissionStore {
	return &AdmissionStore{
		inner:    inner,
		slots:    semaphore.NewWeighted(int64(maxConns + queueLimit)),
		maxConns: int64(maxConns),
	}
}

func (a *AdmissionStore) admit() (func(), error) {
	if !a.slots.TryAcquire(1) {
		a.rejected.Add(1)
		return nil, entities.ErrPoolExhausted
	}
	a.pending.Add(1)
	return func() {
		a.pending.Add(-1)
		a.slots.Release(1)
	}, nil
}

func (a *AdmissionStore) ExistsByRxcui(ctx context.Context, rxcui string) (bool, error) {
	release, err := a.admit()
	if err != nil {
		return false, err
	}
	defer release()
	return a.inner.ExistsByRxcui(ctx, rxcui)
}

func (a *AdmissionStore) InsertIfAbsent(ctx context.Context, rec entities.NewMedication) (int64, bool, error) {
	release, err := a.admit()
	if err != nil {
		return 0, false, err
	}
	defer release()
	return a.inner.InsertIfAbsent(ctx, rec)
}

func (a *AdmissionStore) Count(ctx context.Context, filter entities.RecordFilter) (int, error) {
	release, err := a.admit()
	if err != nil {
		return 0, err
	}
	defer release()
	return a.inner.Count(ctx, filter)
}

func (a *AdmissionStore) List(ctx context.Context, filter entities.RecordFilter, limit, offset int) ([]entities.MedicationRecord, error) {
	release, err := a.admit()
	if err != nil {
		return nil, err
	}
	defer release()
	return a.inner.List(ctx, filter, limit, offset)
}

func (a *AdmissionStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	release, err := a.admit()
	if err != nil {
		return false, err
	}
	defer release()
	return a.inner.DeleteByID(ctx, id)
}

func (a *AdmissionStore) Ping(ctx context.Context) error {
	return a.inner.Ping(ctx)
}

func (a *AdmissionStore) Stats() entities.StoreStats {
	stats := a.inner.Stats()
	stats.QueuedOps = int(max(0, a.pending.Load()-a.maxConns))
	stats.RejectedOps = a.rejected.Load()
	return stats
}

func (a *AdmissionStore) Close() error {
	return a.inner.Close()
}
