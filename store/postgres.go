package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
)

// PostgresSchema creates the medications table. It is safe to execute
// multiple times.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS f_medications (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    synonym    TEXT NOT NULL,
    rxcui      VARCHAR(50) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_f_medications_rxcui
    ON f_medications (rxcui);

CREATE INDEX IF NOT EXISTS idx_f_medications_created_at
    ON f_medications (created_at DESC, id DESC);

ALTER TABLE f_medications ADD COLUMN IF NOT EXISTS folded_name TEXT NOT NULL DEFAULT '';
ALTER TABLE f_medications ADD COLUMN IF NOT EXISTS folded_synonym TEXT NOT NULL DEFAULT '';
ALTER TABLE f_medications ADD COLUMN IF NOT EXISTS folded_rxcui TEXT NOT NULL DEFAULT '';
`

const (
	pgUniqueViolation = "23505"

	// folded_* hold Go case-folded copies; ILIKE depends on the database locale.
	pgSearchClause = ` WHERE folded_name LIKE $1 OR folded_synonym LIKE $1 OR folded_rxcui LIKE $1`
	pgColumns      = `id, name, synonym, rxcui, created_at, updated_at`
)

// Compile-time check to ensure PostgresStore implements RecordStore
var _ interfaces.RecordStore = (*PostgresStore)(nil)

// PostgresStore is a RecordStore over a bounded pgx connection pool.
// Operations that find the pool exhausted wait at most the acquire timeout
// for a connection. The statement itself runs on the caller's context.
type PostgresStore struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// NewPostgresStore connects, pings and ensures the schema.
func NewPostgresStore(ctx context.Context, opts Options) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	if err := backfillFoldedPostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("backfill search columns: %w", err)
	}

	return &PostgresStore{pool: pool, acquireTimeout: opts.AcquireTimeout}, nil
}

// backfillFoldedPostgres fills the folded columns of rows written before
// they existed.
func backfillFoldedPostgres(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, `SELECT id, name, synonym, rxcui FROM f_medications WHERE folded_rxcui = '' AND rxcui <> ''`)
	if err != nil {
		return err
	}
	type pending struct {
		id                   int64
		name, synonym, rxcui string
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.name, &p.synonym, &p.rxcui); err != nil {
			rows.Close()
			return err
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range todo {
		_, err := pool.Exec(ctx, `UPDATE f_medications SET folded_name = $2, folded_synonym = $3, folded_rxcui = $4 WHERE id = $1`,
			p.id, foldSearch(p.name), foldSearch(p.synonym), foldSearch(p.rxcui))
		if err != nil {
			return err
		}
	}
	return nil
}

// acquire takes a pooled connection, waiting at most acquireTimeout for one.
// The caller releases it.
func (s *PostgresStore) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	actx := ctx
	if s.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, s.acquireTimeout)
		defer cancel()
	}

	conn, err := s.pool.Acquire(actx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

func (s *PostgresStore) ExistsByRxcui(ctx context.Context, rxcui string) (bool, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return false, persistenceError("exists by rxcui", err)
	}
	defer conn.Release()

	const query = `SELECT EXISTS (SELECT 1 FROM f_medications WHERE rxcui = $1)`

	var exists bool
	if err := conn.QueryRow(ctx, query, rxcui).Scan(&exists); err != nil {
		return false, persistenceError("exists by rxcui", err)
	}
	return exists, nil
}

func (s *PostgresStore) InsertIfAbsent(ctx context.Context, rec entities.NewMedication) (int64, bool, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return 0, false, persistenceError("insert medication", err)
	}
	defer conn.Release()

	const query = `INSERT INTO f_medications (name, synonym, rxcui, folded_name, folded_synonym, folded_rxcui)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (rxcui) DO NOTHING
RETURNING id`

	var id int64
	err = conn.QueryRow(ctx, query,
		rec.Name, rec.Synonym, rec.Rxcui,
		foldSearch(rec.Name), foldSearch(rec.Synonym), foldSearch(rec.Rxcui),
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return 0, false, nil
	case err != nil:
		return 0, false, persistenceError("insert medication", err)
	}
	return id, true, nil
}

func (s *PostgresStore) Count(ctx context.Context, filter entities.RecordFilter) (int, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return 0, persistenceError("count medications", err)
	}
	defer conn.Release()

	query := `SELECT COUNT(*) FROM f_medications`
	args := []any{}
	if filter.Search != "" {
		query += pgSearchClause
		args = append(args, likePattern(foldSearch(filter.Search)))
	}

	var total int
	if err := conn.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, persistenceError("count medications", err)
	}
	return total, nil
}

func (s *PostgresStore) List(ctx context.Context, filter entities.RecordFilter, limit, offset int) ([]entities.MedicationRecord, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, persistenceError("list medications", err)
	}
	defer conn.Release()

	query := `SELECT ` + pgColumns + ` FROM f_medications`
	args := []any{}
	if filter.Search != "" {
		query += pgSearchClause
		args = append(args, likePattern(foldSearch(filter.Search)))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, persistenceError("list medications", err)
	}
	defer rows.Close()

	records := make([]entities.MedicationRecord, 0, limit)
	for rows.Next() {
		var rec entities.MedicationRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Synonym, &rec.Rxcui, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, persistenceError("scan medication", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list medications", err)
	}

	return records, nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return false, persistenceError("delete medication", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM f_medications WHERE id = $1`, id)
	if err != nil {
		return false, persistenceError("delete medication", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return persistenceError("ping", err)
	}
	defer conn.Release()

	if err := conn.Ping(ctx); err != nil {
		return persistenceError("ping", err)
	}
	return nil
}

func (s *PostgresStore) Stats() entities.StoreStats {
	stat := s.pool.Stat()
	return entities.StoreStats{
		Driver:     DriverPostgres,
		MaxConns:   int(stat.MaxConns()),
		OpenConns:  int(stat.TotalConns()),
		InUseConns: int(stat.AcquiredConns()),
		IdleConns:  int(stat.IdleConns()),
		WaitCount:  stat.EmptyAcquireCount(),
	}
}

// Close waits for acquired connections to be released, then closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// persistenceError maps pgx errors onto the error taxonomy.
func persistenceError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", op, entities.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w: %w", op, entities.ErrPersistence, err)
}
