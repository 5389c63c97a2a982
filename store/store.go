// Package store provides RecordStore implementations for the medications
// catalog: an in-process memory store, SQLite through gorm and PostgreSQL
// through a pgx connection pool. Every backend enforces rxcui uniqueness
// itself and offers an atomic insert-if-absent.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rxcatalog/medications-catalog/interfaces"
	"github.com/rxcatalog/medications-catalog/logging"
	"golang.org/x/text/cases"
)

// Supported drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// TableName is the medications table shared by the SQL backends.
const TableName = "f_medications"

// Options configures Open.
type Options struct {
	Driver string
	// URL is a postgres connection string or a sqlite file path
	URL        string
	MaxConns   int
	MinConns   int
	QueueLimit int
	// AcquireTimeout bounds the wait for a pooled postgres connection
	AcquireTimeout time.Duration
}

// Open creates the store selected by opts.Driver. When QueueLimit is positive
// the store is wrapped in an admission gate that rejects work once
// MaxConns+QueueLimit operations are pending.
func Open(ctx context.Context, opts Options) (interfaces.RecordStore, error) {
	var (
		st  interfaces.RecordStore
		err error
	)

	switch strings.ToLower(opts.Driver) {
	case DriverMemory:
		st = NewMemoryStore()
	case DriverSQLite:
		st, err = NewSQLiteStore(opts)
	case DriverPostgres:
		st, err = NewPostgresStore(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if opts.QueueLimit > 0 && opts.MaxConns > 0 {
		st = WithAdmission(st, opts.MaxConns, opts.QueueLimit)
	}

	logging.Info("Record store opened",
		"driver", opts.Driver,
		"max_conns", opts.MaxConns,
		"queue_limit", opts.QueueLimit,
	)
	return st, nil
}

// likePattern builds a substring LIKE pattern, escaping the wildcard
// characters of term with a backslash.
// foldSearch case-folds s with full Unicode rules so that every backend
// matches "ÉPINÉPHRINE" and "épinéphrine" alike.
func foldSearch(s string) string {
	return cases.Fold().String(s)
}

func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(term) + "%"
}
