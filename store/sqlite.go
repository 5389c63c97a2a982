package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"
)

// medicationRow is the gorm model of the medications table.
type medicationRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"type:text;not null"`
	Synonym   string    `gorm:"type:text;not null"`
	Rxcui     string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_f_medications_rxcui"`
	CreatedAt time.Time `gorm:"index:idx_f_medications_created_at"`
	UpdatedAt time.Time

	// Case-folded copies matched by search. sqlite LOWER only folds ASCII.
	FoldedName    string `gorm:"type:text;not null;default:''"`
	FoldedSynonym string `gorm:"type:text;not null;default:''"`
	FoldedRxcui   string `gorm:"type:text;not null;default:''"`
}

func newMedicationRow(rec entities.NewMedication) medicationRow {
	return medicationRow{
		Name:          rec.Name,
		Synonym:       rec.Synonym,
		Rxcui:         rec.Rxcui,
		FoldedName:    foldSearch(rec.Name),
		FoldedSynonym: foldSearch(rec.Synonym),
		FoldedRxcui:   foldSearch(rec.Rxcui),
	}
}

func (medicationRow) TableName() string { return TableName }

func (r medicationRow) toRecord() entities.MedicationRecord {
	return entities.MedicationRecord{
		ID:        r.ID,
		Name:      r.Name,
		Synonym:   r.Synonym,
		Rxcui:     r.Rxcui,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const sqliteSearchClause = `folded_name LIKE ? ESCAPE '\' OR folded_synonym LIKE ? ESCAPE '\' OR folded_rxcui LIKE ? ESCAPE '\'`

// Compile-time check to ensure GormStore implements RecordStore
var _ interfaces.RecordStore = (*GormStore)(nil)

// GormStore is a RecordStore backed by gorm. database/sql bounds the pool
// and queues callers once MaxConns connections are in use.
type GormStore struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	driver string
}

// NewSQLiteStore opens (creating if needed) the sqlite file at opts.URL and
// migrates the medications table.
func NewSQLiteStore(opts Options) (*GormStore, error) {
	path := opts.URL
	if path == "" {
		path = "medications.db"
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}

	// gorm warnings (slow queries) go through the application logger
	gormLog := gormLogger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
	}

	maxConns := opts.MaxConns
	if path == ":memory:" {
		// every connection to :memory: is a distinct database
		maxConns = 1
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
		sqlDB.SetMaxIdleConns(maxConns)
	}

	if err := db.AutoMigrate(&medicationRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", TableName, err)
	}

	if err := backfillFolded(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to backfill %s search columns: %w", TableName, err)
	}

	return &GormStore{db: db, sqlDB: sqlDB, driver: DriverSQLite}, nil
}

// backfillFolded fills the folded columns of rows written before they existed.
func backfillFolded(db *gorm.DB) error {
	var rows []medicationRow
	err := db.Where("folded_rxcui = '' AND rxcui <> ''").FindInBatches(&rows, 500, func(_ *gorm.DB, _ int) error {
		for _, row := range rows {
			err := db.Model(&medicationRow{}).Where("id = ?", row.ID).UpdateColumns(map[string]any{
				"folded_name":    foldSearch(row.Name),
				"folded_synonym": foldSearch(row.Synonym),
				"folded_rxcui":   foldSearch(row.Rxcui),
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	}).Error
	return err
}

func (s *GormStore) ExistsByRxcui(ctx context.Context, rxcui string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&medicationRow{}).Where("rxcui = ?", rxcui).Count(&n).Error
	if err != nil {
		return false, gormError("exists by rxcui", err)
	}
	return n > 0, nil
}

func (s *GormStore) InsertIfAbsent(ctx context.Context, rec entities.NewMedication) (int64, bool, error) {
	row := newMedicationRow(rec)

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rxcui"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return 0, false, gormError("insert medication", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return row.ID, true, nil
}

func (s *GormStore) filtered(ctx context.Context, filter entities.RecordFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&medicationRow{})
	if filter.Search != "" {
		p := likePattern(foldSearch(filter.Search))
		q = q.Where(sqliteSearchClause, p, p, p)
	}
	return q
}

func (s *GormStore) Count(ctx context.Context, filter entities.RecordFilter) (int, error) {
	var n int64
	if err := s.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, gormError("count medications", err)
	}
	return int(n), nil
}

func (s *GormStore) List(ctx context.Context, filter entities.RecordFilter, limit, offset int) ([]entities.MedicationRecord, error) {
	var rows []medicationRow
	err := s.filtered(ctx, filter).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, gormError("list medications", err)
	}

	records := make([]entities.MedicationRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

func (s *GormStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&medicationRow{}, id)
	if res.Error != nil {
		return false, gormError("delete medication", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return gormError("ping", err)
	}
	return nil
}

func (s *GormStore) Stats() entities.StoreStats {
	stat := s.sqlDB.Stats()
	return entities.StoreStats{
		Driver:     s.driver,
		MaxConns:   stat.MaxOpenConnections,
		OpenConns:  stat.OpenConnections,
		InUseConns: stat.InUse,
		IdleConns:  stat.Idle,
		WaitCount:  stat.WaitCount,
	}
}

func (s *GormStore) Close() error {
	return s.sqlDB.Close()
}

// gormError maps gorm and sqlite errors onto the error taxonomy.
func gormError(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, entities.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w: %w", op, entities.ErrPersistence, err)
}
