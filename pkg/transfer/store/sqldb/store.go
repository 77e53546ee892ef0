// Package sqldb implements transfer.RecordStore on SQLite or PostgreSQL
// through GORM.
//
// SQLite schemas are created with AutoMigrate. PostgreSQL schemas are
// managed by versioned migrations (see Migrate) so that several instances
// can share one database.
package sqldb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/transfer"
)

// transferRow is the table layout of a record.
type transferRow struct {
	ID              string     `gorm:"primaryKey;size:36"`
	EntityID        string     `gorm:"size:255;not null;index"`
	SourceLocator   string     `gorm:"not null"`
	DestinationPath string     `gorm:"not null"`
	Direction       string     `gorm:"size:16;not null"`
	Status          string     `gorm:"size:16;not null;index"`
	HandlerName     string     `gorm:"size:64;not null;default:''"`
	Error           string     `gorm:"not null;default:''"`
	CreatedAt       time.Time  `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt       time.Time  `gorm:"not null;autoUpdateTime:false"`
	StartedAt       *time.Time
	FinishedAt      *time.Time `gorm:"index"`
}

func (transferRow) TableName() string { return "transfers" }

func toRow(r transfer.Record) transferRow {
	return transferRow{
		ID:              string(r.ID),
		EntityID:        r.EntityID,
		SourceLocator:   r.SourceLocator,
		DestinationPath: r.DestinationPath,
		Direction:       r.Direction.String(),
		Status:          r.Status.String(),
		HandlerName:     r.HandlerName,
		Error:           r.Error,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
}

func (row transferRow) record() (transfer.Record, error) {
	dir, err := transfer.ParseDirection(row.Direction)
	if err != nil {
		return transfer.Record{}, err
	}
	status, err := transfer.ParseStatus(row.Status)
	if err != nil {
		return transfer.Record{}, err
	}
	return transfer.Record{
		ID:              transfer.ID(row.ID),
		EntityID:        row.EntityID,
		SourceLocator:   row.SourceLocator,
		DestinationPath: row.DestinationPath,
		Direction:       dir,
		Status:          status,
		HandlerName:     row.HandlerName,
		Error:           row.Error,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		StartedAt:       row.StartedAt,
		FinishedAt:      row.FinishedAt,
	}, nil
}

// Store is a GORM-backed RecordStore.
type Store struct {
	db  *gorm.DB
	cfg Config
}

var _ transfer.RecordStore = (*Store)(nil)

// Open connects to the database described by cfg and prepares the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL lets API readers proceed while workers write.
		dialector = sqlite.Open(cfg.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	case DatabaseTypePostgres:
		if err := Migrate(ctx, cfg.Postgres); err != nil {
			return nil, err
		}
		dialector = postgres.Open(cfg.Postgres.URL())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	switch cfg.Type {
	case DatabaseTypeSQLite:
		if err := db.AutoMigrate(&transferRow{}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	case DatabaseTypePostgres:
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}

	logger.Debug("Opened transfer record store", logger.Backend(string(cfg.Type)))
	return &Store{db: db, cfg: cfg}, nil
}

func (s *Store) Save(ctx context.Context, rec transfer.Record) error {
	row := toRow(rec)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save transfer %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id transfer.ID) (transfer.Record, error) {
	var row transferRow
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return transfer.Record{}, fmt.Errorf("%w: %s", transfer.ErrRecordNotFound, id)
	}
	if err != nil {
		return transfer.Record{}, fmt.Errorf("failed to get transfer %s: %w", id, err)
	}
	return row.record()
}

func (s *Store) List(ctx context.Context, f transfer.Filter) ([]transfer.Record, error) {
	q := s.db.WithContext(ctx).Model(&transferRow{})
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Direction != nil {
		q = q.Where("direction = ?", f.Direction.String())
	}
	if f.Status != nil {
		q = q.Where("status = ?", f.Status.String())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []transferRow
	if err := q.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}

	out := make([]transfer.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("corrupt transfer row %s: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res := s.db.WithContext(ctx).
		Where("status IN ?", []string{transfer.Completed.String(), transfer.Failed.String()}).
		Where("finished_at < ?", cutoff).
		Delete(&transferRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune transfers: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Type reports which backend the store is connected to.
func (s *Store) Type() DatabaseType { return s.cfg.Type }
