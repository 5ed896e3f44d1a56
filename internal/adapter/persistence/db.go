// Package persistence implements the entity store and audit log on PostgreSQL
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/ports"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PoolConfig tunes the connection pool
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

// Open connects to PostgreSQL and verifies the connection
func Open(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
		db.SetMaxIdleConns(pool.MaxOpenConns / 2)
	}
	if pool.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.MaxIdleTime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Store is a PostgreSQL backed UnitOfWork
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open database handle
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Repositories returns repositories that run each statement on its own
func (s *Store) Repositories() ports.Repositories {
	return newRepositories(s.db)
}

// Audit returns the audit repository
func (s *Store) Audit() ports.AuditRepository {
	return &PostgresAuditRepository{db: s.db}
}

// Do runs fn in a READ COMMITTED transaction
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateOrganization inserts a tenant if it does not exist yet
func (s *Store) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, org.ID, org.Name, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func newRepositories(q dbtx) ports.Repositories {
	return ports.Repositories{
		Projects:    &PostgresProjectRepository{db: q},
		Tickets:     &PostgresTicketRepository{db: q},
		Comments:    &PostgresCommentRepository{db: q},
		Attachments: &PostgresAttachmentRepository{db: q},
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// softDeleteColumns lists the SoftDeleteStamp columns in scan order
const softDeleteColumns = "deleted_at, deleted_by, deleted_reason, purge_after, restored_at, restored_by"

type stampScan struct {
	deletedAt     sql.NullTime
	deletedBy     sql.NullString
	deletedReason sql.NullString
	purgeAfter    sql.NullTime
	restoredAt    sql.NullTime
	restoredBy    sql.NullString
}

func (s *stampScan) dest() []interface{} {
	return []interface{}{&s.deletedAt, &s.deletedBy, &s.deletedReason, &s.purgeAfter, &s.restoredAt, &s.restoredBy}
}

func (s *stampScan) apply(stamp *domain.SoftDeleteStamp) {
	stamp.DeletedAt = mapTimePtr(s.deletedAt)
	stamp.DeletedBy = mapStringPtr(s.deletedBy)
	stamp.DeletedReason = mapStringPtr(s.deletedReason)
	stamp.PurgeAfter = mapTimePtr(s.purgeAfter)
	stamp.RestoredAt = mapTimePtr(s.restoredAt)
	stamp.RestoredBy = mapStringPtr(s.restoredBy)
}

func stampArgs(stamp domain.SoftDeleteStamp) []interface{} {
	return []interface{}{stamp.DeletedAt, stamp.DeletedBy, stamp.DeletedReason, stamp.PurgeAfter, stamp.RestoredAt, stamp.RestoredBy}
}

func mapStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func mapTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time.UTC()
		return &t
	}
	return nil
}

func rowsAffected(result sql.Result) (int, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func stringArray(ids []string) interface{} {
	return pq.Array(ids)
}
