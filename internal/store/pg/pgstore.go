// Package pg implements payroll.Service on PostgreSQL via database/sql
// and the pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kintai.org/internal/payroll"
)

// Store is the Postgres-backed service implementation.
type Store struct {
	db *sql.DB
}

var _ payroll.Service = (*Store)(nil)

// Open connects, tunes the pool and verifies connectivity.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle. Tests use this with sqlmock.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports connectivity; the readiness probe calls it.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// mapPgError translates constraint violations into domain errors:
// unique violations become ErrConflict, foreign key violations mean a
// referenced row does not exist.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", payroll.ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", payroll.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

func aclValue(acl payroll.ACL) (any, error) {
	if len(acl) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(acl)
	if err != nil {
		return nil, fmt.Errorf("marshal acl: %w", err)
	}
	return raw, nil
}

func scanACL(raw []byte) (payroll.ACL, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var acl payroll.ACL
	if err := json.Unmarshal(raw, &acl); err != nil {
		return nil, fmt.Errorf("unmarshal acl: %w", err)
	}
	return acl, nil
}
