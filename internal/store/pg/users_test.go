package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"kintai.org/internal/payroll"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func TestListUsersSearchQuery(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE \(username ILIKE \$1 OR email ILIKE \$2\)`).
		WithArgs("%al%", "%al%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	mock.ExpectQuery(`SELECT .+ FROM users WHERE \(username ILIKE \$1 OR email ILIKE \$2\) ORDER BY username ASC LIMIT \$3 OFFSET \$4`).
		WithArgs("%al%", "%al%", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"objectid", "username", "email", "emailverified", "authdata", "acl", "createdat", "updatedat",
		}).
			AddRow("u1", "albert", "albert@example.com", false, nil, nil, now, now).
			AddRow("u2", "alice", "alice@example.com", true, nil, []byte(`{"u2":{"read":true}}`), now, now))

	page, err := store.ListUsers(context.Background(), payroll.ListUsersOptions{
		Search: "al", SortBy: "username", SortOrder: "asc",
	})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if page.Total != 2 || len(page.Users) != 2 {
		t.Fatalf("unexpected page: total=%d users=%d", page.Total, len(page.Users))
	}
	if page.Users[1].ACL == nil {
		t.Fatal("expected acl to round-trip from jsonb")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := store.CreateUser(context.Background(), payroll.NewUser{Username: "admin", Password: "pw"})
	if !errors.Is(err, payroll.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserValidatesInput(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.CreateUser(context.Background(), payroll.NewUser{Username: "", Password: "pw"})
	if !errors.Is(err, payroll.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteUserRemovesRoleLinksFirst(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_roles").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM users").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.DeleteUser(context.Background(), "u1"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_roles").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := store.DeleteUser(context.Background(), "missing"); !errors.Is(err, payroll.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
