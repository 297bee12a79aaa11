package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/semrekkers/endo/pkg/endo"

	"kintai.org/internal/auth"
	"kintai.org/internal/ids"
	"kintai.org/internal/payroll"
)

const userColumns = "objectid, username, email, emailverified, authdata, acl, createdat, updatedat"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (payroll.User, error) {
	var (
		u        payroll.User
		authData []byte
		acl      []byte
	)
	err := row.Scan(&u.ObjectID, &u.Username, &u.Email, &u.EmailVerified, &authData, &acl, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return payroll.User{}, err
	}
	if u.AuthData, err = scanACL(authData); err != nil {
		return payroll.User{}, err
	}
	if u.ACL, err = scanACL(acl); err != nil {
		return payroll.User{}, err
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, opts payroll.ListUsersOptions) (payroll.UserPage, error) {
	opts = opts.Normalize()
	needle := strings.TrimSpace(opts.Search)

	withSearch := func(b *endo.Builder) *endo.Builder {
		if needle == "" {
			return b
		}
		pattern := "%" + needle + "%"
		return b.WriteWithParams(" WHERE (username ILIKE {}", pattern).
			WriteWithParams(" OR email ILIKE {})", pattern)
	}

	page := payroll.UserPage{Users: []payroll.User{}, Limit: opts.Limit, Offset: opts.Offset}

	countQuery, countArgs := withSearch(new(endo.Builder).Write("SELECT COUNT(*) FROM users")).Build()
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&page.Total); err != nil {
		return payroll.UserPage{}, mapPgError(err)
	}

	listQuery, listArgs := withSearch(new(endo.Builder).Write("SELECT "+userColumns+" FROM users")).
		// SortBy and SortOrder come from the Normalize allowlist, never
		// from raw request input.
		Writef(" ORDER BY %s %s", opts.SortBy, opts.SortOrder).
		WriteWithParams(" LIMIT {}", opts.Limit).
		WriteWithParams(" OFFSET {}", opts.Offset).
		Build()

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return payroll.UserPage{}, mapPgError(err)
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return payroll.UserPage{}, err
		}
		page.Users = append(page.Users, u)
	}
	if err := rows.Err(); err != nil {
		return payroll.UserPage{}, err
	}
	return page, nil
}

func (s *Store) CreateUser(ctx context.Context, input payroll.NewUser) (payroll.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return payroll.User{}, fmt.Errorf("%w: username and password are required", payroll.ErrInvalidInput)
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return payroll.User{}, err
	}
	authData, err := aclValue(input.AuthData)
	if err != nil {
		return payroll.User{}, err
	}
	acl, err := aclValue(input.ACL)
	if err != nil {
		return payroll.User{}, err
	}

	now := time.Now().UTC()
	u := payroll.User{
		ObjectID:     ids.New(),
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		AuthData:     input.AuthData,
		ACL:          input.ACL,
		CreatedAt:    now,
		UpdatedAt:    now,
		PasswordHash: hash,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (objectid, username, email, emailverified, authdata, acl, password, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ObjectID, u.Username, u.Email, u.EmailVerified, authData, acl, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return payroll.User{}, mapPgError(err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (payroll.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE objectid = $1", id)
	u, err := scanUser(row)
	if err != nil {
		return payroll.User{}, mapPgError(err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd payroll.UserUpdate) (payroll.User, error) {
	var (
		sets []string
		args []any
	)
	if upd.Email != nil {
		args = append(args, strings.TrimSpace(*upd.Email))
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	if upd.EmailVerified != nil {
		args = append(args, *upd.EmailVerified)
		sets = append(sets, fmt.Sprintf("emailverified = $%d", len(args)))
	}
	if upd.Password != nil {
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return payroll.User{}, err
		}
		args = append(args, hash)
		sets = append(sets, fmt.Sprintf("password = $%d", len(args)))
	}
	if len(sets) == 0 {
		return s.GetUser(ctx, id)
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updatedat = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE objectid = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), userColumns)
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return payroll.User{}, mapPgError(err)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_objectid = $1", id); err != nil {
		return mapPgError(err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE objectid = $1", id)
	if err != nil {
		return mapPgError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return payroll.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) FindUserForAuth(ctx context.Context, username string) (payroll.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT objectid, username, email, emailverified, password, createdat, updatedat
		FROM users WHERE username = $1`, strings.TrimSpace(username))

	var u payroll.User
	err := row.Scan(&u.ObjectID, &u.Username, &u.Email, &u.EmailVerified, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.User{}, payroll.ErrNotFound
	}
	if err != nil {
		return payroll.User{}, err
	}
	return u, nil
}
