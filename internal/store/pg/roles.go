package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kintai.org/internal/ids"
	"kintai.org/internal/payroll"
)

const roleColumns = "objectid, name, acl, createdat, updatedat"

func scanRole(row rowScanner) (payroll.Role, error) {
	var (
		r   payroll.Role
		acl []byte
	)
	err := row.Scan(&r.ObjectID, &r.Name, &acl, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return payroll.Role{}, err
	}
	if r.ACL, err = scanACL(acl); err != nil {
		return payroll.Role{}, err
	}
	return r, nil
}

func (s *Store) CreateRole(ctx context.Context, name string, acl payroll.ACL) (payroll.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return payroll.Role{}, fmt.Errorf("%w: role name is required", payroll.ErrInvalidInput)
	}
	aclRaw, err := aclValue(acl)
	if err != nil {
		return payroll.Role{}, err
	}

	now := time.Now().UTC()
	r := payroll.Role{ObjectID: ids.New(), Name: name, ACL: acl, CreatedAt: now, UpdatedAt: now}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO roles (objectid, name, acl, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5)`,
		r.ObjectID, r.Name, aclRaw, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return payroll.Role{}, mapPgError(err)
	}
	return r, nil
}

func (s *Store) GetRole(ctx context.Context, id string) (payroll.Role, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+roleColumns+" FROM roles WHERE objectid = $1", id)
	r, err := scanRole(row)
	if err != nil {
		return payroll.Role{}, mapPgError(err)
	}
	return r, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]payroll.Role, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+roleColumns+" FROM roles ORDER BY name")
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []payroll.Role{}
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AssignRole links a user to a role. Re-assigning is a no-op; unknown
// ids surface as ErrNotFound through the foreign keys.
func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_objectid, role_objectid, createdat)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_objectid, role_objectid) DO NOTHING`,
		userID, roleID, time.Now().UTC())
	return mapPgError(err)
}

func (s *Store) RoleNamesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_objectid = r.objectid
		WHERE ur.user_objectid = $1
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
