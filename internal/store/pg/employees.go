package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/semrekkers/endo/pkg/endo"

	"kintai.org/internal/ids"
	"kintai.org/internal/payroll"
)

const employeeColumns = "objectid, name, other, base_rate, transport_cost, additional_transport_cost, createdat, updatedat"

func scanEmployee(row rowScanner) (payroll.Employee, error) {
	var e payroll.Employee
	err := row.Scan(&e.ObjectID, &e.Name, &e.Other, &e.BaseRate, &e.TransportCost,
		&e.AdditionalTransportCost, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func collectEmployees(ctx context.Context, s *Store, query string, args ...any) ([]payroll.Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []payroll.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	return collectEmployees(ctx, s, "SELECT "+employeeColumns+" FROM employees ORDER BY createdat, objectid")
}

func (s *Store) CreateEmployee(ctx context.Context, e payroll.Employee) (payroll.Employee, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return payroll.Employee{}, fmt.Errorf("%w: employee name is required", payroll.ErrInvalidInput)
	}

	now := time.Now().UTC()
	e.ObjectID = ids.New()
	e.CreatedAt = now
	e.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (objectid, name, other, base_rate, transport_cost, additional_transport_cost, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ObjectID, e.Name, e.Other, e.BaseRate, e.TransportCost, e.AdditionalTransportCost, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return payroll.Employee{}, mapPgError(err)
	}
	return e, nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (payroll.Employee, error) {
	e, err := scanEmployee(s.db.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE objectid = $1", id))
	if err != nil {
		return payroll.Employee{}, mapPgError(err)
	}
	return e, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, id string, upd payroll.EmployeeUpdate) (payroll.Employee, error) {
	var (
		sets []string
		args []any
	)
	if upd.Name != nil {
		args = append(args, strings.TrimSpace(*upd.Name))
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if upd.Other != nil {
		args = append(args, *upd.Other)
		sets = append(sets, fmt.Sprintf("other = $%d", len(args)))
	}
	if upd.BaseRate != nil {
		args = append(args, *upd.BaseRate)
		sets = append(sets, fmt.Sprintf("base_rate = $%d", len(args)))
	}
	if upd.TransportCost != nil {
		args = append(args, *upd.TransportCost)
		sets = append(sets, fmt.Sprintf("transport_cost = $%d", len(args)))
	}
	if upd.AdditionalTransportCost != nil {
		args = append(args, *upd.AdditionalTransportCost)
		sets = append(sets, fmt.Sprintf("additional_transport_cost = $%d", len(args)))
	}
	if len(sets) == 0 {
		return s.GetEmployee(ctx, id)
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updatedat = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE employees SET %s WHERE objectid = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), employeeColumns)
	e, err := scanEmployee(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return payroll.Employee{}, mapPgError(err)
	}
	return e, nil
}

func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM employee_payroll WHERE employee = $1", id); err != nil {
		return mapPgError(err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM employees WHERE objectid = $1", id)
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

// SearchEmployees filters by name only; the legacy department and
// position filters have no backing columns and are ignored.
func (s *Store) SearchEmployees(ctx context.Context, filter payroll.EmployeeFilter) ([]payroll.Employee, error) {
	b := new(endo.Builder).Write("SELECT " + employeeColumns + " FROM employees")
	if name := strings.TrimSpace(filter.Name); name != "" {
		b.WriteWithParams(" WHERE name ILIKE {}", "%"+name+"%")
	}
	query, args := b.Write(" ORDER BY createdat, objectid").Build()
	return collectEmployees(ctx, s, query, args...)
}

func (s *Store) PayrollForEmployee(ctx context.Context, employeeID string) ([]payroll.Payroll, error) {
	if _, err := s.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+payrollColumnsPrefixed("p")+`
		FROM payroll p
		JOIN employee_payroll ep ON ep.payroll = p.objectid
		WHERE ep.employee = $1
		ORDER BY p.date, p.objectid`, employeeID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []payroll.Payroll{}
	for rows.Next() {
		p, err := scanPayroll(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
