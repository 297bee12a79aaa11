package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kintai.org/internal/ids"
	"kintai.org/internal/payroll"
)

const payrollColumns = "objectid, date, hours, client_name, task, person_in_charge, site_name, location, order_number, quantity, createdat, updatedat"

func payrollColumnsPrefixed(alias string) string {
	cols := strings.Split(payrollColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func scanPayroll(row rowScanner) (payroll.Payroll, error) {
	var p payroll.Payroll
	err := row.Scan(&p.ObjectID, &p.Date, &p.Hours, &p.ClientName, &p.Task, &p.PersonInCharge,
		&p.SiteName, &p.Location, &p.OrderNumber, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectPayroll(ctx context.Context, s *Store, query string, args ...any) ([]payroll.Payroll, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *Store) ListPayroll(ctx context.Context) ([]payroll.Payroll, error) {
	return collectPayroll(ctx, s, "SELECT "+payrollColumns+" FROM payroll ORDER BY createdat, objectid")
}

func (s *Store) CreatePayroll(ctx context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	now := time.Now().UTC()
	p.ObjectID = ids.New()
	if p.Date.IsZero() {
		p.Date = now
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll (objectid, date, hours, client_name, task, person_in_charge, site_name, location, order_number, quantity, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ObjectID, p.Date, p.Hours, p.ClientName, p.Task, p.PersonInCharge,
		p.SiteName, p.Location, p.OrderNumber, p.Quantity, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return payroll.Payroll{}, mapPgError(err)
	}
	return p, nil
}

func (s *Store) GetPayroll(ctx context.Context, id string) (payroll.Payroll, error) {
	p, err := scanPayroll(s.db.QueryRowContext(ctx, "SELECT "+payrollColumns+" FROM payroll WHERE objectid = $1", id))
	if err != nil {
		return payroll.Payroll{}, mapPgError(err)
	}
	return p, nil
}

func (s *Store) UpdatePayroll(ctx context.Context, id string, upd payroll.PayrollUpdate) (payroll.Payroll, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Date != nil {
		add("date", *upd.Date)
	}
	if upd.Hours != nil {
		add("hours", *upd.Hours)
	}
	if upd.ClientName != nil {
		add("client_name", *upd.ClientName)
	}
	if upd.Task != nil {
		add("task", *upd.Task)
	}
	if upd.PersonInCharge != nil {
		add("person_in_charge", *upd.PersonInCharge)
	}
	if upd.SiteName != nil {
		add("site_name", *upd.SiteName)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.OrderNumber != nil {
		add("order_number", *upd.OrderNumber)
	}
	if upd.Quantity != nil {
		add("quantity", *upd.Quantity)
	}
	if len(sets) == 0 {
		return s.GetPayroll(ctx, id)
	}
	add("updatedat", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE payroll SET %s WHERE objectid = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), payrollColumns)
	p, err := scanPayroll(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return payroll.Payroll{}, mapPgError(err)
	}
	return p, nil
}

func (s *Store) DeletePayroll(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM employee_payroll WHERE payroll = $1", id); err != nil {
		return mapPgError(err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM payroll WHERE objectid = $1", id)
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

func (s *Store) ListPayrollByPeriod(ctx context.Context, start, end time.Time) ([]payroll.Payroll, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil, fmt.Errorf("%w: invalid period", payroll.ErrInvalidInput)
	}
	return collectPayroll(ctx, s, `
		SELECT `+payrollColumns+`
		FROM payroll
		WHERE date >= $1 AND date <= $2
		ORDER BY date, objectid`, start, end)
}

// CalculatePayroll aggregates an employee's linked rows within the
// period: per row, hours times the base rate plus both transport costs.
func (s *Store) CalculatePayroll(ctx context.Context, employeeID string, start, end time.Time) (payroll.PayrollCalculation, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return payroll.PayrollCalculation{}, fmt.Errorf("%w: invalid period", payroll.ErrInvalidInput)
	}
	e, err := s.GetEmployee(ctx, employeeID)
	if err != nil {
		return payroll.PayrollCalculation{}, err
	}

	calc := payroll.PayrollCalculation{
		EmployeeID:   employeeID,
		StartDate:    start,
		EndDate:      end,
		CalculatedAt: time.Now().UTC(),
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(p.hours), 0),
		       COALESCE(SUM(p.hours * $1 + $2), 0)
		FROM payroll p
		JOIN employee_payroll ep ON ep.payroll = p.objectid
		WHERE ep.employee = $3 AND p.date >= $4 AND p.date <= $5`,
		e.BaseRate, e.TransportCost+e.AdditionalTransportCost, employeeID, start, end).
		Scan(&calc.Hours, &calc.Amount)
	if err != nil {
		return payroll.PayrollCalculation{}, mapPgError(err)
	}
	return calc, nil
}
