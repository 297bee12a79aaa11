package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kintai.org/internal/ids"
	"kintai.org/internal/payroll"
)

const assignmentColumns = "objectid, date, task, location, client_name, total_transport_cost, quantity, sales_amount, order_number, site_name, hours, unit_price, person_in_charge, acl, createdat, updatedat"

func scanAssignment(row rowScanner) (payroll.Assignment, error) {
	var (
		a   payroll.Assignment
		acl []byte
	)
	err := row.Scan(&a.ObjectID, &a.Date, &a.Task, &a.Location, &a.ClientName,
		&a.TotalTransportCost, &a.Quantity, &a.SalesAmount, &a.OrderNumber, &a.SiteName,
		&a.Hours, &a.UnitPrice, &a.PersonInCharge, &acl, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return payroll.Assignment{}, err
	}
	if a.ACL, err = scanACL(acl); err != nil {
		return payroll.Assignment{}, err
	}
	return a, nil
}

func (s *Store) ListAssignments(ctx context.Context) ([]payroll.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+assignmentColumns+" FROM assignments ORDER BY createdat, objectid")
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []payroll.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateAssignment(ctx context.Context, a payroll.Assignment) (payroll.Assignment, error) {
	acl, err := aclValue(a.ACL)
	if err != nil {
		return payroll.Assignment{}, err
	}
	now := time.Now().UTC()
	a.ObjectID = ids.New()
	if a.Date.IsZero() {
		a.Date = now
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, insertAssignmentQuery,
		a.ObjectID, a.Date, a.Task, a.Location, a.ClientName, a.TotalTransportCost,
		a.Quantity, a.SalesAmount, a.OrderNumber, a.SiteName, a.Hours, a.UnitPrice,
		a.PersonInCharge, acl, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return payroll.Assignment{}, mapPgError(err)
	}
	return a, nil
}

const insertAssignmentQuery = `
		INSERT INTO assignments (objectid, date, task, location, client_name, total_transport_cost, quantity, sales_amount, order_number, site_name, hours, unit_price, person_in_charge, acl, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

func (s *Store) GetAssignment(ctx context.Context, id string) (payroll.Assignment, error) {
	a, err := scanAssignment(s.db.QueryRowContext(ctx, "SELECT "+assignmentColumns+" FROM assignments WHERE objectid = $1", id))
	if err != nil {
		return payroll.Assignment{}, mapPgError(err)
	}
	return a, nil
}

func (s *Store) UpdateAssignment(ctx context.Context, id string, upd payroll.AssignmentUpdate) (payroll.Assignment, error) {
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
	if upd.Task != nil {
		add("task", *upd.Task)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.ClientName != nil {
		add("client_name", *upd.ClientName)
	}
	if upd.TotalTransportCost != nil {
		add("total_transport_cost", *upd.TotalTransportCost)
	}
	if upd.Quantity != nil {
		add("quantity", *upd.Quantity)
	}
	if upd.SalesAmount != nil {
		add("sales_amount", *upd.SalesAmount)
	}
	if upd.OrderNumber != nil {
		add("order_number", *upd.OrderNumber)
	}
	if upd.SiteName != nil {
		add("site_name", *upd.SiteName)
	}
	if upd.Hours != nil {
		add("hours", *upd.Hours)
	}
	if upd.UnitPrice != nil {
		add("unit_price", *upd.UnitPrice)
	}
	if upd.PersonInCharge != nil {
		add("person_in_charge", *upd.PersonInCharge)
	}
	if len(sets) == 0 {
		return s.GetAssignment(ctx, id)
	}
	add("updatedat", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE assignments SET %s WHERE objectid = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), assignmentColumns)
	a, err := scanAssignment(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return payroll.Assignment{}, mapPgError(err)
	}
	return a, nil
}

func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM assignments WHERE objectid = $1", id)
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
	return nil
}
