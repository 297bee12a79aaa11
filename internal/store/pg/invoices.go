package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kintai.org/internal/ids"
	"kintai.org/internal/payroll"
)

const invoiceColumns = "objectid, quantity, order_number, product_name, amount, unit_price, date, acl, createdat, updatedat"

func scanInvoice(row rowScanner) (payroll.Invoice, error) {
	var (
		inv payroll.Invoice
		acl []byte
	)
	err := row.Scan(&inv.ObjectID, &inv.Quantity, &inv.OrderNumber, &inv.ProductName,
		&inv.Amount, &inv.UnitPrice, &inv.Date, &acl, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return payroll.Invoice{}, err
	}
	if inv.ACL, err = scanACL(acl); err != nil {
		return payroll.Invoice{}, err
	}
	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context) ([]payroll.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+invoiceColumns+" FROM invoices ORDER BY createdat, objectid")
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []payroll.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) CreateInvoice(ctx context.Context, inv payroll.Invoice) (payroll.Invoice, error) {
	acl, err := aclValue(inv.ACL)
	if err != nil {
		return payroll.Invoice{}, err
	}
	now := time.Now().UTC()
	inv.ObjectID = ids.New()
	if inv.Date.IsZero() {
		inv.Date = now
	}
	inv.CreatedAt = now
	inv.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices (objectid, quantity, order_number, product_name, amount, unit_price, date, acl, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inv.ObjectID, inv.Quantity, inv.OrderNumber, inv.ProductName, inv.Amount,
		inv.UnitPrice, inv.Date, acl, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return payroll.Invoice{}, mapPgError(err)
	}
	return inv, nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (payroll.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE objectid = $1", id))
	if err != nil {
		return payroll.Invoice{}, mapPgError(err)
	}
	return inv, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, id string, upd payroll.InvoiceUpdate) (payroll.Invoice, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Quantity != nil {
		add("quantity", *upd.Quantity)
	}
	if upd.OrderNumber != nil {
		add("order_number", *upd.OrderNumber)
	}
	if upd.ProductName != nil {
		add("product_name", *upd.ProductName)
	}
	if upd.Amount != nil {
		add("amount", *upd.Amount)
	}
	if upd.UnitPrice != nil {
		add("unit_price", *upd.UnitPrice)
	}
	if upd.Date != nil {
		add("date", *upd.Date)
	}
	if len(sets) == 0 {
		return s.GetInvoice(ctx, id)
	}
	add("updatedat", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE invoices SET %s WHERE objectid = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), invoiceColumns)
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return payroll.Invoice{}, mapPgError(err)
	}
	return inv, nil
}

func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM invoices WHERE objectid = $1", id)
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
