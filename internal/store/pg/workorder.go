package pg

import (
	"context"
	"time"

	"kintai.org/internal/ids"
	"kintai.org/internal/payroll"
)

// CreateWorkOrder writes the assignment, the payroll row, one
// employee_payroll link per employee id and the derived invoice in a
// single transaction. Every row shares the same timestamp; an unknown
// employee id trips the link table's foreign key and rolls the whole
// order back.
func (s *Store) CreateWorkOrder(ctx context.Context, input payroll.WorkOrderInput, employeeIDs []string) (payroll.WorkOrder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return payroll.WorkOrder{}, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	date := input.Date
	if date.IsZero() {
		date = now
	}

	order := payroll.WorkOrder{
		Assignment: payroll.Assignment{
			ObjectID:           ids.New(),
			Date:               date,
			Task:               input.Task,
			Location:           input.Location,
			ClientName:         input.ClientName,
			TotalTransportCost: input.TotalTransportCost,
			Quantity:           input.Quantity,
			SalesAmount:        input.SalesAmount,
			OrderNumber:        input.OrderNumber,
			SiteName:           input.SiteName,
			Hours:              input.Hours,
			UnitPrice:          input.UnitPrice,
			PersonInCharge:     input.PersonInCharge,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		Payroll: payroll.Payroll{
			ObjectID:       ids.New(),
			Date:           date,
			Hours:          input.Hours,
			ClientName:     input.ClientName,
			Task:           input.Task,
			PersonInCharge: input.PersonInCharge,
			SiteName:       input.SiteName,
			Location:       input.Location,
			OrderNumber:    input.OrderNumber,
			Quantity:       input.Quantity,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		Invoice: payroll.Invoice{
			ObjectID:    ids.New(),
			Quantity:    input.Quantity,
			OrderNumber: input.OrderNumber,
			ProductName: input.Task,
			Amount:      input.SalesAmount,
			UnitPrice:   input.UnitPrice,
			Date:        date,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		EmployeePayrolls: make([]payroll.EmployeePayroll, 0, len(employeeIDs)),
	}

	a := order.Assignment
	if _, err := tx.ExecContext(ctx, insertAssignmentQuery,
		a.ObjectID, a.Date, a.Task, a.Location, a.ClientName, a.TotalTransportCost,
		a.Quantity, a.SalesAmount, a.OrderNumber, a.SiteName, a.Hours, a.UnitPrice,
		a.PersonInCharge, nil, a.CreatedAt, a.UpdatedAt); err != nil {
		return payroll.WorkOrder{}, mapPgError(err)
	}

	p := order.Payroll
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payroll (objectid, date, hours, client_name, task, person_in_charge, site_name, location, order_number, quantity, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ObjectID, p.Date, p.Hours, p.ClientName, p.Task, p.PersonInCharge,
		p.SiteName, p.Location, p.OrderNumber, p.Quantity, p.CreatedAt, p.UpdatedAt); err != nil {
		return payroll.WorkOrder{}, mapPgError(err)
	}

	for _, employeeID := range employeeIDs {
		link := payroll.EmployeePayroll{
			ObjectID:  ids.New(),
			Employee:  employeeID,
			Payroll:   p.ObjectID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO employee_payroll (objectid, employee, payroll, createdat, updatedat)
			VALUES ($1, $2, $3, $4, $5)`,
			link.ObjectID, link.Employee, link.Payroll, link.CreatedAt, link.UpdatedAt); err != nil {
			return payroll.WorkOrder{}, mapPgError(err)
		}
		order.EmployeePayrolls = append(order.EmployeePayrolls, link)
	}

	inv := order.Invoice
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (objectid, quantity, order_number, product_name, amount, unit_price, date, acl, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inv.ObjectID, inv.Quantity, inv.OrderNumber, inv.ProductName, inv.Amount,
		inv.UnitPrice, inv.Date, nil, inv.CreatedAt, inv.UpdatedAt); err != nil {
		return payroll.WorkOrder{}, mapPgError(err)
	}

	if err := tx.Commit(); err != nil {
		return payroll.WorkOrder{}, err
	}
	return order, nil
}
