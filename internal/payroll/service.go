package payroll

import (
	"context"
	"time"
)

// Service is the full administrative surface. The Postgres store and
// the in-memory implementation both satisfy it.
type Service interface {
	// Users.
	ListUsers(ctx context.Context, opts ListUsersOptions) (UserPage, error)
	CreateUser(ctx context.Context, input NewUser) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error)
	DeleteUser(ctx context.Context, id string) error
	// FindUserForAuth fetches by username and includes the password
	// hash. Login is its only caller.
	FindUserForAuth(ctx context.Context, username string) (User, error)

	// Roles.
	CreateRole(ctx context.Context, name string, acl ACL) (Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	AssignRole(ctx context.Context, userID, roleID string) error
	RoleNamesForUser(ctx context.Context, userID string) ([]string, error)

	// Employees.
	ListEmployees(ctx context.Context) ([]Employee, error)
	CreateEmployee(ctx context.Context, e Employee) (Employee, error)
	GetEmployee(ctx context.Context, id string) (Employee, error)
	UpdateEmployee(ctx context.Context, id string, upd EmployeeUpdate) (Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
	SearchEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
	// PayrollForEmployee lists the payroll rows linked to the employee
	// through employee_payroll.
	PayrollForEmployee(ctx context.Context, employeeID string) ([]Payroll, error)

	// Payroll.
	ListPayroll(ctx context.Context) ([]Payroll, error)
	CreatePayroll(ctx context.Context, p Payroll) (Payroll, error)
	GetPayroll(ctx context.Context, id string) (Payroll, error)
	UpdatePayroll(ctx context.Context, id string, upd PayrollUpdate) (Payroll, error)
	DeletePayroll(ctx context.Context, id string) error
	ListPayrollByPeriod(ctx context.Context, start, end time.Time) ([]Payroll, error)
	CalculatePayroll(ctx context.Context, employeeID string, start, end time.Time) (PayrollCalculation, error)

	// Invoices.
	ListInvoices(ctx context.Context) ([]Invoice, error)
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	GetInvoice(ctx context.Context, id string) (Invoice, error)
	UpdateInvoice(ctx context.Context, id string, upd InvoiceUpdate) (Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error

	// Assignments.
	ListAssignments(ctx context.Context) ([]Assignment, error)
	CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	UpdateAssignment(ctx context.Context, id string, upd AssignmentUpdate) (Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error

	// CreateWorkOrder performs the composite write: one assignment, one
	// payroll row, one employee_payroll link per employee id, and one
	// invoice, atomically. An unknown employee id fails the whole order.
	CreateWorkOrder(ctx context.Context, input WorkOrderInput, employeeIDs []string) (WorkOrder, error)
}
