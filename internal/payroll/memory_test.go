package payroll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedEmployee(t *testing.T, m *InMemory, name string, baseRate, transport, extra float64) Employee {
	t.Helper()
	e, err := m.CreateEmployee(context.Background(), Employee{
		Name:                    name,
		BaseRate:                baseRate,
		TransportCost:           transport,
		AdditionalTransportCost: extra,
	})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	return e
}

func TestCreateWorkOrderWritesAllRecordSets(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	e1 := seedEmployee(t, m, "Sato", 1500, 500, 0)
	e2 := seedEmployee(t, m, "Suzuki", 1800, 300, 100)

	date := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	input := WorkOrderInput{
		Date:           date,
		Task:           "cable installation",
		Location:       "Shinagawa",
		ClientName:     "ACME Networks",
		Quantity:       3,
		SalesAmount:    120000,
		OrderNumber:    "ORD-1001",
		SiteName:       "Tower B",
		Hours:          8,
		UnitPrice:      40000,
		PersonInCharge: "usr-1",
	}

	order, err := m.CreateWorkOrder(ctx, input, []string{e1.ObjectID, e2.ObjectID})
	if err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}

	if len(order.EmployeePayrolls) != 2 {
		t.Fatalf("expected 2 employee links, got %d", len(order.EmployeePayrolls))
	}
	if order.EmployeePayrolls[0].Employee != e1.ObjectID || order.EmployeePayrolls[1].Employee != e2.ObjectID {
		t.Fatalf("links must preserve submitted order: %+v", order.EmployeePayrolls)
	}
	for _, l := range order.EmployeePayrolls {
		if l.Payroll != order.Payroll.ObjectID {
			t.Fatalf("link points at wrong payroll row: %s", l.Payroll)
		}
	}

	// Invoice fields derive from the input.
	if order.Invoice.ProductName != input.Task {
		t.Fatalf("invoice product_name: got %q, want %q", order.Invoice.ProductName, input.Task)
	}
	if order.Invoice.Amount != input.SalesAmount {
		t.Fatalf("invoice amount: got %v, want %v", order.Invoice.Amount, input.SalesAmount)
	}

	// Payroll copies the shared work fields.
	if order.Payroll.Hours != input.Hours || order.Payroll.ClientName != input.ClientName ||
		order.Payroll.Task != input.Task || order.Payroll.OrderNumber != input.OrderNumber {
		t.Fatalf("payroll row does not mirror input: %+v", order.Payroll)
	}

	// One shared timestamp across the whole composite write.
	created := order.Assignment.CreatedAt
	for _, ts := range []time.Time{
		order.Payroll.CreatedAt, order.Invoice.CreatedAt,
		order.EmployeePayrolls[0].CreatedAt, order.EmployeePayrolls[1].CreatedAt,
	} {
		if !ts.Equal(created) {
			t.Fatalf("timestamps differ within one work order: %v vs %v", ts, created)
		}
	}

	assignments, _ := m.ListAssignments(ctx)
	payrolls, _ := m.ListPayroll(ctx)
	invoices, _ := m.ListInvoices(ctx)
	if len(assignments) != 1 || len(payrolls) != 1 || len(invoices) != 1 {
		t.Fatalf("expected 1/1/1 stored records, got %d/%d/%d", len(assignments), len(payrolls), len(invoices))
	}
}

func TestCreateWorkOrderUnknownEmployeeLeavesNothingBehind(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	e := seedEmployee(t, m, "Sato", 1500, 0, 0)

	_, err := m.CreateWorkOrder(ctx, WorkOrderInput{Task: "inspection"}, []string{e.ObjectID, "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	assignments, _ := m.ListAssignments(ctx)
	payrolls, _ := m.ListPayroll(ctx)
	invoices, _ := m.ListInvoices(ctx)
	if len(assignments) != 0 || len(payrolls) != 0 || len(invoices) != 0 {
		t.Fatal("failed work order must not persist partial records")
	}
}

func TestCreateWorkOrderWithoutEmployees(t *testing.T) {
	m := NewInMemory()
	order, err := m.CreateWorkOrder(context.Background(), WorkOrderInput{Task: "survey"}, nil)
	if err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}
	if len(order.EmployeePayrolls) != 0 {
		t.Fatalf("expected no links, got %d", len(order.EmployeePayrolls))
	}
	if order.Assignment.Date.IsZero() || order.Payroll.Date.IsZero() {
		t.Fatal("zero input date must default to the write time")
	}
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	if _, err := m.CreateUser(ctx, NewUser{Username: "admin", Password: "pw1"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := m.CreateUser(ctx, NewUser{Username: "admin", Password: "pw2"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := m.CreateUser(ctx, NewUser{Username: "", Password: "pw"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListUsersSearchAndPagination(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	for _, name := range []string{"alice", "albert", "bob"} {
		if _, err := m.CreateUser(ctx, NewUser{Username: name, Password: "pw", Email: name + "@example.com"}); err != nil {
			t.Fatalf("CreateUser %s: %v", name, err)
		}
	}

	page, err := m.ListUsers(ctx, ListUsersOptions{Search: "al", SortBy: "username", SortOrder: "asc", Limit: 1})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 matches, got %d", page.Total)
	}
	if len(page.Users) != 1 || page.Users[0].Username != "albert" {
		t.Fatalf("unexpected first page: %+v", page.Users)
	}

	page, err = m.ListUsers(ctx, ListUsersOptions{Search: "al", SortBy: "username", SortOrder: "asc", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListUsers offset: %v", err)
	}
	if len(page.Users) != 1 || page.Users[0].Username != "alice" {
		t.Fatalf("unexpected second page: %+v", page.Users)
	}
	if page.Users[0].PasswordHash == "" {
		t.Fatal("in-memory store should retain the hash internally")
	}
}

func TestRoleAssignmentAndLookup(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	u, err := m.CreateUser(ctx, NewUser{Username: "carol", Password: "pw"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	admin, err := m.CreateRole(ctx, "admin", nil)
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	staff, err := m.CreateRole(ctx, "staff", nil)
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if _, err := m.CreateRole(ctx, "admin", nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected duplicate role conflict, got %v", err)
	}

	for _, roleID := range []string{admin.ObjectID, staff.ObjectID, admin.ObjectID} {
		if err := m.AssignRole(ctx, u.ObjectID, roleID); err != nil {
			t.Fatalf("AssignRole: %v", err)
		}
	}
	if err := m.AssignRole(ctx, u.ObjectID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown role, got %v", err)
	}

	names, err := m.RoleNamesForUser(ctx, u.ObjectID)
	if err != nil {
		t.Fatalf("RoleNamesForUser: %v", err)
	}
	if len(names) != 2 || names[0] != "admin" || names[1] != "staff" {
		t.Fatalf("unexpected role names: %v", names)
	}
}

func TestSearchEmployeesMatchesNameOnly(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	seedEmployee(t, m, "Tanaka Hiro", 1000, 0, 0)
	seedEmployee(t, m, "Yamada", 1000, 0, 0)

	found, err := m.SearchEmployees(ctx, EmployeeFilter{Name: "tanaka", Department: "ops", Position: "lead"})
	if err != nil {
		t.Fatalf("SearchEmployees: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Tanaka Hiro" {
		t.Fatalf("unexpected search result: %+v", found)
	}
}

func TestCalculatePayrollSumsLinkedRows(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	e := seedEmployee(t, m, "Sato", 1500, 500, 100)

	d1 := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	outOfRange := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	for _, wo := range []WorkOrderInput{
		{Date: d1, Hours: 8},
		{Date: d2, Hours: 6},
		{Date: outOfRange, Hours: 4},
	} {
		if _, err := m.CreateWorkOrder(ctx, wo, []string{e.ObjectID}); err != nil {
			t.Fatalf("CreateWorkOrder: %v", err)
		}
	}

	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
	calc, err := m.CalculatePayroll(ctx, e.ObjectID, start, end)
	if err != nil {
		t.Fatalf("CalculatePayroll: %v", err)
	}
	if calc.Hours != 14 {
		t.Fatalf("expected 14 hours, got %v", calc.Hours)
	}
	// Two in-range rows: 8h and 6h at 1500 plus 600 transport each.
	want := 8*1500.0 + 600 + 6*1500.0 + 600
	if calc.Amount != want {
		t.Fatalf("expected amount %v, got %v", want, calc.Amount)
	}

	if _, err := m.CalculatePayroll(ctx, "missing", start, end); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.CalculatePayroll(ctx, e.ObjectID, end, start); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for inverted period, got %v", err)
	}
}

func TestPayrollForEmployee(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	e := seedEmployee(t, m, "Sato", 1500, 0, 0)
	other := seedEmployee(t, m, "Suzuki", 1500, 0, 0)

	if _, err := m.CreateWorkOrder(ctx, WorkOrderInput{Task: "a", Hours: 2}, []string{e.ObjectID}); err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}
	if _, err := m.CreateWorkOrder(ctx, WorkOrderInput{Task: "b", Hours: 3}, []string{other.ObjectID}); err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}

	rows, err := m.PayrollForEmployee(ctx, e.ObjectID)
	if err != nil {
		t.Fatalf("PayrollForEmployee: %v", err)
	}
	if len(rows) != 1 || rows[0].Task != "a" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if _, err := m.PayrollForEmployee(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePayrollAppliesProvidedFieldsOnly(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	p, err := m.CreatePayroll(ctx, Payroll{Task: "wiring", Hours: 5, ClientName: "ACME"})
	if err != nil {
		t.Fatalf("CreatePayroll: %v", err)
	}

	hours := 7.5
	updated, err := m.UpdatePayroll(ctx, p.ObjectID, PayrollUpdate{Hours: &hours})
	if err != nil {
		t.Fatalf("UpdatePayroll: %v", err)
	}
	if updated.Hours != 7.5 || updated.Task != "wiring" || updated.ClientName != "ACME" {
		t.Fatalf("partial update changed unrelated fields: %+v", updated)
	}
	if !updated.UpdatedAt.After(p.UpdatedAt) && !updated.UpdatedAt.Equal(p.UpdatedAt) {
		t.Fatal("updatedat must move forward")
	}
}
