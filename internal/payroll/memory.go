package payroll

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"kintai.org/internal/auth"
	"kintai.org/internal/ids"
)

// InMemory is a mutex-guarded, map-backed Service. It backs tests and
// lets the API boot without a database.
type InMemory struct {
	mu          sync.Mutex
	users       map[string]User
	roles       map[string]Role
	userRoles   map[string]map[string]struct{}
	employees   map[string]Employee
	payrolls    map[string]Payroll
	links       map[string]EmployeePayroll
	invoices    map[string]Invoice
	assignments map[string]Assignment
}

var _ Service = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		users:       make(map[string]User),
		roles:       make(map[string]Role),
		userRoles:   make(map[string]map[string]struct{}),
		employees:   make(map[string]Employee),
		payrolls:    make(map[string]Payroll),
		links:       make(map[string]EmployeePayroll),
		invoices:    make(map[string]Invoice),
		assignments: make(map[string]Assignment),
	}
}

// Users.

func (m *InMemory) ListUsers(_ context.Context, opts ListUsersOptions) (UserPage, error) {
	opts = opts.Normalize()

	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]User, 0, len(m.users))
	needle := strings.ToLower(strings.TrimSpace(opts.Search))
	for _, u := range m.users {
		if needle != "" &&
			!strings.Contains(strings.ToLower(u.Username), needle) &&
			!strings.Contains(strings.ToLower(u.Email), needle) {
			continue
		}
		matched = append(matched, u)
	}

	asc := opts.SortOrder == "ASC"
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less bool
		switch opts.SortBy {
		case "username":
			less = a.Username < b.Username
		case "email":
			less = a.Email < b.Email
		case "objectid":
			less = a.ObjectID < b.ObjectID
		case "updatedat":
			less = a.UpdatedAt.Before(b.UpdatedAt)
		default:
			less = a.CreatedAt.Before(b.CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})

	page := UserPage{Total: len(matched), Limit: opts.Limit, Offset: opts.Offset, Users: []User{}}
	if opts.Offset < len(matched) {
		end := opts.Offset + opts.Limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Users = append(page.Users, matched[opts.Offset:end]...)
	}
	return page, nil
}

func (m *InMemory) CreateUser(_ context.Context, input NewUser) (User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return User{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return User{}, err
	}

	email := strings.TrimSpace(input.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return User{}, fmt.Errorf("%w: username already exists", ErrConflict)
		}
		if email != "" && u.Email == email {
			return User{}, fmt.Errorf("%w: email already exists", ErrConflict)
		}
	}

	now := time.Now().UTC()
	u := User{
		ObjectID:     ids.New(),
		Username:     username,
		Email:        email,
		AuthData:     input.AuthData,
		ACL:          input.ACL,
		CreatedAt:    now,
		UpdatedAt:    now,
		PasswordHash: hash,
	}
	m.users[u.ObjectID] = u
	return u, nil
}

func (m *InMemory) GetUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *InMemory) UpdateUser(_ context.Context, id string, upd UserUpdate) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email != "" {
			for otherID, other := range m.users {
				if otherID != id && other.Email == email {
					return User{}, fmt.Errorf("%w: email already exists", ErrConflict)
				}
			}
		}
		u.Email = email
	}
	if upd.EmailVerified != nil {
		u.EmailVerified = *upd.EmailVerified
	}
	if upd.Password != nil {
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return User{}, err
		}
		u.PasswordHash = hash
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return u, nil
}

func (m *InMemory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	delete(m.userRoles, id)
	return nil
}

func (m *InMemory) FindUserForAuth(_ context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// Roles.

func (m *InMemory) CreateRole(_ context.Context, name string, acl ACL) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			return Role{}, fmt.Errorf("%w: role already exists", ErrConflict)
		}
	}
	now := time.Now().UTC()
	r := Role{ObjectID: ids.New(), Name: name, ACL: acl, CreatedAt: now, UpdatedAt: now}
	m.roles[r.ObjectID] = r
	return r, nil
}

func (m *InMemory) GetRole(_ context.Context, id string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (m *InMemory) ListRoles(_ context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *InMemory) AssignRole(_ context.Context, userID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.roles[roleID]; !ok {
		return ErrNotFound
	}
	set, ok := m.userRoles[userID]
	if !ok {
		set = make(map[string]struct{})
		m.userRoles[userID] = set
	}
	set[roleID] = struct{}{}
	return nil
}

func (m *InMemory) RoleNamesForUser(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for roleID := range m.userRoles[userID] {
		if r, ok := m.roles[roleID]; ok {
			names = append(names, r.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Employees.

func (m *InMemory) ListEmployees(_ context.Context) ([]Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sortByCreated(out, func(e Employee) (time.Time, string) { return e.CreatedAt, e.ObjectID })
	return out, nil
}

func (m *InMemory) CreateEmployee(_ context.Context, e Employee) (Employee, error) {
	if strings.TrimSpace(e.Name) == "" {
		return Employee{}, fmt.Errorf("%w: employee name is required", ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	e.ObjectID = ids.New()
	e.Name = strings.TrimSpace(e.Name)
	e.CreatedAt = now
	e.UpdatedAt = now
	m.employees[e.ObjectID] = e
	return e, nil
}

func (m *InMemory) GetEmployee(_ context.Context, id string) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return e, nil
}

func (m *InMemory) UpdateEmployee(_ context.Context, id string, upd EmployeeUpdate) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	if upd.Name != nil {
		e.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Other != nil {
		e.Other = *upd.Other
	}
	if upd.BaseRate != nil {
		e.BaseRate = *upd.BaseRate
	}
	if upd.TransportCost != nil {
		e.TransportCost = *upd.TransportCost
	}
	if upd.AdditionalTransportCost != nil {
		e.AdditionalTransportCost = *upd.AdditionalTransportCost
	}
	e.UpdatedAt = time.Now().UTC()
	m.employees[id] = e
	return e, nil
}

func (m *InMemory) DeleteEmployee(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[id]; !ok {
		return ErrNotFound
	}
	for linkID, l := range m.links {
		if l.Employee == id {
			delete(m.links, linkID)
		}
	}
	delete(m.employees, id)
	return nil
}

func (m *InMemory) SearchEmployees(_ context.Context, filter EmployeeFilter) ([]Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(strings.TrimSpace(filter.Name))
	out := []Employee{}
	for _, e := range m.employees {
		if needle != "" && !strings.Contains(strings.ToLower(e.Name), needle) {
			continue
		}
		out = append(out, e)
	}
	sortByCreated(out, func(e Employee) (time.Time, string) { return e.CreatedAt, e.ObjectID })
	return out, nil
}

func (m *InMemory) PayrollForEmployee(_ context.Context, employeeID string) ([]Payroll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[employeeID]; !ok {
		return nil, ErrNotFound
	}
	out := []Payroll{}
	for _, l := range m.links {
		if l.Employee != employeeID {
			continue
		}
		if p, ok := m.payrolls[l.Payroll]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ObjectID < out[j].ObjectID
	})
	return out, nil
}

// Payroll.

func (m *InMemory) ListPayroll(_ context.Context) ([]Payroll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Payroll, 0, len(m.payrolls))
	for _, p := range m.payrolls {
		out = append(out, p)
	}
	sortByCreated(out, func(p Payroll) (time.Time, string) { return p.CreatedAt, p.ObjectID })
	return out, nil
}

func (m *InMemory) CreatePayroll(_ context.Context, p Payroll) (Payroll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	p.ObjectID = ids.New()
	if p.Date.IsZero() {
		p.Date = now
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	m.payrolls[p.ObjectID] = p
	return p, nil
}

func (m *InMemory) GetPayroll(_ context.Context, id string) (Payroll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payrolls[id]
	if !ok {
		return Payroll{}, ErrNotFound
	}
	return p, nil
}

func (m *InMemory) UpdatePayroll(_ context.Context, id string, upd PayrollUpdate) (Payroll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payrolls[id]
	if !ok {
		return Payroll{}, ErrNotFound
	}
	if upd.Date != nil {
		p.Date = *upd.Date
	}
	if upd.Hours != nil {
		p.Hours = *upd.Hours
	}
	if upd.ClientName != nil {
		p.ClientName = *upd.ClientName
	}
	if upd.Task != nil {
		p.Task = *upd.Task
	}
	if upd.PersonInCharge != nil {
		p.PersonInCharge = *upd.PersonInCharge
	}
	if upd.SiteName != nil {
		p.SiteName = *upd.SiteName
	}
	if upd.Location != nil {
		p.Location = *upd.Location
	}
	if upd.OrderNumber != nil {
		p.OrderNumber = *upd.OrderNumber
	}
	if upd.Quantity != nil {
		p.Quantity = *upd.Quantity
	}
	p.UpdatedAt = time.Now().UTC()
	m.payrolls[id] = p
	return p, nil
}

func (m *InMemory) DeletePayroll(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payrolls[id]; !ok {
		return ErrNotFound
	}
	for linkID, l := range m.links {
		if l.Payroll == id {
			delete(m.links, linkID)
		}
	}
	delete(m.payrolls, id)
	return nil
}

func (m *InMemory) ListPayrollByPeriod(_ context.Context, start, end time.Time) ([]Payroll, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil, fmt.Errorf("%w: invalid period", ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Payroll{}
	for _, p := range m.payrolls {
		if inPeriod(p.Date, start, end) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ObjectID < out[j].ObjectID
	})
	return out, nil
}

func (m *InMemory) CalculatePayroll(_ context.Context, employeeID string, start, end time.Time) (PayrollCalculation, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return PayrollCalculation{}, fmt.Errorf("%w: invalid period", ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[employeeID]
	if !ok {
		return PayrollCalculation{}, ErrNotFound
	}
	calc := PayrollCalculation{
		EmployeeID:   employeeID,
		StartDate:    start,
		EndDate:      end,
		CalculatedAt: time.Now().UTC(),
	}
	for _, l := range m.links {
		if l.Employee != employeeID {
			continue
		}
		p, ok := m.payrolls[l.Payroll]
		if !ok || !inPeriod(p.Date, start, end) {
			continue
		}
		calc.Hours += p.Hours
		calc.Amount += p.Hours*e.BaseRate + e.TransportCost + e.AdditionalTransportCost
	}
	return calc, nil
}

// Invoices.

func (m *InMemory) ListInvoices(_ context.Context) ([]Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		out = append(out, inv)
	}
	sortByCreated(out, func(inv Invoice) (time.Time, string) { return inv.CreatedAt, inv.ObjectID })
	return out, nil
}

func (m *InMemory) CreateInvoice(_ context.Context, inv Invoice) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	inv.ObjectID = ids.New()
	if inv.Date.IsZero() {
		inv.Date = now
	}
	inv.CreatedAt = now
	inv.UpdatedAt = now
	m.invoices[inv.ObjectID] = inv
	return inv, nil
}

func (m *InMemory) GetInvoice(_ context.Context, id string) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (m *InMemory) UpdateInvoice(_ context.Context, id string, upd InvoiceUpdate) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	if upd.Quantity != nil {
		inv.Quantity = *upd.Quantity
	}
	if upd.OrderNumber != nil {
		inv.OrderNumber = *upd.OrderNumber
	}
	if upd.ProductName != nil {
		inv.ProductName = *upd.ProductName
	}
	if upd.Amount != nil {
		inv.Amount = *upd.Amount
	}
	if upd.UnitPrice != nil {
		inv.UnitPrice = *upd.UnitPrice
	}
	if upd.Date != nil {
		inv.Date = *upd.Date
	}
	inv.UpdatedAt = time.Now().UTC()
	m.invoices[id] = inv
	return inv, nil
}

func (m *InMemory) DeleteInvoice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(m.invoices, id)
	return nil
}

// Assignments.

func (m *InMemory) ListAssignments(_ context.Context) ([]Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Assignment, 0, len(m.assignments))
	for _, a := range m.assignments {
		out = append(out, a)
	}
	sortByCreated(out, func(a Assignment) (time.Time, string) { return a.CreatedAt, a.ObjectID })
	return out, nil
}

func (m *InMemory) CreateAssignment(_ context.Context, a Assignment) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	a.ObjectID = ids.New()
	if a.Date.IsZero() {
		a.Date = now
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	m.assignments[a.ObjectID] = a
	return a, nil
}

func (m *InMemory) GetAssignment(_ context.Context, id string) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return Assignment{}, ErrNotFound
	}
	return a, nil
}

func (m *InMemory) UpdateAssignment(_ context.Context, id string, upd AssignmentUpdate) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return Assignment{}, ErrNotFound
	}
	if upd.Date != nil {
		a.Date = *upd.Date
	}
	if upd.Task != nil {
		a.Task = *upd.Task
	}
	if upd.Location != nil {
		a.Location = *upd.Location
	}
	if upd.ClientName != nil {
		a.ClientName = *upd.ClientName
	}
	if upd.TotalTransportCost != nil {
		a.TotalTransportCost = *upd.TotalTransportCost
	}
	if upd.Quantity != nil {
		a.Quantity = *upd.Quantity
	}
	if upd.SalesAmount != nil {
		a.SalesAmount = *upd.SalesAmount
	}
	if upd.OrderNumber != nil {
		a.OrderNumber = *upd.OrderNumber
	}
	if upd.SiteName != nil {
		a.SiteName = *upd.SiteName
	}
	if upd.Hours != nil {
		a.Hours = *upd.Hours
	}
	if upd.UnitPrice != nil {
		a.UnitPrice = *upd.UnitPrice
	}
	if upd.PersonInCharge != nil {
		a.PersonInCharge = *upd.PersonInCharge
	}
	a.UpdatedAt = time.Now().UTC()
	m.assignments[id] = a
	return a, nil
}

func (m *InMemory) DeleteAssignment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[id]; !ok {
		return ErrNotFound
	}
	delete(m.assignments, id)
	return nil
}

// Work orders.

func (m *InMemory) CreateWorkOrder(_ context.Context, input WorkOrderInput, employeeIDs []string) (WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check every referenced employee before writing anything so a bad
	// id leaves no partial records behind.
	for _, id := range employeeIDs {
		if _, ok := m.employees[id]; !ok {
			return WorkOrder{}, fmt.Errorf("%w: employee %s", ErrNotFound, id)
		}
	}

	now := time.Now().UTC()
	date := input.Date
	if date.IsZero() {
		date = now
	}

	order := WorkOrder{
		Assignment: Assignment{
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
		Payroll: Payroll{
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
		Invoice: Invoice{
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
		EmployeePayrolls: make([]EmployeePayroll, 0, len(employeeIDs)),
	}
	for _, employeeID := range employeeIDs {
		order.EmployeePayrolls = append(order.EmployeePayrolls, EmployeePayroll{
			ObjectID:  ids.New(),
			Employee:  employeeID,
			Payroll:   order.Payroll.ObjectID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	m.assignments[order.Assignment.ObjectID] = order.Assignment
	m.payrolls[order.Payroll.ObjectID] = order.Payroll
	for _, l := range order.EmployeePayrolls {
		m.links[l.ObjectID] = l
	}
	m.invoices[order.Invoice.ObjectID] = order.Invoice
	return order, nil
}

func inPeriod(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func sortByCreated[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
}
