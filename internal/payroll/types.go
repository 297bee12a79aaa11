// Package payroll defines the administrative domain records (users,
// roles, employees, payroll rows, assignments, invoices) and the service
// surface over them, including the composite work-order write.
package payroll

import (
	"errors"
	"time"
)

// ACL is the per-row access-control metadata. It is stored and returned
// verbatim; nothing here interprets it.
type ACL map[string]any

// User is an operator account. The password hash never serializes.
type User struct {
	ObjectID      string    `json:"objectid"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailverified"`
	AuthData      ACL       `json:"authdata,omitempty"`
	ACL           ACL       `json:"acl,omitempty"`
	CreatedAt     time.Time `json:"createdat"`
	UpdatedAt     time.Time `json:"updatedat"`

	PasswordHash string `json:"-"`
}

// Role names a grant. Roles attach to users via the user_roles link
// table and to each other via role_roles.
type Role struct {
	ObjectID  string    `json:"objectid"`
	Name      string    `json:"name"`
	ACL       ACL       `json:"acl,omitempty"`
	CreatedAt time.Time `json:"createdat"`
	UpdatedAt time.Time `json:"updatedat"`
}

// Employee is a field worker. Pay is derived from base_rate plus the
// transport cost columns.
type Employee struct {
	ObjectID                string    `json:"objectid"`
	Name                    string    `json:"name"`
	Other                   string    `json:"other,omitempty"`
	BaseRate                float64   `json:"base_rate"`
	TransportCost           float64   `json:"transport_cost"`
	AdditionalTransportCost float64   `json:"additional_transport_cost"`
	CreatedAt               time.Time `json:"createdat"`
	UpdatedAt               time.Time `json:"updatedat"`
}

// Payroll is one unit of recorded work. person_in_charge carries a User
// objectid but is not FK-enforced.
type Payroll struct {
	ObjectID       string    `json:"objectid"`
	Date           time.Time `json:"date"`
	Hours          float64   `json:"hours"`
	ClientName     string    `json:"client_name"`
	Task           string    `json:"task"`
	PersonInCharge string    `json:"person_in_charge"`
	SiteName       string    `json:"site_name"`
	Location       string    `json:"location"`
	OrderNumber    string    `json:"order_number"`
	Quantity       float64   `json:"quantity"`
	CreatedAt      time.Time `json:"createdat"`
	UpdatedAt      time.Time `json:"updatedat"`
}

// EmployeePayroll links one employee to one payroll row. Both sides are
// FK-enforced.
type EmployeePayroll struct {
	ObjectID  string    `json:"objectid"`
	Employee  string    `json:"employee"`
	Payroll   string    `json:"payroll"`
	CreatedAt time.Time `json:"createdat"`
	UpdatedAt time.Time `json:"updatedat"`
}

// Assignment is a work order's commercial face.
type Assignment struct {
	ObjectID           string    `json:"objectid"`
	Date               time.Time `json:"date"`
	Task               string    `json:"task"`
	Location           string    `json:"location"`
	ClientName         string    `json:"client_name"`
	TotalTransportCost float64   `json:"total_transport_cost"`
	Quantity           float64   `json:"quantity"`
	SalesAmount        float64   `json:"sales_amount"`
	OrderNumber        string    `json:"order_number"`
	SiteName           string    `json:"site_name"`
	Hours              float64   `json:"hours"`
	UnitPrice          float64   `json:"unit_price"`
	PersonInCharge     string    `json:"person_in_charge"`
	ACL                ACL       `json:"acl,omitempty"`
	CreatedAt          time.Time `json:"createdat"`
	UpdatedAt          time.Time `json:"updatedat"`
}

// Invoice is the billing record cut from an assignment.
type Invoice struct {
	ObjectID    string    `json:"objectid"`
	Quantity    float64   `json:"quantity"`
	OrderNumber string    `json:"order_number"`
	ProductName string    `json:"product_name"`
	Amount      float64   `json:"amount"`
	UnitPrice   float64   `json:"unit_price"`
	Date        time.Time `json:"date"`
	ACL         ACL       `json:"acl,omitempty"`
	CreatedAt   time.Time `json:"createdat"`
	UpdatedAt   time.Time `json:"updatedat"`
}

// WorkOrderInput is the assignment-shaped payload of the composite
// write. Every field is optional; zero values fall back to empty string,
// zero, or the transaction's start time.
type WorkOrderInput struct {
	Date               time.Time `json:"date"`
	Task               string    `json:"task"`
	Location           string    `json:"location"`
	ClientName         string    `json:"client_name"`
	TotalTransportCost float64   `json:"total_transport_cost"`
	Quantity           float64   `json:"quantity"`
	SalesAmount        float64   `json:"sales_amount"`
	OrderNumber        string    `json:"order_number"`
	SiteName           string    `json:"site_name"`
	Hours              float64   `json:"hours"`
	UnitPrice          float64   `json:"unit_price"`
	PersonInCharge     string    `json:"person_in_charge"`
}

// WorkOrder is the record set produced by one composite write.
// EmployeePayrolls preserves the order of the submitted employee ids.
type WorkOrder struct {
	Assignment       Assignment        `json:"assignment"`
	Payroll          Payroll           `json:"payroll"`
	EmployeePayrolls []EmployeePayroll `json:"employee_payrolls"`
	Invoice          Invoice           `json:"invoice"`
}

// NewUser is the creation payload for a user account.
type NewUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	AuthData ACL    `json:"authdata,omitempty"`
	ACL      ACL    `json:"acl,omitempty"`
}

// UserUpdate mutates the provided fields only.
type UserUpdate struct {
	Email         *string `json:"email,omitempty"`
	Password      *string `json:"password,omitempty"`
	EmailVerified *bool   `json:"emailverified,omitempty"`
}

// EmployeeUpdate mutates the provided fields only.
type EmployeeUpdate struct {
	Name                    *string  `json:"name,omitempty"`
	Other                   *string  `json:"other,omitempty"`
	BaseRate                *float64 `json:"base_rate,omitempty"`
	TransportCost           *float64 `json:"transport_cost,omitempty"`
	AdditionalTransportCost *float64 `json:"additional_transport_cost,omitempty"`
}

// PayrollUpdate mutates the provided fields only.
type PayrollUpdate struct {
	Date           *time.Time `json:"date,omitempty"`
	Hours          *float64   `json:"hours,omitempty"`
	ClientName     *string    `json:"client_name,omitempty"`
	Task           *string    `json:"task,omitempty"`
	PersonInCharge *string    `json:"person_in_charge,omitempty"`
	SiteName       *string    `json:"site_name,omitempty"`
	Location       *string    `json:"location,omitempty"`
	OrderNumber    *string    `json:"order_number,omitempty"`
	Quantity       *float64   `json:"quantity,omitempty"`
}

// InvoiceUpdate mutates the provided fields only.
type InvoiceUpdate struct {
	Quantity    *float64   `json:"quantity,omitempty"`
	OrderNumber *string    `json:"order_number,omitempty"`
	ProductName *string    `json:"product_name,omitempty"`
	Amount      *float64   `json:"amount,omitempty"`
	UnitPrice   *float64   `json:"unit_price,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// AssignmentUpdate mutates the provided fields only.
type AssignmentUpdate struct {
	Date               *time.Time `json:"date,omitempty"`
	Task               *string    `json:"task,omitempty"`
	Location           *string    `json:"location,omitempty"`
	ClientName         *string    `json:"client_name,omitempty"`
	TotalTransportCost *float64   `json:"total_transport_cost,omitempty"`
	Quantity           *float64   `json:"quantity,omitempty"`
	SalesAmount        *float64   `json:"sales_amount,omitempty"`
	OrderNumber        *string    `json:"order_number,omitempty"`
	SiteName           *string    `json:"site_name,omitempty"`
	Hours              *float64   `json:"hours,omitempty"`
	UnitPrice          *float64   `json:"unit_price,omitempty"`
	PersonInCharge     *string    `json:"person_in_charge,omitempty"`
}

// EmployeeFilter narrows an employee search. Name matches the name
// column case-insensitively as a substring. Department and Position are
// accepted for compatibility with older clients but the employee table
// carries no such columns; they are ignored.
type EmployeeFilter struct {
	Name       string
	Department string
	Position   string
}

// ListUsersOptions paginate, search and sort the user listing. Search
// matches username or email case-insensitively.
type ListUsersOptions struct {
	Limit     int
	Offset    int
	Search    string
	SortBy    string
	SortOrder string
}

// UserPage is one page of the user listing plus the unpaged total.
type UserPage struct {
	Total  int    `json:"total"`
	Users  []User `json:"users"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// PayrollCalculation summarizes an employee's pay over a period:
// for every linked payroll row in range, hours x base_rate plus the
// employee's transport costs.
type PayrollCalculation struct {
	EmployeeID   string    `json:"employeeId"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Hours        float64   `json:"hours"`
	Amount       float64   `json:"amount"`
	CalculatedAt time.Time `json:"calculatedAt"`
}

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("resource conflict")
	ErrInvalidInput = errors.New("invalid input")
)

// User listing sort columns the API accepts.
var userSortColumns = map[string]string{
	"objectid":  "objectid",
	"username":  "username",
	"email":     "email",
	"createdat": "createdat",
	"updatedat": "updatedat",
}

// Normalize clamps pagination and resolves sorting to the allowlisted
// column set. Unknown sort columns fall back to createdat DESC.
func (o ListUsersOptions) Normalize() ListUsersOptions {
	if o.Limit <= 0 || o.Limit > 100 {
		o.Limit = 10
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if col, ok := userSortColumns[o.SortBy]; ok {
		o.SortBy = col
	} else {
		o.SortBy = "createdat"
	}
	switch o.SortOrder {
	case "ASC", "asc":
		o.SortOrder = "ASC"
	default:
		o.SortOrder = "DESC"
	}
	return o
}
