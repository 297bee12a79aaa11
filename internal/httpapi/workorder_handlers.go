package httpapi

import (
	"net/http"

	"kintai.org/internal/audit"
	"kintai.org/internal/payroll"
)

type workOrderRequest struct {
	Employees          []string    `json:"employees"`
	Date               string      `json:"date,omitempty"`
	Task               string      `json:"task,omitempty"`
	Location           string      `json:"location,omitempty"`
	ClientName         string      `json:"client_name,omitempty"`
	TotalTransportCost float64     `json:"total_transport_cost"`
	Quantity           float64     `json:"quantity"`
	SalesAmount        float64     `json:"sales_amount"`
	OrderNumber        string      `json:"order_number,omitempty"`
	SiteName           string      `json:"site_name,omitempty"`
	Hours              float64     `json:"hours"`
	UnitPrice          float64     `json:"unit_price"`
	PersonInCharge     string      `json:"person_in_charge,omitempty"`
	ACL                payroll.ACL `json:"acl,omitempty"`
}

// handleWorkOrders runs the composite write: assignment, payroll row,
// employee links and invoice in one shot.
func (a *API) handleWorkOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req workOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	input := payroll.WorkOrderInput{
		Task:               req.Task,
		Location:           req.Location,
		ClientName:         req.ClientName,
		TotalTransportCost: req.TotalTransportCost,
		Quantity:           req.Quantity,
		SalesAmount:        req.SalesAmount,
		OrderNumber:        req.OrderNumber,
		SiteName:           req.SiteName,
		Hours:              req.Hours,
		UnitPrice:          req.UnitPrice,
		PersonInCharge:     req.PersonInCharge,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		input.Date = date
	}

	order, err := a.svc.CreateWorkOrder(r.Context(), input, req.Employees)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}

	ctx := audit.WithRequestID(r.Context(), RequestIDFromContext(r.Context()))
	_ = audit.LogEvent(ctx, "work_order.created", map[string]any{
		"assignment": order.Assignment.ObjectID,
		"payroll":    order.Payroll.ObjectID,
		"invoice":    order.Invoice.ObjectID,
		"employees":  len(order.EmployeePayrolls),
	})
	writeJSON(w, http.StatusCreated, order)
}
