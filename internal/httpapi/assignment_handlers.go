package httpapi

import (
	"net/http"

	"kintai.org/internal/payroll"
)

type createAssignmentRequest struct {
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

func (a *API) handleAssignmentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		assignments, err := a.svc.ListAssignments(r.Context())
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, assignments)
	case http.MethodPost:
		var req createAssignmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		asg := payroll.Assignment{
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
			ACL:                req.ACL,
		}
		if req.Date != "" {
			date, err := parseDate(req.Date)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			asg.Date = date
		}
		created, err := a.svc.CreateAssignment(r.Context(), asg)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAssignmentResource(w http.ResponseWriter, r *http.Request) {
	id, rest := resourceID(r.URL.Path, "/api/assignments/")
	if id == "" || rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		asg, err := a.svc.GetAssignment(r.Context(), id)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, asg)
	case http.MethodPut:
		var req payroll.AssignmentUpdate
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		asg, err := a.svc.UpdateAssignment(r.Context(), id, req)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, asg)
	case http.MethodDelete:
		if err := a.svc.DeleteAssignment(r.Context(), id); err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
