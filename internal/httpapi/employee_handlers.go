package httpapi

import (
	"net/http"

	"kintai.org/internal/payroll"
)

type createEmployeeRequest struct {
	Name                    string  `json:"name"`
	Other                   string  `json:"other,omitempty"`
	BaseRate                float64 `json:"base_rate"`
	TransportCost           float64 `json:"transport_cost"`
	AdditionalTransportCost float64 `json:"additional_transport_cost"`
}

func (a *API) handleEmployeesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		employees, err := a.svc.ListEmployees(r.Context())
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, employees)
	case http.MethodPost:
		var req createEmployeeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		e, err := a.svc.CreateEmployee(r.Context(), payroll.Employee{
			Name:                    req.Name,
			Other:                   req.Other,
			BaseRate:                req.BaseRate,
			TransportCost:           req.TransportCost,
			AdditionalTransportCost: req.AdditionalTransportCost,
		})
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleEmployeeSearch filters by name. firstName is accepted as an
// alias, and department/position are tolerated but have no backing
// columns.
func (a *API) handleEmployeeSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = q.Get("firstName")
	}
	employees, err := a.svc.SearchEmployees(r.Context(), payroll.EmployeeFilter{
		Name:       name,
		Department: q.Get("department"),
		Position:   q.Get("position"),
	})
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (a *API) handleEmployeeResource(w http.ResponseWriter, r *http.Request) {
	id, rest := resourceID(r.URL.Path, "/api/employees/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if rest == "payroll" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		rows, err := a.svc.PayrollForEmployee(r.Context(), id)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
		return
	}
	if rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		e, err := a.svc.GetEmployee(r.Context(), id)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	case http.MethodPut:
		var req payroll.EmployeeUpdate
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		e, err := a.svc.UpdateEmployee(r.Context(), id, req)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	case http.MethodDelete:
		if err := a.svc.DeleteEmployee(r.Context(), id); err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
