package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"kintai.org/internal/payroll"
)

type createPayrollRequest struct {
	Date           string  `json:"date,omitempty"`
	Hours          float64 `json:"hours"`
	ClientName     string  `json:"client_name,omitempty"`
	Task           string  `json:"task,omitempty"`
	PersonInCharge string  `json:"person_in_charge,omitempty"`
	SiteName       string  `json:"site_name,omitempty"`
	Location       string  `json:"location,omitempty"`
	OrderNumber    string  `json:"order_number,omitempty"`
	Quantity       float64 `json:"quantity"`
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC 3339", v)
	}
	return t.UTC(), nil
}

func (a *API) handlePayrollCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rows, err := a.svc.ListPayroll(r.Context())
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	case http.MethodPost:
		var req createPayrollRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p := payroll.Payroll{
			Hours:          req.Hours,
			ClientName:     req.ClientName,
			Task:           req.Task,
			PersonInCharge: req.PersonInCharge,
			SiteName:       req.SiteName,
			Location:       req.Location,
			OrderNumber:    req.OrderNumber,
			Quantity:       req.Quantity,
		}
		if req.Date != "" {
			date, err := parseDate(req.Date)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			p.Date = date
		}
		created, err := a.svc.CreatePayroll(r.Context(), p)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePayrollPeriod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		writeError(w, r, http.StatusBadRequest, "start and end are required")
		return
	}
	start, err := parseDate(q.Get("start"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDate(q.Get("end"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := a.svc.ListPayrollByPeriod(r.Context(), start, endOfDay(end))
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type calculateRequest struct {
	EmployeeID string `json:"employeeId"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

func (a *API) handlePayrollCalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req calculateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.EmployeeID == "" || req.StartDate == "" || req.EndDate == "" {
		writeError(w, r, http.StatusBadRequest, "employeeId, startDate and endDate are required")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	calc, err := a.svc.CalculatePayroll(r.Context(), req.EmployeeID, start, endOfDay(end))
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

func (a *API) handlePayrollResource(w http.ResponseWriter, r *http.Request) {
	id, rest := resourceID(r.URL.Path, "/api/payroll/")
	if id == "" || rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := a.svc.GetPayroll(r.Context(), id)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var req payroll.PayrollUpdate
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p, err := a.svc.UpdatePayroll(r.Context(), id, req)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := a.svc.DeletePayroll(r.Context(), id); err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// endOfDay widens a calendar date to the end of that day so a period
// like start=2025-04-01&end=2025-04-30 includes the last day's rows.
func endOfDay(t time.Time) time.Time {
	if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return t
	}
	return t.Add(24*time.Hour - time.Nanosecond)
}
