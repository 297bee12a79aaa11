package httpapi

import (
	"net/http"

	"kintai.org/internal/payroll"
)

type createInvoiceRequest struct {
	Quantity    float64     `json:"quantity"`
	OrderNumber string      `json:"order_number,omitempty"`
	ProductName string      `json:"product_name,omitempty"`
	Amount      float64     `json:"amount"`
	UnitPrice   float64     `json:"unit_price"`
	Date        string      `json:"date,omitempty"`
	ACL         payroll.ACL `json:"acl,omitempty"`
}

func (a *API) handleInvoicesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		invoices, err := a.svc.ListInvoices(r.Context())
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, invoices)
	case http.MethodPost:
		var req createInvoiceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		inv := payroll.Invoice{
			Quantity:    req.Quantity,
			OrderNumber: req.OrderNumber,
			ProductName: req.ProductName,
			Amount:      req.Amount,
			UnitPrice:   req.UnitPrice,
			ACL:         req.ACL,
		}
		if req.Date != "" {
			date, err := parseDate(req.Date)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			inv.Date = date
		}
		created, err := a.svc.CreateInvoice(r.Context(), inv)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleInvoiceResource(w http.ResponseWriter, r *http.Request) {
	id, rest := resourceID(r.URL.Path, "/api/invoices/")
	if id == "" || rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		inv, err := a.svc.GetInvoice(r.Context(), id)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	case http.MethodPut:
		var req payroll.InvoiceUpdate
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		inv, err := a.svc.UpdateInvoice(r.Context(), id, req)
		if err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	case http.MethodDelete:
		if err := a.svc.DeleteInvoice(r.Context(), id); err != nil {
			a.handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
