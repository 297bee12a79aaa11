// Package httpapi is the HTTP layer: routing, middleware, request
// decoding and the error-to-status mapping over payroll.Service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"kintai.org/api/spec"
	"kintai.org/internal/obs"
	"kintai.org/internal/payroll"
)

// Pinger is what the readiness probe needs from a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks the backing store. A nil Pinger (in-memory mode)
// is always ready.
type ReadyProbe struct {
	Pinger Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Pinger == nil {
		return nil
	}
	return rp.Pinger.Ping(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	svc        payroll.Service
	readyProbe ReadyProbe
	version    string
	env        string

	rateBurst  int
	ratePerSec int
}

func New(svc payroll.Service, rp ReadyProbe, version, env string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		readyProbe: rp,
		version:    version,
		env:        env,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/api/auth/login", a.handleLogin)

	// users and roles
	a.mux.HandleFunc("/api/users", a.handleUsersCollection)
	a.mux.HandleFunc("/api/users/", a.handleUserResource)
	a.mux.HandleFunc("/api/roles", a.handleRolesCollection)
	a.mux.HandleFunc("/api/roles/", a.handleRoleResource)

	// employees
	a.mux.HandleFunc("/api/employees", a.handleEmployeesCollection)
	a.mux.HandleFunc("/api/employees/search", a.handleEmployeeSearch)
	a.mux.HandleFunc("/api/employees/", a.handleEmployeeResource)

	// payroll
	a.mux.HandleFunc("/api/payroll", a.handlePayrollCollection)
	a.mux.HandleFunc("/api/payroll/period", a.handlePayrollPeriod)
	a.mux.HandleFunc("/api/payroll/calculate", a.handlePayrollCalculate)
	a.mux.HandleFunc("/api/payroll/", a.handlePayrollResource)

	// invoices and assignments
	a.mux.HandleFunc("/api/invoices", a.handleInvoicesCollection)
	a.mux.HandleFunc("/api/invoices/", a.handleInvoiceResource)
	a.mux.HandleFunc("/api/assignments", a.handleAssignmentsCollection)
	a.mux.HandleFunc("/api/assignments/", a.handleAssignmentResource)

	// composite write
	a.mux.HandleFunc("/api/work-orders", a.handleWorkOrders)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// SetRateLimit overrides the default per-IP limiter settings. Call
// before Handler.
func (a *API) SetRateLimit(burst, perSecond int) {
	a.rateBurst = burst
	a.ratePerSec = perSecond
}

// Handler assembles the middleware chain. RequestID sits outside the
// rate limiter so 429 bodies still carry an id.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = LoggingJSON(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = RequestID(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "kintai-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "kintai-api",
		"env":     a.env,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleServiceError maps domain errors onto HTTP statuses. Unknown
// errors leak their message only in development.
func (a *API) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payroll.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, payroll.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, payroll.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		msg := "internal error"
		if a.env == "development" {
			msg = err.Error()
		}
		writeError(w, r, http.StatusInternalServerError, msg)
	}
}

// resourceID extracts the trailing id of a resource path. An optional
// fixed sub-resource suffix is returned separately.
func resourceID(path, prefix string) (id, rest string) {
	tail := strings.TrimPrefix(path, prefix)
	tail = strings.Trim(tail, "/")
	if tail == "" {
		return "", ""
	}
	if i := strings.IndexByte(tail, '/'); i != -1 {
		return tail[:i], tail[i+1:]
	}
	return tail, ""
}
