package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kintai.org/internal/auth"
	"kintai.org/internal/payroll"
)

func newTestAPI(t *testing.T) (payroll.Service, http.Handler) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	svc := payroll.NewInMemory()
	api := New(svc, ReadyProbe{}, "test", "test")
	api.SetRateLimit(1000, 1000)
	return svc, api.Handler()
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "127.0.0.1:54321"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func loginAs(t *testing.T, svc payroll.Service, h http.Handler, username, password string) string {
	t.Helper()
	if _, err := svc.CreateUser(t.Context(), payroll.NewUser{Username: username, Password: password}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	rr := doRequest(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	decodeBody(t, rr, &body)
	if !body.Success || body.Token == "" {
		t.Fatalf("unexpected login body: %s", rr.Body.String())
	}
	return body.Token
}

func TestWorkOrderFlow(t *testing.T) {
	svc, h := newTestAPI(t)
	token := loginAs(t, svc, h, "admin", "s3cret")

	var e1, e2 payroll.Employee
	rr := doRequest(t, h, http.MethodPost, "/api/employees", token, map[string]any{
		"name": "Sato", "base_rate": 1500.0, "transport_cost": 500.0,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create employee: %d: %s", rr.Code, rr.Body.String())
	}
	decodeBody(t, rr, &e1)

	rr = doRequest(t, h, http.MethodPost, "/api/employees", token, map[string]any{
		"name": "Suzuki", "base_rate": 1800.0,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create employee: %d", rr.Code)
	}
	decodeBody(t, rr, &e2)

	rr = doRequest(t, h, http.MethodPost, "/api/work-orders", token, map[string]any{
		"employees":    []string{e1.ObjectID, e2.ObjectID},
		"date":         "2025-04-01",
		"task":         "cable installation",
		"client_name":  "ACME Networks",
		"sales_amount": 120000.0,
		"hours":        8.0,
		"order_number": "ORD-1001",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create work order: %d: %s", rr.Code, rr.Body.String())
	}
	var order payroll.WorkOrder
	decodeBody(t, rr, &order)
	if len(order.EmployeePayrolls) != 2 {
		t.Fatalf("expected 2 links, got %d", len(order.EmployeePayrolls))
	}
	if order.Invoice.ProductName != "cable installation" || order.Invoice.Amount != 120000 {
		t.Fatalf("invoice not derived from order: %+v", order.Invoice)
	}

	// The payroll row is visible through the employee.
	rr = doRequest(t, h, http.MethodGet, "/api/employees/"+e1.ObjectID+"/payroll", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("employee payroll: %d", rr.Code)
	}
	var rows []payroll.Payroll
	decodeBody(t, rr, &rows)
	if len(rows) != 1 || rows[0].ObjectID != order.Payroll.ObjectID {
		t.Fatalf("unexpected linked rows: %+v", rows)
	}

	// Period listing picks up the row.
	rr = doRequest(t, h, http.MethodGet, "/api/payroll/period?start=2025-04-01&end=2025-04-30", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("period: %d: %s", rr.Code, rr.Body.String())
	}
	decodeBody(t, rr, &rows)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row in period, got %d", len(rows))
	}

	// And the calculation prices it with the employee's rate.
	rr = doRequest(t, h, http.MethodPost, "/api/payroll/calculate", token, map[string]string{
		"employeeId": e1.ObjectID,
		"startDate":  "2025-04-01",
		"endDate":    "2025-04-30",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("calculate: %d: %s", rr.Code, rr.Body.String())
	}
	var calc payroll.PayrollCalculation
	decodeBody(t, rr, &calc)
	if calc.Hours != 8 || calc.Amount != 8*1500+500 {
		t.Fatalf("unexpected calculation: %+v", calc)
	}
}

func TestWorkOrderUnknownEmployeeRollsBack(t *testing.T) {
	svc, h := newTestAPI(t)
	token := loginAs(t, svc, h, "admin", "s3cret")

	rr := doRequest(t, h, http.MethodPost, "/api/work-orders", token, map[string]any{
		"employees": []string{"missing"},
		"task":      "inspection",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, h, http.MethodGet, "/api/assignments", token, nil)
	var assignments []payroll.Assignment
	decodeBody(t, rr, &assignments)
	if len(assignments) != 0 {
		t.Fatalf("failed order must not leave an assignment: %+v", assignments)
	}
}

func TestAuthRequired(t *testing.T) {
	_, h := newTestAPI(t)

	rr := doRequest(t, h, http.MethodGet, "/api/users", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate header")
	}

	rr = doRequest(t, h, http.MethodGet, "/api/users", "not-a-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rr.Code)
	}

	// Public paths stay open.
	rr = doRequest(t, h, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz must be public, got %d", rr.Code)
	}
}

func TestAuthRejectsDeletedUser(t *testing.T) {
	svc, h := newTestAPI(t)
	token := loginAs(t, svc, h, "ghost", "s3cret")

	u, err := svc.FindUserForAuth(t.Context(), "ghost")
	if err != nil {
		t.Fatalf("find seeded user: %v", err)
	}
	if err := svc.DeleteUser(t.Context(), u.ObjectID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	rr := doRequest(t, h, http.MethodGet, "/api/employees", token, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted user, got %d", rr.Code)
	}
}

func TestLoginDoesNotLeakUsernames(t *testing.T) {
	svc, h := newTestAPI(t)
	if _, err := svc.CreateUser(t.Context(), payroll.NewUser{Username: "admin", Password: "right"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	messages := map[string]string{}
	for name, creds := range map[string]map[string]string{
		"wrong_password": {"username": "admin", "password": "wrong"},
		"unknown_user":   {"username": "nobody", "password": "whatever"},
	} {
		rr := doRequest(t, h, http.MethodPost, "/api/auth/login", "", creds)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rr.Code)
		}
		var body struct {
			Message string `json:"message"`
		}
		decodeBody(t, rr, &body)
		messages[name] = body.Message
	}
	if messages["wrong_password"] != messages["unknown_user"] {
		t.Fatalf("login failures must be indistinguishable: %v", messages)
	}
}

func TestUserEndpointsUseEnvelope(t *testing.T) {
	svc, h := newTestAPI(t)
	token := loginAs(t, svc, h, "admin", "s3cret")

	rr := doRequest(t, h, http.MethodPost, "/api/users", token, map[string]string{
		"username": "carol", "password": "pw", "email": "carol@example.com",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create user: %d: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Success bool         `json:"success"`
		Message string       `json:"message"`
		Data    payroll.User `json:"data"`
	}
	decodeBody(t, rr, &created)
	if !created.Success || created.Data.Username != "carol" {
		t.Fatalf("unexpected envelope: %s", rr.Body.String())
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("password")) {
		t.Fatal("password material must never serialize")
	}

	rr = doRequest(t, h, http.MethodPost, "/api/users", token, map[string]string{
		"username": "carol", "password": "pw",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate username: expected 409, got %d", rr.Code)
	}
	var failed struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decodeBody(t, rr, &failed)
	if failed.Success || failed.Error == "" {
		t.Fatalf("unexpected failure envelope: %s", rr.Body.String())
	}

	rr = doRequest(t, h, http.MethodGet, "/api/users?search=car&sortBy=username&sortOrder=asc", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list users: %d", rr.Code)
	}
	var listed struct {
		Data payroll.UserPage `json:"data"`
	}
	decodeBody(t, rr, &listed)
	if listed.Data.Total != 1 || listed.Data.Users[0].Username != "carol" {
		t.Fatalf("unexpected listing: %s", rr.Body.String())
	}

	email := "carol@new.example.com"
	rr = doRequest(t, h, http.MethodPut, "/api/users/"+created.Data.ObjectID, token, map[string]string{"email": email})
	if rr.Code != http.StatusOK {
		t.Fatalf("update user: %d: %s", rr.Code, rr.Body.String())
	}
	decodeBody(t, rr, &created)
	if created.Data.Email != email {
		t.Fatalf("email not updated: %+v", created.Data)
	}

	rr = doRequest(t, h, http.MethodDelete, "/api/users/"+created.Data.ObjectID, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete user: %d", rr.Code)
	}
	rr = doRequest(t, h, http.MethodGet, "/api/users/"+created.Data.ObjectID, token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestEmployeeSearchAcceptsLegacyParams(t *testing.T) {
	svc, h := newTestAPI(t)
	token := loginAs(t, svc, h, "admin", "s3cret")

	for _, name := range []string{"Tanaka Hiro", "Yamada"} {
		if _, err := svc.CreateEmployee(t.Context(), payroll.Employee{Name: name}); err != nil {
			t.Fatalf("seed employee: %v", err)
		}
	}

	rr := doRequest(t, h, http.MethodGet, "/api/employees/search?firstName=tanaka&department=ops", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("search: %d: %s", rr.Code, rr.Body.String())
	}
	var found []payroll.Employee
	decodeBody(t, rr, &found)
	if len(found) != 1 || found[0].Name != "Tanaka Hiro" {
		t.Fatalf("unexpected result: %+v", found)
	}
}

func TestRoleAssignmentEndpoints(t *testing.T) {
	svc, h := newTestAPI(t)
	token := loginAs(t, svc, h, "admin", "s3cret")

	rr := doRequest(t, h, http.MethodPost, "/api/roles", token, map[string]any{"name": "manager"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create role: %d: %s", rr.Code, rr.Body.String())
	}
	var role payroll.Role
	decodeBody(t, rr, &role)

	u, err := svc.FindUserForAuth(t.Context(), "admin")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	rr = doRequest(t, h, http.MethodPost, "/api/users/"+u.ObjectID+"/roles", token, map[string]string{"roleId": role.ObjectID})
	if rr.Code != http.StatusOK {
		t.Fatalf("assign role: %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, h, http.MethodGet, "/api/users/"+u.ObjectID+"/roles", token, nil)
	var listed struct {
		Data []string `json:"data"`
	}
	decodeBody(t, rr, &listed)
	if len(listed.Data) != 1 || listed.Data[0] != "manager" {
		t.Fatalf("unexpected roles: %s", rr.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	svc, h := newTestAPI(t)
	token := loginAs(t, svc, h, "admin", "s3cret")

	rr := doRequest(t, h, http.MethodDelete, "/api/work-orders", token, nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	if rr.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("unexpected Allow header: %q", rr.Header().Get("Allow"))
	}
}
