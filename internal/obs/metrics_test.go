package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                            "/",
		"/metrics":                    "/metrics",
		"/api/users":                  "/api/users",
		"/api/users/01HXYZ":           "/api/users/:id",
		"/api/employees/e1/payroll":   "/api/employees/:id/payroll",
		"/api/employees/search":       "/api/employees/search",
		"/api/payroll/period":         "/api/payroll/period",
		"/api/payroll/calculate":      "/api/payroll/calculate",
		"/api/payroll/p9":             "/api/payroll/:id",
		"/api/work-orders":            "/api/work-orders",
		"/api/invoices/abc?limit=10":  "/api/invoices/:id",
		"/api/auth/login":             "/api/auth/login",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
