package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"commhub/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func runGate(t *testing.T, gate echo.MiddlewareFunc, role string, orgID *uuid.UUID) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != "" {
		c.Set("user_role", role)
	}
	if orgID != nil {
		c.Set("organization_id", *orgID)
	}

	handler := gate(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return handler(c)
}

func assertHTTPStatus(t *testing.T, err error, want int) {
	t.Helper()
	if want == http.StatusOK {
		if err != nil {
			t.Fatalf("expected pass, got %v", err)
		}
		return
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTP error %d, got %v", want, err)
	}
	if httpErr.Code != want {
		t.Errorf("status = %d, want %d", httpErr.Code, want)
	}
}

func TestSuperAdminOnly(t *testing.T) {
	orgID := uuid.New()

	assertHTTPStatus(t, runGate(t, SuperAdminOnly(), models.RoleSuperAdmin, nil), http.StatusOK)
	assertHTTPStatus(t, runGate(t, SuperAdminOnly(), models.RoleOrgAdmin, &orgID), http.StatusForbidden)
	assertHTTPStatus(t, runGate(t, SuperAdminOnly(), "", nil), http.StatusForbidden)
	// Operator tokens must not carry organization context
	assertHTTPStatus(t, runGate(t, SuperAdminOnly(), models.RoleSuperAdmin, &orgID), http.StatusForbidden)
}

func TestRequireOrgRole(t *testing.T) {
	orgID := uuid.New()

	assertHTTPStatus(t, runGate(t, RequireOrgRole(), models.RoleAgent, &orgID), http.StatusOK)
	assertHTTPStatus(t, runGate(t, RequireOrgRole(), models.RoleSupervisor, &orgID), http.StatusOK)
	assertHTTPStatus(t, runGate(t, RequireOrgRole(), models.RoleSuperAdmin, nil), http.StatusOK)
	assertHTTPStatus(t, runGate(t, RequireOrgRole(), models.RoleAgent, nil), http.StatusForbidden)
	assertHTTPStatus(t, runGate(t, RequireOrgRole(), "visitor", &orgID), http.StatusForbidden)
}

func TestRequireOrgAdminOnly(t *testing.T) {
	orgID := uuid.New()

	assertHTTPStatus(t, runGate(t, RequireOrgAdminOnly(), models.RoleOrgAdmin, &orgID), http.StatusOK)
	assertHTTPStatus(t, runGate(t, RequireOrgAdminOnly(), models.RoleAgent, &orgID), http.StatusForbidden)
	assertHTTPStatus(t, runGate(t, RequireOrgAdminOnly(), models.RoleSuperAdmin, nil), http.StatusForbidden)
}
