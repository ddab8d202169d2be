package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func resolveOrg(t *testing.T, claimOrg *uuid.UUID, header string) (uuid.UUID, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("X-Organization-ID", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if claimOrg != nil {
		c.Set("organization_id", *claimOrg)
	}

	var resolved uuid.UUID
	handler := OrgResolver()(func(c echo.Context) error {
		if oid, ok := c.Get("organization_id").(uuid.UUID); ok {
			resolved = oid
		}
		return c.NoContent(http.StatusOK)
	})
	return resolved, handler(c)
}

func TestOrgResolverClaimWinsOverHeader(t *testing.T) {
	claimOrg := uuid.New()
	foreignOrg := uuid.New()

	resolved, err := resolveOrg(t, &claimOrg, foreignOrg.String())
	if err != nil {
		t.Fatal(err)
	}
	if resolved != claimOrg {
		t.Errorf("resolved %s, want the claim organization %s", resolved, claimOrg)
	}
}

func TestOrgResolverHeaderAdoptedWithoutClaim(t *testing.T) {
	target := uuid.New()

	resolved, err := resolveOrg(t, nil, target.String())
	if err != nil {
		t.Fatal(err)
	}
	if resolved != target {
		t.Errorf("resolved %s, want header organization %s", resolved, target)
	}
}

func TestOrgResolverRejectsMalformedHeader(t *testing.T) {
	_, err := resolveOrg(t, nil, "not-a-uuid")
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestOrgResolverPassesThroughUnscoped(t *testing.T) {
	resolved, err := resolveOrg(t, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if resolved != uuid.Nil {
		t.Errorf("resolved %s, want none", resolved)
	}
}

func TestRequireOrganization(t *testing.T) {
	orgID := uuid.New()

	assertHTTPStatus(t, runGate(t, RequireOrganization(), "agent", &orgID), http.StatusOK)
	assertHTTPStatus(t, runGate(t, RequireOrganization(), "super_admin", nil), http.StatusOK)
	assertHTTPStatus(t, runGate(t, RequireOrganization(), "agent", nil), http.StatusBadRequest)
}
