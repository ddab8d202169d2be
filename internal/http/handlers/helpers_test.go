package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"commhub/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func testContext(t *testing.T, target string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "/", 20, 0},
		{"explicit", "/?limit=50&offset=100", 50, 100},
		{"limit capped", "/?limit=500", 20, 0},
		{"negative rejected", "/?limit=-5&offset=-1", 20, 0},
		{"garbage rejected", "/?limit=abc&offset=xyz", 20, 0},
		{"max limit allowed", "/?limit=200", 200, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := testContext(t, test.query)
			limit, offset := pagination(c)
			if limit != test.wantLimit || offset != test.wantOffset {
				t.Errorf("pagination(%q) = (%d, %d), want (%d, %d)",
					test.query, limit, offset, test.wantLimit, test.wantOffset)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	id := uuid.New()

	c := testContext(t, "/")
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	got, err := pathID(c, "id")
	if err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Errorf("pathID = %s, want %s", got, id)
	}

	c = testContext(t, "/")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if _, err := pathID(c, "id"); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestOrgFromContext(t *testing.T) {
	orgID := uuid.New()

	c := testContext(t, "/")
	c.Set("organization_id", orgID)
	got, err := orgFromContext(c)
	if err != nil {
		t.Fatal(err)
	}
	if got != orgID {
		t.Errorf("orgFromContext = %s, want %s", got, orgID)
	}

	c = testContext(t, "/")
	if _, err := orgFromContext(c); err == nil {
		t.Error("expected error without organization context")
	}

	c = testContext(t, "/")
	c.Set("organization_id", uuid.Nil)
	if _, err := orgFromContext(c); err == nil {
		t.Error("expected error for nil organization id")
	}
}

func TestMessageTypeFor(t *testing.T) {
	tests := []struct {
		contentType string
		expected    string
	}{
		{"image/png", models.MessageTypeImage},
		{"image/jpeg", models.MessageTypeImage},
		{"audio/ogg", models.MessageTypeAudio},
		{"application/pdf", models.MessageTypeFile},
		{"", models.MessageTypeFile},
	}

	for _, test := range tests {
		if got := messageTypeFor(test.contentType); got != test.expected {
			t.Errorf("messageTypeFor(%q) = %q, want %q", test.contentType, got, test.expected)
		}
	}
}
