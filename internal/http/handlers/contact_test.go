package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"commhub/pkg/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type fakeContactDirectory struct {
	contacts map[uuid.UUID]models.Contact
}

func newFakeContactDirectory() *fakeContactDirectory {
	return &fakeContactDirectory{contacts: map[uuid.UUID]models.Contact{}}
}

func (f *fakeContactDirectory) List(orgID uuid.UUID, search string, limit, offset int) (*models.PaginationResult[models.Contact], error) {
	var matches []models.Contact
	for _, contact := range f.contacts {
		if contact.OrganizationID == orgID {
			matches = append(matches, contact)
		}
	}
	result := models.NewPaginationResult(matches, int64(len(matches)), limit, offset)
	return &result, nil
}

func (f *fakeContactDirectory) GetByID(orgID, id uuid.UUID) (*models.Contact, error) {
	contact, ok := f.contacts[id]
	if !ok || contact.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return &contact, nil
}

func (f *fakeContactDirectory) Create(contact *models.Contact) error {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	f.contacts[contact.ID] = *contact
	return nil
}

func (f *fakeContactDirectory) Update(contact *models.Contact) error {
	f.contacts[contact.ID] = *contact
	return nil
}

func (f *fakeContactDirectory) Delete(orgID, id uuid.UUID) error {
	contact, ok := f.contacts[id]
	if !ok || contact.OrganizationID != orgID {
		return gorm.ErrRecordNotFound
	}
	delete(f.contacts, id)
	return nil
}

func (f *fakeContactDirectory) DistinctTags(orgID uuid.UUID) ([]string, error) {
	seen := map[string]bool{}
	var tags []string
	for _, contact := range f.contacts {
		if contact.OrganizationID != orgID {
			continue
		}
		for _, tag := range contact.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags, nil
}

type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	if err := rv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func jsonContext(t *testing.T, method, target, body string, orgID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = &requestValidator{v: validator.New()}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("organization_id", orgID)
	return c, rec
}

func TestContactLifecycle(t *testing.T) {
	orgID := uuid.New()
	directory := newFakeContactDirectory()
	h := NewContactHandler(directory, nil)

	// Create with minimal fields: avatar is generated, VIP is off and tags
	// come back as an empty list rather than null
	c, rec := jsonContext(t, http.MethodPost, "/contacts",
		`{"name":"Roberto Cantú","phone":"+52 81 1234 5678"}`, orgID)
	if err := h.Create(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created models.Contact
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.IsVIP {
		t.Error("new contact must not be VIP")
	}
	if created.Tags == nil || len(created.Tags) != 0 {
		t.Errorf("tags = %v, want empty list", created.Tags)
	}
	if created.Avatar != models.AvatarURL("Roberto Cantú") {
		t.Errorf("avatar = %q, want generated placeholder", created.Avatar)
	}

	// Promote to VIP; identity fields survive the update
	c, rec = jsonContext(t, http.MethodPut, "/contacts/"+created.ID.String(),
		`{"name":"Roberto Cantú","phone":"+52 81 1234 5678","is_vip":true}`, orgID)
	c.SetParamNames("id")
	c.SetParamValues(created.ID.String())
	if err := h.Update(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}

	var updated models.Contact
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatal(err)
	}
	if !updated.IsVIP {
		t.Error("VIP flag not applied")
	}
	if updated.ID != created.ID {
		t.Errorf("update changed the row id: %s -> %s", created.ID, updated.ID)
	}

	// Delete, then the row is gone
	c, rec = jsonContext(t, http.MethodDelete, "/contacts/"+created.ID.String(), "", orgID)
	c.SetParamNames("id")
	c.SetParamValues(created.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	c, rec = jsonContext(t, http.MethodGet, "/contacts/"+created.ID.String(), "", orgID)
	c.SetParamNames("id")
	c.SetParamValues(created.ID.String())
	if err := h.GetByID(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestContactCreateKeepsProvidedAvatar(t *testing.T) {
	orgID := uuid.New()
	h := NewContactHandler(newFakeContactDirectory(), nil)

	c, rec := jsonContext(t, http.MethodPost, "/contacts",
		`{"name":"Ana","phone":"+52 81 9999 0000","avatar":"https://cdn.example.com/ana.png"}`, orgID)
	if err := h.Create(c); err != nil {
		t.Fatal(err)
	}

	var created models.Contact
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Avatar != "https://cdn.example.com/ana.png" {
		t.Errorf("provided avatar overwritten: %q", created.Avatar)
	}
}
