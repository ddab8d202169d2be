package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commhub/pkg/models"

	"github.com/google/uuid"
)

func contactEvent(t *testing.T, eventType string, contact models.Contact) Event {
	t.Helper()
	data, err := json.Marshal(contact)
	if err != nil {
		t.Fatal(err)
	}
	return Event{
		Table:          "contacts",
		Type:           eventType,
		OrganizationID: contact.OrganizationID,
		RowID:          contact.ID,
		New:            data,
	}
}

func newContact(name string) models.Contact {
	c := models.Contact{Name: name, Phone: "+5491100000000"}
	c.ID = uuid.New()
	c.OrganizationID = uuid.New()
	return c
}

func TestApplyEventInsertPrepends(t *testing.T) {
	store := NewStore[models.Contact](New("http://unused"), "/contacts", "contacts")

	first := newContact("Ana")
	second := newContact("Bruno")
	store.ApplyEvent(contactEvent(t, EventInsert, first))
	store.ApplyEvent(contactEvent(t, EventInsert, second))

	items := store.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Name != "Bruno" {
		t.Errorf("expected newest first, got %q", items[0].Name)
	}
}

func TestApplyEventInsertReconcilesOptimisticCopy(t *testing.T) {
	store := NewStore[models.Contact](New("http://unused"), "/contacts", "contacts")

	contact := newContact("Ana")
	store.Upsert(contact)

	// The change event for the same row must not duplicate it
	store.ApplyEvent(contactEvent(t, EventInsert, contact))

	if store.Len() != 1 {
		t.Fatalf("expected 1 item after reconciliation, got %d", store.Len())
	}
}

func TestApplyEventUpdatePreservesAbsentFields(t *testing.T) {
	store := NewStore[models.Contact](New("http://unused"), "/contacts", "contacts")

	contact := newContact("Ana")
	contact.Company = "Acme"
	store.Upsert(contact)

	// Partial payload: only the phone changed
	partial := Event{
		Table: "contacts",
		Type:  EventUpdate,
		RowID: contact.ID,
		New:   json.RawMessage(`{"phone": "+5491199999999"}`),
	}
	store.ApplyEvent(partial)

	got, ok := store.Get(contact.ID)
	if !ok {
		t.Fatal("contact disappeared")
	}
	if got.Phone != "+5491199999999" {
		t.Errorf("phone not merged: %q", got.Phone)
	}
	if got.Company != "Acme" {
		t.Errorf("field absent from payload was clobbered: %q", got.Company)
	}
}

func TestApplyEventDeleteRemoves(t *testing.T) {
	store := NewStore[models.Contact](New("http://unused"), "/contacts", "contacts")

	contact := newContact("Ana")
	store.Upsert(contact)
	store.ApplyEvent(Event{Table: "contacts", Type: EventDelete, RowID: contact.ID})

	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d items", store.Len())
	}
}

func TestApplyEventIgnoresOtherTables(t *testing.T) {
	store := NewStore[models.Contact](New("http://unused"), "/contacts", "contacts")

	contact := newContact("Ana")
	event := contactEvent(t, EventInsert, contact)
	event.Table = "campaigns"
	store.ApplyEvent(event)

	if store.Len() != 0 {
		t.Fatalf("event for another table applied, got %d items", store.Len())
	}
}

func TestLoadPopulatesStore(t *testing.T) {
	contact := newContact("Ana")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contacts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(models.PaginationResult[models.Contact]{
			Data:  []models.Contact{contact},
			Total: 1,
		})
	}))
	defer server.Close()

	store := NewStore[models.Contact](New(server.URL), "/contacts", "contacts")
	if err := store.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if store.Len() != 1 || store.Total() != 1 {
		t.Fatalf("expected 1 item, got %d (total %d)", store.Len(), store.Total())
	}
}

func TestLoadDropsStaleResultAfterReset(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(models.PaginationResult[models.Contact]{
			Data:  []models.Contact{newContact("Stale")},
			Total: 1,
		})
	}))
	defer server.Close()

	store := NewStore[models.Contact](New(server.URL), "/contacts", "contacts")

	done := make(chan error, 1)
	go func() {
		done <- store.Load(context.Background())
	}()

	// Scope change while the fetch is in flight
	time.Sleep(50 * time.Millisecond)
	store.Reset()
	close(release)

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Fatalf("stale result applied after reset, got %d items", store.Len())
	}
}

func TestStoreCreateUpsertsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		var contact models.Contact
		json.NewDecoder(r.Body).Decode(&contact)
		contact.ID = uuid.New()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(contact)
	}))
	defer server.Close()

	store := NewStore[models.Contact](New(server.URL), "/contacts", "contacts")
	created, err := store.Create(context.Background(), models.Contact{Name: "Ana", Phone: "+54911"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == uuid.Nil {
		t.Error("created contact has no id")
	}
	if _, ok := store.Get(created.ID); !ok {
		t.Error("created contact not held locally")
	}
}
