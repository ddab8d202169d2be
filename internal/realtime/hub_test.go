package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitEvent(t *testing.T, ch chan Event) *Event {
	t.Helper()
	select {
	case ev := <-ch:
		return &ev
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}

func TestHubDeliversToMatchingOrganization(t *testing.T) {
	hub := NewHub()
	orgA := uuid.New()
	orgB := uuid.New()

	clientA := hub.Subscribe(Subscription{OrganizationID: orgA})
	clientB := hub.Subscribe(Subscription{OrganizationID: orgB})
	defer hub.Unsubscribe(clientA)
	defer hub.Unsubscribe(clientB)

	hub.Publish(Event{
		Table:          TableContacts,
		Type:           EventInsert,
		OrganizationID: orgA,
		RowID:          uuid.New(),
	})

	ev := waitEvent(t, clientA.Send)
	if ev == nil {
		t.Fatal("expected event for org A subscriber")
	}
	if ev.OrganizationID != orgA {
		t.Errorf("expected org %s, got %s", orgA, ev.OrganizationID)
	}
	if ev.Timestamp.IsZero() {
		t.Error("expected hub to stamp event timestamp")
	}

	if ev := waitEvent(t, clientB.Send); ev != nil {
		t.Errorf("org B subscriber received foreign event for table %s", ev.Table)
	}
}

func TestHubTableFilter(t *testing.T) {
	hub := NewHub()
	org := uuid.New()

	client := hub.Subscribe(Subscription{
		OrganizationID: org,
		Tables:         []string{TableConversations, TableMessages},
	})
	defer hub.Unsubscribe(client)

	hub.Publish(Event{Table: TableCampaigns, Type: EventUpdate, OrganizationID: org, RowID: uuid.New()})
	hub.Publish(Event{Table: TableMessages, Type: EventInsert, OrganizationID: org, RowID: uuid.New()})

	ev := waitEvent(t, client.Send)
	if ev == nil {
		t.Fatal("expected messages event")
	}
	if ev.Table != TableMessages {
		t.Errorf("expected table %s, got %s", TableMessages, ev.Table)
	}
}

func TestHubUserEventsArePrivate(t *testing.T) {
	hub := NewHub()
	org := uuid.New()
	userA := uuid.New()
	userB := uuid.New()

	clientA := hub.Subscribe(Subscription{OrganizationID: org, UserID: userA})
	clientB := hub.Subscribe(Subscription{OrganizationID: org, UserID: userB})
	defer hub.Unsubscribe(clientA)
	defer hub.Unsubscribe(clientB)

	hub.Publish(Event{
		Table:          TableUsers,
		Type:           EventUpdate,
		OrganizationID: org,
		RowID:          userA,
	})

	if ev := waitEvent(t, clientA.Send); ev == nil {
		t.Fatal("expected user A to receive their own profile event")
	}
	if ev := waitEvent(t, clientB.Send); ev != nil {
		t.Error("user B received another user's profile event")
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	client := hub.Subscribe(Subscription{OrganizationID: uuid.New()})
	hub.Unsubscribe(client)

	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case _, ok := <-client.Send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("send channel not closed after unsubscribe")
		}
	}
}
