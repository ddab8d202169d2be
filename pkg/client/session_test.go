package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"commhub/pkg/models"

	"github.com/google/uuid"
)

func testUser(email string) models.User {
	user := models.User{Email: email, Name: "Ana", Role: models.RoleAgent}
	user.ID = uuid.New()
	return user
}

func TestSignInInstallsSession(t *testing.T) {
	user := testUser("ana@acme.io")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(loginResponse{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			User:         user,
		})
	}))
	defer server.Close()

	c := New(server.URL)
	session := NewSession(c)

	if err := session.SignIn(context.Background(), "ana@acme.io", "secret"); err != nil {
		t.Fatal(err)
	}

	if session.State() != StateAuthenticated {
		t.Errorf("state = %q, want authenticated", session.State())
	}
	if c.Token() != "access-token" {
		t.Errorf("token not installed: %q", c.Token())
	}
	if got := session.User(); got == nil || got.Email != "ana@acme.io" {
		t.Errorf("user not captured: %+v", got)
	}
}

func TestSignInFailureStaysUnauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
	}))
	defer server.Close()

	session := NewSession(New(server.URL))
	err := session.SignIn(context.Background(), "ana@acme.io", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("expected 401 APIError, got %v", err)
	}
	if session.State() != StateUnauthenticated {
		t.Errorf("state = %q, want unauthenticated", session.State())
	}
}

func TestResumeRetriesWhileProvisioning(t *testing.T) {
	user := testUser("ana@acme.io")

	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer stored-token" {
			t.Errorf("missing bearer token")
		}
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()

		if first {
			// Profile row not there yet, backend is provisioning it
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "Profile not found"})
			return
		}
		json.NewEncoder(w).Encode(user)
	}))
	defer server.Close()

	session := NewSession(New(server.URL))

	var states []string
	session.OnChange(func(state string) {
		states = append(states, state)
	})

	if err := session.Resume(context.Background(), "stored-token"); err != nil {
		t.Fatal(err)
	}

	if session.State() != StateAuthenticated {
		t.Errorf("state = %q, want authenticated", session.State())
	}

	sawProvisioning := false
	for _, s := range states {
		if s == StateProvisioning {
			sawProvisioning = true
		}
	}
	if !sawProvisioning {
		t.Errorf("provisioning state never observed: %v", states)
	}
}

func TestResumeGivesUpAfterOneRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Profile not found"})
	}))
	defer server.Close()

	session := NewSession(New(server.URL))
	err := session.Resume(context.Background(), "stored-token")
	if err != ErrProfileUnavailable {
		t.Fatalf("expected ErrProfileUnavailable, got %v", err)
	}
	if session.State() != StateUnauthenticated {
		t.Errorf("state = %q, want unauthenticated", session.State())
	}
}

func TestUpdateProfileOptimisticThenSurfacesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
	}))
	defer server.Close()

	session := NewSession(New(server.URL))
	user := testUser("ana@acme.io")
	session.user = &user
	session.state = StateAuthenticated

	err := session.UpdateProfile(context.Background(), models.UpdateProfileRequest{Name: "Ana Maria"})
	if err == nil {
		t.Fatal("expected error from failed write")
	}

	// The optimistic local copy stays; the failure is the caller's signal
	if got := session.User(); got.Name != "Ana Maria" {
		t.Errorf("optimistic update reverted silently: %q", got.Name)
	}
}

func TestSignOutClearsSession(t *testing.T) {
	c := New("http://unused")
	c.SetToken("token")
	session := NewSession(c)
	user := testUser("ana@acme.io")
	session.user = &user
	session.state = StateAuthenticated

	session.SignOut()

	if c.Token() != "" {
		t.Error("token not cleared")
	}
	if session.User() != nil {
		t.Error("user not cleared")
	}
	if session.State() != StateUnauthenticated {
		t.Errorf("state = %q, want unauthenticated", session.State())
	}
}
