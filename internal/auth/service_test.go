package auth

import (
	"errors"
	"testing"

	"commhub/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	byID     map[uuid.UUID]*models.User
	byEmail  map[string]*models.User
	failures int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByID(id uuid.UUID) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Create(user *models.User) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("transient failure")
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUserRepo) Update(user *models.User) error {
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUserRepo) CreatePasswordResetToken(*models.PasswordResetToken) error { return nil }
func (f *fakeUserRepo) GetPasswordResetToken(string) (*models.PasswordResetToken, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepo) MarkPasswordResetTokenAsUsed(uuid.UUID) error       { return nil }
func (f *fakeUserRepo) InvalidateUserPasswordResetTokens(uuid.UUID) error { return nil }

type fakeOrgRepo struct {
	orgs map[string]*models.Organization
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: make(map[string]*models.Organization)}
}

func (f *fakeOrgRepo) GetByName(name string) (*models.Organization, error) {
	return f.orgs[name], nil
}

func (f *fakeOrgRepo) Create(org *models.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	f.orgs[org.Name] = org
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeUserRepo, *fakeOrgRepo) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	users := newFakeUserRepo()
	orgs := newFakeOrgRepo()
	return NewService(users, orgs), users, orgs
}

func TestSignupProvisionsProfile(t *testing.T) {
	svc, users, orgs := newTestService(t)

	resp, err := svc.Signup(SignupRequest{Email: "ana@acme.io", Password: "secret1", Name: "Ana"})
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}

	user := users.byEmail["ana@acme.io"]
	if user == nil {
		t.Fatal("expected profile row to be created")
	}
	if user.Role != models.RoleAgent {
		t.Errorf("role = %q, want agent", user.Role)
	}
	if user.Avatar != models.AvatarURL("ana@acme.io") {
		t.Errorf("avatar = %q, want placeholder keyed by email", user.Avatar)
	}
	if user.Performance != models.DefaultPerformance() {
		t.Errorf("performance = %+v, want zeroed defaults", user.Performance)
	}
	if orgs.orgs[DefaultOrganizationName] == nil {
		t.Fatal("expected onboarding organization to be provisioned")
	}
	if user.OrganizationID == nil || *user.OrganizationID != orgs.orgs[DefaultOrganizationName].ID {
		t.Error("expected user to join the onboarding organization")
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected token pair on signup")
	}
}

func TestSignupRetriesOnceOnTransientFailure(t *testing.T) {
	svc, users, _ := newTestService(t)
	users.failures = 1

	if _, err := svc.Signup(SignupRequest{Email: "rai@acme.io", Password: "secret1"}); err != nil {
		t.Fatalf("expected signup to succeed after one retry, got %v", err)
	}

	svc2, users2, _ := newTestService(t)
	users2.failures = 2
	if _, err := svc2.Signup(SignupRequest{Email: "rai@acme.io", Password: "secret1"}); err == nil {
		t.Fatal("expected signup to fail when retry also fails")
	}
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Signup(SignupRequest{Email: "ana@acme.io", Password: "secret1"}); err != nil {
		t.Fatalf("Signup error: %v", err)
	}

	resp, err := svc.Login(LoginRequest{Email: "ana@acme.io", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	claims, err := svc.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken error: %v", err)
	}
	if claims.Email != "ana@acme.io" {
		t.Errorf("claims email = %q", claims.Email)
	}
	if claims.Type != "access" {
		t.Errorf("claims type = %q, want access", claims.Type)
	}
	if claims.OrganizationID == nil {
		t.Error("expected organization claim on org-scoped user")
	}

	if _, err := svc.Login(LoginRequest{Email: "ana@acme.io", Password: "wrong"}); err == nil {
		t.Fatal("expected login with wrong password to fail")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.Signup(SignupRequest{Email: "ana@acme.io", Password: "secret1"})
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}

	if _, err := svc.RefreshToken(resp.AccessToken); err == nil {
		t.Fatal("expected refresh with access token to fail")
	}
	if _, err := svc.RefreshToken(resp.RefreshToken); err != nil {
		t.Fatalf("RefreshToken error: %v", err)
	}
}

func TestEnsureProfileProvisionsMissingRow(t *testing.T) {
	svc, users, _ := newTestService(t)

	claims := &TokenClaims{
		UserID: uuid.New(),
		Email:  "ghost@acme.io",
		Role:   models.RoleAgent,
	}

	user, err := svc.EnsureProfile(claims)
	if err != nil {
		t.Fatalf("EnsureProfile error: %v", err)
	}
	if user.ID != claims.UserID {
		t.Errorf("provisioned profile ID = %s, want claim subject %s", user.ID, claims.UserID)
	}
	if users.byID[claims.UserID] == nil {
		t.Error("expected profile row to exist after EnsureProfile")
	}

	// Second call returns the same row instead of re-provisioning
	again, err := svc.EnsureProfile(claims)
	if err != nil {
		t.Fatalf("EnsureProfile second call error: %v", err)
	}
	if again.ID != user.ID {
		t.Error("expected idempotent EnsureProfile")
	}
}
