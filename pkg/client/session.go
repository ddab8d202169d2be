package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"commhub/pkg/models"
)

// Session states
const (
	StateUnauthenticated = "unauthenticated"
	StateLoading         = "loading"
	StateProvisioning    = "provisioning"
	StateAuthenticated   = "authenticated"
)

// ErrProfileUnavailable is returned when the backend cannot resolve or
// provision a profile for an otherwise valid token.
var ErrProfileUnavailable = errors.New("profile unavailable")

// Session owns the authenticated identity: it signs in, resumes from a
// stored token (provisioning the profile server-side if the row is
// missing), and exposes the resolved user.
type Session struct {
	client *Client

	mu           sync.RWMutex
	state        string
	user         *models.User
	refreshToken string
	onChange     func(state string)
	listener     *Listener
}

// NewSession creates a session bound to the client
func NewSession(client *Client) *Session {
	return &Session{client: client, state: StateUnauthenticated}
}

// OnChange registers a callback invoked after every state transition
func (s *Session) OnChange(fn func(state string)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// State returns the current session state
func (s *Session) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the resolved profile, nil until authenticated
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// RefreshToken returns the current refresh token for persistence
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) setState(state string) {
	s.mu.Lock()
	s.state = state
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}

func (s *Session) install(resp *loginResponse) {
	s.client.SetToken(resp.AccessToken)
	s.mu.Lock()
	s.user = &resp.User
	s.refreshToken = resp.RefreshToken
	s.mu.Unlock()
	s.setState(StateAuthenticated)
}

type loginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
	ExpiresIn    int64       `json:"expires_in"`
}

// SignIn authenticates with email and password
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	s.setState(StateLoading)

	var resp loginResponse
	err := s.client.post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		s.setState(StateUnauthenticated)
		return err
	}

	s.install(&resp)
	return nil
}

// SignUp registers a new account; the backend provisions the profile and
// onboarding membership in the same call.
func (s *Session) SignUp(ctx context.Context, email, password, name string) error {
	s.setState(StateLoading)

	var resp loginResponse
	err := s.client.post(ctx, "/auth/signup", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &resp)
	if err != nil {
		s.setState(StateUnauthenticated)
		return err
	}

	s.install(&resp)
	return nil
}

// Resume restores a session from a stored access token. A valid token
// whose profile row is missing triggers server-side provisioning; the
// lookup is retried once before giving up.
func (s *Session) Resume(ctx context.Context, accessToken string) error {
	s.client.SetToken(accessToken)
	s.setState(StateLoading)

	var user models.User
	err := s.client.get(ctx, "/auth/me", &user)
	if IsStatus(err, http.StatusNotFound) {
		s.setState(StateProvisioning)
		select {
		case <-ctx.Done():
			s.signOut()
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
		err = s.client.get(ctx, "/auth/me", &user)
	}
	if err != nil {
		s.signOut()
		if IsStatus(err, http.StatusNotFound) {
			return ErrProfileUnavailable
		}
		return err
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	s.setState(StateAuthenticated)
	return nil
}

// Refresh exchanges the refresh token for a new token pair
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	token := s.refreshToken
	s.mu.RUnlock()
	if token == "" {
		return errors.New("no refresh token held")
	}

	var resp loginResponse
	err := s.client.post(ctx, "/auth/refresh", map[string]string{
		"refresh_token": token,
	}, &resp)
	if err != nil {
		return err
	}

	s.install(&resp)
	return nil
}

// BindListener ties the realtime connection to the session lifecycle:
// signing out tears it down so no change events outlive the principal.
func (s *Session) BindListener(l *Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// SignOut drops the local session and stops the bound realtime listener
func (s *Session) SignOut() {
	s.signOut()
}

func (s *Session) signOut() {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener.Stop()
	}

	s.client.SetToken("")
	s.mu.Lock()
	s.user = nil
	s.refreshToken = ""
	s.mu.Unlock()
	s.setState(StateUnauthenticated)
}

// RequestPasswordReset asks for a reset link. The backend answers the
// same way whether or not the email exists.
func (s *Session) RequestPasswordReset(ctx context.Context, email string) error {
	return s.client.post(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

// ResetPassword redeems a reset token for a new password
func (s *Session) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.client.post(ctx, "/auth/reset-password", map[string]string{
		"token":        token,
		"new_password": newPassword,
	}, nil)
}

// ChangePassword changes the signed-in user's password
func (s *Session) ChangePassword(ctx context.Context, current, newPassword string) error {
	return s.client.post(ctx, "/auth/change-password", map[string]string{
		"current_password": current,
		"new_password":     newPassword,
	}, nil)
}

// UpdateProfile applies the change optimistically, then persists it. A
// backend failure is surfaced as an error while the local copy stays
// dirty; callers decide whether to retry or reload.
func (s *Session) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) error {
	s.mu.Lock()
	if s.user != nil {
		s.user.Name = req.Name
		s.user.Phone = req.Phone
		if req.Avatar != "" {
			s.user.Avatar = req.Avatar
		}
		if req.Status != "" {
			s.user.Status = req.Status
		}
		if req.Preferences != nil {
			s.user.Preferences = req.Preferences
		}
	}
	s.mu.Unlock()

	var updated models.User
	if err := s.client.put(ctx, "/auth/profile", req, &updated); err != nil {
		return err
	}

	s.mu.Lock()
	s.user = &updated
	s.mu.Unlock()
	return nil
}
