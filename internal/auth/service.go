package auth

import (
	"errors"
	"os"
	"time"

	"commhub/pkg/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultOrganizationName is the onboarding organization that newly signed
// up users land in until a platform operator moves them.
const DefaultOrganizationName = "Onboarding"

// ErrProfileNotFound is returned when an authenticated principal has no
// profile row yet (signup raced the first authenticated request).
var ErrProfileNotFound = errors.New("profile not found")

// Service handles authentication logic
type Service struct {
	userRepo UserRepository
	orgRepo  OrganizationRepository
}

// UserRepository interface for user data access
type UserRepository interface {
	GetByEmail(email string) (*models.User, error)
	GetByID(id uuid.UUID) (*models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error
	// Password reset methods
	CreatePasswordResetToken(token *models.PasswordResetToken) error
	GetPasswordResetToken(token string) (*models.PasswordResetToken, error)
	MarkPasswordResetTokenAsUsed(tokenID uuid.UUID) error
	InvalidateUserPasswordResetTokens(userID uuid.UUID) error
}

// OrganizationRepository interface for provisioning lookups
type OrganizationRepository interface {
	GetByName(name string) (*models.Organization, error)
	Create(org *models.Organization) error
}

// NewService creates a new auth service
func NewService(userRepo UserRepository, orgRepo OrganizationRepository) *Service {
	return &Service{
		userRepo: userRepo,
		orgRepo:  orgRepo,
	}
}

// LoginRequest represents login request data
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest represents signup request data
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"`
}

// LoginResponse represents login response data
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
	ExpiresIn    int64       `json:"expires_in"`
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID         uuid.UUID  `json:"user_id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	Type           string     `json:"type"` // access or refresh
	jwt.RegisteredClaims
}

// Login authenticates a user and returns tokens
func (s *Service) Login(req LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		return nil, errors.New("invalid credentials")
	}

	if !user.IsActive {
		return nil, errors.New("user account is disabled")
	}

	if !s.verifyPassword(req.Password, user.Password) {
		return nil, errors.New("invalid credentials")
	}

	// Update last login
	now := time.Now()
	user.LastLoginAt = &now
	s.userRepo.Update(user)

	return s.tokenPair(user)
}

// Signup registers a new user and provisions their profile in one step:
// agent role, placeholder avatar keyed by email, zeroed performance
// counters, membership in the onboarding organization.
func (s *Service) Signup(req SignupRequest) (*LoginResponse, error) {
	if existing, err := s.userRepo.GetByEmail(req.Email); err == nil && existing != nil {
		return nil, errors.New("email already registered")
	}

	hashed, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, errors.New("failed to process password")
	}

	org, err := s.defaultOrganization()
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = req.Email
	}

	user := &models.User{
		OrganizationID: &org.ID,
		Email:          req.Email,
		Password:       hashed,
		Name:           name,
		Role:           models.RoleAgent,
		Avatar:         models.AvatarURL(req.Email),
		Status:         models.PresenceOffline,
		Performance:    models.DefaultPerformance(),
		IsActive:       true,
	}

	if err := s.userRepo.Create(user); err != nil {
		// One retry covers the transient failures seen during onboarding
		// bursts; a second failure is reported to the caller.
		log.Warn().Err(err).Str("email", req.Email).Msg("profile provisioning failed, retrying once")
		if err := s.userRepo.Create(user); err != nil {
			return nil, errors.New("failed to provision profile")
		}
	}

	return s.tokenPair(user)
}

// EnsureProfile returns the profile for an authenticated principal,
// provisioning a default one when the row is missing. Used by the session
// resolver so a signup that never completed provisioning still converges.
func (s *Service) EnsureProfile(claims *TokenClaims) (*models.User, error) {
	user, err := s.userRepo.GetByID(claims.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	org, err := s.defaultOrganization()
	if err != nil {
		return nil, err
	}

	user = &models.User{
		BaseModel:      models.BaseModel{ID: claims.UserID},
		OrganizationID: &org.ID,
		Email:          claims.Email,
		Password:       "-", // no local credential, token-only principal
		Name:           claims.Email,
		Role:           models.RoleAgent,
		Avatar:         models.AvatarURL(claims.Email),
		Status:         models.PresenceOffline,
		Performance:    models.DefaultPerformance(),
		IsActive:       true,
	}

	if err := s.userRepo.Create(user); err != nil {
		if err := s.userRepo.Create(user); err != nil {
			return nil, ErrProfileNotFound
		}
	}

	log.Info().Str("user_id", user.ID.String()).Msg("provisioned missing profile on demand")
	return user, nil
}

// RefreshToken generates new tokens from refresh token
func (s *Service) RefreshToken(tokenString string) (*LoginResponse, error) {
	claims, err := s.validateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Type != "refresh" {
		return nil, errors.New("invalid token type")
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, errors.New("user not found")
	}

	if !user.IsActive {
		return nil, errors.New("user account is disabled")
	}

	return s.tokenPair(user)
}

// ValidateToken validates and parses a JWT token
func (s *Service) ValidateToken(tokenString string) (*TokenClaims, error) {
	return s.validateToken(tokenString)
}

// HashPassword hashes a password with bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// UpdateProfile updates the caller's profile information
func (s *Service) UpdateProfile(userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, errors.New("user not found")
	}

	user.Name = req.Name
	user.Phone = req.Phone
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	if req.Status != "" {
		user.Status = req.Status
	}
	if req.Preferences != nil {
		user.Preferences = req.Preferences
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, errors.New("failed to update user profile")
	}

	return user, nil
}

// ChangePassword changes user password
func (s *Service) ChangePassword(userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return errors.New("user not found")
	}

	if !s.verifyPassword(currentPassword, user.Password) {
		return errors.New("current password is incorrect")
	}

	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return errors.New("failed to hash new password")
	}

	user.Password = hashedPassword
	if err := s.userRepo.Update(user); err != nil {
		return errors.New("failed to update password")
	}

	return nil
}

// RequestPasswordReset creates a password reset token and returns it for email sending
func (s *Service) RequestPasswordReset(email string) (*models.PasswordResetToken, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		// Don't reveal if email exists or not
		return nil, errors.New("if the email exists, a reset link has been sent")
	}

	if err := s.userRepo.InvalidateUserPasswordResetTokens(user.ID); err != nil {
		return nil, errors.New("failed to process password reset request")
	}

	resetToken := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(1 * time.Hour),
		IsUsed:    false,
		User:      user,
	}

	if err := s.userRepo.CreatePasswordResetToken(resetToken); err != nil {
		return nil, errors.New("failed to create password reset token")
	}

	return resetToken, nil
}

// ResetPassword resets user password using a valid token
func (s *Service) ResetPassword(token, newPassword string) error {
	resetToken, err := s.userRepo.GetPasswordResetToken(token)
	if err != nil {
		return errors.New("invalid or expired reset token")
	}

	if time.Now().After(resetToken.ExpiresAt) {
		return errors.New("reset token has expired")
	}

	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return errors.New("failed to process new password")
	}

	resetToken.User.Password = hashedPassword
	if err := s.userRepo.Update(resetToken.User); err != nil {
		return errors.New("failed to update password")
	}

	if err := s.userRepo.MarkPasswordResetTokenAsUsed(resetToken.ID); err != nil {
		return errors.New("failed to invalidate reset token")
	}

	return nil
}

func (s *Service) tokenPair(user *models.User) (*LoginResponse, error) {
	accessToken, err := s.generateToken(user, "access", getEnvOrDefault("JWT_ACCESS_DURATION", "15m"), 15*time.Minute)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateToken(user, "refresh", getEnvOrDefault("JWT_REFRESH_DURATION", "24h"), 24*time.Hour)
	if err != nil {
		return nil, err
	}

	accessDuration, _ := time.ParseDuration(getEnvOrDefault("JWT_ACCESS_DURATION", "15m"))

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         *user,
		ExpiresIn:    int64(accessDuration.Seconds()),
	}, nil
}

func (s *Service) generateToken(user *models.User, tokenType, durationStr string, fallback time.Duration) (string, error) {
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		duration = fallback
	}

	claims := TokenClaims{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Email:          user.Email,
		Role:           user.Role,
		Type:           tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "commhub",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// validateToken validates and parses a JWT token
func (s *Service) validateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// verifyPassword verifies a password against its hash
func (s *Service) verifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (s *Service) defaultOrganization() (*models.Organization, error) {
	org, err := s.orgRepo.GetByName(DefaultOrganizationName)
	if err != nil {
		return nil, errors.New("failed to resolve onboarding organization")
	}
	if org != nil {
		return org, nil
	}

	org = &models.Organization{
		Name:   DefaultOrganizationName,
		Plan:   models.PlanFree,
		Status: models.OrgStatusActive,
	}
	if err := s.orgRepo.Create(org); err != nil {
		// Lost a create race, re-read
		org, err = s.orgRepo.GetByName(DefaultOrganizationName)
		if err != nil || org == nil {
			return nil, errors.New("failed to provision onboarding organization")
		}
	}
	return org, nil
}
