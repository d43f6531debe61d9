package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"
	"farmerconnect/utils"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt refuses longer inputs
	maxPasswordLength = 72
)

var validate = validator.New()

// RegisterInput carries a self-registration request
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Role         string
	Phone        string
	Location     string
	FarmName     string
	BusinessName string
}

// ProfileInput carries profile edits; nil fields are left unchanged
type ProfileInput struct {
	Name         *string
	Phone        *string
	Location     *string
	FarmName     *string
	BusinessName *string
}

// Session is a signed token plus the user it was issued to
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// AuthService handles accounts and sessions
type AuthService struct {
	users  repository.UserStore
	tokens *TokenManager
	cost   int
	now    func() time.Time
}

// NewAuthService creates a new AuthService instance
func NewAuthService(users repository.UserStore, tokens *TokenManager) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// HashPassword bcrypt-hashes a plain password
func HashPassword(plain string) (string, error) {
	return hashWithCost(plain, bcrypt.DefaultCost)
}

// checkPasswordLength bounds the password in bytes, which is what bcrypt counts
func checkPasswordLength(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("service: %w - password must be at least %d characters", marketerrors.ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("service: %w - password must be at most %d bytes", marketerrors.ErrInvalidInput, maxPasswordLength)
	}
	return nil
}

func hashWithCost(plain string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Register creates a farmer or buyer account and signs them in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)

	if in.Name == "" {
		return Session{}, fmt.Errorf("service: %w - name is required", marketerrors.ErrInvalidInput)
	}
	if err := validate.Var(in.Email, "required,email"); err != nil {
		return Session{}, fmt.Errorf("service: %w - invalid email", marketerrors.ErrInvalidInput)
	}
	if err := checkPasswordLength(in.Password); err != nil {
		return Session{}, err
	}
	if in.Role != models.RoleFarmer && in.Role != models.RoleBuyer {
		return Session{}, fmt.Errorf("service: %w - role must be farmer or buyer", marketerrors.ErrInvalidInput)
	}

	hash, err := hashWithCost(in.Password, s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("service: %w", err)
	}

	now := s.now().UTC()
	user := models.User{
		UserID:       utils.GenerateID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Phone:        strings.TrimSpace(in.Phone),
		Location:     strings.TrimSpace(in.Location),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Role == models.RoleFarmer {
		user.FarmName = strings.TrimSpace(in.FarmName)
	} else {
		user.BusinessName = strings.TrimSpace(in.BusinessName)
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return Session{}, fmt.Errorf("service: failed to register %s: %w", in.Email, err)
	}
	return s.session(user)
}

// Login checks credentials and signs the user in
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, marketerrors.ErrUserNotFound) {
		return Session{}, fmt.Errorf("service: %w", marketerrors.ErrInvalidCredentials)
	}
	if err != nil {
		return Session{}, fmt.Errorf("service: failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, fmt.Errorf("service: %w", marketerrors.ErrInvalidCredentials)
	}
	if !user.Active {
		return Session{}, fmt.Errorf("service: %w", marketerrors.ErrAccountSuspended)
	}
	return s.session(user)
}

func (s *AuthService) session(user models.User) (Session, error) {
	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, fmt.Errorf("service: %w", err)
	}
	return Session{Token: token, ExpiresAt: exp, User: user}, nil
}

// Authenticate resolves a bearer token to its current, active user
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, marketerrors.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("%w: unknown subject", marketerrors.ErrTokenInvalid)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("service: failed to load user: %w", err)
	}
	if !user.Active {
		return models.User{}, marketerrors.ErrAccountSuspended
	}
	return user, nil
}

// Me returns the caller's account
func (s *AuthService) Me(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("service: failed to get user %s: %w", userID, err)
	}
	return user, nil
}

// UpdateProfile applies profile edits to the stored account, leaving
// moderation flags as they are
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (models.User, error) {
	var name string
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if name == "" {
			return models.User{}, fmt.Errorf("service: %w - name cannot be empty", marketerrors.ErrInvalidInput)
		}
	}
	now := s.now().UTC()

	user, err := s.users.UpdateUser(ctx, userID, func(u *models.User) error {
		if in.Name != nil {
			u.Name = name
		}
		if in.Phone != nil {
			u.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.Location != nil {
			u.Location = strings.TrimSpace(*in.Location)
		}
		if in.FarmName != nil && u.Role == models.RoleFarmer {
			u.FarmName = strings.TrimSpace(*in.FarmName)
		}
		if in.BusinessName != nil && u.Role == models.RoleBuyer {
			u.BusinessName = strings.TrimSpace(*in.BusinessName)
		}
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.User{}, fmt.Errorf("service: failed to update user %s: %w", userID, err)
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service: failed to get user %s: %w", userID, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return fmt.Errorf("service: %w", marketerrors.ErrInvalidCredentials)
	}
	if err := checkPasswordLength(next); err != nil {
		return err
	}

	hash, err := hashWithCost(next, s.cost)
	if err != nil {
		return fmt.Errorf("service: %w", err)
	}
	now := s.now().UTC()
	_, err = s.users.UpdateUser(ctx, userID, func(u *models.User) error {
		// a concurrent change already replaced the hash we verified against
		if u.PasswordHash != user.PasswordHash {
			return marketerrors.ErrInvalidCredentials
		}
		u.PasswordHash = hash
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return fmt.Errorf("service: failed to update password for %s: %w", userID, err)
	}
	return nil
}
