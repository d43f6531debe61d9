package auth

import (
	"errors"
	"fmt"
	"time"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims issued at login
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 bearer tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager signing with secret
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for user and returns it with its expiry
func (m *TokenManager) Issue(user models.User) (string, time.Time, error) {
	return m.IssueFor(user.UserID, user.Role, user.Name)
}

// IssueFor signs a token for an arbitrary subject
func (m *TokenManager) IssueFor(subject, role, name string) (string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(m.ttl)
	claims := Claims{
		Role: role,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns its claims
func (m *TokenManager) Parse(tokenString string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, marketerrors.ErrTokenExpired
	case err != nil:
		return Claims{}, fmt.Errorf("%w: %v", marketerrors.ErrTokenInvalid, err)
	case claims.Subject == "":
		return Claims{}, fmt.Errorf("%w: missing subject", marketerrors.ErrTokenInvalid)
	}
	return claims, nil
}
