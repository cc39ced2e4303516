package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the fixed lifetime of an access token.
const TokenTTL = 24 * time.Hour

var (
	// ErrTokenMissing is reported when a request carries no bearer credential.
	ErrTokenMissing = errors.New("auth: token missing")
	// ErrTokenInvalid covers malformed tokens, bad signatures and bad claims.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrTokenExpired is reported only for authentically signed tokens.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrInvalidCredentials is the single error for every login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

type Claims struct {
	JTI string `json:"jti"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 access tokens. The secret is fixed at
// construction and never changes for the life of the process.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue signs an access token for userID. iat moves between calls and jti is
// always fresh, so two tokens for the same user never collide.
func (m *Manager) Issue(userID string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		JTI: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature first, then lifetime, and returns the subject
// user id. Expiry is only ever reported for tokens that passed the
// signature check.
func (m *Manager) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrTokenInvalid
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
