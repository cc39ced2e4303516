package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	m := NewManager(testSecret, TokenTTL)
	userID := uuid.NewString()

	tok, err := m.Issue(userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("token is not a compact JWS: %q", tok)
	}

	got, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != userID {
		t.Fatalf("subject = %q, want %q", got, userID)
	}
}

func TestIssueTokensNeverCollide(t *testing.T) {
	m := NewManager(testSecret, TokenTTL)
	userID := uuid.NewString()

	a, err := m.Issue(userID)
	if err != nil {
		t.Fatalf("issue a: %v", err)
	}
	b, err := m.Issue(userID)
	if err != nil {
		t.Fatalf("issue b: %v", err)
	}
	if a == b {
		t.Fatal("two tokens for the same user are identical")
	}
}

func TestVerifyExpired(t *testing.T) {
	m := NewManager(testSecret, -time.Minute)

	tok, err := m.Issue(uuid.NewString())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := m.Verify(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyNotYetExpired(t *testing.T) {
	m := NewManager(testSecret, 2*time.Second)

	tok, err := m.Issue(uuid.NewString())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := m.Verify(tok); err != nil {
		t.Fatalf("token inside its lifetime rejected: %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	m := NewManager(testSecret, TokenTTL)
	other := NewManager("ffffffffffffffffffffffffffffffff", TokenTTL)

	tok, err := other.Issue(uuid.NewString())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := m.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifySignatureCheckedBeforeExpiry(t *testing.T) {
	// expired AND signed with the wrong secret must read as invalid,
	// not expired
	other := NewManager("ffffffffffffffffffffffffffffffff", -time.Minute)

	tok, err := other.Issue(uuid.NewString())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	m := NewManager(testSecret, TokenTTL)
	if _, err := m.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	m := NewManager(testSecret, TokenTTL)

	cases := []struct {
		name string
		tok  string
	}{
		{"empty", ""},
		{"not a jwt", "hello"},
		{"three garbage parts", "aaa.bbb.ccc"},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := m.Verify(tc.tok); !errors.Is(err, ErrTokenInvalid) {
				t.Fatalf("err = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestVerifyRejectsUnsignedAlg(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	m := NewManager(testSecret, TokenTTL)
	if _, err := m.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyRejectsBadSubject(t *testing.T) {
	m := NewManager(testSecret, TokenTTL)

	for _, sub := range []string{"", "42", "not-a-uuid"} {
		tok, err := m.Issue(sub)
		if err != nil {
			t.Fatalf("issue %q: %v", sub, err)
		}
		if _, err := m.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("sub %q: err = %v, want ErrTokenInvalid", sub, err)
		}
	}
}
