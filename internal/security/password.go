package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinCost is the weakest work factor accepted for new digests.
const MinCost = 12

// MaxPasswordBytes is bcrypt's input ceiling. Longer inputs are rejected
// outright instead of being silently truncated.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("security: password longer than 72 bytes")

// Hasher produces bcrypt digests at a fixed work factor.
type Hasher struct {
	cost int
}

// NewHasher clamps cost up to MinCost; a weaker hasher cannot be constructed.
func NewHasher(cost int) Hasher {
	if cost < MinCost {
		cost = MinCost
	}
	return Hasher{cost: cost}
}

// Hash hashes a plain text password with bcrypt.
func (h Hasher) Hash(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt digest with a plaintext password.
// A nil return means match; it never panics, whatever the digest looks like.

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// IsMismatch reports whether err from CheckPassword is a plain wrong-password
// failure. Any other non-nil error means the stored digest is not a bcrypt
// digest, which callers should surface as a data-integrity problem.
func IsMismatch(err error) bool {
	return errors.Is(err, bcrypt.ErrMismatchedHashAndPassword)
}
