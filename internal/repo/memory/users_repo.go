package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub/internal/domain/user"
)

// UsersRepo mirrors the postgres implementation closely enough to stand in
// for it behind the handler interfaces.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	norm := user.NormalizeEmail(email)
	for _, u := range r.items {
		if user.NormalizeEmail(u.Email) == norm {
			return user.User{}, user.ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	norm := user.NormalizeEmail(email)
	for _, u := range r.items {
		if user.NormalizeEmail(u.Email) == norm {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

// Delete exists for tests that need a vanished token subject.
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}

	delete(r.items, id)
	return nil
}
