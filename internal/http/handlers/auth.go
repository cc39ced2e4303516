package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/domain/user"
	"github.com/taskhub/taskhub/internal/http/middlewares"
	"github.com/taskhub/taskhub/internal/observability"
	"github.com/taskhub/taskhub/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, email, passwordHash string) (user.User, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	hasher     security.Hasher
	jwt        *auth.Manager
	prom       *observability.Prom
}

func NewAuthHandler(users UserReader, userWriter UserWriter, hasher security.Hasher, jwtManager *auth.Manager, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		hasher:     hasher,
		jwt:        jwtManager,
		prom:       prom,
	}
}

func (h *AuthHandler) observeLogin(ok bool) {
	if h.prom != nil {
		h.prom.ObserveLogin(ok)
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        user.Profile `json:"user"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email := user.NormalizeEmail(req.Email)

	hash, err := h.hasher.Hash(req.Password)

	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			// multibyte passwords can pass the rune-counted max tag and
			// still blow the byte limit
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
				Field:   "password",
				Rule:    "max_bytes",
				Param:   "72",
				Message: "must be at most 72 bytes",
			}}})
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	u, err := h.userWriter.Create(cctx, email, hash)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			// the one credential failure that may be specific
			RespondConflict(ctx, "email_taken", "Email is already registered.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, u.Public())
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.rejectCredentials(ctx)
			return
		}

		RespondInternal(ctx, "Could not sign in")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		if !security.IsMismatch(err) {
			// unreadable digest is a data problem, not the caller's
			slog.Default().WarnContext(ctx.Request.Context(), "password_digest_unreadable", "user_id", foundUser.ID)
		}

		h.rejectCredentials(ctx)
		return
	}

	accessToken, err := h.jwt.Issue(foundUser.ID)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.observeLogin(true)

	ctx.JSON(http.StatusOK, LoginResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		User:        foundUser.Public(),
	})
}

// rejectCredentials answers every failed login identically, whatever
// actually went wrong.
func (h *AuthHandler) rejectCredentials(ctx *gin.Context) {
	h.observeLogin(false)
	RespondUnAuthorized(ctx, "invalid_credentials", "Invalid email or password")
}

// Logout is stateless. Tokens keep their natural expiry; the endpoint gives
// clients an acknowledged place to drop their copy.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "missing_token", "Authentication required")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)
	if err != nil {
		// a valid token can outlive its subject
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not load profile")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u.Public())
}
