package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pabloosss/Urlopy/internal/domain/user"
	"github.com/pabloosss/Urlopy/internal/http/middlewares"
	"github.com/pabloosss/Urlopy/internal/security"
)

type loginUserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type tokenIssuer interface {
	GenerateAccessToken(userID, email, role string) (string, error)
}

type AuthHandler struct {
	users loginUserStore
	jwt   tokenIssuer
}

func NewAuthHandler(users loginUserStore, jwt tokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string    `json:"accessToken"`
	User        user.User `json:"user"`
}

// Login trades email+password for an access token. Unknown email and wrong
// password return the same response so the endpoint cannot be used to probe
// for accounts.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req loginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.users.GetByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnauthorized(ctx, "Invalid email or password")
			return
		}
		RespondInternal(ctx, "Something went wrong")
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		RespondUnauthorized(ctx, "Invalid email or password")
		return
	}

	token, err := h.jwt.GenerateAccessToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		RespondInternal(ctx, "Could not issue token")
		return
	}

	ctx.JSON(http.StatusOK, loginResponse{AccessToken: token, User: u})
}

// Me returns the authenticated user's own record.
func (h *AuthHandler) Me(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	u, err := h.users.GetByID(ctx.Request.Context(), actor.ID)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}
