package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pabloosss/Urlopy/internal/domain/user"
	"github.com/pabloosss/Urlopy/internal/http/middlewares"
	"github.com/pabloosss/Urlopy/internal/security"
	"github.com/pabloosss/Urlopy/internal/service"
)

type UserAccounts interface {
	List(ctx context.Context, actor user.Actor) ([]user.User, error)
	Get(ctx context.Context, actor user.Actor, id string) (user.User, error)
	Create(ctx context.Context, actor user.Actor, u user.User) (user.User, error)
	Update(ctx context.Context, actor user.Actor, id string, req user.UpdateUserRequest) (user.User, error)
	Delete(ctx context.Context, actor user.Actor, id string) error
	Balance(ctx context.Context, actor user.Actor, id string) (service.Balance, error)
	AdjustBalance(ctx context.Context, actor user.Actor, id string, days int) (service.Balance, error)
}

type UsersHandler struct {
	svc UserAccounts
}

func NewUsersHandler(svc UserAccounts) *UsersHandler {
	return &UsersHandler{svc: svc}
}

func (h *UsersHandler) List(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	users, err := h.svc.List(ctx.Request.Context(), actor)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": users, "count": len(users)})
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	u, err := h.svc.Get(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	var req user.CreateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not process password")
		return
	}

	u, err := h.svc.Create(ctx.Request.Context(), actor, user.NewFromCreateRequest(req, hash))
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *UsersHandler) Patch(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	var req user.UpdateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.svc.Update(ctx.Request.Context(), actor, ctx.Param("id"), req)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	if err := h.svc.Delete(ctx.Request.Context(), actor, ctx.Param("id")); err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// Balance returns the vacation ledger view for the given user id.
func (h *UsersHandler) Balance(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	b, err := h.svc.Balance(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, b)
}

type adjustBalanceRequest struct {
	// positive charges days, negative gives them back
	Days int `json:"days" binding:"required"`
}

// AdjustBalance applies a manual used-days correction to the user's ledger.
func (h *UsersHandler) AdjustBalance(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	var req adjustBalanceRequest
	if !BindJSON(ctx, &req) {
		return
	}

	b, err := h.svc.AdjustBalance(ctx.Request.Context(), actor, ctx.Param("id"), req.Days)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, b)
}

// MyBalance is the /me/balance shortcut.
func (h *UsersHandler) MyBalance(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	b, err := h.svc.Balance(ctx.Request.Context(), actor, actor.ID)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, b)
}
