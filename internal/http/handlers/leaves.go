package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pabloosss/Urlopy/internal/domain/leave"
	"github.com/pabloosss/Urlopy/internal/domain/user"
	"github.com/pabloosss/Urlopy/internal/http/middlewares"
	"github.com/pabloosss/Urlopy/internal/observability"
)

// LeaveWorkflow is what the handler needs from the service layer. Kept as an
// interface so tests can fake it.
type LeaveWorkflow interface {
	Create(ctx context.Context, actor user.Actor, req leave.CreateLeaveRequest) (leave.LeaveRequest, error)
	List(ctx context.Context, actor user.Actor, status *leave.Status, ownerID *string) ([]leave.LeaveRequest, error)
	Get(ctx context.Context, actor user.Actor, id string) (leave.LeaveRequest, error)
	Edit(ctx context.Context, actor user.Actor, id string, patch leave.UpdateLeaveRequest) (leave.LeaveRequest, error)
	Decide(ctx context.Context, actor user.Actor, id string, target leave.Status) (leave.LeaveRequest, error)
	Delete(ctx context.Context, actor user.Actor, id string) error
}

type LeavesHandler struct {
	svc  LeaveWorkflow
	prom *observability.Prom // optional
}

func NewLeavesHandler(svc LeaveWorkflow, prom *observability.Prom) *LeavesHandler {
	return &LeavesHandler{svc: svc, prom: prom}
}

func (h *LeavesHandler) Create(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	var req leave.CreateLeaveRequest
	if !BindJSON(ctx, &req) {
		return
	}

	rec, err := h.svc.Create(ctx.Request.Context(), actor, req)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, rec)
}

// List supports ?status= and ?userId= filters on top of the role-derived
// visibility scope.
func (h *LeavesHandler) List(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	var status *leave.Status
	if raw := ctx.Query("status"); raw != "" {
		s := leave.Status(raw)
		if !s.IsValid() {
			RespondBadRequest(ctx, fmt.Sprintf("unknown status %q", raw), nil)
			return
		}
		status = &s
	}

	var ownerID *string
	if raw := ctx.Query("userId"); raw != "" {
		ownerID = &raw
	}

	recs, err := h.svc.List(ctx.Request.Context(), actor, status, ownerID)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": recs, "count": len(recs)})
}

func (h *LeavesHandler) Get(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	rec, err := h.svc.Get(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, rec)
}

func (h *LeavesHandler) Patch(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	var patch leave.UpdateLeaveRequest
	if !BindJSON(ctx, &patch) {
		return
	}

	rec, err := h.svc.Edit(ctx.Request.Context(), actor, ctx.Param("id"), patch)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, rec)
}

type decisionRequest struct {
	Status leave.Status `json:"status" binding:"required"`
}

// Decide applies one approval-stage transition to the request.
func (h *LeavesHandler) Decide(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authenticated")
		return
	}

	var req decisionRequest
	if !BindJSON(ctx, &req) {
		return
	}

	rec, err := h.svc.Decide(ctx.Request.Context(), actor, ctx.Param("id"), req.Status)

	if h.prom != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		h.prom.DecisionsTotal.WithLabelValues(string(actor.Role), outcome).Inc()
	}

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, rec)
}

func (h *LeavesHandler) Delete(ctx *gin.Context) {
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
