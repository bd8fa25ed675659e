package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pabloosss/Urlopy/internal/domain/leave"
	"github.com/pabloosss/Urlopy/internal/domain/user"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")
	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, "unauthorized", message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondDomainError maps the core's typed errors onto HTTP. Every error kind
// stays distinguishable for the caller: validation 400, missing 404,
// authorization 403, illegal transition 409.
func RespondDomainError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, leave.ErrValidation), errors.Is(err, user.ErrInvalidInput):
		RespondBadRequest(ctx, err.Error(), nil)

	case errors.Is(err, user.ErrEmailTaken):
		RespondBadRequest(ctx, "Email is already in use.", nil)

	case errors.Is(err, leave.ErrNotFound), errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, err.Error())

	case errors.Is(err, leave.ErrForbidden):
		RespondForbidden(ctx, err.Error())

	case errors.Is(err, leave.ErrInvalidTransition):
		RespondConflict(ctx, "invalid_state", err.Error())

	default:
		RespondInternal(ctx, "Something went wrong")
	}
}
