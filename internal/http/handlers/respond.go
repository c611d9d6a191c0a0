package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/userhub/internal/fault"
	"github.com/gin-gonic/gin"
)

// DevMode controls whether internal error causes are included in responses.
// The router sets it once at startup.
var DevMode bool

// APIResponse is the success envelope used by every endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

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

func RespondOK(ctx *gin.Context, message string, data interface{}) {
	ctx.JSON(http.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

func RespondCreated(ctx *gin.Context, message string, data interface{}) {
	ctx.JSON(http.StatusCreated, APIResponse{Success: true, Message: message, Data: data})
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

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, "conflict", message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondFault translates the service error taxonomy into HTTP statuses.
// Internal causes stay server-side unless DevMode is on.
func RespondFault(ctx *gin.Context, err error) {
	var fe *fault.Error

	if !errors.As(err, &fe) {
		RespondInternal(ctx, "Unexpected error")
		return
	}

	switch fe.Kind {
	case fault.KindValidation:
		RespondBadRequest(ctx, fe.Message, gin.H{"fields": fe.Fields})
	case fault.KindNotFound:
		RespondNotFound(ctx, fe.Message)
	case fault.KindConflict:
		RespondConflict(ctx, fe.Message)
	case fault.KindUnauthorized:
		RespondUnAuthorized(ctx, "unauthorized", fe.Message)
	default:
		var details interface{}

		if DevMode && fe.Cause != nil {
			details = gin.H{"cause": fe.Cause.Error()}
		}

		RespondError(ctx, http.StatusInternalServerError, "internal_error", fe.Message, details)
	}
}
