package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "faculty-appraisal/pkg/errors"
)

// ErrorBody failure shape shared by every endpoint.
type ErrorBody struct {
	Error string `json:"error"`
}

// MessageBody success shape for command endpoints.
type MessageBody struct {
	Message string `json:"message"`
}

// ── Success ──

// OK 200 with an endpoint-specific body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 201 with a message.
func Created(c *gin.Context, message string) {
	c.JSON(http.StatusCreated, MessageBody{Message: message})
}

// Message 200 with a message.
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, MessageBody{Message: message})
}

// ── Failure ──

// Error writes {"error": message} and aborts the chain.
func Error(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{Error: message})
}

// Fail maps err onto the taxonomy. Details of classified errors are merged
// into the body; internal causes are recorded on the gin context for the
// request logger and never written to the client.
func Fail(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Kind == apperrors.KindInternal {
		_ = c.Error(err)
		InternalError(c)
		return
	}
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}

	if appErr.Kind == apperrors.KindRateLimited {
		if secs, ok := appErr.Details["retry_after"].(int); ok {
			c.Header("Retry-After", strconv.Itoa(secs))
		}
	}

	if len(appErr.Details) == 0 {
		Error(c, appErr.Kind.HTTPStatus(), appErr.Message)
		return
	}
	body := gin.H{"error": appErr.Message}
	for k, v := range appErr.Details {
		body[k] = v
	}
	c.AbortWithStatusJSON(appErr.Kind.HTTPStatus(), body)
}

// BadRequest 400
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// InternalError 500 with a generic message.
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}
