package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"faculty-appraisal/internal/api/middleware"
	"faculty-appraisal/pkg/jwt"
	"faculty-appraisal/pkg/response"
)

// MustGetPrincipal extracts the principal attached by the auth gate.
// When it is missing a 401 is written and ok is false; callers return at once.
func MustGetPrincipal(c *gin.Context) (jwt.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok || p.Subject == "" {
		response.Unauthorized(c, "Authentication required")
		return jwt.Principal{}, false
	}
	return p, true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be absent.
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	err := c.ShouldBindJSON(req)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	return rejectBind(c, err)
}

// bindJSON binds the body into req, writing 413 or 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		return rejectBind(c, err)
	}
	return true
}

func rejectBind(c *gin.Context, err error) bool {
	if middleware.IsBodyTooLarge(err) {
		middleware.RejectTooLarge(c)
		return false
	}
	response.BadRequest(c, "Invalid request body")
	return false
}
