package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"faculty-appraisal/pkg/response"
)

// BodyLimit caps request bodies at maxBytes; handlers that hit the cap while
// binding get 413 instead of a generic 400.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// IsBodyTooLarge reports whether err came from the BodyLimit reader.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// RejectTooLarge writes 413.
func RejectTooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, "Request body too large")
}
