package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "faculty-appraisal/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", w.Body.String(), err)
	}
	return body
}

func TestFail_ClassifiedWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, apperrors.Forbidden("Insufficient permissions").WithDetail("your_role", "Faculty"))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	body := decode(t, w)
	if body["error"] != "Insufficient permissions" || body["your_role"] != "Faculty" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestFail_InternalHidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, errors.New("pq: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := decode(t, w); body["error"] != "Internal server error" {
		t.Errorf("cause leaked: %v", body)
	}
	if len(c.Errors) != 1 {
		t.Errorf("expected cause recorded on context, got %d", len(c.Errors))
	}
}

func TestFail_RateLimitedSetsRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, apperrors.RateLimited("Rate limit exceeded").WithDetail("retry_after", 900))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "900" {
		t.Errorf("expected Retry-After 900, got %q", got)
	}
}
