package handler

import (
	"github.com/gin-gonic/gin"

	"faculty-appraisal/internal/service"
	"faculty-appraisal/pkg/response"
)

// AdminHandler administrator dashboards
type AdminHandler struct {
	appraisalSvc service.AppraisalService
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(appraisalSvc service.AppraisalService) *AdminHandler {
	return &AdminHandler{appraisalSvc: appraisalSvc}
}

// Summary case counters by status
// GET /admin/summary
func (h *AdminHandler) Summary(c *gin.Context) {
	result, err := h.appraisalSvc.Summary(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}
