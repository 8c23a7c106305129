package handler

import (
	"github.com/gin-gonic/gin"

	"faculty-appraisal/internal/dto"
	"faculty-appraisal/internal/service"
	"faculty-appraisal/internal/workflow"
	"faculty-appraisal/pkg/response"
)

// AppraisalHandler workflow HTTP handlers
type AppraisalHandler struct {
	appraisalSvc service.AppraisalService
}

// NewAppraisalHandler creates an AppraisalHandler.
func NewAppraisalHandler(appraisalSvc service.AppraisalService) *AppraisalHandler {
	return &AppraisalHandler{appraisalSvc: appraisalSvc}
}

// Transition returns the handler for one workflow action.
// POST /:department/:facultyId/<action>
func (h *AppraisalHandler) Transition(action workflow.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := MustGetPrincipal(c)
		if !ok {
			return
		}

		// approve and escalate accept an empty body
		var req dto.TransitionRequest
		if !bindOptionalJSON(c, &req) {
			return
		}

		msg, err := h.appraisalSvc.Transition(c.Request.Context(), action, c.Param("department"), c.Param("facultyId"), p, &req)
		if err != nil {
			response.Fail(c, err)
			return
		}
		if action == workflow.ActionSubmit {
			response.Created(c, msg)
			return
		}
		response.Message(c, msg)
	}
}

// Get one case with its history
// GET /:department/:facultyId/appraisal
func (h *AppraisalHandler) Get(c *gin.Context) {
	result, err := h.appraisalSvc.Get(c.Request.Context(), c.Param("department"), c.Param("facultyId"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

// List department cases, optionally filtered by status
// GET /:department/appraisals?status=
func (h *AppraisalHandler) List(c *gin.Context) {
	var q dto.ListAppraisalsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.appraisalSvc.List(c.Request.Context(), c.Param("department"), q.Status)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}
