package handler

import "faculty-appraisal/internal/service"

// Handler aggregate of all handlers
type Handler struct {
	Auth      *AuthHandler
	Appraisal *AppraisalHandler
	Admin     *AdminHandler
}

// NewHandler creates the Handler aggregate.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth),
		Appraisal: NewAppraisalHandler(svc.Appraisal),
		Admin:     NewAdminHandler(svc.Appraisal),
	}
}
