package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"faculty-appraisal/config"
	"faculty-appraisal/internal/api/handler"
	"faculty-appraisal/internal/api/middleware"
	"faculty-appraisal/internal/model"
	"faculty-appraisal/internal/workflow"
	"faculty-appraisal/pkg/metrics"
	"faculty-appraisal/pkg/ratelimit"
)

// Deps everything Setup wires into the engine.
type Deps struct {
	Config   *config.Config
	Handler  *handler.Handler
	Tokens   middleware.TokenVerifier
	Limiter  *ratelimit.Limiter
	Throttle *middleware.Throttle           // nil disables the global bucket
	Health   func(ctx context.Context) error // nil reports ok unconditionally
	Logger   *zap.Logger
}

// Setup builds the Gin engine.
func Setup(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	cfg := d.Config
	h := d.Handler

	// gin trusts every proxy unless told otherwise; an empty list pins
	// ClientIP to the socket peer so X-Forwarded-For cannot pick the limiter key
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		d.Logger.Error("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	r.Use(metrics.Instrument())
	if d.Throttle != nil {
		r.Use(d.Throttle.Handler())
	}

	// ── probes ──
	r.GET("/health", health(d.Health))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ── public auth ──
	limit := func(endpoint string, rule config.RateLimitRule) gin.HandlerFunc {
		return middleware.RateLimit(d.Limiter, endpoint, rule, d.Logger)
	}
	r.POST("/login", limit("login", cfg.RateLimit.Login), h.Auth.Login)
	r.POST("/send-otp", limit("send_otp", cfg.RateLimit.SendOTP), h.Auth.SendOTP)
	r.POST("/verify-otp", limit("verify_otp", cfg.RateLimit.VerifyOTP), h.Auth.VerifyOTP)
	r.POST("/reset-password", limit("reset_password", cfg.RateLimit.ResetPassword), h.Auth.ResetPassword)

	// ── authenticated ──
	authed := middleware.Protect(d.Tokens, middleware.Policy{})
	r.GET("/me", authed, h.Auth.Me)
	r.POST("/logout", authed, h.Auth.Logout)
	r.POST("/refresh", authed, h.Auth.Refresh)

	r.GET("/admin/summary", middleware.Protect(d.Tokens, middleware.Policy{
		Roles: []model.Role{model.RoleAdmin},
	}), h.Admin.Summary)

	// ── workflow ──
	stage := func(roles ...model.Role) gin.HandlerFunc {
		return middleware.Protect(d.Tokens, middleware.Policy{
			Roles:           append(roles, model.RoleAdmin),
			DepartmentParam: "department",
		})
	}
	self := middleware.RequireSelf(model.RoleFaculty, "facultyId")

	dept := r.Group("/:department")
	{
		dept.GET("/appraisals", stage(model.RoleHOD, model.RoleDean, model.RoleDirector), h.Appraisal.List)

		fac := dept.Group("/:facultyId")
		fac.GET("/appraisal", middleware.Protect(d.Tokens, middleware.Policy{
			Roles:           []model.Role{model.RoleFaculty, model.RoleHOD, model.RoleDean, model.RoleDirector, model.RoleAdmin},
			DepartmentParam: "department",
			Extra:           []middleware.Gate{self},
		}), h.Appraisal.Get)

		fac.POST("/submit", middleware.Protect(d.Tokens, middleware.Policy{
			Roles:           []model.Role{model.RoleFaculty, model.RoleAdmin},
			DepartmentParam: "department",
			Extra:           []middleware.Gate{self},
		}), h.Appraisal.Transition(workflow.ActionSubmit))

		hod := stage(model.RoleHOD)
		fac.POST("/approve", hod, h.Appraisal.Transition(workflow.ActionApprove))
		fac.POST("/reject", hod, h.Appraisal.Transition(workflow.ActionReject))
		fac.POST("/escalate-to-dean", hod, h.Appraisal.Transition(workflow.ActionEscalateToDean))

		dean := stage(model.RoleDean)
		fac.POST("/dean-approve", dean, h.Appraisal.Transition(workflow.ActionDeanApprove))
		fac.POST("/dean-reject", dean, h.Appraisal.Transition(workflow.ActionDeanReject))
		fac.POST("/escalate-to-director", dean, h.Appraisal.Transition(workflow.ActionEscalateToDirector))

		director := stage(model.RoleDirector)
		fac.POST("/director-approve", director, h.Appraisal.Transition(workflow.ActionDirectorApprove))
		fac.POST("/director-reject", director, h.Appraisal.Transition(workflow.ActionDirectorReject))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return r
}

func health(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
