package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"faculty-appraisal/internal/model"
	pkgerrors "faculty-appraisal/pkg/errors"
	"faculty-appraisal/pkg/jwt"
	"faculty-appraisal/pkg/response"
)

const (
	principalKey = "principal"
	tokenKey     = "token"
)

var (
	ErrMissingToken     = pkgerrors.Unauthenticated("No authorization token provided")
	ErrMalformedHeader  = pkgerrors.Unauthenticated("Invalid authorization header format")
	ErrInvalidToken     = pkgerrors.Unauthenticated("Invalid or expired token")
	ErrRevokedToken     = pkgerrors.Unauthenticated("Token has been revoked")
	ErrNotAuthenticated = pkgerrors.Unauthenticated("Authentication required")
	ErrInsufficientRole = pkgerrors.Forbidden("Insufficient permissions")
	ErrDepartmentDenied = pkgerrors.Forbidden("Access denied to this department")
	ErrNotOwner         = pkgerrors.Forbidden("Faculty may only act on their own appraisal")
)

// Gate one access predicate. A nil return admits the request; an error denies it.
type Gate func(c *gin.Context) error

// Guard runs gates in order and aborts with the first denial before the handler runs.
func Guard(gates ...Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, gate := range gates {
			if err := gate(c); err != nil {
				response.Fail(c, err)
				return
			}
		}
		c.Next()
	}
}

// TokenVerifier is satisfied by *jwt.Manager.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwt.Claims, error)
}

// Authenticate requires "Authorization: Bearer <token>" and attaches the principal.
func Authenticate(tokens TokenVerifier) Gate {
	return func(c *gin.Context) error {
		header := c.GetHeader("Authorization")
		if strings.TrimSpace(header) == "" {
			return ErrMissingToken
		}
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return ErrMalformedHeader
		}

		claims, err := tokens.Verify(c.Request.Context(), parts[1])
		switch {
		case err == nil:
		case errors.Is(err, jwt.ErrTokenRevoked):
			return ErrRevokedToken
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenInvalid):
			return ErrInvalidToken
		default:
			return pkgerrors.Internal(err)
		}

		c.Set(principalKey, claims.Principal)
		c.Set(tokenKey, parts[1])
		return nil
	}
}

// RequireRole admits principals whose role is in allowed.
func RequireRole(allowed ...model.Role) Gate {
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = r.String()
	}
	return func(c *gin.Context) error {
		p, ok := GetPrincipal(c)
		if !ok {
			return ErrNotAuthenticated
		}
		for _, r := range allowed {
			if p.Role == r.String() {
				return nil
			}
		}
		return ErrInsufficientRole.
			WithDetail("required_roles", names).
			WithDetail("your_role", p.Role)
	}
}

// RequireDepartment compares the path parameter param with the principal's
// department. Admin bypasses the check.
func RequireDepartment(param string) Gate {
	return func(c *gin.Context) error {
		p, ok := GetPrincipal(c)
		if !ok {
			return ErrNotAuthenticated
		}
		if p.Role == model.RoleAdmin.String() {
			return nil
		}
		requested := c.Param(param)
		if requested != p.Department {
			return ErrDepartmentDenied.
				WithDetail("your_department", p.Department).
				WithDetail("requested_department", requested)
		}
		return nil
	}
}

// RequireSelf restricts role to the path parameter param naming itself.
// Other roles pass through.
func RequireSelf(role model.Role, param string) Gate {
	return func(c *gin.Context) error {
		p, ok := GetPrincipal(c)
		if !ok {
			return ErrNotAuthenticated
		}
		if p.Role == role.String() && c.Param(param) != p.Subject {
			return ErrNotOwner
		}
		return nil
	}
}

// Policy declarative access rule for a route group.
type Policy struct {
	Roles           []model.Role // empty: any authenticated principal
	DepartmentParam string       // empty: no department check
	Extra           []Gate       // run after the department check
}

// Protect builds the fixed chain authenticate → role → department → extra.
func Protect(tokens TokenVerifier, p Policy) gin.HandlerFunc {
	gates := []Gate{Authenticate(tokens)}
	if len(p.Roles) > 0 {
		gates = append(gates, RequireRole(p.Roles...))
	}
	if p.DepartmentParam != "" {
		gates = append(gates, RequireDepartment(p.DepartmentParam))
	}
	gates = append(gates, p.Extra...)
	return Guard(gates...)
}

// GetPrincipal principal attached by Authenticate.
func GetPrincipal(c *gin.Context) (jwt.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return jwt.Principal{}, false
	}
	p, ok := v.(jwt.Principal)
	return p, ok
}

// GetToken raw bearer token attached by Authenticate.
func GetToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
