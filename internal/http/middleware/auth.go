package middleware

import (
	"net/http"
	"strings"

	"commhub/internal/auth"
	"commhub/pkg/models"

	"github.com/labstack/echo/v4"
)

// JWTAuth middleware validates JWT tokens
func JWTAuth(authService *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			tokenString := authHeader[7:]
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			claims, err := authService.ValidateToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			if claims.Type != "access" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token type")
			}

			// Store claims in context
			c.Set("claims", claims)
			c.Set("user_id", claims.UserID)
			c.Set("user_email", claims.Email)
			c.Set("user_role", claims.Role)

			if claims.OrganizationID != nil {
				c.Set("organization_id", *claims.OrganizationID)
			}

			return next(c)
		}
	}
}

// RequireRole middleware ensures user has required role
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRole := c.Get("user_role")
			if userRole == nil {
				return echo.NewHTTPError(http.StatusForbidden, "User role not found")
			}

			roleStr := userRole.(string)
			for _, role := range roles {
				if roleStr == role {
					return next(c)
				}
			}

			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}

// SuperAdminOnly middleware ensures only platform operators can access
func SuperAdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRole := c.Get("user_role")
			if userRole == nil || userRole.(string) != models.RoleSuperAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Super admin access required")
			}

			// Platform operators carry no organization context
			if c.Get("organization_id") != nil {
				return echo.NewHTTPError(http.StatusForbidden, "Super admin cannot have organization context")
			}

			return next(c)
		}
	}
}

// OrgAdminOrAbove allows org_admin and super_admin
func OrgAdminOrAbove() echo.MiddlewareFunc {
	return RequireRole(models.RoleSuperAdmin, models.RoleOrgAdmin)
}

// SupervisorOrAbove allows supervisor, org_admin and super_admin
func SupervisorOrAbove() echo.MiddlewareFunc {
	return RequireRole(models.RoleSuperAdmin, models.RoleOrgAdmin, models.RoleSupervisor)
}

// RequireOrgRole middleware ensures user has organization-level access.
// Super admins pass without organization context; everyone else must
// carry one.
func RequireOrgRole() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRole := c.Get("user_role")
			if userRole == nil {
				return echo.NewHTTPError(http.StatusForbidden, "User role not found")
			}

			roleStr := userRole.(string)
			switch roleStr {
			case models.RoleSuperAdmin:
				return next(c)
			case models.RoleOrgAdmin, models.RoleSupervisor, models.RoleAgent:
				if c.Get("organization_id") == nil {
					return echo.NewHTTPError(http.StatusForbidden, "Organization context required")
				}
				return next(c)
			default:
				return echo.NewHTTPError(http.StatusForbidden, "Organization access required")
			}
		}
	}
}

// RequireOrgAdminOnly middleware restricts access to organization admins
func RequireOrgAdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRole := c.Get("user_role")
			if userRole == nil || userRole.(string) != models.RoleOrgAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Organization admin access required")
			}

			if c.Get("organization_id") == nil {
				return echo.NewHTTPError(http.StatusForbidden, "Organization context required")
			}

			return next(c)
		}
	}
}
