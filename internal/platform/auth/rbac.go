package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Role names used across the clinical workflow.
const (
	RoleClinician     = "CLINICIAN"
	RoleSupervisor    = "SUPERVISOR"
	RoleAdministrator = "ADMINISTRATOR"
	RoleBiller        = "BILLER"
	RoleScheduler     = "SCHEDULER"
)

// RequireRole returns middleware that checks if the user has at least one
// of the specified roles. Administrators always pass.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdministrator {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
