package handler

import (
	"net/http"
	"strings"

	"donor-crm/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderUserID         = "X-User-ID"
	HeaderRole           = "X-Role"
	HeaderOrganizationID = "X-Organization-ID"

	callerKey = "caller"
)

// Identity resolves the caller from headers set by the authenticating proxy.
// Non-privileged callers must carry an organization.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newProblem(c, http.StatusUnauthorized, "unauthenticated", "missing "+HeaderUserID))
			return
		}

		role := domain.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderRole))))
		switch role {
		case "":
			role = domain.RoleStaff
		case domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleManager, domain.RoleStaff:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, newProblem(c, http.StatusUnauthorized, "unauthenticated", "unknown role"))
			return
		}

		caller := domain.Caller{UserID: userID, Role: role}
		if raw := strings.TrimSpace(c.GetHeader(HeaderOrganizationID)); raw != "" {
			orgID, err := uuid.Parse(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, newProblem(c, http.StatusUnauthorized, "unauthenticated", "malformed "+HeaderOrganizationID))
				return
			}
			caller.OrganizationID = orgID
		}
		if caller.OrganizationID == uuid.Nil && !caller.IsPrivileged() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newProblem(c, http.StatusUnauthorized, "unauthenticated", "missing "+HeaderOrganizationID))
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

func callerFrom(c *gin.Context) domain.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(domain.Caller); ok {
			return caller
		}
	}
	return domain.Caller{}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "malformed id")
		return uuid.Nil, false
	}
	return id, true
}
