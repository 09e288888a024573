package middleware

import (
	"github.com/gin-gonic/gin"
)

// Role constants to avoid string typos
const (
	RoleAdmin   = "admin"
	RoleMember  = "member"
	RoleVisitor = "visitor"
)

const accessContextKey = "access_context"

// AccessContext stores the caller identity resolved for a request.
// Unauthenticated callers get RoleVisitor and an empty UserID.
type AccessContext struct {
	UserID   string
	Email    string
	RoleName string
	Status   string
}

func VisitorContext() AccessContext {
	return AccessContext{RoleName: RoleVisitor}
}

func (ac AccessContext) IsAuthenticated() bool {
	return ac.UserID != ""
}

func SetAccessContext(c *gin.Context, ac AccessContext) {
	c.Set(accessContextKey, ac)
}

// GetAccessContext returns the access context set by AuthMiddleware or OptionalAuth.
func GetAccessContext(c *gin.Context) (AccessContext, bool) {
	v, exists := c.Get(accessContextKey)
	if !exists {
		return AccessContext{}, false
	}
	ac, ok := v.(AccessContext)
	return ac, ok
}
