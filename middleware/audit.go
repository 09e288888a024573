package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const clientIPKey = "client_ip"

// AuditMiddleware resolves the caller IP once per request for audit records.
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(clientIPKey, clientIP(c))
		c.Next()
	}
}

// clientIP prefers proxy headers over the socket address.
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	for _, h := range []string{"X-Real-Ip", "CF-Connecting-IP"} {
		if ip := c.GetHeader(h); net.ParseIP(ip) != nil {
			return ip
		}
	}
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}

// GetIPFromContext retrieves the IP resolved by AuditMiddleware.
func GetIPFromContext(c *gin.Context) string {
	if v, exists := c.Get(clientIPKey); exists {
		if ip, ok := v.(string); ok {
			return ip
		}
	}
	return clientIP(c)
}
