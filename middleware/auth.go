package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserResolver loads the current role and status for a token subject.
type UserResolver interface {
	ResolveAccess(ctx context.Context, userID string) (AccessContext, error)
}

var (
	errMissingToken = errors.New("missing Authorization header")
	errInvalidToken = errors.New("invalid token")
)

// AuthMiddleware requires a valid bearer token for an active user.
func AuthMiddleware(secret string, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		ac, err := authenticate(c.Request.Context(), secret, users, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		SetAccessContext(c, ac)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a token is supplied (header or
// "token" query parameter, since EventSource cannot set headers) and falls
// back to a visitor context otherwise.
func OptionalAuth(secret string, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := bearerToken(c)
		if err != nil {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			SetAccessContext(c, VisitorContext())
			c.Next()
			return
		}

		ac, err := authenticate(c.Request.Context(), secret, users, tokenStr)
		if err != nil {
			SetAccessContext(c, VisitorContext())
			c.Next()
			return
		}

		SetAccessContext(c, ac)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("invalid Authorization header")
	}
	return parts[1], nil
}

func authenticate(ctx context.Context, secret string, users UserResolver, tokenStr string) (AccessContext, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return AccessContext{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return AccessContext{}, errors.New("invalid claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return AccessContext{}, errors.New("user_id missing in token")
	}

	ac, err := users.ResolveAccess(ctx, userID)
	if err != nil {
		return AccessContext{}, errors.New("user not found")
	}
	if ac.Status != "" && ac.Status != "active" {
		return AccessContext{}, errors.New("account is not active")
	}
	return ac, nil
}
