package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-0123456789"

type fakeResolver struct {
	users map[string]AccessContext
}

func (f *fakeResolver) ResolveAccess(_ context.Context, userID string) (AccessContext, error) {
	ac, ok := f.users[userID]
	if !ok {
		return AccessContext{}, errors.New("not found")
	}
	return ac, nil
}

func newResolver() *fakeResolver {
	return &fakeResolver{users: map[string]AccessContext{
		"admin-1":  {UserID: "admin-1", RoleName: RoleAdmin, Status: "active"},
		"member-1": {UserID: "member-1", RoleName: RoleMember, Status: "active"},
		"frozen-1": {UserID: "frozen-1", RoleName: RoleMember, Status: "suspended"},
	}}
}

func signToken(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func echoAccess(c *gin.Context) {
	ac, _ := GetAccessContext(c)
	c.JSON(http.StatusOK, gin.H{"user_id": ac.UserID, "role": ac.RoleName})
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	res := newResolver()
	r.GET("/private", AuthMiddleware(testSecret, res), echoAccess)
	r.GET("/optional", OptionalAuth(testSecret, res), echoAccess)
	r.GET("/admin", AuthMiddleware(testSecret, res), RequireRole(RoleAdmin), echoAccess)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := setupRouter()
	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/private", "", http.StatusUnauthorized},
		{"malformed", "/private", "Token abc", http.StatusUnauthorized},
		{"bad signature", "/private", "Bearer " + "eyJhbGciOiJIUzI1NiJ9.e30.x", http.StatusUnauthorized},
		{"valid member", "/private", "Bearer " + signToken(t, "member-1"), http.StatusOK},
		{"unknown user", "/private", "Bearer " + signToken(t, "ghost"), http.StatusUnauthorized},
		{"suspended", "/private", "Bearer " + signToken(t, "frozen-1"), http.StatusUnauthorized},
		{"admin route as member", "/admin", "Bearer " + signToken(t, "member-1"), http.StatusForbidden},
		{"admin route as admin", "/admin", "Bearer " + signToken(t, "admin-1"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestOptionalAuthFallsBackToVisitor(t *testing.T) {
	r := setupRouter()
	tests := []struct {
		name     string
		url      string
		header   string
		wantRole string
	}{
		{"anonymous", "/optional", "", `"role":"visitor"`},
		{"bad token", "/optional?token=garbage", "", `"role":"visitor"`},
		{"query token", "/optional?token=" + signToken(t, "admin-1"), "", `"role":"admin"`},
		{"header token", "/optional", "Bearer " + signToken(t, "member-1"), `"role":"member"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantRole) {
				t.Errorf("body = %s, want %s", w.Body.String(), tt.wantRole)
			}
		})
	}
}

func TestGetIPFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuditMiddleware())
	r.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, GetIPFromContext(c)) })

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "203.0.113.7" {
		t.Errorf("ip = %q", w.Body.String())
	}
}
