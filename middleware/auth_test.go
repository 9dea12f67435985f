package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/callendar-yojung/pecal-sub002/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.Logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func protectedRouter(handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/protected", handler, func(c *gin.Context) {
		memberID, _ := c.Get("member_id")
		role, _ := c.Get("role")
		c.JSON(http.StatusOK, gin.H{"member_id": memberID, "role": role})
	})
	return r
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	r := protectedRouter(JWTAuth())

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestJWTAuth_ValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := utils.GenerateJWT("member-1", "MEMBER", 1)
	assert.NoError(t, err)

	r := protectedRouter(JWTAuth())

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "member-1")
}

func TestJWTAuth_TokenWithoutBearerPrefix(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, _ := utils.GenerateJWT("member-1", "MEMBER", 1)

	r := protectedRouter(JWTAuth())

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestJWTAuth_GarbageToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	r := protectedRouter(JWTAuth())

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestOptionalAuth_NoHeaderPassesThrough(t *testing.T) {
	r := protectedRouter(OptionalAuth())

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestOptionalAuth_InvalidTokenStillPasses(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	r := protectedRouter(OptionalAuth())

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestOptionalAuth_ValidTokenSetsClaims(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, _ := utils.GenerateJWT("member-1", "MEMBER", 1)

	r := protectedRouter(OptionalAuth())

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "member-1")
}

func TestAdminAuth_NonAdminForbidden(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, _ := utils.GenerateJWT("member-1", "MEMBER", 1)

	r := protectedRouter(AdminAuth())

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAdminAuth_AdminAllowed(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, _ := utils.GenerateJWT("admin-1", "ADMIN", 1)

	r := protectedRouter(AdminAuth())

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestCronAuth_ConstantTimeMatch(t *testing.T) {
	t.Setenv("CRON_SECRET", "s3cret")

	r := protectedRouter(CronAuth())

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestCronAuth_SecretWithoutBearerPrefixRejected(t *testing.T) {
	t.Setenv("CRON_SECRET", "s3cret")

	r := protectedRouter(CronAuth())

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "s3cret")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
