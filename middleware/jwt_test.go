package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledger/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withJWTConfig(t *testing.T) {
	config.GlobalConfig = &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{Secret: "ledger-unit-test-secret"},
	}
	InitJWT(config.GlobalConfig)
	t.Cleanup(func() { config.GlobalConfig = nil })
}

func TestTokenRoundTrip(t *testing.T) {
	withJWTConfig(t)

	token, err := GenerateToken(317, "zhangwei", 2*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(317), claims.UserID)
	assert.Equal(t, "zhangwei", claims.Username)
}

func TestParseToken_Rejected(t *testing.T) {
	withJWTConfig(t)

	// 已过期
	expired, err := GenerateToken(317, "zhangwei", -time.Minute)
	require.NoError(t, err)

	for _, token := range []string{
		"",
		"not.a.valid.jwt",
		"eyJhbGciOiJmb29iIn0.xxxx.yyyy",
		expired,
	} {
		_, err := ParseToken(token)
		assert.Error(t, err, "token %q 应被拒绝", token)
	}
}

func TestJWTAuth(t *testing.T) {
	withJWTConfig(t)
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(JWTAuth())
	router.GET("/whoami", func(c *gin.Context) {
		c.String(200, "uid:%d", GetCurrentUserID(c))
	})

	serve := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/whoami", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// 缺失或畸形的认证头一律 401
	for name, header := range map[string]string{
		"无认证头":      "",
		"非 Bearer":  "Basic emhhbmd3ZWk=",
		"Bearer 空值": "Bearer ",
		"伪造 token":  "Bearer forged.token.value",
	} {
		w := serve(header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}

	// 有效 token 放行并注入用户身份
	token, err := GenerateToken(317, "zhangwei", time.Hour)
	require.NoError(t, err)
	w := serve("Bearer " + token)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "uid:317", w.Body.String())
}

func TestCurrentUserHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// 未经认证中间件时返回零值
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uint(0), GetCurrentUserID(c))
	assert.Equal(t, "", GetCurrentUsername(c))

	c.Set("userID", uint(317))
	c.Set("username", "zhangwei")
	assert.Equal(t, uint(317), GetCurrentUserID(c))
	assert.Equal(t, "zhangwei", GetCurrentUsername(c))
}
