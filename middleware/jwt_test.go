package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finera/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initJWTTestConfig() {
	config.GlobalConfig = &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT: config.JWTConfig{
			Secret:   "test-jwt-secret-key",
			Issuer:   "FineraAPI",
			Audience: "FineraClient",
		},
	}
	InitJWT(config.GlobalConfig)
}

func TestGenerateToken(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	token, err := GenerateToken(1, "testuser", "test@example.com", 24*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.Equal(t, "FineraAPI", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"FineraClient"}, claims.Audience)
	assert.Equal(t, "1", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	// every token gets its own id
	other, err := GenerateToken(1, "testuser", "test@example.com", 24*time.Hour)
	require.NoError(t, err)
	otherClaims, err := ParseToken(other)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, otherClaims.ID)
}

func TestParseToken(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	token, _ := GenerateToken(100, "admin", "admin@example.com", time.Hour)
	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(100), claims.UserID)

	_, err = ParseToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("not.a.valid.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _ := GenerateToken(100, "admin", "admin@example.com", -time.Minute)
	_, err = ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_RejectsForeignClaims(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	sign := func(claims Claims, method jwt.SigningMethod, key interface{}) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := func() Claims {
		return Claims{
			UserID: 5,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "FineraAPI",
				Audience:  jwt.ClaimStrings{"FineraClient"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}

	_, err := ParseToken(sign(base(), jwt.SigningMethodHS256, jwtSecret))
	require.NoError(t, err)

	wrongIssuer := base()
	wrongIssuer.Issuer = "someone-else"
	_, err = ParseToken(sign(wrongIssuer, jwt.SigningMethodHS256, jwtSecret))
	assert.Error(t, err)

	wrongAudience := base()
	wrongAudience.Audience = jwt.ClaimStrings{"other"}
	_, err = ParseToken(sign(wrongAudience, jwt.SigningMethodHS256, jwtSecret))
	assert.Error(t, err)

	noExpiry := base()
	noExpiry.ExpiresAt = nil
	_, err = ParseToken(sign(noExpiry, jwt.SigningMethodHS256, jwtSecret))
	assert.Error(t, err)

	_, err = ParseToken(sign(base(), jwt.SigningMethodHS512, jwtSecret))
	assert.Error(t, err)

	_, err = ParseToken(sign(base(), jwt.SigningMethodHS256, []byte("another-secret")))
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		id := GetCurrentUserID(c)
		c.String(200, "id:%d", id)
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := do("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":401`)

	assert.Equal(t, http.StatusUnauthorized, do("Basic xyz").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	token, _ := GenerateToken(42, "user42", "u42@example.com", time.Hour)
	w = do("Bearer " + token)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "id:42", w.Body.String())
}

func TestGetCurrentUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uint(0), GetCurrentUserID(c))

	c.Set("userID", uint(99))
	assert.Equal(t, uint(99), GetCurrentUserID(c))
}
