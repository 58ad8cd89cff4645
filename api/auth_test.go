package api

import (
	"net/http"
	"testing"

	"finera/database"
	"finera/middleware"
	"finera/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthRouter(userID uint) *gin.Engine {
	h := NewAuthHandler(initTestJWT())

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	authed := r.Group("/auth", setUserIDMiddleware(userID))
	authed.GET("/profile", h.GetProfile)
	authed.PUT("/password", h.ChangePassword)
	return r
}

func registerUser(t *testing.T, r *gin.Engine, username, password string) map[string]interface{} {
	body := `{"username":"` + username + `","email":"` + username + `@example.com","password":"` + password + `","fullName":"Test User"}`
	w := doRequest(r, http.MethodPost, "/auth/register", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData(t, w)
}

func TestRegister_Success(t *testing.T) {
	defer setupTestDB(t)()
	r := newAuthRouter(0)

	data := registerUser(t, r, "nimal", "password123")

	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	claims, err := middleware.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "nimal", claims.Username)

	user := data["user"].(map[string]interface{})
	assert.Equal(t, "nimal", user["username"])
	assert.Equal(t, "nimal@example.com", user["email"])
	assert.Equal(t, "Test User", user["fullName"])
	assert.NotContains(t, user, "password")

	var stored models.User
	require.NoError(t, database.DB.Where("username = ?", "nimal").First(&stored).Error)
	assert.NotEqual(t, "password123", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("password123")))
}

func TestRegister_Conflict(t *testing.T) {
	defer setupTestDB(t)()
	r := newAuthRouter(0)
	registerUser(t, r, "nimal", "password123")

	// same username
	w := doRequest(r, http.MethodPost, "/auth/register",
		`{"username":"nimal","email":"other@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// same email, different case
	w = doRequest(r, http.MethodPost, "/auth/register",
		`{"username":"kamal","email":"NIMAL@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_Validation(t *testing.T) {
	defer setupTestDB(t)()
	r := newAuthRouter(0)

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"username":"nimal","password":"password123"}`},
		{"bad email", `{"username":"nimal","email":"nope","password":"password123"}`},
		{"short password", `{"username":"nimal","email":"n@example.com","password":"123"}`},
		{"short username", `{"username":"ab","email":"n@example.com","password":"password123"}`},
		{"malformed", `{"username":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, float64(400), decodeResponse(t, w)["code"])
		})
	}
}

func TestLogin(t *testing.T) {
	defer setupTestDB(t)()
	r := newAuthRouter(0)
	registerUser(t, r, "nimal", "password123")

	t.Run("by username", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/auth/login", `{"usernameOrEmail":"nimal","password":"password123"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NotEmpty(t, decodeData(t, w)["token"])
	})

	t.Run("by email", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/auth/login", `{"usernameOrEmail":"Nimal@Example.com","password":"password123"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		user := decodeData(t, w)["user"].(map[string]interface{})
		assert.Equal(t, "nimal", user["username"])
	})

	t.Run("wrong password", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/auth/login", `{"usernameOrEmail":"nimal","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid username/email or password", decodeResponse(t, w)["message"])
	})

	t.Run("unknown user", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/auth/login", `{"usernameOrEmail":"ghost","password":"password123"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid username/email or password", decodeResponse(t, w)["message"])
	})

	t.Run("missing fields", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/auth/login", `{"usernameOrEmail":"nimal"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetProfile(t *testing.T) {
	defer setupTestDB(t)()
	user := createTestUser(t, "nimal")

	w := doRequest(newAuthRouter(user.ID), http.MethodGet, "/auth/profile", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(user.ID), data["id"])
	assert.Equal(t, "nimal", data["username"])

	w = doRequest(newAuthRouter(user.ID+100), http.MethodGet, "/auth/profile", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChangePassword(t *testing.T) {
	defer setupTestDB(t)()
	r := newAuthRouter(0)
	data := registerUser(t, r, "nimal", "password123")
	userID := uint(data["user"].(map[string]interface{})["id"].(float64))

	r = newAuthRouter(userID)

	w := doRequest(r, http.MethodPut, "/auth/password", `{"oldPassword":"wrong","newPassword":"newpassword"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodPut, "/auth/password", `{"oldPassword":"password123","newPassword":"123"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPut, "/auth/password", `{"oldPassword":"password123","newPassword":"newpassword"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(r, http.MethodPost, "/auth/login", `{"usernameOrEmail":"nimal","password":"password123"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doRequest(r, http.MethodPost, "/auth/login", `{"usernameOrEmail":"nimal","password":"newpassword"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegister_DatabaseError(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	r := newAuthRouter(0)

	mock.ExpectQuery("SELECT count").WillReturnError(sqlmock.ErrCancelled)

	w := doRequest(r, http.MethodPost, "/auth/register",
		`{"username":"nimal","email":"nimal@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_DuplicateKeyOnInsert(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	r := newAuthRouter(0)

	// a concurrent registration wins between the count and the insert
	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'nimal' for key 'idx_users_username'"})
	mock.ExpectRollback()

	w := doRequest(r, http.MethodPost, "/auth/register",
		`{"username":"nimal","email":"nimal@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
