package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"finera/config"
	"finera/database"
	"finera/middleware"
	"finera/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	// keep query logs out of test output
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

// setupTestDB swaps database.DB for a migrated and seeded in-memory sqlite store
func setupTestDB(t *testing.T) func() {
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedDefaultCategories(db))

	oldDB := database.DB
	database.DB = db
	return func() {
		database.DB = oldDB
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

// setupMockDB swaps database.DB for a sqlmock-backed mysql connection
func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

func setUserIDMiddleware(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func initTestJWT() *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT: config.JWTConfig{
			Secret:     "test-secret",
			Issuer:     "FineraAPI",
			Audience:   "FineraClient",
			ExpireTime: time.Hour,
		},
	}
	config.GlobalConfig = cfg
	middleware.InitJWT(cfg)
	return cfg
}

// newTestRouter mounts every authenticated handler for userID
func newTestRouter(userID uint) *gin.Engine {
	r := gin.New()
	r.Use(setUserIDMiddleware(userID))

	categories := NewCategoryHandler()
	r.GET("/categories", categories.List)
	r.POST("/categories", categories.Create)
	r.GET("/categories/:type", categories.ListByType)
	r.PUT("/categories/:id", categories.Update)
	r.DELETE("/categories/:id", categories.Delete)

	transactions := NewTransactionHandler()
	r.GET("/transactions", transactions.List)
	r.POST("/transactions", transactions.Create)
	r.GET("/transactions/summary", transactions.Summary)
	r.GET("/transactions/export", NewExportHandler().Export)
	r.GET("/transactions/:id", transactions.Get)
	r.PUT("/transactions/:id", transactions.Update)
	r.DELETE("/transactions/:id", transactions.Delete)

	budgets := NewBudgetHandler()
	r.GET("/budgets", budgets.List)
	r.POST("/budgets", budgets.Create)
	r.PUT("/budgets/:id", budgets.Update)
	r.DELETE("/budgets/:id", budgets.Delete)

	r.GET("/dashboard/overview", NewDashboardHandler().Overview)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	data, ok := decodeResponse(t, w)["data"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return data
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []interface{} {
	list, ok := decodeResponse(t, w)["data"].([]interface{})
	require.True(t, ok, w.Body.String())
	return list
}

func createTestUser(t *testing.T, username string) models.User {
	user := models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, database.DB.Create(&user).Error)
	return user
}

func createTestCategory(t *testing.T, userID uint, name, typ string) models.Category {
	cat := models.Category{Name: name, Type: typ, Color: "#123456", UserID: &userID}
	require.NoError(t, database.DB.Create(&cat).Error)
	return cat
}

func defaultCategory(t *testing.T, name string) models.Category {
	var cat models.Category
	require.NoError(t, database.DB.Where("is_default = ? AND name = ?", true, name).First(&cat).Error)
	return cat
}

func createTestTransaction(t *testing.T, userID uint, cat models.Category, amount string, date time.Time) models.Transaction {
	tx := models.Transaction{
		UserID:          userID,
		CategoryID:      cat.ID,
		Amount:          decimal.RequireFromString(amount),
		TransactionDate: date,
		Type:            cat.Type,
	}
	require.NoError(t, database.DB.Omit("User", "Category").Create(&tx).Error)
	return tx
}

func createTestBudget(t *testing.T, userID, categoryID uint, amount, spent string, month, year int) models.Budget {
	b := models.Budget{
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      decimal.RequireFromString(amount),
		SpentAmount: decimal.RequireFromString(spent),
		Month:       month,
		Year:        year,
	}
	require.NoError(t, database.DB.Omit("User", "Category").Create(&b).Error)
	return b
}
