package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"finera/database"
	"finera/models"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func budgetBody(categoryID uint, amount string, month, year int) string {
	return fmt.Sprintf(`{"categoryId":%d,"amount":%s,"month":%d,"year":%d}`, categoryID, amount, month, year)
}

func storedSpent(t *testing.T, id uint) decimal.Decimal {
	var b models.Budget
	require.NoError(t, database.DB.First(&b, id).Error)
	return b.SpentAmount
}

func TestBudgetCreate_ComputesSpent(t *testing.T) {
	defer setupTestDB(t)()
	user := createTestUser(t, "alice")
	food := defaultCategory(t, "Food")
	salary := defaultCategory(t, "Salary")
	createTestTransaction(t, user.ID, food, "1500", time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC))
	createTestTransaction(t, user.ID, food, "1000", time.Date(2025, 8, 31, 22, 0, 0, 0, time.UTC))
	createTestTransaction(t, user.ID, food, "700", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	createTestTransaction(t, user.ID, salary, "9000", time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC))
	r := newTestRouter(user.ID)

	w := doRequest(r, http.MethodPost, "/budgets", budgetBody(food.ID, "10000", 8, 2025))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "Food", data["categoryName"])
	assert.Equal(t, 10000.0, data["amount"])
	assert.Equal(t, 2500.0, data["spentAmount"])
	assert.Equal(t, 7500.0, data["remainingAmount"])
	assert.Equal(t, 25.0, data["percentageUsed"])

	w = doRequest(r, http.MethodPost, "/budgets", budgetBody(food.ID, "5000", 8, 2025))
	assert.Equal(t, http.StatusConflict, w.Code)

	// another month is a different budget
	w = doRequest(r, http.MethodPost, "/budgets", budgetBody(food.ID, "5000", 9, 2025))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 700.0, decodeData(t, w)["spentAmount"])
}

func TestBudgetCreate_Rejects(t *testing.T) {
	defer setupTestDB(t)()
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	food := defaultCategory(t, "Food")
	bobs := createTestCategory(t, bob.ID, "Bob only", models.TypeExpense)
	r := newTestRouter(alice.ID)

	tests := []struct {
		name string
		body string
	}{
		{"zero amount", budgetBody(food.ID, "0", 8, 2025)},
		{"negative amount", budgetBody(food.ID, "-1", 8, 2025)},
		{"month too large", budgetBody(food.ID, "100", 13, 2025)},
		{"month zero", budgetBody(food.ID, "100", 0, 2025)},
		{"year out of range", budgetBody(food.ID, "100", 8, 1999)},
		{"invisible category", budgetBody(bobs.ID, "100", 8, 2025)},
		{"unknown category", budgetBody(9999, "100", 8, 2025)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/budgets", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestBudgetSpent_FollowsLedgerWrites(t *testing.T) {
	defer setupTestDB(t)()
	user := createTestUser(t, "alice")
	food := defaultCategory(t, "Food")
	transport := defaultCategory(t, "Transport")
	r := newTestRouter(user.ID)

	w := doRequest(r, http.MethodPost, "/budgets", budgetBody(food.ID, "10000", 8, 2025))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	budgetID := uint(decodeData(t, w)["id"].(float64))
	assert.True(t, storedSpent(t, budgetID).IsZero())

	w = doRequest(r, http.MethodPost, "/transactions", transactionBody(food.ID, "2500", "2025-08-14", "Expense"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	txPath := fmt.Sprintf("/transactions/%v", decodeData(t, w)["id"])
	assert.True(t, storedSpent(t, budgetID).Equal(decimal.NewFromInt(2500)))

	w = doRequest(r, http.MethodGet, "/budgets?month=8&year=2025", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeList(t, w)
	require.Len(t, list, 1)
	item := list[0].(map[string]interface{})
	assert.Equal(t, 2500.0, item["spentAmount"])
	assert.Equal(t, 7500.0, item["remainingAmount"])
	assert.Equal(t, 25.0, item["percentageUsed"])

	// moving the expense out of the month releases it
	w = doRequest(r, http.MethodPut, txPath, transactionBody(food.ID, "2500", "2025-09-02", "Expense"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, storedSpent(t, budgetID).IsZero())

	w = doRequest(r, http.MethodPut, txPath, transactionBody(food.ID, "3000", "2025-08-20", "Expense"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, storedSpent(t, budgetID).Equal(decimal.NewFromInt(3000)))

	// switching category releases it as well
	w = doRequest(r, http.MethodPut, txPath, transactionBody(transport.ID, "3000", "2025-08-20", "Expense"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, storedSpent(t, budgetID).IsZero())

	w = doRequest(r, http.MethodPut, txPath, transactionBody(food.ID, "1200", "2025-08-20", "Expense"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, storedSpent(t, budgetID).Equal(decimal.NewFromInt(1200)))

	w = doRequest(r, http.MethodDelete, txPath, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, storedSpent(t, budgetID).IsZero())
}

func TestBudgetUpdateAndDelete(t *testing.T) {
	defer setupTestDB(t)()
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	food := defaultCategory(t, "Food")
	b := createTestBudget(t, alice.ID, food.ID, "1000", "250", 8, 2025)
	path := fmt.Sprintf("/budgets/%d", b.ID)

	bobRouter := newTestRouter(bob.ID)
	assert.Equal(t, http.StatusNotFound, doRequest(bobRouter, http.MethodPut, path, `{"amount":5}`).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(bobRouter, http.MethodDelete, path, "").Code)

	r := newTestRouter(alice.ID)
	w := doRequest(r, http.MethodPut, path, `{"amount":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPut, path, `{"amount":500}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, 500.0, data["amount"])
	assert.Equal(t, 250.0, data["spentAmount"])
	assert.Equal(t, 250.0, data["remainingAmount"])
	assert.Equal(t, 50.0, data["percentageUsed"])
	assert.Equal(t, "Food", data["categoryName"])

	w = doRequest(r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBudgetList_Period(t *testing.T) {
	defer setupTestDB(t)()
	user := createTestUser(t, "alice")
	food := defaultCategory(t, "Food")
	bills := defaultCategory(t, "Bills")
	createTestBudget(t, user.ID, food.ID, "1000", "1200", 8, 2025)
	createTestBudget(t, user.ID, bills.ID, "400", "0", 8, 2025)
	createTestBudget(t, user.ID, food.ID, "900", "0", 7, 2025)
	r := newTestRouter(user.ID)

	w := doRequest(r, http.MethodGet, "/budgets?month=8&year=2025", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeList(t, w)
	require.Len(t, list, 2)

	over := list[0].(map[string]interface{})
	assert.Equal(t, -200.0, over["remainingAmount"])
	assert.Equal(t, 120.0, over["percentageUsed"])

	now := time.Now().UTC()
	w = doRequest(r, http.MethodGet, fmt.Sprintf("/budgets?year=%d", now.Year()-1), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/budgets?month=13", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBudgetCreate_DuplicateKeyOnInsert(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	initTestJWT()

	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "color", "is_default"}).
			AddRow(3, "Food", models.TypeExpense, "#ef4444", true))
	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT `amount` FROM `transactions`").WillReturnRows(sqlmock.NewRows([]string{"amount"}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `budgets`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry for key 'idx_budget_period'"})
	mock.ExpectRollback()

	w := doRequest(newTestRouter(1), http.MethodPost, "/budgets", budgetBody(3, "1000", 8, 2025))
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
