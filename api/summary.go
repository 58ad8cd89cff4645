package api

import (
	"finera/database"
	"finera/middleware"
	"finera/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TransactionSummaryResponse monthly totals
type TransactionSummaryResponse struct {
	TotalIncome  decimal.Decimal `json:"totalIncome" swaggertype:"number" example:"5000"`
	TotalExpense decimal.Decimal `json:"totalExpense" swaggertype:"number" example:"1234.5"`
	Balance      decimal.Decimal `json:"balance" swaggertype:"number" example:"3765.5"`
	Month        int             `json:"month" example:"8"`
	Year         int             `json:"year" example:"2025"`
}

// Summary totals the caller's income and expense for a month
// @Summary Monthly summary
// @Description Income, expense and balance for a month, defaulting to the current UTC month and year
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param month query int false "1-12"
// @Param year query int false "year"
// @Success 200 {object} Response{data=TransactionSummaryResponse} "summary"
// @Failure 400 {object} Response "invalid period"
// @Router /api/transactions/summary [get]
func (h *TransactionHandler) Summary(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	month, year, err := periodQuery(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	start, end := models.MonthRange(month, year)

	var txs []models.Transaction
	if err := database.DB.Select("amount", "type").
		Where("user_id = ? AND transaction_date >= ? AND transaction_date < ?", userID, start, end).
		Find(&txs).Error; err != nil {
		internalError(c, err, "failed to summarise transactions")
		return
	}

	income, expense := sumByType(txs)
	Success(c, TransactionSummaryResponse{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
		Month:        month,
		Year:         year,
	})
}

// sumByType splits transaction amounts into income and expense totals
func sumByType(txs []models.Transaction) (income, expense decimal.Decimal) {
	for _, t := range txs {
		switch t.Type {
		case models.TypeIncome:
			income = income.Add(t.Amount)
		case models.TypeExpense:
			expense = expense.Add(t.Amount)
		}
	}
	return income.Round(2), expense.Round(2)
}
