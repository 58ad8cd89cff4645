package api

import (
	"errors"
	"time"

	"finera/database"
	"finera/middleware"
	"finera/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetHandler monthly budgets per category
type BudgetHandler struct{}

func NewBudgetHandler() *BudgetHandler {
	return &BudgetHandler{}
}

// CreateBudgetRequest budget payload
type CreateBudgetRequest struct {
	CategoryID uint            `json:"categoryId" binding:"required" example:"3"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"number" example:"10000"`
	Month      int             `json:"month" binding:"required,gte=1,lte=12" example:"8"`
	Year       int             `json:"year" binding:"required,gte=2000,lte=2100" example:"2025"`
}

// UpdateBudgetRequest only the cap can change
type UpdateBudgetRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"number" example:"12000"`
}

// BudgetResponse budget with derived figures
type BudgetResponse struct {
	ID              uint            `json:"id"`
	CategoryID      uint            `json:"categoryId"`
	CategoryName    string          `json:"categoryName"`
	CategoryType    string          `json:"categoryType"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"number"`
	SpentAmount     decimal.Decimal `json:"spentAmount" swaggertype:"number"`
	RemainingAmount decimal.Decimal `json:"remainingAmount" swaggertype:"number"`
	PercentageUsed  decimal.Decimal `json:"percentageUsed" swaggertype:"number"`
	Month           int             `json:"month"`
	Year            int             `json:"year"`
}

func newBudgetResponse(b models.Budget) BudgetResponse {
	return BudgetResponse{
		ID:              b.ID,
		CategoryID:      b.CategoryID,
		CategoryName:    b.Category.Name,
		CategoryType:    b.Category.Type,
		Amount:          b.Amount,
		SpentAmount:     b.SpentAmount,
		RemainingAmount: b.Remaining(),
		PercentageUsed:  b.Percentage(),
		Month:           b.Month,
		Year:            b.Year,
	}
}

// List budgets of one month
// @Summary List budgets
// @Description Budgets for a month, defaulting to the current UTC month and year
// @Tags Budgets
// @Produce json
// @Security BearerAuth
// @Param month query int false "1-12"
// @Param year query int false "year"
// @Success 200 {object} Response{data=[]BudgetResponse} "budgets"
// @Failure 400 {object} Response "invalid period"
// @Router /api/budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	month, year, err := periodQuery(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	var budgets []models.Budget
	if err := database.DB.Preload("Category").
		Where("user_id = ? AND month = ? AND year = ?", userID, month, year).
		Order("id ASC").
		Find(&budgets).Error; err != nil {
		internalError(c, err, "failed to list budgets")
		return
	}

	list := make([]BudgetResponse, 0, len(budgets))
	for _, b := range budgets {
		list = append(list, newBudgetResponse(b))
	}
	Success(c, list)
}

// Create adds a budget and computes its spent amount
// @Summary Create budget
// @Tags Budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBudgetRequest true "budget"
// @Success 201 {object} Response{data=BudgetResponse} "created"
// @Failure 400 {object} Response "invalid request or category"
// @Failure 409 {object} Response "budget exists for this period"
// @Router /api/budgets [post]
func (h *BudgetHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindingMessage(err))
		return
	}
	if !req.Amount.IsPositive() {
		BadRequest(c, "amount must be greater than 0")
		return
	}

	cat, err := findVisibleCategory(database.DB, userID, req.CategoryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		BadRequest(c, "invalid category")
		return
	}
	if err != nil {
		internalError(c, err, "failed to create budget")
		return
	}

	var count int64
	if err := database.DB.Model(&models.Budget{}).
		Where("user_id = ? AND category_id = ? AND month = ? AND year = ?", userID, req.CategoryID, req.Month, req.Year).
		Count(&count).Error; err != nil {
		internalError(c, err, "failed to create budget")
		return
	}
	if count > 0 {
		Conflict(c, "a budget already exists for this category and period")
		return
	}

	spent, err := spentInPeriod(database.DB, userID, req.CategoryID, req.Month, req.Year)
	if err != nil {
		internalError(c, err, "failed to create budget")
		return
	}

	budget := models.Budget{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount.Round(2),
		SpentAmount: spent,
		Month:       req.Month,
		Year:        req.Year,
	}
	if err := database.DB.Create(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, "a budget already exists for this category and period")
			return
		}
		internalError(c, err, "failed to create budget")
		return
	}
	budget.Category = *cat

	Created(c, "created", newBudgetResponse(budget))
}

// Update changes the cap of an owned budget
// @Summary Update budget amount
// @Tags Budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "budget id"
// @Param request body UpdateBudgetRequest true "new cap"
// @Success 200 {object} Response{data=BudgetResponse} "updated"
// @Failure 400 {object} Response "invalid amount"
// @Failure 404 {object} Response "not found"
// @Router /api/budgets/{id} [put]
func (h *BudgetHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	id, err := parseID(c, "id")
	if err != nil {
		BadRequest(c, "invalid budget id")
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindingMessage(err))
		return
	}
	if !req.Amount.IsPositive() {
		BadRequest(c, "amount must be greater than 0")
		return
	}

	var budget models.Budget
	if err := database.DB.Preload("Category").
		Where("id = ? AND user_id = ?", id, userID).
		First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "budget not found")
			return
		}
		internalError(c, err, "failed to update budget")
		return
	}

	budget.Amount = req.Amount.Round(2)
	if err := database.DB.Model(&budget).Update("amount", budget.Amount).Error; err != nil {
		internalError(c, err, "failed to update budget")
		return
	}

	Success(c, newBudgetResponse(budget))
}

// Delete removes an owned budget
// @Summary Delete budget
// @Tags Budgets
// @Security BearerAuth
// @Param id path int true "budget id"
// @Success 204 "deleted"
// @Failure 404 {object} Response "not found"
// @Router /api/budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	id, err := parseID(c, "id")
	if err != nil {
		BadRequest(c, "invalid budget id")
		return
	}

	result := database.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Budget{})
	if result.Error != nil {
		internalError(c, result.Error, "failed to delete budget")
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "budget not found")
		return
	}

	NoContent(c)
}

// spentInPeriod sums the user's expenses in a category over [first of month, first of next month)
func spentInPeriod(db *gorm.DB, userID, categoryID uint, month, year int) (decimal.Decimal, error) {
	start, end := models.MonthRange(month, year)

	var amounts []decimal.Decimal
	if err := db.Model(&models.Transaction{}).
		Where("user_id = ? AND category_id = ? AND type = ?", userID, categoryID, models.TypeExpense).
		Where("transaction_date >= ? AND transaction_date < ?", start, end).
		Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, err
	}

	return decimal.Sum(decimal.Zero, amounts...).Round(2), nil
}

// budgetPeriod identifies the budgets a ledger write can affect
type budgetPeriod struct {
	categoryID  uint
	month, year int
}

func periodOf(t models.Transaction) budgetPeriod {
	month, year := t.Period()
	return budgetPeriod{categoryID: t.CategoryID, month: month, year: year}
}

// refreshBudgets recomputes the spent amount of the user's budgets for each period
func refreshBudgets(db *gorm.DB, userID uint, periods ...budgetPeriod) error {
	seen := make(map[budgetPeriod]bool, len(periods))
	for _, p := range periods {
		if seen[p] {
			continue
		}
		seen[p] = true

		spent, err := spentInPeriod(db, userID, p.categoryID, p.month, p.year)
		if err != nil {
			return err
		}
		if err := db.Model(&models.Budget{}).
			Where("user_id = ? AND category_id = ? AND month = ? AND year = ?", userID, p.categoryID, p.month, p.year).
			Updates(map[string]interface{}{"spent_amount": spent, "updated_at": time.Now().UTC()}).Error; err != nil {
			return err
		}
	}
	return nil
}
