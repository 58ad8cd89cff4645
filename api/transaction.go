package api

import (
	"errors"
	"strings"
	"time"

	"finera/database"
	"finera/middleware"
	"finera/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionHandler ledger endpoints
type TransactionHandler struct{}

// NewTransactionHandler creates the ledger handler
func NewTransactionHandler() *TransactionHandler {
	return &TransactionHandler{}
}

// TransactionRequest create and update payload. Updates replace every field.
type TransactionRequest struct {
	CategoryID      uint            `json:"categoryId" binding:"required" example:"3"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"number" example:"2500"`
	Description     string          `json:"description" binding:"max=255" example:"Weekly groceries"`
	TransactionDate string          `json:"transactionDate" binding:"required" example:"2025-08-14"`
	Type            string          `json:"type" binding:"required" example:"Expense"`
}

// TransactionResponse ledger entry with its category
type TransactionResponse struct {
	ID              uint            `json:"id"`
	CategoryID      uint            `json:"categoryId"`
	CategoryName    string          `json:"categoryName"`
	CategoryType    string          `json:"categoryType"`
	CategoryColor   string          `json:"categoryColor"`
	CategoryIcon    *string         `json:"categoryIcon,omitempty"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"number"`
	Description     string          `json:"description"`
	TransactionDate time.Time       `json:"transactionDate"`
	Type            string          `json:"type"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func newTransactionResponse(t models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		CategoryID:      t.CategoryID,
		CategoryName:    t.Category.Name,
		CategoryType:    t.Category.Type,
		CategoryColor:   t.Category.Color,
		CategoryIcon:    t.Category.Icon,
		Amount:          t.Amount,
		Description:     t.Description,
		TransactionDate: t.TransactionDate,
		Type:            t.Type,
		CreatedAt:       t.CreatedAt,
	}
}

// errValidation marks input problems reported as 400
type errValidation struct{ msg string }

func (e errValidation) Error() string { return e.msg }

func invalid(msg string) error { return errValidation{msg: msg} }

// apply checks the payload against the visible categories and fills t
func (r *TransactionRequest) apply(db *gorm.DB, userID uint, t *models.Transaction) error {
	if !r.Amount.IsPositive() {
		return invalid("amount must be greater than 0")
	}
	typ, ok := models.NormalizeType(r.Type)
	if !ok {
		return invalid("type must be Income or Expense")
	}
	date, _, err := parseTimestamp(r.TransactionDate)
	if err != nil {
		return invalid(err.Error())
	}

	cat, err := findVisibleCategory(db, userID, r.CategoryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalid("invalid category")
	}
	if err != nil {
		return err
	}
	if cat.Type != typ {
		return invalid("transaction type must match the category type " + cat.Type)
	}

	t.UserID = userID
	t.CategoryID = cat.ID
	t.Category = *cat
	t.Amount = r.Amount.Round(2)
	t.Description = strings.TrimSpace(r.Description)
	t.TransactionDate = date
	t.Type = typ
	return nil
}

// respondWriteError maps ledger write failures to 400 or 500
func respondWriteError(c *gin.Context, err error, fallback string) {
	var verr errValidation
	if errors.As(err, &verr) {
		BadRequest(c, verr.msg)
		return
	}
	internalError(c, err, fallback)
}

// List filters the caller's transactions
// @Summary List transactions
// @Description Newest first. month filters only together with year; an unknown type is ignored.
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param month query int false "1-12, requires year"
// @Param year query int false "year, requires month"
// @Param type query string false "Income or Expense"
// @Param categoryId query int false "category id"
// @Success 200 {object} Response{data=[]TransactionResponse} "transactions"
// @Failure 400 {object} Response "invalid filter"
// @Router /api/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	query := database.DB.Preload("Category").Where("user_id = ?", userID)

	month, err := optionalInt(c, "month")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	year, err := optionalInt(c, "year")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	if month != nil && year != nil {
		if *month < 1 || *month > 12 {
			BadRequest(c, "month must be between 1 and 12")
			return
		}
		start, end := models.MonthRange(*month, *year)
		query = query.Where("transaction_date >= ? AND transaction_date < ?", start, end)
	}

	if t, ok := models.NormalizeType(c.Query("type")); ok {
		query = query.Where("type = ?", t)
	}

	categoryID, err := optionalInt(c, "categoryId")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}

	var txs []models.Transaction
	if err := query.Order("transaction_date DESC, created_at DESC").Find(&txs).Error; err != nil {
		internalError(c, err, "failed to list transactions")
		return
	}

	list := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		list = append(list, newTransactionResponse(t))
	}
	Success(c, list)
}

// Get returns one owned transaction
// @Summary Get transaction
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "transaction id"
// @Success 200 {object} Response{data=TransactionResponse} "transaction"
// @Failure 404 {object} Response "not found"
// @Router /api/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	t, ok := h.loadOwned(c, userID)
	if !ok {
		return
	}

	Success(c, newTransactionResponse(*t))
}

// Create records a transaction
// @Summary Create transaction
// @Description The type must match the category type. Budgets of the affected month are refreshed.
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TransactionRequest true "transaction"
// @Success 201 {object} Response{data=TransactionResponse} "created"
// @Failure 400 {object} Response "invalid request"
// @Router /api/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindingMessage(err))
		return
	}

	var t models.Transaction
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := req.apply(tx, userID, &t); err != nil {
			return err
		}
		if err := tx.Omit("User", "Category").Create(&t).Error; err != nil {
			return err
		}
		return refreshBudgets(tx, userID, periodOf(t))
	})
	if err != nil {
		respondWriteError(c, err, "failed to create transaction")
		return
	}

	Created(c, "created", newTransactionResponse(t))
}

// Update replaces an owned transaction
// @Summary Update transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "transaction id"
// @Param request body TransactionRequest true "transaction"
// @Success 200 {object} Response{data=TransactionResponse} "updated"
// @Failure 400 {object} Response "invalid request"
// @Failure 404 {object} Response "not found"
// @Router /api/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	t, ok := h.loadOwned(c, userID)
	if !ok {
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindingMessage(err))
		return
	}

	before := periodOf(*t)
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := req.apply(tx, userID, t); err != nil {
			return err
		}
		if err := tx.Omit("User", "Category").Save(t).Error; err != nil {
			return err
		}
		return refreshBudgets(tx, userID, before, periodOf(*t))
	})
	if err != nil {
		respondWriteError(c, err, "failed to update transaction")
		return
	}

	Success(c, newTransactionResponse(*t))
}

// Delete removes an owned transaction
// @Summary Delete transaction
// @Tags Transactions
// @Security BearerAuth
// @Param id path int true "transaction id"
// @Success 204 "deleted"
// @Failure 404 {object} Response "not found"
// @Router /api/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	t, ok := h.loadOwned(c, userID)
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Transaction{}, t.ID).Error; err != nil {
			return err
		}
		return refreshBudgets(tx, userID, periodOf(*t))
	})
	if err != nil {
		internalError(c, err, "failed to delete transaction")
		return
	}

	NoContent(c)
}

func (h *TransactionHandler) loadOwned(c *gin.Context, userID uint) (*models.Transaction, bool) {
	id, err := parseID(c, "id")
	if err != nil {
		BadRequest(c, "invalid transaction id")
		return nil, false
	}

	var t models.Transaction
	if err := database.DB.Preload("Category").
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "transaction not found")
			return nil, false
		}
		internalError(c, err, "failed to load transaction")
		return nil, false
	}
	return &t, true
}
