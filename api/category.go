package api

import (
	"errors"
	"strings"

	"finera/database"
	"finera/middleware"
	"finera/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CategoryHandler category registry
type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// CategoryRequest create and update payload. Updates replace every field.
type CategoryRequest struct {
	Name  string  `json:"name" binding:"required,min=1,max=50" example:"Groceries"`
	Type  string  `json:"type" binding:"required" example:"Expense"`
	Color string  `json:"color" binding:"omitempty,max=7" example:"#22c55e"`
	Icon  *string `json:"icon" binding:"omitempty,max=50" example:"cart"`
}

// normalize trims input and canonicalises the type
func (r *CategoryRequest) normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("name is required")
	}
	t, ok := models.NormalizeType(r.Type)
	if !ok {
		return errors.New("type must be Income or Expense")
	}
	r.Type = t
	r.Color = strings.TrimSpace(r.Color)
	if r.Color == "" {
		r.Color = models.DefaultCategoryColor
	}
	return nil
}

// visibleCategories scopes a query to defaults plus the user's own categories
func visibleCategories(db *gorm.DB, userID uint) *gorm.DB {
	return db.Where("(is_default = ? OR user_id = ?)", true, userID)
}

// findVisibleCategory loads a category the user may reference
func findVisibleCategory(db *gorm.DB, userID, id uint) (*models.Category, error) {
	var cat models.Category
	err := visibleCategories(db, userID).Where("id = ?", id).First(&cat).Error
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// List returns defaults and the caller's categories
// @Summary List categories
// @Description Default categories plus the caller's own, ordered by type then name
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Category} "categories"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	list := []models.Category{}
	if err := visibleCategories(database.DB, userID).
		Order("type ASC, name ASC").
		Find(&list).Error; err != nil {
		internalError(c, err, "failed to list categories")
		return
	}

	Success(c, list)
}

// ListByType returns the visible categories of one type
// @Summary List categories by type
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param type path string true "Income or Expense, any casing"
// @Success 200 {object} Response{data=[]models.Category} "categories"
// @Failure 400 {object} Response "invalid type"
// @Router /api/categories/{type} [get]
func (h *CategoryHandler) ListByType(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	t, ok := models.NormalizeType(c.Param("type"))
	if !ok {
		BadRequest(c, "type must be Income or Expense")
		return
	}

	list := []models.Category{}
	if err := visibleCategories(database.DB, userID).
		Where("type = ?", t).
		Order("name ASC").
		Find(&list).Error; err != nil {
		internalError(c, err, "failed to list categories")
		return
	}

	Success(c, list)
}

// Create adds a category owned by the caller
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryRequest true "category"
// @Success 201 {object} Response{data=models.Category} "created"
// @Failure 400 {object} Response "invalid request"
// @Failure 409 {object} Response "name already used"
// @Router /api/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindingMessage(err))
		return
	}
	if err := req.normalize(); err != nil {
		BadRequest(c, err.Error())
		return
	}

	// defaults may be shadowed, only the caller's own names clash
	var count int64
	if err := database.DB.Model(&models.Category{}).
		Where("user_id = ? AND name = ?", userID, req.Name).
		Count(&count).Error; err != nil {
		internalError(c, err, "failed to create category")
		return
	}
	if count > 0 {
		Conflict(c, "a category with this name already exists")
		return
	}

	cat := models.Category{
		Name:   req.Name,
		Type:   req.Type,
		Color:  req.Color,
		Icon:   req.Icon,
		UserID: &userID,
	}
	if err := database.DB.Create(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, "a category with this name already exists")
			return
		}
		internalError(c, err, "failed to create category")
		return
	}

	Created(c, "created", cat)
}

// Update replaces an owned category
// @Summary Update category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "category id"
// @Param request body CategoryRequest true "category"
// @Success 200 {object} Response{data=models.Category} "updated"
// @Failure 400 {object} Response "invalid request, default category, duplicate name or type change while in use"
// @Failure 404 {object} Response "not found"
// @Router /api/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	id, err := parseID(c, "id")
	if err != nil {
		BadRequest(c, "invalid category id")
		return
	}

	cat, ok := h.loadOwned(c, userID, id)
	if !ok {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindingMessage(err))
		return
	}
	if err := req.normalize(); err != nil {
		BadRequest(c, err.Error())
		return
	}

	var count int64
	if err := database.DB.Model(&models.Category{}).
		Where("user_id = ? AND name = ? AND id <> ?", userID, req.Name, id).
		Count(&count).Error; err != nil {
		internalError(c, err, "failed to update category")
		return
	}
	if count > 0 {
		BadRequest(c, "a category with this name already exists")
		return
	}

	// transactions must keep matching their category's type
	if req.Type != cat.Type {
		inUse, err := categoryInUse(database.DB, cat.ID)
		if err != nil {
			internalError(c, err, "failed to update category")
			return
		}
		if inUse {
			BadRequest(c, "type cannot change while transactions or budgets use the category")
			return
		}
	}

	cat.Name = req.Name
	cat.Type = req.Type
	cat.Color = req.Color
	cat.Icon = req.Icon
	if err := database.DB.Save(cat).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			BadRequest(c, "a category with this name already exists")
			return
		}
		internalError(c, err, "failed to update category")
		return
	}

	Success(c, cat)
}

// Delete removes an owned, unreferenced category
// @Summary Delete category
// @Tags Categories
// @Security BearerAuth
// @Param id path int true "category id"
// @Success 204 "deleted"
// @Failure 400 {object} Response "default category or still referenced"
// @Failure 404 {object} Response "not found"
// @Router /api/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	id, err := parseID(c, "id")
	if err != nil {
		BadRequest(c, "invalid category id")
		return
	}

	cat, ok := h.loadOwned(c, userID, id)
	if !ok {
		return
	}

	inUse, err := categoryInUse(database.DB, cat.ID)
	if err != nil {
		internalError(c, err, "failed to delete category")
		return
	}
	if inUse {
		BadRequest(c, "category is used by transactions or budgets")
		return
	}

	if err := database.DB.Delete(cat).Error; err != nil {
		internalError(c, err, "failed to delete category")
		return
	}

	NoContent(c)
}

// loadOwned answers 404 for invisible categories and 400 for defaults
func (h *CategoryHandler) loadOwned(c *gin.Context, userID, id uint) (*models.Category, bool) {
	cat, err := findVisibleCategory(database.DB, userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "category not found")
		return nil, false
	}
	if err != nil {
		internalError(c, err, "failed to load category")
		return nil, false
	}
	if cat.IsDefault || !cat.OwnedBy(userID) {
		BadRequest(c, "default categories cannot be modified")
		return nil, false
	}
	return cat, true
}

// categoryInUse reports whether any transaction or budget references the category
func categoryInUse(db *gorm.DB, id uint) (bool, error) {
	var txCount, budgetCount int64
	if err := db.Model(&models.Transaction{}).Where("category_id = ?", id).Count(&txCount).Error; err != nil {
		return false, err
	}
	if err := db.Model(&models.Budget{}).Where("category_id = ?", id).Count(&budgetCount).Error; err != nil {
		return false, err
	}
	return txCount > 0 || budgetCount > 0, nil
}
