package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry types shared by categories and transactions
const (
	TypeIncome  = "Income"
	TypeExpense = "Expense"
)

// DefaultCategoryColor is used when a category is created without a color
const DefaultCategoryColor = "#007bff"

// NormalizeType maps any casing of income/expense to its canonical form.
// The second return value is false for anything else.
func NormalizeType(s string) (string, bool) {
	t := cases.Title(language.English).String(strings.TrimSpace(s))
	switch t {
	case TypeIncome, TypeExpense:
		return t, true
	}
	return "", false
}

// Category groups transactions and budgets. Default categories have no owner
// and are visible to every user. Names are unique per owner.
type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:50;not null;uniqueIndex:idx_category_owner_name"`
	Type      string    `json:"type" gorm:"size:10;not null;index"`
	Color     string    `json:"color" gorm:"size:7;default:#007bff"`
	Icon      *string   `json:"icon,omitempty" gorm:"size:50"`
	UserID    *uint     `json:"userId,omitempty" gorm:"uniqueIndex:idx_category_owner_name"`
	IsDefault bool      `json:"isDefault" gorm:"default:false;index"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName sets the table name
func (Category) TableName() string {
	return "categories"
}

// VisibleTo reports whether userID may read or reference the category
func (c Category) VisibleTo(userID uint) bool {
	return c.IsDefault || c.OwnedBy(userID)
}

// OwnedBy reports whether userID owns the category
func (c Category) OwnedBy(userID uint) bool {
	return c.UserID != nil && *c.UserID == userID
}

// DefaultCategory is a seed entry for the shared category list
type DefaultCategory struct {
	Name  string
	Type  string
	Color string
}

// GetDefaultCategories returns the categories seeded into an empty store
func GetDefaultCategories() []DefaultCategory {
	return []DefaultCategory{
		{"Food", TypeExpense, "#ef4444"},
		{"Transport", TypeExpense, "#3b82f6"},
		{"Bills", TypeExpense, "#f97316"},
		{"Shopping", TypeExpense, "#a855f7"},
		{"Entertainment", TypeExpense, "#ec4899"},
		{"Health", TypeExpense, "#10b981"},
		{"Education", TypeExpense, "#f59e0b"},
		{"Other", TypeExpense, "#64748b"},
		{"Salary", TypeIncome, "#22c55e"},
		{"Business", TypeIncome, "#0ea5e9"},
		{"Investment", TypeIncome, "#8b5cf6"},
		{"Gift", TypeIncome, "#f43f5e"},
		{"Other income", TypeIncome, "#14b8a6"},
	}
}
