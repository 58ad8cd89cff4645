package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a spending cap for one category in one calendar month
type Budget struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	UserID      uint            `json:"userId" gorm:"not null;uniqueIndex:idx_budget_period"`
	CategoryID  uint            `json:"categoryId" gorm:"not null;index;uniqueIndex:idx_budget_period"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	SpentAmount decimal.Decimal `json:"spentAmount" gorm:"type:decimal(10,2);not null"`
	Month       int             `json:"month" gorm:"not null;uniqueIndex:idx_budget_period"`
	Year        int             `json:"year" gorm:"not null;uniqueIndex:idx_budget_period"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	User        User            `json:"-" gorm:"foreignKey:UserID"`
	Category    Category        `json:"-" gorm:"foreignKey:CategoryID"`
}

// TableName sets the table name
func (Budget) TableName() string {
	return "budgets"
}

// Remaining is the cap minus what has been spent, negative when overspent
func (b Budget) Remaining() decimal.Decimal {
	return b.Amount.Sub(b.SpentAmount)
}

// Percentage is spent/amount*100 rounded to two places, 0 for a zero cap
func (b Budget) Percentage() decimal.Decimal {
	return Percent(b.SpentAmount, b.Amount)
}

// Percent returns part/whole*100 rounded to two places, 0 when whole is zero
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}

// MonthRange returns the half-open UTC window [first day, first day of next month)
func MonthRange(month, year int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
