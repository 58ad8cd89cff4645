package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is a single income or expense entry
type Transaction struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	UserID          uint            `json:"userId" gorm:"index;not null"`
	CategoryID      uint            `json:"categoryId" gorm:"index;not null"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Description     string          `json:"description" gorm:"size:255"`
	TransactionDate time.Time       `json:"transactionDate" gorm:"index;not null"`
	Type            string          `json:"type" gorm:"size:10;not null;index"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	User            User            `json:"-" gorm:"foreignKey:UserID"`
	Category        Category        `json:"-" gorm:"foreignKey:CategoryID"`
}

// TableName sets the table name
func (Transaction) TableName() string {
	return "transactions"
}

// BeforeSave stores dates in UTC so range comparisons agree across drivers
func (t *Transaction) BeforeSave(*gorm.DB) error {
	t.TransactionDate = t.TransactionDate.UTC().Truncate(time.Second)
	return nil
}

// Period returns the calendar month and year the transaction falls into
func (t Transaction) Period() (month, year int) {
	d := t.TransactionDate.UTC()
	return int(d.Month()), d.Year()
}
