package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType tells income from expense; amounts are always positive
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Category is a fixed label attached to a transaction
type Category string

const (
	CategorySalary      Category = "salary"
	CategoryFreelance   Category = "freelance"
	CategoryInvestment  Category = "investment"
	CategoryOtherIncome Category = "other_income"

	CategoryHousing        Category = "housing"
	CategoryTransportation Category = "transportation"
	CategoryFood           Category = "food"
	CategoryUtilities      Category = "utilities"
	CategoryHealthcare     Category = "healthcare"
	CategoryEntertainment  Category = "entertainment"
	CategoryShopping       Category = "shopping"
	CategoryOtherExpense   Category = "other_expense"
)

// Categories lists every accepted category
var Categories = []Category{
	CategorySalary, CategoryFreelance, CategoryInvestment, CategoryOtherIncome,
	CategoryHousing, CategoryTransportation, CategoryFood, CategoryUtilities,
	CategoryHealthcare, CategoryEntertainment, CategoryShopping, CategoryOtherExpense,
}

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Transaction represents a financial transaction owned by one user
type Transaction struct {
	PublicID     uuid.UUID
	UserPublicID uuid.UUID
	Type         TransactionType
	Category     Category
	Amount       float64
	Description  string
	Date         time.Time // economic date, not the insert time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// TransactionResponse is the public view of a transaction
type TransactionResponse struct {
	PublicID    uuid.UUID       `json:"public_id"`
	Type        TransactionType `json:"type"`
	Category    Category        `json:"category"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Response maps the transaction to its public view
func (t *Transaction) Response() TransactionResponse {
	return TransactionResponse{
		PublicID:    t.PublicID,
		Type:        t.Type,
		Category:    t.Category,
		Amount:      t.Amount,
		Description: t.Description,
		Date:        t.Date,
		CreatedAt:   t.CreatedAt,
	}
}
