package models

// BalanceTotals is the raw per-type aggregation produced by a store
type BalanceTotals struct {
	TotalIncome   float64
	TotalExpenses float64
	Count         int
}

// Balance represents the income/expense statistics of a user
type Balance struct {
	TotalIncome      float64 `json:"total_income"`
	TotalExpenses    float64 `json:"total_expenses"`
	CurrentBalance   float64 `json:"current_balance"`
	TransactionCount int     `json:"transaction_count"`
}

// NewBalance derives the current balance from store totals
func NewBalance(t BalanceTotals) Balance {
	return Balance{
		TotalIncome:      t.TotalIncome,
		TotalExpenses:    t.TotalExpenses,
		CurrentBalance:   t.TotalIncome - t.TotalExpenses,
		TransactionCount: t.Count,
	}
}

// Add folds one group of an aggregation into the totals
func (t *BalanceTotals) Add(typ TransactionType, sum float64, count int) {
	switch typ {
	case TransactionIncome:
		t.TotalIncome += sum
	case TransactionExpense:
		t.TotalExpenses += sum
	default:
		return
	}
	t.Count += count
}

// Token is returned by a successful login
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
