package restaurant

import "github.com/shopspring/decimal"

// Restaurant is the catalog projection used for existence checks and display.
type Restaurant struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
