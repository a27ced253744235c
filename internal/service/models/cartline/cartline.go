package cartline

import (
	"fmt"
	"math"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/shopspring/decimal"
)

// CartLine is one item a user intends to order from one restaurant.
// LineTotalPrice holds the price of the whole line, not the unit price.
type CartLine struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"userId"`
	FoodItemID     int64           `json:"foodItemId"`
	RestaurantID   int64           `json:"restaurantId"`
	Quantity       int             `json:"quantity"`
	LineTotalPrice decimal.Decimal `json:"lineTotalPrice"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// UnitPrice derives the unit price from the line total, rounding half to even.
func (l CartLine) UnitPrice() decimal.Decimal {
	if l.Quantity <= 0 {
		return decimal.Zero
	}

	return l.LineTotalPrice.Div(decimal.NewFromInt(int64(l.Quantity))).RoundBank(2)
}

// Outcome describes what a cart mutation did to a line.
type Outcome string

const (
	OutcomeAdded   Outcome = "added"
	OutcomeUpdated Outcome = "updated"
	OutcomeRemoved Outcome = "removed"
)

// AdjustResult is the result of a quantity adjustment. Line is the zero value
// when the line was removed.
type AdjustResult struct {
	Outcome Outcome  `json:"outcome"`
	Line    CartLine `json:"line"`
}

// MaxQuantity is the largest quantity the cart_lines column holds.
const MaxQuantity = math.MaxInt32

// MaxLineTotal is the largest line total a NUMERIC(12,2) column holds.
var MaxLineTotal = decimal.RequireFromString("9999999999.99")

// Adjust applies delta to the line quantity and recomputes the line total from
// the derived unit price. It reports OutcomeRemoved when the quantity reaches 0
// and ErrInvalidArgument when the line would exceed MaxQuantity or the largest
// storable total.
func Adjust(line CartLine, delta int) (AdjustResult, error) {
	unitPrice := line.UnitPrice()

	if delta > 0 && line.Quantity > MaxQuantity-delta {
		return AdjustResult{}, fmt.Errorf("%w: quantity would exceed %d", apperr.ErrInvalidArgument, MaxQuantity)
	}

	newQuantity := line.Quantity + delta
	if newQuantity <= 0 {
		return AdjustResult{Outcome: OutcomeRemoved}, nil
	}

	total := unitPrice.Mul(decimal.NewFromInt(int64(newQuantity)))
	if total.GreaterThan(MaxLineTotal) {
		return AdjustResult{}, fmt.Errorf("%w: line total would exceed %s", apperr.ErrInvalidArgument, MaxLineTotal)
	}

	line.Quantity = newQuantity
	line.LineTotalPrice = total

	return AdjustResult{Outcome: OutcomeUpdated, Line: line}, nil
}

// QueryCartLinesModel represents filter parameters for querying cart lines.
type QueryCartLinesModel struct {
	Ids           []int64 `json:"ids,omitempty"`
	UserIds       []int64 `json:"userIds,omitempty"`
	RestaurantIds []int64 `json:"restaurantIds,omitempty"`
	FoodItemIds   []int64 `json:"foodItemIds,omitempty"`
}

// AddItemModel is the input of adding an item to a cart.
type AddItemModel struct {
	UserID       int64           `json:"userId"`
	FoodItemID   int64           `json:"foodItemId"`
	RestaurantID int64           `json:"restaurantId"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
}
