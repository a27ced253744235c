package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/account"
	"github.com/corray333/backend-labs/ordering/internal/service/models/cartline"
	"github.com/shopspring/decimal"
)

// CancellationWindow is how long after placement an order may be cancelled.
const CancellationWindow = 30 * time.Second

// Status is the lifecycle status of an order.
type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) String() string {
	return string(s)
}

// ParseStatus parses a status name.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPlaced, StatusCancelled, StatusCompleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// IsTerminal reports whether no transition leaves the status.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Order is a placed order. RawSnapshot keeps the snapshot bytes exactly as
// they were written at placement.
type Order struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"userId"`
	RestaurantID      int64           `json:"restaurantId"`
	DeliveryAddressID int64           `json:"deliveryAddressId"`
	Status            Status          `json:"status"`
	OrderTime         time.Time       `json:"orderTime"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	RawSnapshot       json.RawMessage `json:"snapshot"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Snapshot decodes the stored cart snapshot.
func (o Order) Snapshot() (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(o.RawSnapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode order snapshot: %w", err)
	}

	return snapshot, nil
}

// CancellationDeadline returns the last instant the order may be cancelled.
func (o Order) CancellationDeadline() time.Time {
	return o.OrderTime.Add(CancellationWindow)
}

// SnapshotLine is one cart line frozen into an order.
type SnapshotLine struct {
	FoodItemID int64           `json:"foodItemId"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

// Snapshot is the immutable copy of cart lines embedded in an order.
type Snapshot []SnapshotLine

// NewSnapshot freezes the authoritative cart lines.
func NewSnapshot(lines []cartline.CartLine) Snapshot {
	snapshot := make(Snapshot, 0, len(lines))
	for _, line := range lines {
		snapshot = append(snapshot, SnapshotLine{
			FoodItemID: line.FoodItemID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice(),
		})
	}

	return snapshot
}

// Total is the sum of unit price times quantity over the snapshot.
func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	return total
}

// Marshal encodes the snapshot for storage.
func (s Snapshot) Marshal() (json.RawMessage, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order snapshot: %w", err)
	}

	return raw, nil
}

// ClaimedLine is the client's view of one cart line.
type ClaimedLine struct {
	FoodItemID int64           `json:"foodItemId"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

// PlaceOrderModel is the input of order placement.
type PlaceOrderModel struct {
	UserID            int64
	RestaurantID      int64
	DeliveryAddressID int64
	ClaimedLines      []ClaimedLine
}

// Mismatch is a claimed line that did not match the authoritative cart.
type Mismatch struct {
	Claimed ClaimedLine `json:"claimed"`
	Reason  string      `json:"reason"`
}

// Reconcile compares the claimed cart with the authoritative one. Every
// claimed line must match an authoritative line on food item, quantity and
// unit price.
func Reconcile(claimed []ClaimedLine, authoritative Snapshot) []Mismatch {
	byFoodItem := make(map[int64]SnapshotLine, len(authoritative))
	for _, line := range authoritative {
		byFoodItem[line.FoodItemID] = line
	}

	var mismatches []Mismatch
	for _, c := range claimed {
		line, ok := byFoodItem[c.FoodItemID]
		switch {
		case !ok:
			mismatches = append(mismatches, Mismatch{Claimed: c, Reason: "food item not in cart"})
		case line.Quantity != c.Quantity:
			mismatches = append(mismatches, Mismatch{
				Claimed: c,
				Reason:  fmt.Sprintf("quantity mismatch: cart has %d", line.Quantity),
			})
		case !line.UnitPrice.Equal(c.UnitPrice):
			mismatches = append(mismatches, Mismatch{
				Claimed: c,
				Reason:  fmt.Sprintf("price mismatch: cart has %s", line.UnitPrice.StringFixed(2)),
			})
		}
	}

	return mismatches
}

// Ack acknowledges a successful order operation.
type Ack struct {
	OrderID    int64           `json:"orderId"`
	Status     Status          `json:"status"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Mismatches []Mismatch      `json:"mismatches,omitempty"`
	Message    string          `json:"message"`
}

// View is an order enriched with display data from remote services.
type View struct {
	Order
	Lines           Snapshot        `json:"lines"`
	RestaurantName  string          `json:"restaurantName"`
	DeliveryAddress account.Address `json:"deliveryAddress"`
}

// QueryOrdersModel represents filter parameters for querying orders.
type QueryOrdersModel struct {
	Ids           []int64  `json:"ids,omitempty"`
	UserIds       []int64  `json:"userIds,omitempty"`
	RestaurantIds []int64  `json:"restaurantIds,omitempty"`
	Statuses      []Status `json:"statuses,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	Offset        int      `json:"offset,omitempty"`
}
