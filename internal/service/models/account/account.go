package account

import "github.com/shopspring/decimal"

// Role is the role of a user in the account service.
type Role string

const (
	RoleCustomer        Role = "CUSTOMER"
	RoleRestaurantOwner Role = "RESTAURANT_OWNER"
)

func (r Role) String() string {
	return string(r)
}

// User is the projection of an account the order service works with.
type User struct {
	ID            int64           `json:"id"`
	Role          Role            `json:"role"`
	WalletBalance decimal.Decimal `json:"walletBalance"`
}

// HasRole reports whether the user has the given role.
func (u User) HasRole(role Role) bool {
	return u.Role == role
}

// Address is a delivery address owned by a user.
type Address struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"userId,omitempty"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}
