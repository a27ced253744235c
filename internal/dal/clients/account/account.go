package account

import (
	"context"
	"fmt"
	"net/http"

	"github.com/corray333/backend-labs/ordering/internal/dal/clients/remote"
	"github.com/corray333/backend-labs/ordering/internal/service/models/account"
	"github.com/shopspring/decimal"
)

type userResponse struct {
	ID            int64           `json:"id"`
	Role          string          `json:"role"`
	WalletBalance decimal.Decimal `json:"walletBalance"`
}

func (u userResponse) toModel() account.User {
	return account.User{
		ID:            u.ID,
		Role:          account.Role(u.Role),
		WalletBalance: u.WalletBalance,
	}
}

type walletRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Client is the client of the account service: user lookup, wallet
// adjustments and delivery addresses.
type Client struct {
	remote *remote.Client
}

// NewClient creates a new account service client.
func NewClient(remote *remote.Client) *Client {
	return &Client{remote: remote}
}

// GetUser returns the role and wallet balance of a user.
func (c *Client) GetUser(ctx context.Context, userID int64) (account.User, error) {
	var resp userResponse
	if err := c.remote.Do(ctx, "GetUser", http.MethodGet, fmt.Sprintf("/users/%d", userID), nil, &resp); err != nil {
		return account.User{}, err
	}

	return resp.toModel(), nil
}

// AdjustWallet applies a signed amount to the wallet balance of a user.
func (c *Client) AdjustWallet(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return c.remote.Do(
		ctx,
		"AdjustWallet",
		http.MethodPost,
		fmt.Sprintf("/users/%d/wallet", userID),
		walletRequest{Amount: amount},
		nil,
	)
}

// ListAddresses returns the delivery addresses of a user.
func (c *Client) ListAddresses(ctx context.Context, userID int64) ([]account.Address, error) {
	addresses := make([]account.Address, 0)
	if err := c.remote.Do(
		ctx,
		"ListAddresses",
		http.MethodGet,
		fmt.Sprintf("/users/%d/addresses", userID),
		nil,
		&addresses,
	); err != nil {
		return nil, err
	}

	for i := range addresses {
		addresses[i].UserID = userID
	}

	return addresses, nil
}

// GetAddress returns one address.
func (c *Client) GetAddress(ctx context.Context, addressID int64) (account.Address, error) {
	var address account.Address
	if err := c.remote.Do(
		ctx,
		"GetAddress",
		http.MethodGet,
		fmt.Sprintf("/addresses/%d", addressID),
		nil,
		&address,
	); err != nil {
		return account.Address{}, err
	}

	return address, nil
}
