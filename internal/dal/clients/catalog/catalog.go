package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/corray333/backend-labs/ordering/internal/dal/clients/remote"
	"github.com/corray333/backend-labs/ordering/internal/service/models/restaurant"
)

// Client is the client of the restaurant catalog service.
type Client struct {
	remote *remote.Client
}

// NewClient creates a new catalog service client.
func NewClient(remote *remote.Client) *Client {
	return &Client{remote: remote}
}

// GetRestaurant resolves a restaurant by id.
func (c *Client) GetRestaurant(ctx context.Context, restaurantID int64) (restaurant.Restaurant, error) {
	var r restaurant.Restaurant
	if err := c.remote.Do(
		ctx,
		"GetRestaurant",
		http.MethodGet,
		fmt.Sprintf("/restaurants/%d", restaurantID),
		nil,
		&r,
	); err != nil {
		return restaurant.Restaurant{}, err
	}

	return r, nil
}
