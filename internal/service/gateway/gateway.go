package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/ordering/internal/service/fallback"
	"github.com/corray333/backend-labs/ordering/internal/service/models/account"
	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/corray333/backend-labs/ordering/internal/service/models/restaurant"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type walletClient interface {
	GetUser(ctx context.Context, userID int64) (account.User, error)
	AdjustWallet(ctx context.Context, userID int64, amount decimal.Decimal) error
}

type addressClient interface {
	ListAddresses(ctx context.Context, userID int64) ([]account.Address, error)
	GetAddress(ctx context.Context, addressID int64) (account.Address, error)
}

type catalogClient interface {
	GetRestaurant(ctx context.Context, restaurantID int64) (restaurant.Restaurant, error)
}

// Gateways wraps the remote clients with the fallback policy. Every remote
// call goes through guard, which either returns the real result, the site's
// substitute, or the error.
type Gateways struct {
	wallet  walletClient
	address addressClient
	catalog catalogClient
	policy  *fallback.Policy
}

// option is a function that configures the Gateways.
type option func(*Gateways)

// MustNewGateways creates a new Gateways.
func MustNewGateways(opts ...option) *Gateways {
	g := &Gateways{}
	for _, opt := range opts {
		opt(g)
	}

	if g.wallet == nil || g.address == nil || g.catalog == nil {
		panic("gateway: wallet, address and catalog clients are required")
	}
	if g.policy == nil {
		g.policy = fallback.MustNewPolicy()
	}

	return g
}

// WithWalletClient sets the client used for user lookups and wallet changes.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithWalletClient(client walletClient) option {
	return func(g *Gateways) {
		g.wallet = client
	}
}

// WithAddressClient sets the client used for address lookups.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAddressClient(client addressClient) option {
	return func(g *Gateways) {
		g.address = client
	}
}

// WithCatalogClient sets the client used for restaurant lookups.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCatalogClient(client catalogClient) option {
	return func(g *Gateways) {
		g.catalog = client
	}
}

// WithPolicy sets the fallback policy.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPolicy(policy *fallback.Policy) option {
	return func(g *Gateways) {
		g.policy = policy
	}
}

func guard[T any](
	ctx context.Context,
	policy *fallback.Policy,
	site fallback.Site,
	call func(ctx context.Context) (T, error),
	substitute func() T,
) (T, error) {
	ctx, span := otel.Tracer("gateway").Start(ctx, string(site))
	defer span.End()

	result, err := call(ctx)
	policy.Observe(site, err)
	if err == nil {
		return result, nil
	}

	decision := policy.Decide(site, err)
	span.SetAttributes(attribute.String("fallback.decision", decision.String()))
	span.RecordError(err)

	if decision == fallback.DecisionSubstitute {
		slog.WarnContext(ctx, "Remote call failed, serving fallback substitute",
			"site", site,
			"error", err,
		)

		return substitute(), nil
	}

	var zero T
	if apperr.IsGatewayError(err) {
		return zero, fmt.Errorf("%w: %w", apperr.ErrDependencyUnavailable, err)
	}

	return zero, err
}

// RequireRole resolves userID and checks that the user has role. It is the
// single capability check used by every operation that needs a role. Under
// outage the substitute matches the required role, so the check passes with
// a zero wallet balance.
func (g *Gateways) RequireRole(
	ctx context.Context,
	userID int64,
	role account.Role,
) (account.User, error) {
	site := fallback.SiteCustomerLookup
	substitute := fallback.CustomerSubstitute
	if role == account.RoleRestaurantOwner {
		site = fallback.SiteOwnerLookup
		substitute = fallback.OwnerSubstitute
	}

	user, err := guard(ctx, g.policy, site,
		func(ctx context.Context) (account.User, error) {
			return g.wallet.GetUser(ctx, userID)
		},
		func() account.User { return substitute(userID) },
	)
	if err != nil {
		if errors.Is(err, apperr.ErrRemoteNotFound) {
			return account.User{}, fmt.Errorf("%w: user %d does not exist", apperr.ErrCapabilityDenied, userID)
		}

		return account.User{}, err
	}

	if !user.HasRole(role) {
		return account.User{}, fmt.Errorf(
			"%w: user %d has role %s, %s required",
			apperr.ErrCapabilityDenied, userID, user.Role, role,
		)
	}

	return user, nil
}

// Addresses lists the delivery addresses of userID. An unknown user has no
// addresses.
func (g *Gateways) Addresses(ctx context.Context, userID int64) ([]account.Address, error) {
	addresses, err := guard(ctx, g.policy, fallback.SiteAddressList,
		func(ctx context.Context) ([]account.Address, error) {
			return g.address.ListAddresses(ctx, userID)
		},
		fallback.AddressesSubstitute,
	)
	if errors.Is(err, apperr.ErrRemoteNotFound) {
		return []account.Address{}, nil
	}

	return addresses, err
}

// Address returns one address for display.
func (g *Gateways) Address(ctx context.Context, addressID int64) (account.Address, error) {
	address, err := guard(ctx, g.policy, fallback.SiteAddressLookup,
		func(ctx context.Context) (account.Address, error) {
			return g.address.GetAddress(ctx, addressID)
		},
		func() account.Address { return fallback.AddressSubstitute(addressID) },
	)
	if errors.Is(err, apperr.ErrRemoteNotFound) {
		return account.Address{}, fmt.Errorf("%w: address %d", apperr.ErrAddressNotFound, addressID)
	}

	return address, err
}

// AdjustWallet applies a signed delta to the wallet of userID: negative
// amounts debit, positive amounts credit. Under outage the adjustment is
// dropped.
func (g *Gateways) AdjustWallet(ctx context.Context, userID int64, amount decimal.Decimal) error {
	_, err := guard(ctx, g.policy, fallback.SiteWalletAdjust,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, g.wallet.AdjustWallet(ctx, userID, amount)
		},
		func() struct{} {
			slog.ErrorContext(ctx, "Wallet adjustment dropped",
				"user_id", userID,
				"amount", amount.String(),
			)

			return struct{}{}
		},
	)
	if errors.Is(err, apperr.ErrRemoteNotFound) {
		return fmt.Errorf("%w: wallet of user %d", apperr.ErrCustomerNotFound, userID)
	}

	return err
}

// Restaurant resolves a restaurant for display.
func (g *Gateways) Restaurant(ctx context.Context, restaurantID int64) (restaurant.Restaurant, error) {
	return guard(ctx, g.policy, fallback.SiteRestaurantLookup,
		func(ctx context.Context) (restaurant.Restaurant, error) {
			return g.catalog.GetRestaurant(ctx, restaurantID)
		},
		func() restaurant.Restaurant { return fallback.RestaurantSubstitute(restaurantID) },
	)
}
