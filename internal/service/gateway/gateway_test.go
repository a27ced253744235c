package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/corray333/backend-labs/ordering/internal/service/fallback"
	"github.com/corray333/backend-labs/ordering/internal/service/models/account"
	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/corray333/backend-labs/ordering/internal/service/models/restaurant"
	"github.com/shopspring/decimal"
)

var errTransport = &apperr.GatewayError{Service: "account", Op: "test", Err: errors.New("connection refused")}

type mockAccount struct {
	mu        sync.Mutex
	users     map[int64]account.User
	addresses map[int64][]account.Address
	err       error
	adjusts   []decimal.Decimal
}

func (m *mockAccount) GetUser(_ context.Context, userID int64) (account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return account.User{}, m.err
	}
	user, ok := m.users[userID]
	if !ok {
		return account.User{}, apperr.ErrRemoteNotFound
	}

	return user, nil
}

func (m *mockAccount) AdjustWallet(_ context.Context, _ int64, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.adjusts = append(m.adjusts, amount)

	return nil
}

func (m *mockAccount) ListAddresses(_ context.Context, userID int64) ([]account.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	addresses, ok := m.addresses[userID]
	if !ok {
		return nil, apperr.ErrRemoteNotFound
	}

	return addresses, nil
}

func (m *mockAccount) GetAddress(_ context.Context, addressID int64) (account.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return account.Address{}, m.err
	}
	for _, list := range m.addresses {
		for _, a := range list {
			if a.ID == addressID {
				return a, nil
			}
		}
	}

	return account.Address{}, apperr.ErrRemoteNotFound
}

type mockCatalog struct {
	err error
}

func (m *mockCatalog) GetRestaurant(_ context.Context, id int64) (restaurant.Restaurant, error) {
	if m.err != nil {
		return restaurant.Restaurant{}, m.err
	}

	return restaurant.Restaurant{ID: id, Name: "Pizza Place", Price: decimal.NewFromInt(12)}, nil
}

func newGateways(acc *mockAccount, cat *mockCatalog, failSites ...string) *Gateways {
	return MustNewGateways(
		WithWalletClient(acc),
		WithAddressClient(acc),
		WithCatalogClient(cat),
		WithPolicy(fallback.MustNewPolicy(fallback.WithFailSites(failSites))),
	)
}

func TestRequireRole(t *testing.T) {
	acc := &mockAccount{users: map[int64]account.User{
		1: {ID: 1, Role: account.RoleCustomer, WalletBalance: decimal.NewFromInt(500)},
		2: {ID: 2, Role: account.RoleRestaurantOwner},
	}}
	g := newGateways(acc, &mockCatalog{})
	ctx := context.Background()

	user, err := g.RequireRole(ctx, 1, account.RoleCustomer)
	if err != nil {
		t.Fatalf("RequireRole() error = %v", err)
	}
	if !user.WalletBalance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("unexpected balance %s", user.WalletBalance)
	}

	if _, err := g.RequireRole(ctx, 2, account.RoleCustomer); !errors.Is(err, apperr.ErrCapabilityDenied) {
		t.Errorf("owner as customer: expected ErrCapabilityDenied, got %v", err)
	}
	if _, err := g.RequireRole(ctx, 99, account.RoleCustomer); !errors.Is(err, apperr.ErrCapabilityDenied) {
		t.Errorf("unknown user: expected ErrCapabilityDenied, got %v", err)
	}
	if _, err := g.RequireRole(ctx, 2, account.RoleRestaurantOwner); err != nil {
		t.Errorf("owner as owner: unexpected error %v", err)
	}
}

func TestRequireRoleSubstitutesRequiredRoleUnderOutage(t *testing.T) {
	acc := &mockAccount{err: errTransport}
	g := newGateways(acc, &mockCatalog{})
	ctx := context.Background()

	customer, err := g.RequireRole(ctx, 1, account.RoleCustomer)
	if err != nil {
		t.Fatalf("customer lookup: unexpected error %v", err)
	}
	if customer.Role != account.RoleCustomer || !customer.WalletBalance.IsZero() {
		t.Errorf("unexpected customer substitute %+v", customer)
	}

	owner, err := g.RequireRole(ctx, 2, account.RoleRestaurantOwner)
	if err != nil {
		t.Fatalf("owner lookup: unexpected error %v", err)
	}
	if owner.Role != account.RoleRestaurantOwner {
		t.Errorf("unexpected owner substitute %+v", owner)
	}
}

func TestFailSiteSurfacesDependencyUnavailable(t *testing.T) {
	acc := &mockAccount{err: errTransport}
	g := newGateways(acc, &mockCatalog{}, string(fallback.SiteWalletAdjust))

	err := g.AdjustWallet(context.Background(), 1, decimal.NewFromInt(-40))
	if !errors.Is(err, apperr.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if !apperr.IsGatewayError(err) {
		t.Error("expected the transport error to stay in the chain")
	}
}

func TestAdjustWalletDroppedUnderOutage(t *testing.T) {
	acc := &mockAccount{err: errTransport}
	g := newGateways(acc, &mockCatalog{})

	if err := g.AdjustWallet(context.Background(), 1, decimal.NewFromInt(-40)); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if len(acc.adjusts) != 0 {
		t.Errorf("expected no adjustments, got %v", acc.adjusts)
	}
}

func TestAddresses(t *testing.T) {
	acc := &mockAccount{addresses: map[int64][]account.Address{
		1: {{ID: 10, Street: "Main st"}},
	}}
	g := newGateways(acc, &mockCatalog{})
	ctx := context.Background()

	list, err := g.Addresses(ctx, 1)
	if err != nil || len(list) != 1 {
		t.Fatalf("Addresses() = %v, %v", list, err)
	}

	list, err = g.Addresses(ctx, 42)
	if err != nil || len(list) != 0 {
		t.Errorf("unknown user: Addresses() = %v, %v", list, err)
	}

	if _, err := g.Address(ctx, 77); !errors.Is(err, apperr.ErrAddressNotFound) {
		t.Errorf("expected ErrAddressNotFound, got %v", err)
	}

	acc.err = errTransport
	list, err = g.Addresses(ctx, 1)
	if err != nil || len(list) != 0 {
		t.Errorf("outage: Addresses() = %v, %v", list, err)
	}

	address, err := g.Address(ctx, 10)
	if err != nil || address.ID != 10 || address.Street != fallback.AddressSubstitute(10).Street {
		t.Errorf("outage: Address() = %+v, %v", address, err)
	}
}

func TestRestaurantFallback(t *testing.T) {
	g := newGateways(&mockAccount{}, &mockCatalog{err: errTransport})

	r, err := g.Restaurant(context.Background(), 4)
	if err != nil {
		t.Fatalf("Restaurant() error = %v", err)
	}
	if r.ID != 4 || !r.Price.IsZero() {
		t.Errorf("unexpected substitute %+v", r)
	}
}
