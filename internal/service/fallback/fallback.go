package fallback

import (
	"github.com/corray333/backend-labs/ordering/internal/service/models/account"
	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/corray333/backend-labs/ordering/internal/service/models/restaurant"
	"github.com/shopspring/decimal"
)

// Site identifies a remote call site that has a degraded substitute.
type Site string

const (
	SiteCustomerLookup   Site = "wallet.customer_lookup"
	SiteOwnerLookup      Site = "wallet.owner_lookup"
	SiteWalletAdjust     Site = "wallet.adjust"
	SiteAddressList      Site = "address.list"
	SiteAddressLookup    Site = "address.lookup"
	SiteRestaurantLookup Site = "catalog.restaurant_lookup"
)

// Remote dependencies reported to the health reporter.
const (
	DependencyAccount = "account"
	DependencyCatalog = "catalog"
)

// Dependency returns the remote service behind the site.
func (s Site) Dependency() string {
	if s == SiteRestaurantLookup {
		return DependencyCatalog
	}

	return DependencyAccount
}

// Decision is what the caller should do with a failed remote call.
type Decision int

const (
	// DecisionFail propagates the error.
	DecisionFail Decision = iota
	// DecisionSubstitute replaces the result with the site's substitute.
	DecisionSubstitute
)

func (d Decision) String() string {
	if d == DecisionSubstitute {
		return "substitute"
	}

	return "fail"
}

// HealthReporter receives the serving state of remote dependencies.
type HealthReporter interface {
	SetServing(dependency string, serving bool)
}

// Policy decides, per call site, whether a transport failure of a remote call
// is replaced by a degraded substitute or surfaced to the caller.
type Policy struct {
	failSites map[Site]struct{}
	reporter  HealthReporter
}

// option is a function that configures the Policy.
type option func(*Policy)

// MustNewPolicy creates a new Policy. Without options every site substitutes.
func MustNewPolicy(opts ...option) *Policy {
	p := &Policy{
		failSites: make(map[Site]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithFailSites makes the listed sites fail instead of substituting.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithFailSites(sites []string) option {
	return func(p *Policy) {
		for _, site := range sites {
			p.failSites[Site(site)] = struct{}{}
		}
	}
}

// WithHealthReporter sets the reporter notified after every remote call.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHealthReporter(reporter HealthReporter) option {
	return func(p *Policy) {
		p.reporter = reporter
	}
}

// Decide returns DecisionSubstitute only for transport failures at sites
// that are not configured to fail. Domain errors such as a remote
// "not found" always fail.
func (p *Policy) Decide(site Site, err error) Decision {
	if err == nil || !apperr.IsGatewayError(err) {
		return DecisionFail
	}
	if _, ok := p.failSites[site]; ok {
		return DecisionFail
	}

	return DecisionSubstitute
}

// Observe reports the outcome of a remote call to the health reporter. Any
// answer from the remote service, including "not found", counts as serving.
func (p *Policy) Observe(site Site, err error) {
	if p.reporter == nil {
		return
	}
	p.reporter.SetServing(site.Dependency(), !apperr.IsGatewayError(err))
}

// CustomerSubstitute is served when the account service cannot resolve a
// customer.
func CustomerSubstitute(userID int64) account.User {
	return account.User{
		ID:            userID,
		Role:          account.RoleCustomer,
		WalletBalance: decimal.Zero,
	}
}

// OwnerSubstitute is served when the account service cannot resolve a
// restaurant-side caller.
func OwnerSubstitute(userID int64) account.User {
	return account.User{
		ID:            userID,
		Role:          account.RoleRestaurantOwner,
		WalletBalance: decimal.Zero,
	}
}

// AddressesSubstitute is served when the address list is unavailable.
func AddressesSubstitute() []account.Address {
	return []account.Address{}
}

// AddressSubstitute is a placeholder served when an address is unavailable.
func AddressSubstitute(addressID int64) account.Address {
	return account.Address{
		ID:      addressID,
		Street:  "address unavailable",
		City:    "unavailable",
		State:   "unavailable",
		Pincode: "000000",
	}
}

// RestaurantSubstitute is a placeholder served when the catalog is
// unavailable.
func RestaurantSubstitute(restaurantID int64) restaurant.Restaurant {
	return restaurant.Restaurant{
		ID:    restaurantID,
		Name:  "restaurant unavailable",
		Price: decimal.Zero,
	}
}
