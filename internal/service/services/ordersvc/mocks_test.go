package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/icartrepo"
	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/ordering/internal/service/models/account"
	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/corray333/backend-labs/ordering/internal/service/models/cartline"
	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
	"github.com/corray333/backend-labs/ordering/internal/service/models/history"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/corray333/backend-labs/ordering/internal/service/models/restaurant"
	"github.com/shopspring/decimal"
)

var errTransport = &apperr.GatewayError{Service: "account", Op: "test", Err: errors.New("connection refused")}

// store is an in-memory database shared by the mock repositories. A unit of
// work snapshots it on Begin and restores the snapshot on Rollback unless it
// was committed.
type store struct {
	mu          sync.Mutex
	lines       map[int64]cartline.CartLine
	orders      map[int64]order.Order
	nextOrderID int64

	insertOrderErr error
	clearCartErr   error
}

func newStore(lines ...cartline.CartLine) *store {
	s := &store{
		lines:  make(map[int64]cartline.CartLine),
		orders: make(map[int64]order.Order),
	}
	for _, l := range lines {
		s.lines[l.ID] = l
	}

	return s
}

func (s *store) cartSize(userID, restaurantID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		if l.UserID == userID && l.RestaurantID == restaurantID {
			n++
		}
	}

	return n
}

func (s *store) order(id int64) (order.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]

	return o, ok
}

func (s *store) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.orders)
}

func (s *store) addOrder(o order.Order) order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderID++
	o.ID = s.nextOrderID
	s.orders[o.ID] = o

	return o
}

type mockUOW struct {
	store     *store
	inTx      bool
	committed bool
	lines     map[int64]cartline.CartLine
	orders    map[int64]order.Order
}

func (u *mockUOW) Begin(context.Context) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.inTx = true
	u.lines = make(map[int64]cartline.CartLine, len(u.store.lines))
	for k, v := range u.store.lines {
		u.lines[k] = v
	}
	u.orders = make(map[int64]order.Order, len(u.store.orders))
	for k, v := range u.store.orders {
		u.orders[k] = v
	}

	return nil
}

func (u *mockUOW) Commit(context.Context) error {
	u.committed = true

	return nil
}

func (u *mockUOW) Rollback(context.Context) error {
	if !u.inTx || u.committed {
		return nil
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.lines = u.lines
	u.store.orders = u.orders

	return nil
}

func (u *mockUOW) CartRepository() icartrepo.ICartRepository {
	return &mockCartRepo{store: u.store}
}

func (u *mockUOW) OrderRepository() iorderrepo.IOrderRepository {
	return &mockOrderRepo{store: u.store}
}

type mockCartRepo struct {
	store *store
}

func (r *mockCartRepo) GetByID(_ context.Context, id int64) (cartline.CartLine, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	l, ok := r.store.lines[id]
	if !ok {
		return cartline.CartLine{}, apperr.ErrCartNotFound
	}

	return l, nil
}

func (r *mockCartRepo) FindByTuple(context.Context, int64, int64, int64) (cartline.CartLine, bool, error) {
	return cartline.CartLine{}, false, errors.New("not used")
}

func (r *mockCartRepo) Query(_ context.Context, filter *cartline.QueryCartLinesModel) ([]cartline.CartLine, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := make([]cartline.CartLine, 0)
	for _, l := range r.store.lines {
		if len(filter.UserIds) > 0 && !contains(filter.UserIds, l.UserID) {
			continue
		}
		if len(filter.RestaurantIds) > 0 && !contains(filter.RestaurantIds, l.RestaurantID) {
			continue
		}
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (r *mockCartRepo) Insert(context.Context, cartline.CartLine) (cartline.CartLine, error) {
	return cartline.CartLine{}, errors.New("not used")
}

func (r *mockCartRepo) Update(context.Context, cartline.CartLine) error {
	return errors.New("not used")
}

func (r *mockCartRepo) Delete(context.Context, int64) (bool, error) {
	return false, errors.New("not used")
}

func (r *mockCartRepo) DeleteByUserRestaurant(_ context.Context, userID, restaurantID int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.clearCartErr != nil {
		return 0, r.store.clearCartErr
	}
	var removed int64
	for id, l := range r.store.lines {
		if l.UserID == userID && l.RestaurantID == restaurantID {
			delete(r.store.lines, id)
			removed++
		}
	}

	return removed, nil
}

type mockOrderRepo struct {
	store *store
}

func (r *mockOrderRepo) Insert(_ context.Context, ord order.Order) (order.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.insertOrderErr != nil {
		return order.Order{}, r.store.insertOrderErr
	}
	r.store.nextOrderID++
	ord.ID = r.store.nextOrderID
	r.store.orders[ord.ID] = ord

	return ord, nil
}

func (r *mockOrderRepo) GetByID(_ context.Context, id int64) (order.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.orders[id]
	if !ok {
		return order.Order{}, fmt.Errorf("%w: order %d", apperr.ErrOrderNotFound, id)
	}

	return o, nil
}

func (r *mockOrderRepo) Query(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := make([]order.Order, 0)
	for _, o := range r.store.orders {
		if len(filter.UserIds) > 0 && !contains(filter.UserIds, o.UserID) {
			continue
		}
		if len(filter.RestaurantIds) > 0 && !contains(filter.RestaurantIds, o.RestaurantID) {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	return result, nil
}

func (r *mockOrderRepo) UpdateStatusGuard(_ context.Context, id int64, from, to order.Status, at time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.orders[id]
	if !ok || o.Status != from {
		return 0, nil
	}
	o.Status = to
	o.UpdatedAt = at
	r.store.orders[id] = o

	return 1, nil
}

// mockAccount plays the account service: it owns wallets and addresses.
type mockAccount struct {
	mu        sync.Mutex
	users     map[int64]account.User
	addresses map[int64][]account.Address

	getUserErr error
	adjustErr  error
	listErr    error
}

func (m *mockAccount) GetUser(_ context.Context, userID int64) (account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getUserErr != nil {
		return account.User{}, m.getUserErr
	}
	u, ok := m.users[userID]
	if !ok {
		return account.User{}, apperr.ErrRemoteNotFound
	}

	return u, nil
}

func (m *mockAccount) AdjustWallet(_ context.Context, userID int64, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adjustErr != nil {
		return m.adjustErr
	}
	u, ok := m.users[userID]
	if !ok {
		return apperr.ErrRemoteNotFound
	}
	u.WalletBalance = u.WalletBalance.Add(amount)
	m.users[userID] = u

	return nil
}

func (m *mockAccount) ListAddresses(_ context.Context, userID int64) ([]account.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}

	return m.addresses[userID], nil
}

func (m *mockAccount) GetAddress(_ context.Context, addressID int64) (account.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, list := range m.addresses {
		for _, a := range list {
			if a.ID == addressID {
				return a, nil
			}
		}
	}

	return account.Address{}, apperr.ErrRemoteNotFound
}

func (m *mockAccount) balance(userID int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.users[userID].WalletBalance
}

type mockCatalog struct {
	err error
}

func (m *mockCatalog) GetRestaurant(_ context.Context, id int64) (restaurant.Restaurant, error) {
	if m.err != nil {
		return restaurant.Restaurant{}, m.err
	}

	return restaurant.Restaurant{ID: id, Name: fmt.Sprintf("Restaurant %d", id)}, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	err    error
	events []event.OrderEvent
}

func (m *mockPublisher) Publish(_ context.Context, evt event.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)

	return m.err
}

type mockHistory struct {
	entries []history.Entry
}

func (m *mockHistory) Insert(_ context.Context, entry history.Entry) (bool, error) {
	m.entries = append(m.entries, entry)

	return true, nil
}

func (m *mockHistory) ListByOrder(_ context.Context, orderID int64) ([]history.Entry, error) {
	result := make([]history.Entry, 0)
	for _, e := range m.entries {
		if e.OrderID == orderID {
			result = append(result, e)
		}
	}

	return result, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}

	return false
}
