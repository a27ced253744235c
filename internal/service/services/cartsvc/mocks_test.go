package cartsvc

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/icartrepo"
	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/corray333/backend-labs/ordering/internal/service/models/cartline"
)

type mockCartRepo struct {
	mu     sync.Mutex
	lines  map[int64]cartline.CartLine
	nextID int64
}

func newMockCartRepo(lines ...cartline.CartLine) *mockCartRepo {
	r := &mockCartRepo{lines: make(map[int64]cartline.CartLine)}
	for _, l := range lines {
		r.lines[l.ID] = l
		if l.ID > r.nextID {
			r.nextID = l.ID
		}
	}

	return r
}

func (r *mockCartRepo) GetByID(_ context.Context, id int64) (cartline.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lines[id]
	if !ok {
		return cartline.CartLine{}, fmt.Errorf("%w: line %d", apperr.ErrCartNotFound, id)
	}

	return l, nil
}

func (r *mockCartRepo) FindByTuple(_ context.Context, userID, foodItemID, restaurantID int64) (cartline.CartLine, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l.UserID == userID && l.FoodItemID == foodItemID && l.RestaurantID == restaurantID {
			return l, true, nil
		}
	}

	return cartline.CartLine{}, false, nil
}

func (r *mockCartRepo) Query(_ context.Context, filter *cartline.QueryCartLinesModel) ([]cartline.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]cartline.CartLine, 0)
	for _, l := range r.lines {
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

func (r *mockCartRepo) Insert(_ context.Context, line cartline.CartLine) (cartline.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	line.ID = r.nextID
	r.lines[line.ID] = line

	return line, nil
}

func (r *mockCartRepo) Update(_ context.Context, line cartline.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lines[line.ID]; !ok {
		return apperr.ErrCartNotFound
	}
	r.lines[line.ID] = line

	return nil
}

func (r *mockCartRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lines[id]; !ok {
		return false, nil
	}
	delete(r.lines, id)

	return true, nil
}

func (r *mockCartRepo) DeleteByUserRestaurant(_ context.Context, userID, restaurantID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, l := range r.lines {
		if l.UserID == userID && l.RestaurantID == restaurantID {
			delete(r.lines, id)
			removed++
		}
	}

	return removed, nil
}

type mockUOW struct {
	repo *mockCartRepo
}

func (u *mockUOW) Begin(context.Context) error                { return nil }
func (u *mockUOW) Commit(context.Context) error               { return nil }
func (u *mockUOW) Rollback(context.Context) error             { return nil }
func (u *mockUOW) CartRepository() icartrepo.ICartRepository { return u.repo }

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}

	return false
}
