package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/icartrepo"
	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/ordering/internal/dal/postgres"
	cartrepo "github.com/corray333/backend-labs/ordering/internal/dal/repositories/cart/postgres"
	orderrepo "github.com/corray333/backend-labs/ordering/internal/dal/repositories/order/postgres"
	"github.com/jackc/pgx/v5"
)

type unitOfWork struct {
	client    *postgres.Client
	tx        pgx.Tx
	cartRepo  icartrepo.ICartRepository
	orderRepo iorderrepo.IOrderRepository
}

func (u *unitOfWork) CartRepository() icartrepo.ICartRepository {
	return u.cartRepo
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

// NewUnitOfWork creates repositories bound to the pool. After Begin they are
// rebound to the transaction.
func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	return &unitOfWork{
		client:    client,
		cartRepo:  cartrepo.NewCartRepository(client.Pool()),
		orderRepo: orderrepo.NewOrderRepository(client.Pool()),
	}
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.client.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.cartRepo = cartrepo.NewCartRepository(tx)
	u.orderRepo = orderrepo.NewOrderRepository(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

// Rollback is a no-op after a successful commit.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}

	return nil
}
