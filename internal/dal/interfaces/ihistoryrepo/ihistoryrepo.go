package ihistoryrepo

import (
	"context"

	"github.com/corray333/backend-labs/ordering/internal/service/models/history"
)

// IHistoryRepository is an interface for the order status history repository.
type IHistoryRepository interface {
	// Insert records an entry; an entry whose event was already recorded is
	// ignored and reported as not inserted.
	Insert(ctx context.Context, entry history.Entry) (bool, error)
	ListByOrder(ctx context.Context, orderID int64) ([]history.Entry, error)
}
