package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/ordering/internal/dal/postgres"
	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/corray333/backend-labs/ordering/internal/service/models/cartline"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var cartColumns = []string{
	"id",
	"user_id",
	"food_item_id",
	"restaurant_id",
	"quantity",
	"line_total_price::text",
	"created_at",
	"updated_at",
}

// CartLineDal represents cart line data access layer model.
type CartLineDal struct {
	Id             int64     `db:"id"`
	UserId         int64     `db:"user_id"`
	FoodItemId     int64     `db:"food_item_id"`
	RestaurantId   int64     `db:"restaurant_id"`
	Quantity       int       `db:"quantity"`
	LineTotalPrice string    `db:"line_total_price"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// ToModel converts CartLineDal to service layer CartLine model.
func (c *CartLineDal) ToModel() (cartline.CartLine, error) {
	total, err := decimal.NewFromString(c.LineTotalPrice)
	if err != nil {
		return cartline.CartLine{}, fmt.Errorf("failed to parse line total price %q: %w", c.LineTotalPrice, err)
	}

	return cartline.CartLine{
		ID:             c.Id,
		UserID:         c.UserId,
		FoodItemID:     c.FoodItemId,
		RestaurantID:   c.RestaurantId,
		Quantity:       c.Quantity,
		LineTotalPrice: total,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}, nil
}

// CartLineDalFromModel converts service layer CartLine model to CartLineDal.
func CartLineDalFromModel(l cartline.CartLine) CartLineDal {
	return CartLineDal{
		Id:             l.ID,
		UserId:         l.UserID,
		FoodItemId:     l.FoodItemID,
		RestaurantId:   l.RestaurantID,
		Quantity:       l.Quantity,
		LineTotalPrice: l.LineTotalPrice.String(),
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func (c *CartLineDal) scanTargets() []any {
	return []any{
		&c.Id,
		&c.UserId,
		&c.FoodItemId,
		&c.RestaurantId,
		&c.Quantity,
		&c.LineTotalPrice,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}

// CartRepository represents a Postgres cart line repository.
type CartRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewCartRepository creates a new Postgres cart line repository.
func NewCartRepository(conn postgres.GenericConn) *CartRepository {
	return &CartRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// GetByID returns the cart line with the given id.
func (r *CartRepository) GetByID(ctx context.Context, id int64) (cartline.CartLine, error) {
	lines, err := r.Query(ctx, &cartline.QueryCartLinesModel{Ids: []int64{id}})
	if err != nil {
		return cartline.CartLine{}, err
	}
	if len(lines) == 0 {
		return cartline.CartLine{}, fmt.Errorf("%w: line %d", apperr.ErrCartNotFound, id)
	}

	return lines[0], nil
}

// FindByTuple returns the line of the (user, food item, restaurant) tuple.
func (r *CartRepository) FindByTuple(
	ctx context.Context,
	userID, foodItemID, restaurantID int64,
) (cartline.CartLine, bool, error) {
	sql, args, err := r.sb.
		Select(cartColumns...).
		From("cart_lines").
		Where(sq.Eq{
			"user_id":       userID,
			"food_item_id":  foodItemID,
			"restaurant_id": restaurantID,
		}).
		ToSql()
	if err != nil {
		return cartline.CartLine{}, false, fmt.Errorf("failed to build query: %w", err)
	}

	var dal CartLineDal
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(dal.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cartline.CartLine{}, false, nil
		}

		return cartline.CartLine{}, false, fmt.Errorf("failed to query cart line: %w", err)
	}

	line, err := dal.ToModel()
	if err != nil {
		return cartline.CartLine{}, false, err
	}

	return line, true, nil
}

// Query retrieves cart lines based on filter criteria.
func (r *CartRepository) Query(
	ctx context.Context,
	filter *cartline.QueryCartLinesModel,
) ([]cartline.CartLine, error) {
	query := r.sb.
		Select(cartColumns...).
		From("cart_lines").
		OrderBy("id ASC")

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"id": filter.Ids})
	}

	if len(filter.UserIds) > 0 {
		query = query.Where(sq.Eq{"user_id": filter.UserIds})
	}

	if len(filter.RestaurantIds) > 0 {
		query = query.Where(sq.Eq{"restaurant_id": filter.RestaurantIds})
	}

	if len(filter.FoodItemIds) > 0 {
		query = query.Where(sq.Eq{"food_item_id": filter.FoodItemIds})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	result := make([]cartline.CartLine, 0)
	for rows.Next() {
		var dal CartLineDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}

		line, err := dal.ToModel()
		if err != nil {
			return nil, err
		}
		result = append(result, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Insert inserts a new cart line and returns it with its id.
func (r *CartRepository) Insert(ctx context.Context, line cartline.CartLine) (cartline.CartLine, error) {
	dal := CartLineDalFromModel(line)

	sql, args, err := r.sb.
		Insert("cart_lines").
		Columns(
			"user_id",
			"food_item_id",
			"restaurant_id",
			"quantity",
			"line_total_price",
			"created_at",
			"updated_at",
		).
		Values(
			dal.UserId,
			dal.FoodItemId,
			dal.RestaurantId,
			dal.Quantity,
			sq.Expr("?::numeric", dal.LineTotalPrice),
			dal.CreatedAt,
			dal.UpdatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return cartline.CartLine{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&line.ID); err != nil {
		return cartline.CartLine{}, fmt.Errorf("failed to insert cart line: %w", err)
	}

	return line, nil
}

// Update stores the quantity and line total of an existing line.
func (r *CartRepository) Update(ctx context.Context, line cartline.CartLine) error {
	dal := CartLineDalFromModel(line)

	sql, args, err := r.sb.
		Update("cart_lines").
		Set("quantity", dal.Quantity).
		Set("line_total_price", sq.Expr("?::numeric", dal.LineTotalPrice)).
		Set("updated_at", dal.UpdatedAt).
		Where(sq.Eq{"id": dal.Id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: line %d", apperr.ErrCartNotFound, line.ID)
	}

	return nil
}

// Delete removes a cart line and reports whether it existed.
func (r *CartRepository) Delete(ctx context.Context, id int64) (bool, error) {
	sql, args, err := r.sb.
		Delete("cart_lines").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build delete query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete cart line: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// DeleteByUserRestaurant removes every line of the user for the restaurant
// and returns the number of removed lines.
func (r *CartRepository) DeleteByUserRestaurant(
	ctx context.Context,
	userID, restaurantID int64,
) (int64, error) {
	sql, args, err := r.sb.
		Delete("cart_lines").
		Where(sq.Eq{"user_id": userID, "restaurant_id": restaurantID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}

	return tag.RowsAffected(), nil
}
