package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

func (r *cartRepository) GetActive(ctx context.Context, userID int64) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var cart domain.Cart
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, created_at
		FROM carts
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID).Scan(&cart.ID, &cart.UserID, &status, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select active cart: %w", err)
	}
	cart.Status = domain.CartStatus(status)
	return cart, nil
}

func (r *cartRepository) Create(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO carts (user_id, status, created_at)
		VALUES ($1, 'active', $2)
		RETURNING id
	`, userID, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert cart: %w", err)
	}
	return id, nil
}

func (r *cartRepository) Items(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.cart_id, i.product_id, i.quantity, i.unit_price_minor,
		       COALESCE(p.name, ''), COALESCE(p.image_url, '')
		FROM cart_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.cart_id = $1
		ORDER BY i.id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
			&item.UnitPriceMinor, &item.ProductName, &item.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}

func (r *cartRepository) FindItem(ctx context.Context, cartID, productID int64) (domain.CartItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var item domain.CartItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, cart_id, product_id, quantity, unit_price_minor
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`, cartID, productID).Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.UnitPriceMinor,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CartItem{}, domain.ErrCartItemNotFound
		}
		return domain.CartItem{}, fmt.Errorf("find cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) InsertItem(ctx context.Context, item domain.CartItem) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity, unit_price_minor, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, item.CartID, item.ProductID, item.Quantity, item.UnitPriceMinor, time.Now().UTC()).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrCartItemExists
		}
		return 0, fmt.Errorf("insert cart item: %w", err)
	}
	return id, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID int64, quantity int32) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = $2 WHERE id = $1
	`, itemID, quantity)
	if err != nil {
		return fmt.Errorf("update cart item quantity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cart item rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, itemID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cart item rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, cartID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
