package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

const (
	opTimeout = 5 * time.Second
	txTimeout = 10 * time.Second
)

type orderStore struct {
	db *sql.DB
}

// NewOrderStore создаёт PostgreSQL-реализацию OrderStore.
func NewOrderStore(store *Store) domain.OrderStore {
	return &orderStore{db: store.DB()}
}

// CreateFromCart вставляет заказ с позициями и помечает корзину converted
// в одной транзакции. Любая ошибка откатывает все три записи.
func (s *orderStore) CreateFromCart(ctx context.Context, order domain.Order, cartID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var orderID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, cart_id, total_minor, status, customer_name, customer_email, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`,
		order.UserID, cartID, order.TotalMinor, string(order.Status),
		order.CustomerName, order.CustomerEmail, order.CreatedAt,
	).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, product_name, quantity, unit_price_minor)
			VALUES ($1,$2,$3,$4,$5)
		`,
			orderID, line.ProductID, line.ProductName, line.Quantity, line.UnitPriceMinor,
		); err != nil {
			return 0, fmt.Errorf("insert order line: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE carts SET status = 'converted' WHERE id = $1 AND status = 'active'
	`, cartID)
	if err != nil {
		return 0, fmt.Errorf("convert cart: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("convert cart rows affected: %w", err)
	}
	if affected == 0 {
		err = domain.ErrCartNotFound
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create order: %w", err)
	}

	return orderID, nil
}

// WithLockedOrder выполняет fn внутри транзакции, удерживая FOR UPDATE
// блокировку строки заказа. Конкурентные смены статуса одного заказа
// сериализуются на этой блокировке.
func (s *orderStore) WithLockedOrder(ctx context.Context, orderID int64, fn func(tx domain.OrderTx) error) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrOrderNotFound
			return err
		}
		return fmt.Errorf("lock order row: %w", err)
	}

	view := &orderTx{ctx: ctx, tx: tx, orderID: orderID, status: domain.OrderStatus(status)}
	if err = fn(view); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit order update: %w", err)
	}
	return nil
}

// orderTx — транзакционный view заказа под блокировкой строки.
type orderTx struct {
	ctx     context.Context
	tx      *sql.Tx
	orderID int64
	status  domain.OrderStatus
}

func (t *orderTx) Status() domain.OrderStatus {
	return t.status
}

func (t *orderTx) SetStatus(status domain.OrderStatus) error {
	if _, err := t.tx.ExecContext(t.ctx, `
		UPDATE orders SET status = $2 WHERE id = $1
	`, t.orderID, string(status)); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	t.status = status
	return nil
}

func (t *orderTx) Lines() ([]domain.OrderLine, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price_minor
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id
	`, t.orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID,
			&line.ProductName, &line.Quantity, &line.UnitPriceMinor,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

// AdjustStock блокирует строку товара, читает остаток и пишет fn(current).
// Отсутствующий товар пропускается без ошибки.
func (t *orderTx) AdjustStock(productID int64, fn func(current int32) int32) error {
	var current int32
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT stock FROM products WHERE id = $1 FOR UPDATE
	`, productID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("lock product row: %w", err)
	}

	newStock := fn(current)
	if newStock == current {
		return nil
	}

	if _, err := t.tx.ExecContext(t.ctx, `
		UPDATE products SET stock = $2 WHERE id = $1
	`, productID, newStock); err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}
	return nil
}

// Get возвращает заказ с позициями или ErrOrderNotFound.
func (s *orderStore) Get(ctx context.Context, id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var order domain.Order
	var status string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, COALESCE(cart_id, 0), total_minor, status, customer_name, customer_email, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.UserID, &order.CartID, &order.TotalMinor,
		&status, &order.CustomerName, &order.CustomerEmail, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)

	lines, err := s.loadLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines

	return order, nil
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (s *orderStore) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.list(ctx, `WHERE user_id = $1`, userID)
}

// ListAll возвращает все заказы, новые первыми.
func (s *orderStore) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.list(ctx, ``)
}

func (s *orderStore) list(ctx context.Context, where string, args ...any) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, user_id, COALESCE(cart_id, 0), total_minor, status, customer_name, customer_email, created_at
		FROM orders ` + where + `
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		var status string
		if err := rows.Scan(
			&order.ID, &order.UserID, &order.CartID, &order.TotalMinor,
			&status, &order.CustomerName, &order.CustomerEmail, &order.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order.Status = domain.OrderStatus(status)

		lines, err := s.loadLines(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

// loadLines подтягивает image_url живого товара; имя берётся из снимка.
func (s *orderStore) loadLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.order_id, l.product_id, l.product_name, l.quantity, l.unit_price_minor,
		       COALESCE(p.image_url, '')
		FROM order_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1
		ORDER BY l.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID, &line.ProductName,
			&line.Quantity, &line.UnitPriceMinor, &line.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return lines, nil
}

var _ domain.OrderStore = (*orderStore)(nil)
var _ domain.OrderTx = (*orderTx)(nil)
