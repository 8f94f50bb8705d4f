package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

// OrderStore — in-memory реализация транзакционного хранилища заказов.
// Один мьютекс на всё хранилище линеаризует конкурентные смены статуса так же,
// как это делает блокировка строки заказа в PostgreSQL.
type OrderStore struct {
	mu          sync.Mutex
	orders      map[int64]domain.Order
	catalog     *CatalogRepository
	carts       *CartRepository
	nextOrderID int64
	nextLineID  int64
}

// NewOrderStore создаёт in-memory хранилище заказов поверх каталога и корзин.
func NewOrderStore(catalog *CatalogRepository, carts *CartRepository) *OrderStore {
	return &OrderStore{
		orders:  make(map[int64]domain.Order),
		catalog: catalog,
		carts:   carts,
	}
}

// CreateFromCart сохраняет заказ с позициями и помечает корзину converted.
// Неактивная или отсутствующая корзина отклоняется с ErrCartNotFound,
// и заказ не создаётся — та же атомарность, что у PostgreSQL-реализации.
func (s *OrderStore) CreateFromCart(ctx context.Context, order domain.Order, cartID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.carts != nil && !s.carts.convertActive(cartID) {
		return 0, domain.ErrCartNotFound
	}

	s.nextOrderID++
	order.ID = s.nextOrderID
	order.CartID = cartID

	lines := make([]domain.OrderLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		s.nextLineID++
		line.ID = s.nextLineID
		line.OrderID = order.ID
		lines = append(lines, line)
	}
	order.Lines = lines

	s.orders[order.ID] = order
	return order.ID, nil
}

// WithLockedOrder выполняет fn под мьютексом хранилища. Мутации статуса и
// остатков накапливаются в транзакционном view и применяются только после
// успешного завершения fn, имитируя commit/rollback.
func (s *OrderStore) WithLockedOrder(ctx context.Context, orderID int64, fn func(tx domain.OrderTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}

	tx := &orderTx{store: s, order: order, stock: make(map[int64]int32)}
	if err := fn(tx); err != nil {
		return err
	}

	// Commit: сначала заказ, затем накопленные остатки.
	s.orders[orderID] = tx.order
	for productID, stock := range tx.stock {
		s.catalog.setStock(productID, stock)
	}
	return nil
}

// Get возвращает заказ с позициями или ErrOrderNotFound.
func (s *OrderStore) Get(ctx context.Context, id int64) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (s *OrderStore) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Order, 0)
	for _, order := range s.orders {
		if order.UserID == userID {
			result = append(result, cloneOrder(order))
		}
	}
	sortOrdersNewestFirst(result)
	return result, nil
}

// ListAll возвращает все заказы, новые первыми.
func (s *OrderStore) ListAll(ctx context.Context) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		result = append(result, cloneOrder(order))
	}
	sortOrdersNewestFirst(result)
	return result, nil
}

// orderTx — транзакционный view одного заказа; живёт под s.mu.
type orderTx struct {
	store *OrderStore
	order domain.Order
	// stock накапливает изменённые остатки до commit.
	stock map[int64]int32
}

func (tx *orderTx) Status() domain.OrderStatus {
	return tx.order.Status
}

func (tx *orderTx) SetStatus(status domain.OrderStatus) error {
	tx.order.Status = status
	return nil
}

func (tx *orderTx) Lines() ([]domain.OrderLine, error) {
	lines := make([]domain.OrderLine, len(tx.order.Lines))
	copy(lines, tx.order.Lines)
	return lines, nil
}

func (tx *orderTx) AdjustStock(productID int64, fn func(current int32) int32) error {
	current, ok := tx.stock[productID]
	if !ok {
		var exists bool
		current, exists = tx.store.catalog.stockOf(productID)
		if !exists {
			// Товар удалён из каталога: смена статуса его пропускает.
			return nil
		}
	}

	next := fn(current)
	if next != current {
		tx.stock[productID] = next
	}
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	order.Lines = lines
	return order
}

func sortOrdersNewestFirst(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

var _ domain.OrderStore = (*OrderStore)(nil)
var _ domain.OrderTx = (*orderTx)(nil)
