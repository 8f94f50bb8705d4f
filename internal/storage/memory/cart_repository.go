package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

// CartRepository — in-memory реализация хранилища корзин.
type CartRepository struct {
	mu         sync.RWMutex
	carts      map[int64]domain.Cart
	items      map[int64]domain.CartItem
	nextCartID int64
	nextItemID int64
}

// NewCartRepository возвращает пустое in-memory хранилище корзин.
func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts: make(map[int64]domain.Cart),
		items: make(map[int64]domain.CartItem),
	}
}

// GetActive возвращает последнюю активную корзину пользователя или ErrCartNotFound.
func (r *CartRepository) GetActive(_ context.Context, userID int64) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found  bool
		latest domain.Cart
	)
	for _, cart := range r.carts {
		if cart.UserID != userID || cart.Status != domain.CartStatusActive {
			continue
		}
		if !found || cart.CreatedAt.After(latest.CreatedAt) ||
			(cart.CreatedAt.Equal(latest.CreatedAt) && cart.ID > latest.ID) {
			latest = cart
			found = true
		}
	}
	if !found {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return latest, nil
}

// Create создаёт новую активную корзину пользователя.
func (r *CartRepository) Create(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextCartID++
	cart := domain.Cart{
		ID:        r.nextCartID,
		UserID:    userID,
		Status:    domain.CartStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	r.carts[cart.ID] = cart
	return cart.ID, nil
}

// Items возвращает позиции корзины в порядке добавления.
func (r *CartRepository) Items(_ context.Context, cartID int64) ([]domain.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.CartItem, 0)
	for _, item := range r.items {
		if item.CartID == cartID {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// FindItem ищет позицию по товару или возвращает ErrCartItemNotFound.
func (r *CartRepository) FindItem(_ context.Context, cartID, productID int64) (domain.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.CartID == cartID && item.ProductID == productID {
			return item, nil
		}
	}
	return domain.CartItem{}, domain.ErrCartItemNotFound
}

// InsertItem добавляет позицию и возвращает её идентификатор. Повтор товара
// в одной корзине отклоняется так же, как unique constraint в PostgreSQL.
func (r *CartRepository) InsertItem(_ context.Context, item domain.CartItem) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			return 0, domain.ErrCartItemExists
		}
	}

	r.nextItemID++
	item.ID = r.nextItemID
	r.items[item.ID] = item
	return item.ID, nil
}

// UpdateItemQuantity меняет количество позиции или возвращает ErrCartItemNotFound.
func (r *CartRepository) UpdateItemQuantity(_ context.Context, itemID int64, quantity int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok {
		return domain.ErrCartItemNotFound
	}
	item.Quantity = quantity
	r.items[itemID] = item
	return nil
}

// RemoveItem удаляет позицию или возвращает ErrCartItemNotFound.
func (r *CartRepository) RemoveItem(_ context.Context, itemID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[itemID]; !ok {
		return domain.ErrCartItemNotFound
	}
	delete(r.items, itemID)
	return nil
}

// Clear удаляет все позиции корзины.
func (r *CartRepository) Clear(_ context.Context, cartID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, item := range r.items {
		if item.CartID == cartID {
			delete(r.items, id)
		}
	}
	return nil
}

// convertActive переводит активную корзину в converted. Возвращает false,
// если корзины нет или она уже converted, как `UPDATE ... WHERE status='active'`.
func (r *CartRepository) convertActive(cartID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[cartID]
	if !ok || cart.Status != domain.CartStatusActive {
		return false
	}
	cart.Status = domain.CartStatusConverted
	r.carts[cartID] = cart
	return true
}

// Status возвращает состояние корзины; используется в тестах.
func (r *CartRepository) Status(cartID int64) (domain.CartStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[cartID]
	if !ok {
		return "", false
	}
	return cart.Status, true
}

var _ domain.CartRepository = (*CartRepository)(nil)
