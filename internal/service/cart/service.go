// Package cart реализует работу с корзиной покупателя: до checkout
// позиции редактируются, цена товара фиксируется в момент добавления.
package cart

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

// Service инкапсулирует бизнес-логику корзины.
type Service struct {
	carts   domain.CartRepository
	catalog domain.CatalogRepository
	logger  *log.Entry
}

// NewService создаёт сервис корзины.
func NewService(carts domain.CartRepository, catalog domain.CatalogRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		carts:   carts,
		catalog: catalog,
		logger:  logger.WithField("component", "cart_service"),
	}
}

// CartView — корзина вместе с позициями и итогами для отдачи наружу.
type CartView struct {
	Cart   domain.Cart
	Items  []domain.CartItem
	Totals domain.Totals
}

// GetOrCreateActive возвращает активную корзину пользователя,
// создавая новую, если активной нет.
func (s *Service) GetOrCreateActive(ctx context.Context, userID int64) (CartView, error) {
	if userID <= 0 {
		return CartView{}, domain.ErrUserRequired
	}

	cart, err := s.carts.GetActive(ctx, userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		id, createErr := s.carts.Create(ctx, userID)
		if createErr != nil {
			return CartView{}, fmt.Errorf("create cart: %w", createErr)
		}
		s.logger.WithFields(log.Fields{"user_id": userID, "cart_id": id}).Debug("создана новая корзина")
		cart, err = s.carts.GetActive(ctx, userID)
	}
	if err != nil {
		return CartView{}, fmt.Errorf("get active cart: %w", err)
	}

	return s.view(ctx, cart)
}

// AddItem добавляет товар в активную корзину пользователя. Цена берётся из
// каталога и фиксируется в позиции. Повторное добавление того же товара
// увеличивает количество существующей позиции, а не создаёт новую.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, quantity int32) (CartView, error) {
	if quantity <= 0 {
		return CartView{}, domain.ErrLineQuantityInvalid
	}

	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return CartView{}, fmt.Errorf("load product: %w", err)
	}

	view, err := s.GetOrCreateActive(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	cart := view.Cart

	existing, err := s.carts.FindItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		if err := s.carts.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+quantity); err != nil {
			return CartView{}, fmt.Errorf("merge cart item: %w", err)
		}
	case errors.Is(err, domain.ErrCartItemNotFound):
		_, err = s.carts.InsertItem(ctx, domain.CartItem{
			CartID:         cart.ID,
			ProductID:      productID,
			Quantity:       quantity,
			UnitPriceMinor: product.PriceMinor,
		})
		if errors.Is(err, domain.ErrCartItemExists) {
			// Конкурентное добавление того же товара: сливаем количество.
			existing, findErr := s.carts.FindItem(ctx, cart.ID, productID)
			if findErr != nil {
				return CartView{}, fmt.Errorf("find cart item after conflict: %w", findErr)
			}
			err = s.carts.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+quantity)
		}
		if err != nil {
			return CartView{}, fmt.Errorf("insert cart item: %w", err)
		}
	default:
		return CartView{}, fmt.Errorf("find cart item: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"user_id":    userID,
		"cart_id":    cart.ID,
		"product_id": productID,
		"quantity":   quantity,
	}).Debug("товар добавлен в корзину")

	return s.view(ctx, cart)
}

// UpdateItemQuantity меняет количество позиции. Нулевое и отрицательное
// количество трактуется как удаление позиции.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int32) (CartView, error) {
	cart, item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return CartView{}, err
	}

	if quantity <= 0 {
		if err := s.carts.RemoveItem(ctx, item.ID); err != nil {
			return CartView{}, fmt.Errorf("remove cart item: %w", err)
		}
		return s.view(ctx, cart)
	}

	if err := s.carts.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return CartView{}, fmt.Errorf("update cart item: %w", err)
	}
	return s.view(ctx, cart)
}

// RemoveItem удаляет позицию из активной корзины пользователя.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) (CartView, error) {
	cart, item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return CartView{}, err
	}
	if err := s.carts.RemoveItem(ctx, item.ID); err != nil {
		return CartView{}, fmt.Errorf("remove cart item: %w", err)
	}
	return s.view(ctx, cart)
}

// Clear удаляет все позиции активной корзины.
func (s *Service) Clear(ctx context.Context, userID int64) (CartView, error) {
	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return CartView{}, fmt.Errorf("get active cart: %w", err)
	}
	if err := s.carts.Clear(ctx, cart.ID); err != nil {
		return CartView{}, fmt.Errorf("clear cart: %w", err)
	}
	return s.view(ctx, cart)
}

// CheckoutSnapshot возвращает активную корзину и снимок её позиций для
// создания заказа. Пустая корзина — ошибка ErrCartEmpty: заказ без позиций
// не создаётся.
func (s *Service) CheckoutSnapshot(ctx context.Context, userID int64) (domain.Cart, []domain.CartLine, error) {
	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return domain.Cart{}, nil, fmt.Errorf("get active cart: %w", err)
	}
	items, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return domain.Cart{}, nil, fmt.Errorf("load cart items: %w", err)
	}
	if len(items) == 0 {
		return domain.Cart{}, nil, domain.ErrCartEmpty
	}
	return cart, domain.SnapshotCartItems(items), nil
}

// ownedItem проверяет, что позиция принадлежит активной корзине пользователя.
// Чужие и несуществующие позиции неразличимы для вызывающего.
func (s *Service) ownedItem(ctx context.Context, userID, itemID int64) (domain.Cart, domain.CartItem, error) {
	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return domain.Cart{}, domain.CartItem{}, fmt.Errorf("get active cart: %w", err)
	}
	items, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return domain.Cart{}, domain.CartItem{}, fmt.Errorf("load cart items: %w", err)
	}
	for _, item := range items {
		if item.ID == itemID {
			return cart, item, nil
		}
	}
	return domain.Cart{}, domain.CartItem{}, domain.ErrCartItemNotFound
}

func (s *Service) view(ctx context.Context, cart domain.Cart) (CartView, error) {
	items, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return CartView{}, fmt.Errorf("load cart items: %w", err)
	}
	return CartView{
		Cart:   cart,
		Items:  items,
		Totals: domain.CalculateTotals(domain.SnapshotCartItems(items)),
	}, nil
}
