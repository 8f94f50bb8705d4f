package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCartNotFound возвращается, если у пользователя нет активной корзины.
	ErrCartNotFound = errors.New("active cart not found")
	// ErrCartEmpty — попытка оформить заказ из корзины без позиций.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrCartItemNotFound — позиция корзины не найдена.
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrCartItemExists — позиция с таким товаром уже есть в корзине.
	ErrCartItemExists = errors.New("cart item already exists")
	// ErrProductNotFound — товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound — категория не найдена.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrInvalidStatus — статус заказа вне множества pending/paid/cancelled.
	ErrInvalidStatus = errors.New("invalid order status")
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка отрицательной суммы заказа.
	ErrTotalNegative = errors.New("total_minor must be non-negative")
	// Ошибка некорректного количества в позиции (<= 0).
	ErrLineQuantityInvalid = errors.New("line quantity must be greater than zero")
	// Ошибка отрицательной цены позиции.
	ErrLinePriceInvalid = errors.New("line unit price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match lines sum")
	// Ошибки валидации каталога.
	ErrProductNameRequired  = errors.New("product name is required")
	ErrProductPriceInvalid  = errors.New("product price must be non-negative")
	ErrProductStockInvalid  = errors.New("product stock must be non-negative")
	ErrCategoryNameRequired = errors.New("category name is required")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound сообщает, является ли ошибка одним из «не найдено»-сигналов домена.
// Обработчики API используют её для маппинга в 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrCartItemNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCategoryNotFound)
}

// IsValidation сообщает, является ли ошибка нарушением входных инвариантов.
// Обработчики API используют её для маппинга в 400.
func IsValidation(err error) bool {
	validation := []error{
		ErrCartEmpty,
		ErrCartItemExists,
		ErrInvalidStatus,
		ErrUserRequired,
		ErrLinesRequired,
		ErrTotalNegative,
		ErrLineQuantityInvalid,
		ErrLinePriceInvalid,
		ErrTotalMismatch,
		ErrProductNameRequired,
		ErrProductPriceInvalid,
		ErrProductStockInvalid,
		ErrCategoryNameRequired,
	}
	for _, sentinel := range validation {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
