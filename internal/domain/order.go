package domain

import "time"

// OrderStatus описывает жизненный цикл заказа в магазине.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан при checkout, оплата ещё не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — оплата подтверждена, товар списан со склада.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCancelled — заказ отменён; если он был оплачен, товар возвращён на склад.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid сообщает, является ли значение одним из трёх допустимых статусов.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}

// CartLine — снимок позиции корзины, передаваемый в создание заказа.
// Цена зафиксирована на момент добавления в корзину и не перечитывается из каталога.
type CartLine struct {
	ProductID int64
	Quantity  int32
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах (центах).
	UnitPriceMinor int64
}

// OrderLine представляет одну позицию заказа. Создаётся вместе с заказом
// и после этого не изменяется.
type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int32
	// UnitPriceMinor — снимок цены на момент оформления заказа.
	UnitPriceMinor int64
	// ProductName и ImageURL заполняются join-ом с каталогом только в представлениях для API.
	ProductName string
	ImageURL    string
}

// Order агрегирует состояние заказа и его позиции.
// После создания меняется только Status; заказы никогда не удаляются.
type Order struct {
	ID     int64
	UserID int64
	CartID int64
	// TotalMinor равен сумме quantity*unitPrice по позициям на момент создания
	// и никогда не пересчитывается.
	TotalMinor    int64
	Status        OrderStatus
	CustomerName  string
	CustomerEmail string
	CreatedAt     time.Time
	Lines         []OrderLine
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID <= 0 {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrTotalNegative)
	}

	// Сверяем сумму заказа с суммой позиций: quantity * unitPrice.
	var calc int64
	for _, line := range o.Lines {
		if line.Quantity <= 0 {
			errs = append(errs, ErrLineQuantityInvalid)
		}
		if line.UnitPriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
		calc += int64(line.Quantity) * line.UnitPriceMinor
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
