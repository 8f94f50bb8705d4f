package domain

import "time"

// CartStatus описывает состояние корзины.
type CartStatus string

const (
	// CartStatusActive — корзина редактируется покупателем.
	CartStatusActive CartStatus = "active"
	// CartStatusConverted — из корзины создан заказ, повторный checkout невозможен.
	CartStatusConverted CartStatus = "converted"
)

// Cart — редактируемый до checkout набор позиций покупателя.
// У пользователя одновременно не больше одной активной корзины.
type Cart struct {
	ID        int64
	UserID    int64
	Status    CartStatus
	CreatedAt time.Time
}

// CartItem — позиция корзины. Цена снимается с каталога в момент добавления.
type CartItem struct {
	ID        int64
	CartID    int64
	ProductID int64
	Quantity  int32
	// UnitPriceMinor — зафиксированная цена; изменение каталога её не трогает.
	UnitPriceMinor int64
	// ProductName и ImageURL — read-only поля из join-а с каталогом.
	ProductName string
	ImageURL    string
}

// Snapshot переводит позицию корзины в снимок для создания заказа.
func (i CartItem) Snapshot() CartLine {
	return CartLine{
		ProductID:      i.ProductID,
		Quantity:       i.Quantity,
		UnitPriceMinor: i.UnitPriceMinor,
	}
}

// SnapshotCartItems переводит все позиции корзины в снимки.
func SnapshotCartItems(items []CartItem) []CartLine {
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.Snapshot())
	}
	return lines
}
