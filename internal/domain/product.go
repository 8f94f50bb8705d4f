package domain

import "time"

// Product — позиция каталога. Колонкой Stock владеет каталог; жизненный цикл
// заказа изменяет её только под блокировкой строки при смене статуса.
type Product struct {
	ID          int64
	Name        string
	Description string
	// PriceMinor — текущая цена каталога; заказы хранят собственный снимок цены.
	PriceMinor int64
	ImageURL   string
	// Stock — доступный остаток, всегда >= 0.
	Stock      int32
	CategoryID int64
	// CategoryName заполняется join-ом в выборках.
	CategoryName string
	Active       bool
	CreatedAt    time.Time
}

// Category — раздел каталога.
type Category struct {
	ID          int64
	Name        string
	Description string
	Active      bool
}

// ProductFilter задаёт необязательные фильтры выборки каталога.
type ProductFilter struct {
	// CategoryID > 0 ограничивает выборку категорией.
	CategoryID int64
	// Search фильтрует по подстроке в имени или описании.
	Search string
}

// ValidateProduct проверяет поля товара перед записью в каталог.
func ValidateProduct(p Product) []error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrProductPriceInvalid)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrProductStockInvalid)
	}
	return errs
}
