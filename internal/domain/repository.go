package domain

import "context"

// OrderStore описывает требования к транзакционному хранилищу заказов.
type OrderStore interface {
	// CreateFromCart атомарно вставляет заказ с позициями и помечает исходную
	// корзину как converted. Возвращает идентификатор нового заказа.
	// При любой ошибке ни одна из трёх записей не сохраняется.
	CreateFromCart(ctx context.Context, order Order, cartID int64) (int64, error)
	// WithLockedOrder выполняет fn внутри транзакции, удерживая эксклюзивную
	// блокировку строки заказа на всё время read-decide-write последовательности.
	// Возвращает ErrOrderNotFound, если заказа нет; ошибка fn откатывает транзакцию.
	WithLockedOrder(ctx context.Context, orderID int64, fn func(tx OrderTx) error) error
	// Get возвращает заказ с позициями или ErrOrderNotFound.
	Get(ctx context.Context, id int64) (Order, error)
	// ListByUser возвращает заказы пользователя, новые первыми.
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	// ListAll возвращает все заказы, новые первыми (административная выборка).
	ListAll(ctx context.Context) ([]Order, error)
}

// OrderTx — view заказа внутри транзакции WithLockedOrder.
// Все мутации фиксируются или откатываются вместе.
type OrderTx interface {
	// Status возвращает статус, прочитанный под блокировкой строки заказа.
	Status() OrderStatus
	// SetStatus записывает новый статус заказа.
	SetStatus(status OrderStatus) error
	// Lines возвращает позиции заказа.
	Lines() ([]OrderLine, error)
	// AdjustStock блокирует строку товара, читает остаток и записывает
	// fn(current), если значение изменилось. Отсутствующий товар пропускается:
	// смена статуса оплаты не должна падать из-за удалённой позиции каталога.
	AdjustStock(productID int64, fn func(current int32) int32) error
}

// CartRepository описывает хранилище корзин.
type CartRepository interface {
	// GetActive возвращает активную корзину пользователя или ErrCartNotFound.
	GetActive(ctx context.Context, userID int64) (Cart, error)
	// Create создаёт новую активную корзину и возвращает её идентификатор.
	Create(ctx context.Context, userID int64) (int64, error)
	// Items возвращает позиции корзины вместе с данными товара.
	Items(ctx context.Context, cartID int64) ([]CartItem, error)
	// FindItem ищет позицию по товару или возвращает ErrCartItemNotFound.
	FindItem(ctx context.Context, cartID, productID int64) (CartItem, error)
	// InsertItem добавляет новую позицию и возвращает её идентификатор.
	InsertItem(ctx context.Context, item CartItem) (int64, error)
	// UpdateItemQuantity меняет количество существующей позиции.
	UpdateItemQuantity(ctx context.Context, itemID int64, quantity int32) error
	// RemoveItem удаляет позицию корзины.
	RemoveItem(ctx context.Context, itemID int64) error
	// Clear удаляет все позиции корзины.
	Clear(ctx context.Context, cartID int64) error
}

// CatalogRepository описывает хранилище товаров и категорий.
type CatalogRepository interface {
	Categories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, category Category) (int64, error)
	// UpdateCategory возвращает ErrCategoryNotFound, если категории нет.
	UpdateCategory(ctx context.Context, category Category) error
	Products(ctx context.Context, filter ProductFilter) ([]Product, error)
	// Product возвращает товар или ErrProductNotFound.
	Product(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, product Product) (int64, error)
	// UpdateProduct возвращает ErrProductNotFound, если товара нет.
	UpdateProduct(ctx context.Context, product Product) error
	// DeleteProduct удаляет товар; исторические заказы хранят снимок цены и не страдают.
	DeleteProduct(ctx context.Context, id int64) error
}
