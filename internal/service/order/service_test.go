package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
	"github.com/vladislavdragonenkov/heladeria/internal/storage/memory"
)

type fixture struct {
	service *Service
	catalog *memory.CatalogRepository
	carts   *memory.CartRepository
	store   *memory.OrderStore
	outbox  *memory.OutboxRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog := memory.NewCatalogRepository()
	carts := memory.NewCartRepository()
	store := memory.NewOrderStore(catalog, carts)
	outbox := memory.NewOutboxRepository()

	return &fixture{
		service: NewServiceWithoutMetrics(store, outbox, nil),
		catalog: catalog,
		carts:   carts,
		store:   store,
		outbox:  outbox,
	}
}

func (f *fixture) seedProduct(t *testing.T, name string, priceMinor int64, stock int32) int64 {
	t.Helper()

	id, err := f.catalog.CreateProduct(context.Background(), domain.Product{
		Name:       name,
		PriceMinor: priceMinor,
		Stock:      stock,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func (f *fixture) stock(t *testing.T, productID int64) int32 {
	t.Helper()

	product, err := f.catalog.Product(context.Background(), productID)
	if err != nil {
		t.Fatalf("read product %d: %v", productID, err)
	}
	return product.Stock
}

// checkout создаёт заказ из пары позиций сценария из описания системы:
// 3 x 12.50 + 1 x 30.00 = 67.50.
func (f *fixture) checkout(t *testing.T, productA, productB int64) int64 {
	t.Helper()

	ctx := context.Background()
	cartID, err := f.carts.Create(ctx, 10)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}

	orderID, err := f.service.CreateFromCart(ctx, CheckoutInput{
		UserID: 10,
		CartID: cartID,
		Lines: []domain.CartLine{
			{ProductID: productA, Quantity: 3, UnitPriceMinor: 1250},
			{ProductID: productB, Quantity: 1, UnitPriceMinor: 3000},
		},
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
	})
	if err != nil {
		t.Fatalf("create from cart: %v", err)
	}
	return orderID
}

func TestCreateFromCart_TotalFromSnapshotPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Цена каталога отличается от цены снимка: заказ считает по снимку.
	productA := f.seedProduct(t, "vainilla", 9999, 10)
	productB := f.seedProduct(t, "chocolate", 9999, 10)

	orderID := f.checkout(t, productA, productB)

	order, err := f.service.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.TotalMinor != 6750 {
		t.Errorf("total = %d, want 6750 (from snapshot prices)", order.TotalMinor)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(order.Lines))
	}

	// Создание заказа не трогает склад.
	if got := f.stock(t, productA); got != 10 {
		t.Errorf("stock after creation = %d, want 10", got)
	}

	// Корзина недоступна для повторного checkout.
	if _, err := f.carts.GetActive(ctx, 10); !errors.Is(err, domain.ErrCartNotFound) {
		t.Errorf("expected converted cart to be inactive, got %v", err)
	}
}

func TestCreateFromCart_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateFromCart(ctx, CheckoutInput{UserID: 0, CartID: 1, Lines: []domain.CartLine{{ProductID: 1, Quantity: 1}}})
	if !errors.Is(err, domain.ErrUserRequired) {
		t.Errorf("expected ErrUserRequired, got %v", err)
	}

	_, err = f.service.CreateFromCart(ctx, CheckoutInput{UserID: 10, CartID: 1})
	if !errors.Is(err, domain.ErrLinesRequired) {
		t.Errorf("expected ErrLinesRequired, got %v", err)
	}
}

// failingOrderStore имитирует отказ персистентного слоя на создании заказа.
type failingOrderStore struct {
	domain.OrderStore
	err error
}

func (s *failingOrderStore) CreateFromCart(context.Context, domain.Order, int64) (int64, error) {
	return 0, s.err
}

func TestCreateFromCart_PersistenceErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("insert order line: connection reset")
	service := NewServiceWithoutMetrics(&failingOrderStore{err: boom}, memory.NewOutboxRepository(), nil)

	_, err := service.CreateFromCart(context.Background(), CheckoutInput{
		UserID: 10,
		CartID: 1,
		Lines:  []domain.CartLine{{ProductID: 7, Quantity: 3, UnitPriceMinor: 1250}},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected storage error to propagate unchanged, got %v", err)
	}
}

func TestUpdateStatus_PaidDecrementsStockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	productA := f.seedProduct(t, "vainilla", 1250, 10)
	productB := f.seedProduct(t, "chocolate", 3000, 4)
	orderID := f.checkout(t, productA, productB)

	if err := f.service.UpdateStatus(ctx, orderID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("update status: %v", err)
	}

	if got := f.stock(t, productA); got != 7 {
		t.Errorf("product A stock = %d, want 7", got)
	}
	if got := f.stock(t, productB); got != 3 {
		t.Errorf("product B stock = %d, want 3", got)
	}

	// Повторный перевод в paid — no-op, второго списания нет.
	if err := f.service.UpdateStatus(ctx, orderID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("repeated update: %v", err)
	}
	if got := f.stock(t, productA); got != 7 {
		t.Errorf("product A stock after repeat = %d, want 7", got)
	}
}

func TestUpdateStatus_ConcurrentPaidSingleDecrement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	productA := f.seedProduct(t, "vainilla", 1250, 10)
	productB := f.seedProduct(t, "chocolate", 3000, 10)
	orderID := f.checkout(t, productA, productB)

	const callers = 8

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.service.UpdateStatus(ctx, orderID, domain.OrderStatusPaid)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}

	// Ровно одно списание независимо от числа конкурентных вызовов.
	if got := f.stock(t, productA); got != 7 {
		t.Errorf("product A stock = %d, want 7", got)
	}

	order, _ := f.service.Get(ctx, orderID)
	if order.Status != domain.OrderStatusPaid {
		t.Errorf("final status = %s, want paid", order.Status)
	}
}

func TestUpdateStatus_CancelAfterPaidRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	productA := f.seedProduct(t, "vainilla", 1250, 10)
	productB := f.seedProduct(t, "chocolate", 3000, 10)
	orderID := f.checkout(t, productA, productB)

	if err := f.service.UpdateStatus(ctx, orderID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if err := f.service.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Остатки вернулись к значениям до оплаты.
	if got := f.stock(t, productA); got != 10 {
		t.Errorf("product A stock = %d, want 10", got)
	}
	if got := f.stock(t, productB); got != 10 {
		t.Errorf("product B stock = %d, want 10", got)
	}
}

func TestUpdateStatus_CancelPendingKeepsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	productA := f.seedProduct(t, "vainilla", 1250, 10)
	productB := f.seedProduct(t, "chocolate", 3000, 10)
	orderID := f.checkout(t, productA, productB)

	if err := f.service.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}

	// Неоплаченный заказ ничего не списывал, возвращать нечего.
	if got := f.stock(t, productA); got != 10 {
		t.Errorf("product A stock = %d, want 10", got)
	}

	order, _ := f.service.Get(ctx, orderID)
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled", order.Status)
	}
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	productA := f.seedProduct(t, "vainilla", 1250, 10)
	productB := f.seedProduct(t, "chocolate", 3000, 10)
	orderID := f.checkout(t, productA, productB)

	if err := f.service.UpdateStatus(ctx, orderID, domain.OrderStatusPending); err != nil {
		t.Fatalf("pending -> pending: %v", err)
	}
	if got := f.stock(t, productA); got != 10 {
		t.Errorf("stock = %d, want 10 after no-op", got)
	}
}

func TestUpdateStatus_DecrementFloorsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Остаток меньше количества в заказе: списание прижимается к нулю,
	// переход не отклоняется.
	productID := f.seedProduct(t, "vainilla", 1250, 2)
	cartID, _ := f.carts.Create(ctx, 10)
	orderID, err := f.service.CreateFromCart(ctx, CheckoutInput{
		UserID: 10,
		CartID: cartID,
		Lines:  []domain.CartLine{{ProductID: productID, Quantity: 5, UnitPriceMinor: 1250}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := f.service.UpdateStatus(ctx, orderID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if got := f.stock(t, productID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
}

func TestUpdateStatus_PermissiveTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	productID := f.seedProduct(t, "vainilla", 1250, 10)
	cartID, _ := f.carts.Create(ctx, 10)
	orderID, _ := f.service.CreateFromCart(ctx, CheckoutInput{
		UserID: 10,
		CartID: cartID,
		Lines:  []domain.CartLine{{ProductID: productID, Quantity: 3, UnitPriceMinor: 1250}},
	})

	// Последовательности статусов не ограничены: cancelled -> paid допустим
	// и несёт списание, так как предыдущий статус не был paid.
	if err := f.service.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := f.service.UpdateStatus(ctx, orderID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("cancelled -> paid: %v", err)
	}
	if got := f.stock(t, productID); got != 7 {
		t.Errorf("stock = %d, want 7", got)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	f := newFixture(t)

	err := f.service.UpdateStatus(context.Background(), 404, domain.OrderStatusPaid)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestUpdateStatus_InvalidStatusRejectedBeforeTx(t *testing.T) {
	f := newFixture(t)

	err := f.service.UpdateStatus(context.Background(), 1, "shipped")
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestLifecycleEventsEnqueued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	productA := f.seedProduct(t, "vainilla", 1250, 10)
	productB := f.seedProduct(t, "chocolate", 3000, 10)
	orderID := f.checkout(t, productA, productB)

	if err := f.service.UpdateStatus(ctx, orderID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	pending, err := f.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	// order.created + order.status_changed.
	if len(pending) != 2 {
		t.Fatalf("expected 2 outbox events, got %d", len(pending))
	}
	if pending[0].EventType != "order.created" {
		t.Errorf("first event = %s, want order.created", pending[0].EventType)
	}
	if pending[1].EventType != "order.status_changed" {
		t.Errorf("second event = %s, want order.status_changed", pending[1].EventType)
	}

	// Идемпотентный no-op события не публикует.
	if err := f.service.UpdateStatus(ctx, orderID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("repeated update: %v", err)
	}
	pending, _ = f.outbox.PullPending(10)
	if len(pending) != 2 {
		t.Errorf("no-op must not enqueue events, got %d", len(pending))
	}
}
