package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

func newStoreFixture(t *testing.T) (*OrderStore, *CatalogRepository, *CartRepository) {
	t.Helper()

	catalog := NewCatalogRepository()
	carts := NewCartRepository()
	return NewOrderStore(catalog, carts), catalog, carts
}

func seedProduct(t *testing.T, catalog *CatalogRepository, name string, stock int32) int64 {
	t.Helper()

	id, err := catalog.CreateProduct(context.Background(), domain.Product{
		Name:       name,
		PriceMinor: 1250,
		Stock:      stock,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func TestOrderStore_CreateFromCart(t *testing.T) {
	store, _, carts := newStoreFixture(t)
	ctx := context.Background()

	cartID, err := carts.Create(ctx, 10)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}

	order := domain.Order{
		UserID:     10,
		TotalMinor: 6750,
		Status:     domain.OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
		Lines: []domain.OrderLine{
			{ProductID: 7, Quantity: 3, UnitPriceMinor: 1250},
			{ProductID: 9, Quantity: 1, UnitPriceMinor: 3000},
		},
	}

	orderID, err := store.CreateFromCart(ctx, order, cartID)
	if err != nil {
		t.Fatalf("create from cart: %v", err)
	}
	if orderID == 0 {
		t.Fatal("expected non-zero order id")
	}

	stored, err := store.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.CartID != cartID {
		t.Errorf("cart id = %d, want %d", stored.CartID, cartID)
	}
	if len(stored.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(stored.Lines))
	}
	for _, line := range stored.Lines {
		if line.ID == 0 || line.OrderID != orderID {
			t.Errorf("line not bound to order: %+v", line)
		}
	}

	// Корзина переведена в converted вместе с созданием заказа.
	status, ok := carts.Status(cartID)
	if !ok {
		t.Fatal("cart disappeared")
	}
	if status != domain.CartStatusConverted {
		t.Errorf("cart status = %s, want converted", status)
	}
}

func TestOrderStore_CreateFromCart_CartNotActive(t *testing.T) {
	store, _, carts := newStoreFixture(t)
	ctx := context.Background()

	order := domain.Order{
		UserID:     10,
		TotalMinor: 1250,
		Status:     domain.OrderStatusPending,
		Lines:      []domain.OrderLine{{ProductID: 1, Quantity: 1, UnitPriceMinor: 1250}},
	}

	if _, err := store.CreateFromCart(ctx, order, 404); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound for missing cart, got %v", err)
	}

	cartID, err := carts.Create(ctx, 10)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if _, err := store.CreateFromCart(ctx, order, cartID); err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	// Повторный checkout той же корзины не создаёт второй заказ.
	if _, err := store.CreateFromCart(ctx, order, cartID); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound for converted cart, got %v", err)
	}
	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 order after repeated checkout, got %d", len(all))
	}
}

func TestOrderStore_GetNotFound(t *testing.T) {
	store, _, _ := newStoreFixture(t)

	if _, err := store.Get(context.Background(), 404); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderStore_WithLockedOrder_NotFound(t *testing.T) {
	store, _, _ := newStoreFixture(t)

	err := store.WithLockedOrder(context.Background(), 404, func(tx domain.OrderTx) error {
		t.Fatal("callback must not run for missing order")
		return nil
	})
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderStore_WithLockedOrder_CommitAppliesStatusAndStock(t *testing.T) {
	store, catalog, carts := newStoreFixture(t)
	ctx := context.Background()

	productID := seedProduct(t, catalog, "vainilla", 10)
	cartID, _ := carts.Create(ctx, 10)
	orderID, err := store.CreateFromCart(ctx, domain.Order{
		UserID:     10,
		TotalMinor: 3750,
		Status:     domain.OrderStatusPending,
		Lines:      []domain.OrderLine{{ProductID: productID, Quantity: 3, UnitPriceMinor: 1250}},
	}, cartID)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	err = store.WithLockedOrder(ctx, orderID, func(tx domain.OrderTx) error {
		if tx.Status() != domain.OrderStatusPending {
			t.Errorf("locked status = %s, want pending", tx.Status())
		}
		if err := tx.SetStatus(domain.OrderStatusPaid); err != nil {
			return err
		}
		return tx.AdjustStock(productID, func(current int32) int32 { return current - 3 })
	})
	if err != nil {
		t.Fatalf("with locked order: %v", err)
	}

	order, _ := store.Get(ctx, orderID)
	if order.Status != domain.OrderStatusPaid {
		t.Errorf("status = %s, want paid", order.Status)
	}
	if stock, _ := catalog.stockOf(productID); stock != 7 {
		t.Errorf("stock = %d, want 7", stock)
	}
}

func TestOrderStore_WithLockedOrder_RollbackOnError(t *testing.T) {
	store, catalog, carts := newStoreFixture(t)
	ctx := context.Background()

	productID := seedProduct(t, catalog, "fresa", 10)
	cartID, _ := carts.Create(ctx, 10)
	orderID, _ := store.CreateFromCart(ctx, domain.Order{
		UserID:     10,
		TotalMinor: 1250,
		Status:     domain.OrderStatusPending,
		Lines:      []domain.OrderLine{{ProductID: productID, Quantity: 1, UnitPriceMinor: 1250}},
	}, cartID)

	boom := errors.New("boom")
	err := store.WithLockedOrder(ctx, orderID, func(tx domain.OrderTx) error {
		_ = tx.SetStatus(domain.OrderStatusPaid)
		_ = tx.AdjustStock(productID, func(current int32) int32 { return 0 })
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}

	// Ни статус, ни остаток не изменились.
	order, _ := store.Get(ctx, orderID)
	if order.Status != domain.OrderStatusPending {
		t.Errorf("status = %s, want pending after rollback", order.Status)
	}
	if stock, _ := catalog.stockOf(productID); stock != 10 {
		t.Errorf("stock = %d, want 10 after rollback", stock)
	}
}

func TestOrderStore_AdjustStock_SkipsMissingProduct(t *testing.T) {
	store, _, carts := newStoreFixture(t)
	ctx := context.Background()

	cartID, _ := carts.Create(ctx, 10)
	orderID, _ := store.CreateFromCart(ctx, domain.Order{
		UserID:     10,
		TotalMinor: 1250,
		Status:     domain.OrderStatusPending,
		Lines:      []domain.OrderLine{{ProductID: 999, Quantity: 1, UnitPriceMinor: 1250}},
	}, cartID)

	err := store.WithLockedOrder(ctx, orderID, func(tx domain.OrderTx) error {
		return tx.AdjustStock(999, func(current int32) int32 {
			t.Fatal("callback must not run for missing product")
			return current
		})
	})
	if err != nil {
		t.Fatalf("expected missing product to be skipped, got %v", err)
	}
}

func TestOrderStore_ListByUserAndListAll(t *testing.T) {
	store, _, carts := newStoreFixture(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, userID := range []int64{10, 20, 10} {
		cartID, _ := carts.Create(ctx, userID)
		_, err := store.CreateFromCart(ctx, domain.Order{
			UserID:     userID,
			TotalMinor: 1250,
			Status:     domain.OrderStatusPending,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			Lines:      []domain.OrderLine{{ProductID: 1, Quantity: 1, UnitPriceMinor: 1250}},
		}, cartID)
		if err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
	}

	mine, err := store.ListByUser(ctx, 10)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 orders for user 10, got %d", len(mine))
	}
	if mine[0].CreatedAt.Before(mine[1].CreatedAt) {
		t.Error("orders must be sorted newest first")
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(all))
	}
}
