package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

func TestCatalogRepository_Categories(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	for _, name := range []string{"sorbetes", "clasicos", "premium"} {
		if _, err := repo.CreateCategory(ctx, domain.Category{Name: name, Active: true}); err != nil {
			t.Fatalf("create category %s: %v", name, err)
		}
	}

	categories, err := repo.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(categories))
	}
	// Отсортированы по имени.
	if categories[0].Name != "clasicos" || categories[2].Name != "sorbetes" {
		t.Errorf("unexpected category order: %+v", categories)
	}

	err = repo.UpdateCategory(ctx, domain.Category{ID: 999, Name: "missing"})
	if !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCatalogRepository_CategoryFields(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	id, err := repo.CreateCategory(ctx, domain.Category{
		Name:        "temporada",
		Description: "sabores de temporada",
		Active:      true,
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	if err := repo.UpdateCategory(ctx, domain.Category{
		ID:          id,
		Name:        "temporada",
		Description: "solo en verano",
		Active:      false,
	}); err != nil {
		t.Fatalf("update category: %v", err)
	}

	categories, err := repo.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(categories) != 1 {
		t.Fatalf("expected 1 category, got %d", len(categories))
	}
	got := categories[0]
	if got.Description != "solo en verano" {
		t.Errorf("description = %q, want %q", got.Description, "solo en verano")
	}
	if got.Active {
		t.Error("category must be inactive after update")
	}
}

func TestCatalogRepository_ProductsFilter(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	classicID, _ := repo.CreateCategory(ctx, domain.Category{Name: "clasicos", Active: true})
	sorbetID, _ := repo.CreateCategory(ctx, domain.Category{Name: "sorbetes", Active: true})

	now := time.Now().UTC()
	seed := []domain.Product{
		{Name: "Vainilla", Description: "crema clasica", PriceMinor: 1250, Stock: 10, CategoryID: classicID, Active: true, CreatedAt: now},
		{Name: "Chocolate", Description: "cacao intenso", PriceMinor: 1350, Stock: 5, CategoryID: classicID, Active: true, CreatedAt: now.Add(time.Minute)},
		{Name: "Limon", Description: "sorbete fresco", PriceMinor: 1100, Stock: 8, CategoryID: sorbetID, Active: true, CreatedAt: now.Add(2 * time.Minute)},
	}
	for _, p := range seed {
		if _, err := repo.CreateProduct(ctx, p); err != nil {
			t.Fatalf("create product %s: %v", p.Name, err)
		}
	}

	all, err := repo.Products(ctx, domain.ProductFilter{})
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 products, got %d", len(all))
	}
	// Новые первыми.
	if all[0].Name != "Limon" {
		t.Errorf("expected Limon first, got %s", all[0].Name)
	}
	if all[0].CategoryName != "sorbetes" {
		t.Errorf("expected category name join, got %q", all[0].CategoryName)
	}

	byCategory, _ := repo.Products(ctx, domain.ProductFilter{CategoryID: classicID})
	if len(byCategory) != 2 {
		t.Errorf("expected 2 classics, got %d", len(byCategory))
	}

	bySearch, _ := repo.Products(ctx, domain.ProductFilter{Search: "sorbete"})
	if len(bySearch) != 1 || bySearch[0].Name != "Limon" {
		t.Errorf("unexpected search result: %+v", bySearch)
	}
}

func TestCatalogRepository_ProductLifecycle(t *testing.T) {
	repo := NewCatalogRepository()
	ctx := context.Background()

	id, err := repo.CreateProduct(ctx, domain.Product{Name: "Pistacho", PriceMinor: 1500, Stock: 4, Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	product, err := repo.Product(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if product.CreatedAt.IsZero() {
		t.Error("created_at must be set on insert")
	}

	product.PriceMinor = 1600
	if err := repo.UpdateProduct(ctx, product); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, _ := repo.Product(ctx, id)
	if updated.PriceMinor != 1600 {
		t.Errorf("price = %d, want 1600", updated.PriceMinor)
	}

	if err := repo.UpdateProduct(ctx, domain.Product{ID: 999, Name: "missing"}); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	if err := repo.DeleteProduct(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Product(ctx, id); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound after delete, got %v", err)
	}
	if err := repo.DeleteProduct(ctx, id); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on repeated delete, got %v", err)
	}
}
