package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

// CatalogRepository — in-memory реализация каталога для локальной разработки и тестов.
type CatalogRepository struct {
	mu             sync.RWMutex
	products       map[int64]domain.Product
	categories     map[int64]domain.Category
	nextProductID  int64
	nextCategoryID int64
}

// NewCatalogRepository возвращает пустой in-memory каталог.
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		products:   make(map[int64]domain.Product),
		categories: make(map[int64]domain.Category),
	}
}

// Categories возвращает категории, отсортированные по имени.
func (r *CatalogRepository) Categories(_ context.Context) ([]domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Category, 0, len(r.categories))
	for _, c := range r.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// CreateCategory сохраняет новую категорию и возвращает её идентификатор.
func (r *CatalogRepository) CreateCategory(_ context.Context, category domain.Category) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextCategoryID++
	category.ID = r.nextCategoryID
	r.categories[category.ID] = category
	return category.ID, nil
}

// UpdateCategory перезаписывает категорию или возвращает ErrCategoryNotFound.
func (r *CatalogRepository) UpdateCategory(_ context.Context, category domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[category.ID]; !ok {
		return domain.ErrCategoryNotFound
	}
	r.categories[category.ID] = category
	return nil
}

// Products возвращает товары с учётом фильтра, новые первыми.
func (r *CatalogRepository) Products(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	result := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.CategoryID > 0 && p.CategoryID != filter.CategoryID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		result = append(result, r.withCategoryName(p))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Product возвращает товар или ErrProductNotFound.
func (r *CatalogRepository) Product(_ context.Context, id int64) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return r.withCategoryName(p), nil
}

// CreateProduct сохраняет новый товар и возвращает его идентификатор.
func (r *CatalogRepository) CreateProduct(_ context.Context, product domain.Product) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextProductID++
	product.ID = r.nextProductID
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	r.products[product.ID] = product
	return product.ID, nil
}

// UpdateProduct перезаписывает товар или возвращает ErrProductNotFound.
func (r *CatalogRepository) UpdateProduct(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.products[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.CreatedAt = current.CreatedAt
	r.products[product.ID] = product
	return nil
}

// DeleteProduct удаляет товар или возвращает ErrProductNotFound.
func (r *CatalogRepository) DeleteProduct(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

// withCategoryName дополняет товар именем категории; вызывать под r.mu.
func (r *CatalogRepository) withCategoryName(p domain.Product) domain.Product {
	if c, ok := r.categories[p.CategoryID]; ok {
		p.CategoryName = c.Name
	}
	return p
}

// stockOf возвращает остаток товара; второй результат false для отсутствующего товара.
func (r *CatalogRepository) stockOf(productID int64) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return 0, false
	}
	return p.Stock, true
}

// setStock записывает новый остаток; отсутствующий товар игнорируется.
func (r *CatalogRepository) setStock(productID int64, stock int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return
	}
	p.Stock = stock
	r.products[productID] = p
}

var _ domain.CatalogRepository = (*CatalogRepository)(nil)
