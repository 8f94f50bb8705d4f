// Package catalog реализует управление товарами и категориями.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

// Service инкапсулирует бизнес-логику каталога.
type Service struct {
	repo   domain.CatalogRepository
	logger *log.Entry
}

// NewService создаёт сервис каталога.
func NewService(repo domain.CatalogRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		repo:   repo,
		logger: logger.WithField("component", "catalog_service"),
	}
}

// Categories возвращает все категории.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.Categories(ctx)
}

// CreateCategory создаёт категорию после валидации.
func (s *Service) CreateCategory(ctx context.Context, category domain.Category) (int64, error) {
	category.Name = strings.TrimSpace(category.Name)
	category.Description = strings.TrimSpace(category.Description)
	if category.Name == "" {
		return 0, domain.ErrCategoryNameRequired
	}
	id, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	s.logger.WithFields(log.Fields{"category_id": id, "name": category.Name}).Info("категория создана")
	return id, nil
}

// UpdateCategory обновляет категорию.
func (s *Service) UpdateCategory(ctx context.Context, category domain.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	category.Description = strings.TrimSpace(category.Description)
	if category.Name == "" {
		return domain.ErrCategoryNameRequired
	}
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Products возвращает товары с учётом фильтра по категории и поисковой строке.
func (s *Service) Products(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.Products(ctx, filter)
}

// Product возвращает товар или ErrProductNotFound.
func (s *Service) Product(ctx context.Context, id int64) (domain.Product, error) {
	return s.repo.Product(ctx, id)
}

// CreateProduct создаёт товар после валидации.
func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (int64, error) {
	product.Name = strings.TrimSpace(product.Name)
	if errs := domain.ValidateProduct(product); len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	id, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	s.logger.WithFields(log.Fields{"product_id": id, "name": product.Name}).Info("товар создан")
	return id, nil
}

// UpdateProduct обновляет товар после валидации.
func (s *Service) UpdateProduct(ctx context.Context, product domain.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if errs := domain.ValidateProduct(product); len(errs) > 0 {
		return errors.Join(errs...)
	}
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// DeleteProduct удаляет товар из каталога. Снимки цен в корзинах и заказах
// сохраняются, смена статуса старого заказа просто пропустит отсутствующий товар.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.WithField("product_id", id).Info("товар удалён")
	return nil
}
