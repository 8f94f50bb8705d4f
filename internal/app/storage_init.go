package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
	"github.com/vladislavdragonenkov/heladeria/internal/storage/memory"
	"github.com/vladislavdragonenkov/heladeria/internal/storage/postgres"
)

// storages объединяет все хранилища приложения.
// pg заполнен только для драйвера postgres и используется для ping и Close.
type storages struct {
	orders  domain.OrderStore
	carts   domain.CartRepository
	catalog domain.CatalogRepository
	outbox  domain.OutboxRepository
	pg      *postgres.Store
}

func (s *storages) Close() error {
	if s.pg != nil {
		return s.pg.Close()
	}
	return nil
}

// initStorage собирает хранилища по выбранному драйверу.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storages, error) {
	switch cfg.StorageDriver {
	case StorageMemory, "":
		catalogRepo := memory.NewCatalogRepository()
		cartRepo := memory.NewCartRepository()
		logger.Info("используется in-memory хранилище, данные не переживут рестарт")
		return &storages{
			orders:  memory.NewOrderStore(catalogRepo, cartRepo),
			carts:   cartRepo,
			catalog: catalogRepo,
			outbox:  memory.NewOutboxRepository(),
		}, nil

	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("миграции применены")
		}
		return &storages{
			orders:  postgres.NewOrderStore(store),
			carts:   postgres.NewCartRepository(store),
			catalog: postgres.NewCatalogRepository(store),
			outbox:  postgres.NewOutboxRepository(store),
			pg:      store,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
