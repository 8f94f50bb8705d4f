package order

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
	"github.com/vladislavdragonenkov/heladeria/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/heladeria/internal/metrics"
)

// Service управляет жизненным циклом заказа: создание из корзины и смена
// статуса с согласованным пересчётом остатков склада.
type Service struct {
	store   domain.OrderStore
	outbox  domain.OutboxRepository
	logger  *log.Entry
	metrics *metrics.OrderMetrics
}

// CheckoutInput — параметры создания заказа из снимка корзины.
// Вызывающая сторона гарантирует, что Lines непустой и каждый ProductID
// ссылается на существующий товар.
type CheckoutInput struct {
	UserID        int64
	CartID        int64
	Lines         []domain.CartLine
	CustomerName  string
	CustomerEmail string
}

// NewService создаёт сервис жизненного цикла заказов.
func NewService(store domain.OrderStore, outbox domain.OutboxRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	return &Service{
		store:   store,
		outbox:  outbox,
		logger:  logger,
		metrics: metrics.NewOrderMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(store domain.OrderStore, outbox domain.OutboxRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	return &Service{
		store:  store,
		outbox: outbox,
		logger: logger,
	}
}

// CreateFromCart создаёт заказ в статусе pending из снимка корзины.
// Сумма считается по ценам снимка: изменение каталога во время checkout
// не влияет на уже оформляемый заказ. Вставка заказа, позиций и перевод
// корзины в converted выполняются в одной транзакции; при ошибке ничего
// не сохраняется и ошибка возвращается вызывающему без изменений.
func (s *Service) CreateFromCart(ctx context.Context, in CheckoutInput) (int64, error) {
	start := time.Now()

	if in.UserID <= 0 {
		return 0, domain.ErrUserRequired
	}
	if len(in.Lines) == 0 {
		return 0, domain.ErrLinesRequired
	}

	totals := domain.CalculateTotals(in.Lines)

	lines := make([]domain.OrderLine, 0, len(in.Lines))
	for _, line := range in.Lines {
		lines = append(lines, domain.OrderLine{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPriceMinor: line.UnitPriceMinor,
		})
	}

	order := domain.Order{
		UserID:        in.UserID,
		CartID:        in.CartID,
		TotalMinor:    totals.TotalMinor,
		Status:        domain.OrderStatusPending,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CreatedAt:     time.Now().UTC(),
		Lines:         lines,
	}

	orderID, err := s.store.CreateFromCart(ctx, order, in.CartID)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"user_id": in.UserID,
			"cart_id": in.CartID,
		}).Error("failed to create order from cart")
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
		s.metrics.RecordCheckoutDuration(time.Since(start))
	}

	s.enqueueEvent(kafka.EventTypeOrderCreated, orderID, in.UserID, domain.OrderStatusPending, totals.TotalMinor)

	s.logger.WithFields(log.Fields{
		"order_id":    orderID,
		"user_id":     in.UserID,
		"cart_id":     in.CartID,
		"total_minor": totals.TotalMinor,
	}).Info("order created from cart")

	return orderID, nil
}

// UpdateStatus атомарно применяет заказу новый статус и соответствующий
// пересчёт склада. Правила побочного эффекта:
//
//	prev != paid, next == paid       — списать остаток по каждой позиции (не ниже нуля);
//	prev == paid, next == cancelled  — вернуть остаток по каждой позиции;
//	остальные пары                   — остатки не трогаются.
//
// Решение принимается по статусу, прочитанному под блокировкой строки заказа,
// поэтому два конкурентных перевода в paid дают ровно одно списание.
// Повторный перевод в текущий статус — идемпотентный no-op.
// Возвращает ErrOrderNotFound, если заказа нет.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	// Неизвестный статус отклоняется до открытия транзакции.
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}

	var (
		previous   domain.OrderStatus
		applied    bool
		decrements int
		increments int
	)

	err := s.store.WithLockedOrder(ctx, orderID, func(tx domain.OrderTx) error {
		previous = tx.Status()
		if previous == status {
			return nil
		}

		if err := tx.SetStatus(status); err != nil {
			return err
		}
		applied = true

		switch {
		case status == domain.OrderStatusPaid && previous != domain.OrderStatusPaid:
			return s.adjustStockForOrder(tx, modeDecrease, &decrements)
		case status == domain.OrderStatusCancelled && previous == domain.OrderStatusPaid:
			return s.adjustStockForOrder(tx, modeIncrease, &increments)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !applied {
		s.logger.WithFields(log.Fields{
			"order_id": orderID,
			"status":   status,
		}).Debug("order already in requested status, skipping")
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(status))
		for i := 0; i < decrements; i++ {
			s.metrics.RecordStockAdjustment("decrease")
		}
		for i := 0; i < increments; i++ {
			s.metrics.RecordStockAdjustment("increase")
		}
	}

	s.publishStatusChanged(ctx, orderID, status)

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"previous": previous,
		"status":   status,
	}).Info("order status updated")

	return nil
}

type adjustMode string

const (
	modeDecrease adjustMode = "decrease"
	modeIncrease adjustMode = "increase"
)

// adjustStockForOrder блокирует строку каждого товара заказа и применяет правило:
// списание не опускает остаток ниже нуля, возврат не ограничен сверху.
func (s *Service) adjustStockForOrder(tx domain.OrderTx, mode adjustMode, adjusted *int) error {
	lines, err := tx.Lines()
	if err != nil {
		return err
	}

	for _, line := range lines {
		if line.ProductID <= 0 || line.Quantity <= 0 {
			continue
		}

		quantity := line.Quantity
		err := tx.AdjustStock(line.ProductID, func(current int32) int32 {
			if mode == modeDecrease {
				next := current - quantity
				if next < 0 {
					// Подтверждение оплаты не блокируется расхождением учёта:
					// перепроданный остаток прижимается к нулю.
					next = 0
				}
				return next
			}
			return current + quantity
		})
		if err != nil {
			return err
		}
		*adjusted++
	}
	return nil
}

// Get возвращает заказ с позициями.
func (s *Service) Get(ctx context.Context, orderID int64) (domain.Order, error) {
	return s.store.Get(ctx, orderID)
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListAll возвращает все заказы (административная выборка).
func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.store.ListAll(ctx)
}

func (s *Service) publishStatusChanged(ctx context.Context, orderID int64, status domain.OrderStatus) {
	if s.outbox == nil {
		return
	}

	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to load order for status event")
		return
	}
	s.enqueueEvent(kafka.EventTypeOrderStatusChanged, orderID, order.UserID, status, order.TotalMinor)
}

// enqueueEvent кладёт событие заказа в outbox; публикацию наружу выполняет
// отдельный worker. Ошибка outbox не откатывает уже зафиксированную операцию.
func (s *Service) enqueueEvent(eventType kafka.EventType, orderID, userID int64, status domain.OrderStatus, totalMinor int64) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, orderID, userID, status, totalMinor)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to marshal order event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: kafka.AggregateTypeOrder,
		AggregateID:   kafka.OrderAggregateID(orderID),
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to enqueue order event")
	}
}
