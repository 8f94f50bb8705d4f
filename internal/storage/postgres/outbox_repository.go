package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

// Статусы записей outbox_messages.
const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

const defaultOutboxPullLimit = 100

// outboxRepository хранит события заказов до их публикации в Kafka.
type outboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository создаёт PostgreSQL-реализацию OutboxRepository.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{db: store.DB()}
}

// Enqueue сохраняет событие заказа со статусом pending. Пустой aggregate_type
// трактуется как "order": других агрегатов магазин наружу не публикует.
func (r *outboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.AggregateType == "" {
		msg.AggregateType = "order"
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO outbox_messages
		   (id, aggregate_type, aggregate_id, event_type, payload, status, attempt_count, last_error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, '', $7, $7)`,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, outboxStatusPending, now)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue order event %s: %w", msg.EventType, err)
	}
	return msg, nil
}

// PullPending возвращает до limit неопубликованных событий, старые первыми,
// чтобы события одного заказа уходили в Kafka в порядке их возникновения.
func (r *outboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultOutboxPullLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_type, aggregate_id, event_type, payload
		 FROM outbox_messages
		 WHERE status = $1
		 ORDER BY created_at, id
		 LIMIT $2`,
		outboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending order events: %w", err)
	}
	defer rows.Close()

	batch := make([]domain.OutboxMessage, 0, limit)
	for rows.Next() {
		var msg domain.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Payload); err != nil {
			return nil, fmt.Errorf("scan order event: %w", err)
		}
		batch = append(batch, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order events: %w", err)
	}
	return batch, nil
}

// Stats возвращает размер backlog и время самого старого pending-события.
func (r *outboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(created_at) FROM outbox_messages WHERE status = $1`,
		outboxStatusPending).Scan(&stats.PendingCount, &oldest)
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}
	return stats, nil
}

// MarkSent помечает событие опубликованным и сбрасывает причину прошлых неудач.
func (r *outboxRepository) MarkSent(id string) error {
	return r.finalize(id, outboxStatusSent, "")
}

// MarkFailed помечает событие неопубликованным; причина остаётся в last_error
// для диагностики зависшего backlog.
func (r *outboxRepository) MarkFailed(id, reason string) error {
	return r.finalize(id, outboxStatusFailed, reason)
}

func (r *outboxRepository) finalize(id, status, reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_messages
		 SET status = $2, attempt_count = attempt_count + 1, last_error = $3, updated_at = $4
		 WHERE id = $1`,
		id, status, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark order event %s: %w", status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("order event %s rows affected: %w", status, err)
	}
	if affected == 0 {
		return domain.ErrOutboxPublish
	}
	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
