package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

type Outbox struct {
	db *sqlx.DB
}

func NewOutbox(db *sqlx.DB) *Outbox {
	return &Outbox{db: db}
}

func (o *Outbox) Append(ctx context.Context, msgs ...domain.OutboxMessage) error {
	tx := conn(ctx, o.db)
	for _, msg := range msgs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO outbox (id, name, payload, created_at) VALUES ($1, $2, $3, $4)`,
			msg.ID, msg.Name, string(msg.Payload), msg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert outbox message %s: %w", msg.Name, err)
		}
	}

	return nil
}

func (o *Outbox) Pending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	query := `
	SELECT id, name, payload, created_at, published_at
	FROM outbox
	WHERE published_at IS NULL
	ORDER BY seq
	LIMIT $1
	`

	var msgs []domain.OutboxMessage
	if err := sqlx.SelectContext(ctx, conn(ctx, o.db), &msgs, query, limit); err != nil {
		return nil, err
	}

	return msgs, nil
}

func (o *Outbox) MarkPublished(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, o.db).ExecContext(ctx, `UPDATE outbox SET published_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: outbox message %s", domain.ErrNotFound, id)
	}

	return nil
}
