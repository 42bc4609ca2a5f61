package postgres

import (
	"context"
	"errors"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

// Transactor opens a database transaction and stores it in the context.
// Repositories pick it up through the ctx getter; nested calls join it.
type Transactor struct {
	manager *manager.Manager
}

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{manager: manager.Must(trmsqlx.NewDefaultFactory(db))}
}

// WithinTx runs fn in a transaction. Serialization failures and deadlocks
// raised by any statement or the commit come back as domain.ErrConflict.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return translate(t.manager.Do(ctx, fn))
}

// conn returns the transaction carried by ctx or db itself.
func conn(ctx context.Context, db *sqlx.DB) trmsqlx.Tr {
	return trmsqlx.DefaultCtxGetter.DefaultTrOrDB(ctx, db)
}

const (
	checkViolation     = "23514"
	serializationError = "40001"
	deadlockDetected   = "40P01"
)

// translate maps driver errors onto domain errors where the database enforces
// a ledger rule.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	if errors.Is(err, domain.ErrArithmeticOverflow) || errors.Is(err, domain.ErrConflict) {
		return err
	}

	switch pqErr.Code {
	case checkViolation:
		return errors.Join(domain.ErrArithmeticOverflow, err)
	case serializationError, deadlockDetected:
		return errors.Join(domain.ErrConflict, err)
	}

	return err
}
