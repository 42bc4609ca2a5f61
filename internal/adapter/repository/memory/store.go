// Package memory keeps the ledger in process memory. A Store serializes all
// writers behind one mutex; transactions keep an undo log and replay it in
// reverse when fn fails.
package memory

import (
	"context"
	"sync"

	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

type txKey struct{}

type txn struct {
	undo []func()
}

func (t *txn) onRollback(f func()) {
	if t != nil {
		t.undo = append(t.undo, f)
	}
}

type Store struct {
	mu sync.RWMutex

	lastRunID     uint64
	lastBookingID uint64

	runs     map[uint64]domain.EventRun
	bookings map[uint64]domain.Booking

	custody  domain.Amount
	balances map[domain.Account]domain.Amount
	entries  []domain.LedgerEntry

	outbox []domain.OutboxMessage
}

func NewStore() *Store {
	return &Store{
		runs:     make(map[uint64]domain.EventRun),
		bookings: make(map[uint64]domain.Booking),
		balances: make(map[domain.Account]domain.Amount),
	}
}

func (s *Store) Runs() *RunRepository         { return &RunRepository{s: s} }
func (s *Store) Bookings() *BookingRepository { return &BookingRepository{s: s} }
func (s *Store) Vault() *Vault                { return &Vault{s: s} }
func (s *Store) Outbox() *Outbox              { return &Outbox{s: s} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txn); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txn{}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}

	return nil
}

// write returns the enclosing transaction, or locks the store for a single
// standalone write.
func (s *Store) write(ctx context.Context) (*txn, func()) {
	if tx, ok := ctx.Value(txKey{}).(*txn); ok {
		return tx, func() {}
	}

	s.mu.Lock()
	return nil, s.mu.Unlock
}

func (s *Store) read(ctx context.Context) func() {
	if _, ok := ctx.Value(txKey{}).(*txn); ok {
		return func() {}
	}

	s.mu.RLock()
	return s.mu.RUnlock
}
