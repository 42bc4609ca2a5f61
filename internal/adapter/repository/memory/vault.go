package memory

import (
	"context"
	"fmt"

	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/stake"
)

type Vault struct {
	s *Store
}

func (v *Vault) Deposit(ctx context.Context, entry domain.LedgerEntry) error {
	if !entry.Kind.IsDeposit() {
		return fmt.Errorf("%w: %s is not a deposit", domain.ErrInvalidArgument, entry.Kind)
	}

	tx, unlock := v.s.write(ctx)
	defer unlock()

	custody, err := stake.Add(v.s.custody, entry.Amount)
	if err != nil {
		return err
	}

	prev := v.s.custody
	v.s.custody = custody
	v.s.entries = append(v.s.entries, entry)

	tx.onRollback(func() {
		v.s.custody = prev
		v.s.entries = v.s.entries[:len(v.s.entries)-1]
	})

	return nil
}

func (v *Vault) Release(ctx context.Context, entry domain.LedgerEntry) error {
	if entry.Kind.IsDeposit() {
		return fmt.Errorf("%w: %s is not a release", domain.ErrInvalidArgument, entry.Kind)
	}

	tx, unlock := v.s.write(ctx)
	defer unlock()

	if v.s.custody < entry.Amount {
		return fmt.Errorf("%w: releasing %d of %d", domain.ErrInsufficientCustody, entry.Amount, v.s.custody)
	}

	balance, err := stake.Add(v.s.balances[entry.Account], entry.Amount)
	if err != nil {
		return err
	}

	prevCustody, prevBalance := v.s.custody, v.s.balances[entry.Account]
	v.s.custody -= entry.Amount
	v.s.balances[entry.Account] = balance
	v.s.entries = append(v.s.entries, entry)

	tx.onRollback(func() {
		v.s.custody = prevCustody
		v.s.balances[entry.Account] = prevBalance
		v.s.entries = v.s.entries[:len(v.s.entries)-1]
	})

	return nil
}

func (v *Vault) CustodyBalance(ctx context.Context) (domain.Amount, error) {
	unlock := v.s.read(ctx)
	defer unlock()

	return v.s.custody, nil
}

func (v *Vault) AccountBalance(ctx context.Context, account domain.Account) (domain.Amount, error) {
	unlock := v.s.read(ctx)
	defer unlock()

	return v.s.balances[account], nil
}

func (v *Vault) EntriesByRun(ctx context.Context, runID uint64) ([]domain.LedgerEntry, error) {
	unlock := v.s.read(ctx)
	defer unlock()

	var entries []domain.LedgerEntry
	for _, e := range v.s.entries {
		if e.RunID == runID {
			entries = append(entries, e)
		}
	}

	return entries, nil
}
