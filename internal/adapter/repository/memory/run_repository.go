package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

type RunRepository struct {
	s *Store
}

func (r *RunRepository) Create(ctx context.Context, run *domain.EventRun) error {
	tx, unlock := r.s.write(ctx)
	defer unlock()

	r.s.lastRunID++
	run.ID = r.s.lastRunID
	run.Version = 1
	r.s.runs[run.ID] = *run

	id := run.ID
	tx.onRollback(func() { delete(r.s.runs, id) })

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, runID uint64) (*domain.EventRun, error) {
	unlock := r.s.read(ctx)
	defer unlock()

	run, ok := r.s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: run %d", domain.ErrNotFound, runID)
	}

	return &run, nil
}

func (r *RunRepository) Update(ctx context.Context, run *domain.EventRun) error {
	tx, unlock := r.s.write(ctx)
	defer unlock()

	prev, ok := r.s.runs[run.ID]
	if !ok {
		return fmt.Errorf("%w: run %d", domain.ErrNotFound, run.ID)
	}

	if prev.Version != run.Version {
		return domain.ErrConflict
	}

	run.Version++
	r.s.runs[run.ID] = *run
	tx.onRollback(func() { r.s.runs[prev.ID] = prev })

	return nil
}

func (r *RunRepository) ListByHost(ctx context.Context, host domain.Account) ([]domain.EventRun, error) {
	unlock := r.s.read(ctx)
	defer unlock()

	var runs []domain.EventRun
	for _, run := range r.s.runs {
		if run.Host == host {
			runs = append(runs, run)
		}
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].ID < runs[j].ID })

	return runs, nil
}
