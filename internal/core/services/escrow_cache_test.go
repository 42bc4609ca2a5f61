package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/srgjo27/experience_escrow/internal/adapter/cache"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCache_InvalidatedOnEveryRunMutation(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	runCache := cache.NewRunCache(db, time.Minute)

	f := newFixture(t, func(_ *services.Config, deps *services.Dependencies) {
		deps.Cache = runCache
	})

	runID := f.createRun(t)

	mockRedis.ExpectDel(cache.RunKey(runID)).SetVal(1)
	bookingID := f.book(t, runID, alice, 1)

	mockRedis.ExpectDel(cache.RunKey(runID)).SetVal(1)
	require.NoError(t, f.svc.CancelBooking(f.ctx, bookingID, alice))

	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestGetRun_FillsCacheOnMiss(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	runCache := cache.NewRunCache(db, time.Minute)

	f := newFixture(t, func(_ *services.Config, deps *services.Dependencies) {
		deps.Cache = runCache
	})

	runID := f.createRun(t)

	stored, err := f.store.Runs().GetByID(f.ctx, runID)
	require.NoError(t, err)
	raw, err := json.Marshal(stored)
	require.NoError(t, err)

	mockRedis.ExpectGet(cache.RunKey(runID)).RedisNil()
	mockRedis.ExpectSet(cache.RunKey(runID), string(raw), time.Minute).SetVal("OK")

	run, err := f.svc.GetRun(f.ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCreated, run.Status)

	mockRedis.ExpectGet(cache.RunKey(runID)).SetVal(string(raw))

	run, err = f.svc.GetRun(f.ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, hostStake, run.HostStake)

	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

// gatedCache is an in-memory RunCache whose Set waits for release once armed.
type gatedCache struct {
	mu      sync.Mutex
	runs    map[uint64]domain.EventRun
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedCache() *gatedCache {
	return &gatedCache{
		runs:    make(map[uint64]domain.EventRun),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (c *gatedCache) Get(_ context.Context, runID uint64) (*domain.EventRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	run, ok := c.runs[runID]
	if !ok {
		return nil, nil
	}

	return &run, nil
}

func (c *gatedCache) Set(_ context.Context, run *domain.EventRun) error {
	c.mu.Lock()
	armed := c.armed
	c.armed = false
	c.mu.Unlock()

	if armed {
		close(c.entered)
		<-c.release
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[run.ID] = *run

	return nil
}

func (c *gatedCache) Invalidate(_ context.Context, runID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.runs, runID)

	return nil
}

func (c *gatedCache) arm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = true
}

func TestGetRun_FillNeverOutlivesConcurrentMutation(t *testing.T) {
	runCache := newGatedCache()
	f := newFixture(t, func(_ *services.Config, deps *services.Dependencies) {
		deps.Cache = runCache
	})

	runID := f.createRun(t)
	cost, err := f.svc.BookingCost(f.ctx, runID, 1)
	require.NoError(t, err)

	runCache.arm()
	filled := make(chan error, 1)
	go func() {
		_, err := f.svc.GetRun(f.ctx, runID)
		filled <- err
	}()
	<-runCache.entered

	booked := make(chan error, 1)
	go func() {
		_, err := f.svc.CreateBooking(f.ctx, services.CreateBookingRequest{
			RunID: runID, User: alice, SeatCount: 1, Deposit: cost.Total,
		})
		booked <- err
	}()

	select {
	case err := <-booked:
		t.Fatalf("booking committed while a cache fill was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(runCache.release)
	require.NoError(t, <-filled)
	require.NoError(t, <-booked)

	cached, err := runCache.Get(f.ctx, runID)
	require.NoError(t, err)
	assert.Nil(t, cached)

	run, err := f.svc.GetRun(f.ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), run.SeatsBooked)
	assert.Equal(t, domain.RunActive, run.Status)
}
