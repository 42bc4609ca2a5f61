package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/srgjo27/experience_escrow/internal/adapter/cache"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCache_GetMiss(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewRunCache(db, time.Minute)

	mockRedis.ExpectGet("escrow:run:3").RedisNil()

	run, err := c.Get(context.Background(), 3)

	assert.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestRunCache_GetHit(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewRunCache(db, time.Minute)

	cached := domain.EventRun{ID: 3, Host: "0xhost", MaxSeats: 4, SeatsBooked: 2, Status: domain.RunActive, Version: 3}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)

	mockRedis.ExpectGet("escrow:run:3").SetVal(string(raw))

	run, err := c.Get(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, cached.Host, run.Host)
	assert.Equal(t, uint32(2), run.SeatsBooked)
	assert.Equal(t, domain.RunActive, run.Status)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestRunCache_GetError(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewRunCache(db, time.Minute)

	mockRedis.ExpectGet("escrow:run:3").SetErr(errors.New("connection reset"))

	run, err := c.Get(context.Background(), 3)

	assert.Error(t, err)
	assert.Nil(t, run)
}

func TestRunCache_SetAndInvalidate(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewRunCache(db, time.Minute)

	run := &domain.EventRun{ID: 9, Host: "0xhost", Status: domain.RunCreated}
	raw, err := json.Marshal(run)
	require.NoError(t, err)

	mockRedis.ExpectSet("escrow:run:9", string(raw), time.Minute).SetVal("OK")
	mockRedis.ExpectDel("escrow:run:9").SetVal(1)

	assert.NoError(t, c.Set(context.Background(), run))
	assert.NoError(t, c.Invalidate(context.Background(), 9))
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}
