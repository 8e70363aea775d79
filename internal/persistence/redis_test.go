package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/robotcare/maintenance-service/internal/config"
)

func TestDisabledRedis(t *testing.T) {
	r := NewRedis(config.RedisConfig{Enabled: false}, zap.NewNop())
	assert.False(t, r.Enabled())
	assert.Error(t, r.Ping(context.Background()))
	_, err := r.NextTicketSequence(context.Background(), time.Now())
	assert.Error(t, err)
	assert.Error(t, r.Publish(context.Background(), "c", []byte("{}")))
	r.Close()
}

// Needs a Redis on localhost:6379; skipped otherwise.
func TestRedisTicketSequence(t *testing.T) {
	r := NewRedis(config.RedisConfig{Addr: "127.0.0.1:6379", DB: 15, Enabled: true}, zap.NewNop())
	defer r.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	// A far future day keeps the key clear of real sequences.
	day := time.Date(2999, 1, 1+time.Now().Nanosecond()%28, 0, 0, 0, 0, time.UTC)
	key := ticketSequencePrefix + day.Format("20060102")
	require.NoError(t, r.Client.Del(ctx, key).Err())
	defer r.Client.Del(context.Background(), key)

	for want := int64(1); want <= 3; want++ {
		got, err := r.NextTicketSequence(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, want, got, fmt.Sprintf("call %d", want))
	}
	ttl, err := r.Client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 47*time.Hour)
}
