package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set INQUIRYBOARD_REDIS_ADDR to a disposable server to run this.
func TestRedis(t *testing.T) {
	addr := os.Getenv("INQUIRYBOARD_REDIS_ADDR")
	if addr == "" {
		t.Skip("INQUIRYBOARD_REDIS_ADDR is not set")
	}
	ctx := context.Background()
	r := NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), "inquiryboard-test:"+t.Name()+":")
	t.Cleanup(func() { r.Close() })
	require.NoError(t, r.Ping(ctx))

	_, found, err := r.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.Set(ctx, "k", []byte(`["a"]`), time.Minute))
	v, found, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `["a"]`, string(v))

	require.NoError(t, r.Set(ctx, "short", []byte("1"), time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	_, found, err = r.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)
}
