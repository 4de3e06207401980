package resume

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	key := Key{Host: "hostA", SpecialID: -42}

	_, ok, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, key, 3))
	require.NoError(t, s.Save(ctx, key, 4))

	rank, ok, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(4), rank)

	_, ok, err = s.Load(ctx, Key{Host: "hostB", SpecialID: -42})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, key))

	_, ok, err = s.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	testStore(t, NewMemory())
}

// TestRedis runs against the server named by R66_TEST_REDIS, such as "localhost:6379".
func TestRedis(t *testing.T) {
	addr := os.Getenv("R66_TEST_REDIS")
	if addr == "" {
		t.Skip("R66_TEST_REDIS not set")
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	defer client.Close()

	prefix := "r66:test:" + time.Now().Format("150405.000000") + ":"
	testStore(t, NewRedis(client, prefix, time.Minute))
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "hostA:-42", Key{Host: "hostA", SpecialID: -42}.String())
}
