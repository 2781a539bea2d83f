package claims

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_ClaimsEverything(t *testing.T) {
	t.Parallel()

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	claimed, err := Local{}.Claim(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, ids, claimed)
	assert.NoError(t, Local{}.Release(context.Background(), ids))
}

func TestKey(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("6f1c2a4e-7f0b-4d0e-9a55-3c1b2d9e8f00")
	assert.Equal(t, "metadata-extractor:claim:6f1c2a4e-7f0b-4d0e-9a55-3c1b2d9e8f00", key(id))
}

// Runs against a real Redis when REDIS_TEST_ADDR is set.
func TestRedis_ClaimIsExclusive(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	first := NewRedis(client, "instance-a", time.Minute)
	second := NewRedis(client, "instance-b", time.Minute)

	claimed, err := first.Claim(ctx, ids[:2])
	require.NoError(t, err)
	assert.Equal(t, ids[:2], claimed)

	claimed, err = second.Claim(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, ids[2:], claimed, "leases held by another instance are skipped")

	require.NoError(t, second.Release(ctx, ids[:2]))
	claimed, err = second.Claim(ctx, ids[:2])
	require.NoError(t, err)
	assert.Empty(t, claimed, "release must not drop leases owned by someone else")

	require.NoError(t, first.Release(ctx, ids[:2]))
	require.NoError(t, second.Release(ctx, ids[2:]))
	claimed, err = second.Claim(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, ids, claimed)
	require.NoError(t, second.Release(ctx, ids))
}
