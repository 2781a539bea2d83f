package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"MetadataExtractor/internal/ports"
)

const keyPrefix = "metadata-extractor:claim:"

// releaseScript deletes a lease only when this instance still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis leases articles with SET NX so concurrent instances never process the same article.
type Redis struct {
	client redis.Cmdable
	owner  string
	ttl    time.Duration
}

var _ ports.Claimer = (*Redis)(nil)

// NewRedis builds a claimer; owner must be unique per running instance.
func NewRedis(client redis.Cmdable, owner string, ttl time.Duration) *Redis {
	return &Redis{client: client, owner: owner, ttl: ttl}
}

// Claim returns the subset of articleIDs this instance now holds, in input order.
func (r *Redis) Claim(ctx context.Context, articleIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(articleIDs) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.BoolCmd, len(articleIDs))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range articleIDs {
			cmds[i] = pipe.SetNX(ctx, key(id), r.owner, r.ttl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim articles: %w", err)
	}

	claimed := make([]uuid.UUID, 0, len(articleIDs))
	for i, cmd := range cmds {
		if cmd.Val() {
			claimed = append(claimed, articleIDs[i])
		}
	}
	return claimed, nil
}

// Release drops the leases this instance holds.
func (r *Redis) Release(ctx context.Context, articleIDs []uuid.UUID) error {
	if len(articleIDs) == 0 {
		return nil
	}

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range articleIDs {
			releaseScript.Eval(ctx, pipe, []string{key(id)}, r.owner)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("release articles: %w", err)
	}
	return nil
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}
