package sessions

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Keys are stored as "<prefix><key>"
// without TTL; token freshness is judged from the stored issuedAt/expiresIn.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-based store. Prefix may be empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	return absentIfNil(r.client.Get(ctx, r.key(key)).Result())
}

// Take uses GETDEL so two readers can never both observe the value.
func (r *RedisStore) Take(ctx context.Context, key string) (string, bool, error) {
	return absentIfNil(r.client.GetDel(ctx, r.key(key)).Result())
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func absentIfNil(v string, err error) (string, bool, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}
