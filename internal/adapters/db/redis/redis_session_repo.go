package redis

import (
	"context"
	"errors"
	customErrors "github.com/Miraines/MoonyAndStarry/shop-service/internal/domain/auth/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"time"
)

const keyPrefix = "refresh_token:"

// RedisSessionRepo stores one refresh token per user under refresh_token:<id>.
// A new Put overwrites the previous token, so only the latest login stays valid.
type RedisSessionRepo struct {
	client redis.UniversalClient
}

func NewRedisSessionRepo(client redis.UniversalClient) *RedisSessionRepo {
	return &RedisSessionRepo{
		client: client,
	}
}

func key(userID uuid.UUID) string {
	return keyPrefix + userID.String()
}

func (r *RedisSessionRepo) Put(ctx context.Context, userID uuid.UUID, refreshToken string, ttl time.Duration) error {
	if ttl <= 0 {
		return customErrors.NewInvalidArgument("session ttl must be positive")
	}
	if err := r.client.Set(ctx, key(userID), refreshToken, ttl).Err(); err != nil {
		return customErrors.WrapInternal(err, "SessionPut")
	}
	return nil
}

func (r *RedisSessionRepo) Get(ctx context.Context, userID uuid.UUID) (string, error) {
	val, err := r.client.Get(ctx, key(userID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", customErrors.ErrNotFound
	case err != nil:
		return "", customErrors.WrapInternal(err, "SessionGet")
	default:
		return val, nil
	}
}

func (r *RedisSessionRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, key(userID)).Err(); err != nil {
		return customErrors.WrapInternal(err, "SessionDelete")
	}
	return nil
}

func (r *RedisSessionRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
