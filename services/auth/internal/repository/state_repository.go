package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateRepository holds OAuth state values between the redirect to the
// provider and its callback. Each state can be consumed once.
type StateRepository interface {
	Save(ctx context.Context, state, returnTo string, ttl time.Duration) error
	// Consume returns the stored return path and deletes the state. ok is
	// false when the state is unknown or expired.
	Consume(ctx context.Context, state string) (returnTo string, ok bool, err error)
}

type redisStateRepository struct {
	client redis.Cmdable
}

func NewStateRepository(client redis.Cmdable) StateRepository {
	return &redisStateRepository{client: client}
}

func stateKey(state string) string {
	return "oauth:state:" + state
}

func (r *redisStateRepository) Save(ctx context.Context, state, returnTo string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.client.Set(ctx, stateKey(state), returnTo, ttl).Err()
}

func (r *redisStateRepository) Consume(ctx context.Context, state string) (string, bool, error) {
	if state == "" {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	val, err := r.client.GetDel(ctx, stateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
