package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tdiprima/langchain-flask-api/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps the snapshot as one JSON blob under a fixed key.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(addr, password string, db int, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if key == "" {
		key = "chat:histories"
	}
	return &RedisStore{client: client, key: key}, nil
}

func (r *RedisStore) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(historyDocument{Sessions: snap})
	if err != nil {
		return fmt.Errorf("failed to encode history snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot to Redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context) (domain.Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return domain.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot from Redis: %w", err)
	}

	var doc historyDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", domain.ErrCorruptSnapshot, r.key, err)
	}
	if doc.Sessions == nil {
		doc.Sessions = domain.Snapshot{}
	}
	return doc.Sessions, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
