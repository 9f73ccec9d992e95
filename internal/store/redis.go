package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/murmurhq/murmur/internal/order"
	"github.com/murmurhq/murmur/internal/rack"
)

const (
	taskKey        = "murmur:task"
	corridorPrefix = "murmur:corridor:"
)

// Redis keeps the task record and corridor entries as JSON values, one key
// per corridor. Store interfaces carry no context, so operations run under
// context.Background.
type Redis struct {
	client *redis.Client
}

// OpenRedis verifies the connection with a ping before returning the store.
func OpenRedis(addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: redis %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) Current() (order.Task, bool, error) {
	raw, err := r.client.Get(context.Background(), taskKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return order.Task{}, false, nil
	}
	if err != nil {
		return order.Task{}, false, fmt.Errorf("store: read task: %w", err)
	}
	var t order.Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return order.Task{}, false, fmt.Errorf("%w: %v", order.ErrMalformedTask, err)
	}
	return t, true, nil
}

func (r *Redis) Put(t order.Task) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("store: encode task: %w", err)
	}
	if err := r.client.Set(context.Background(), taskKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("store: write task: %w", err)
	}
	return nil
}

func (r *Redis) Clear() error {
	if err := r.client.Del(context.Background(), taskKey).Err(); err != nil {
		return fmt.Errorf("store: clear task: %w", err)
	}
	return nil
}

func (r *Redis) Corridor(n int) ([]rack.Entry, error) {
	raw, err := r.client.Get(context.Background(), corridorKey(n)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read corridor %d: %w", n, err)
	}
	var entries []rack.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("store: decode corridor %d: %w", n, err)
	}
	return entries, nil
}

func (r *Redis) PutCorridor(n int, entries []rack.Entry) error {
	if len(entries) == 0 {
		if err := r.client.Del(context.Background(), corridorKey(n)).Err(); err != nil {
			return fmt.Errorf("store: clear corridor %d: %w", n, err)
		}
		return nil
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("store: encode corridor %d: %w", n, err)
	}
	if err := r.client.Set(context.Background(), corridorKey(n), raw, 0).Err(); err != nil {
		return fmt.Errorf("store: write corridor %d: %w", n, err)
	}
	return nil
}

func corridorKey(n int) string { return fmt.Sprintf("%s%d", corridorPrefix, n) }

var (
	_ order.TaskStore = (*Redis)(nil)
	_ rack.Store      = (*Redis)(nil)
)
