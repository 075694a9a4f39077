package redis_session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/sparkadvisor/session"
)

// Store keeps each session as a JSON value whose key expires after ttl of
// inactivity; Redis does the eviction.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (store *Store) key(id string) string {
	return fmt.Sprintf("%ssession:%s", store.prefix, id)
}

func (store *Store) Ensure(ctx context.Context, id string) (*session.Session, error) {
	if id != "" {
		sess, err := store.Get(ctx, id)
		if err == nil {
			_ = store.client.Expire(ctx, store.key(id), store.ttl).Err()
			return sess, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
	} else {
		id = uuid.NewString()
	}
	sess := session.New(id, time.Now().UTC())
	if err := store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (store *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	val, err := store.client.Get(ctx, store.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess session.Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (store *Store) Save(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return store.client.Set(ctx, store.key(s.ID), data, store.ttl).Err()
}

// Cleanup is a no-op: keys expire on their own.
func (store *Store) Cleanup(context.Context) (int, error) { return 0, nil }
