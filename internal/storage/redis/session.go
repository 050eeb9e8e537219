// Package redis stores checkout sessions in Redis.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/bouquet-checkout/internal/domain/checkout"
)

// maxRetries bounds optimistic transaction retries on concurrent updates.
const maxRetries = 5

var _ checkout.Store = (*SessionStore)(nil)

// SessionStore keeps each session as a JSON string under "session:<id>" with
// a sliding TTL. Updates use WATCH/MULTI so concurrent writers never lose
// each other's changes.
type SessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSessionStore creates a SessionStore using client.
func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return redis.NewClient(opts), nil
}

func key(id string) string {
	return "session:" + id
}

// Create stores a new session, failing if the id is taken.
func (s *SessionStore) Create(ctx context.Context, sess *checkout.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}
	ok, err := s.client.SetNX(ctx, key(sess.ID), data, s.ttl).Result()
	if err != nil {
		return errors.Wrapf(err, "create session %s", sess.ID)
	}
	if !ok {
		return errors.Errorf("session %q already exists", sess.ID)
	}
	return nil
}

// Get loads a session.
func (s *SessionStore) Get(ctx context.Context, id string) (*checkout.Session, error) {
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, checkout.ErrSessionNotFound
		}
		return nil, errors.Wrapf(err, "get session %s", id)
	}
	return decode(data)
}

// Update applies fn inside an optimistic transaction, retrying when another
// writer modified the session concurrently.
func (s *SessionStore) Update(ctx context.Context, id string, fn func(*checkout.Session) error) (*checkout.Session, error) {
	k := key(id)
	var result *checkout.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return checkout.ErrSessionNotFound
			}
			return err
		}
		sess, err := decode(data)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		out, err := json.Marshal(sess)
		if err != nil {
			return errors.Wrap(err, "marshal session")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, out, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = sess
		return nil
	}

	for range maxRetries {
		err := s.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, errors.Errorf("update session %s: too many concurrent updates", id)
}

// Ping checks connectivity.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decode(data []byte) (*checkout.Session, error) {
	var sess checkout.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.Wrap(err, "unmarshal session")
	}
	return &sess, nil
}
