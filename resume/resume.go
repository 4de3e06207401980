// Package resume persists the rank reached by interrupted transfers,
// so a later request with the same special id restarts where it stopped.
package resume

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/openr66/r66/internal/sync"
)

// Key identifies one transfer: the special id is only unique per requesting host.
type Key struct {
	Host      string
	SpecialID int64
}

func (k Key) String() string {
	return k.Host + ":" + strconv.FormatInt(k.SpecialID, 10)
}

// Store defines the persistence of resume ranks.
type Store interface {
	// Load returns the next rank expected for key, and false when nothing is stored.
	Load(ctx context.Context, key Key) (rank int32, ok bool, err error)

	// Save records the next rank expected for key.
	Save(ctx context.Context, key Key, rank int32) error

	// Delete forgets key once its transfer has ended.
	Delete(ctx context.Context, key Key) error
}

// Memory is a Store held in process memory. The zero value is ready to use.
type Memory struct {
	ranks sync.Map[Key, int32]
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return new(Memory)
}

// Load implements Store.
func (m *Memory) Load(_ context.Context, key Key) (int32, bool, error) {
	rank, ok := m.ranks.Load(key)
	return rank, ok, nil
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, key Key, rank int32) error {
	m.ranks.Store(key, rank)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key Key) error {
	m.ranks.Delete(key)
	return nil
}

// DefaultTTL bounds how long an interrupted transfer stays resumable in Redis.
const DefaultTTL = 7 * 24 * time.Hour

// Redis is a Store shared by every server pointing at the same Redis instance.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedis returns a Redis store writing keys under prefix.
// A zero ttl selects DefaultTTL.
func NewRedis(client redis.Cmdable, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "r66:resume:"
	}

	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *Redis) key(key Key) string {
	return r.prefix + key.String()
}

// Load implements Store.
func (r *Redis) Load(ctx context.Context, key Key) (int32, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "load resume rank %s", key)
	}

	return int32(v), true, nil
}

// Save implements Store.
func (r *Redis) Save(ctx context.Context, key Key, rank int32) error {
	err := r.client.Set(ctx, r.key(key), rank, r.ttl).Err()
	return errors.Wrapf(err, "save resume rank %s", key)
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key Key) error {
	err := r.client.Del(ctx, r.key(key)).Err()
	return errors.Wrapf(err, "delete resume rank %s", key)
}
