// Package redistore provides a redis-backed Storage collaborator. Registered
// keys are persisted as JSON and rehydrated through the owning reducer when
// the store restarts, so call-match associations survive process restarts.
package redistore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"callmonitor_sdk/internal/state"
	"callmonitor_sdk/platform/apperr"
	"callmonitor_sdk/platform/config"
	"callmonitor_sdk/platform/logger"
)

const opTimeout = 2 * time.Second

// Store wraps a state container and mirrors every registered key to redis.
type Store struct {
	rdb       *redis.Client
	prefix    string
	container *state.Container
	log       *logger.Logger

	mu   sync.Mutex
	keys []string

	readyMu     sync.Mutex
	readyAt     time.Time
	readyCached bool
}

// readyCheckTTL bounds how often Ready re-pings redis; passes re-check
// readiness on every change notification.
const readyCheckTTL = time.Second

// New connects to redis and verifies it is reachable. An unreachable redis
// is a construction-time failure; the caller decides whether to fall back
// to the in-memory store.
func New(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*Store, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid redis url", err).WithOp("redistore.New")
	}

	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "redis not reachable", err).WithOp("redistore.New")
	}

	s := &Store{
		rdb:       rdb,
		prefix:    cfg.GetRedisKeyPrefix(),
		container: state.NewContainer(),
		log:       log,
	}
	s.container.OnChange(s.persist)
	return s, nil
}

// RegisterReducer installs a reducer and replays any persisted state for
// its key through a hydrate action, letting the owning reducer decide the
// concrete decoding.
func (s *Store) RegisterReducer(key string, r state.Reducer) {
	s.container.RegisterReducer(key, r)

	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.StorageError("hydrate "+key, err)
		}
		return
	}
	s.container.Apply(state.HydrateAction{Key: key, Data: data})
}

// GetItem returns the current state for a key.
func (s *Store) GetItem(key string) any {
	return s.container.GetItem(key)
}

// Apply routes an action through the registered reducers.
func (s *Store) Apply(action state.Action) {
	s.container.Apply(action)
}

// OnChange registers a change listener.
func (s *Store) OnChange(fn func()) {
	s.container.OnChange(fn)
}

// Ready reports whether redis answers a ping, cached briefly so frequent
// reconciliation passes do not each pay a network round trip. Transient
// write failures do not flip readiness; they are logged and the next change
// re-persists.
func (s *Store) Ready() bool {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	if time.Since(s.readyAt) < readyCheckTTL {
		return s.readyCached
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	s.readyCached = s.rdb.Ping(ctx).Err() == nil
	s.readyAt = time.Now()
	return s.readyCached
}

// Close releases the redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// persist mirrors every registered key to redis after a state change.
func (s *Store) persist() {
	s.mu.Lock()
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	for _, key := range keys {
		data, err := json.Marshal(s.container.GetItem(key))
		if err != nil {
			s.log.StorageError("marshal "+key, err)
			continue
		}
		if err := s.rdb.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
			s.log.StorageError("persist "+key, err)
		}
	}
}
