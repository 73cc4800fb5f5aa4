package redistore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"callmonitor_sdk/internal/state"
	"callmonitor_sdk/platform/config"
	"callmonitor_sdk/platform/logger"
)

const assocKey = "assoc"

type putAction struct {
	key, value string
}

func (putAction) ActionType() string { return "test/put" }

func assocReducer(current any, action state.Action) any {
	m, _ := current.(map[string]string)
	keep := func() any {
		if m == nil {
			return map[string]string{}
		}
		return current
	}
	switch a := action.(type) {
	case putAction:
		next := make(map[string]string, len(m)+1)
		for k, v := range m {
			next[k] = v
		}
		next[a.key] = a.value
		return next
	case state.HydrateAction:
		if a.Key != assocKey {
			return keep()
		}
		var restored map[string]string
		if err := json.Unmarshal(a.Data, &restored); err != nil || restored == nil {
			return keep()
		}
		return restored
	default:
		return keep()
	}
}

func newTestStore(t *testing.T, addr string) *Store {
	t.Helper()
	cfg := &config.Config{
		RedisURL:       "redis://" + addr,
		RedisKeyPrefix: "test:",
	}
	s, err := New(context.Background(), cfg, logger.New("development"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := &config.Config{RedisURL: "redis://127.0.0.1:1", RedisKeyPrefix: "test:"}
	if _, err := New(context.Background(), cfg, logger.New("development")); err == nil {
		t.Fatalf("expected construction failure for unreachable redis")
	}
}

func TestStatePersistsAcrossStoreInstances(t *testing.T) {
	mr := miniredis.RunT(t)

	first := newTestStore(t, mr.Addr())
	first.RegisterReducer(assocKey, assocReducer)
	first.Apply(putAction{key: "s1", value: "e1"})

	got := first.GetItem(assocKey).(map[string]string)
	if got["s1"] != "e1" {
		t.Fatalf("expected s1 -> e1 in first store, got %v", got)
	}

	// A fresh store against the same redis hydrates the persisted map.
	second := newTestStore(t, mr.Addr())
	second.RegisterReducer(assocKey, assocReducer)

	restored := second.GetItem(assocKey).(map[string]string)
	if restored["s1"] != "e1" {
		t.Fatalf("expected hydrated s1 -> e1, got %v", restored)
	}
}

func TestHydrateMissingKeyKeepsInitialState(t *testing.T) {
	mr := miniredis.RunT(t)

	s := newTestStore(t, mr.Addr())
	s.RegisterReducer(assocKey, assocReducer)

	got, ok := s.GetItem(assocKey).(map[string]string)
	if !ok || len(got) != 0 {
		t.Fatalf("expected empty initial map, got %v", s.GetItem(assocKey))
	}
}

func TestReadyReflectsRedisHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	s := newTestStore(t, mr.Addr())
	if !s.Ready() {
		t.Fatalf("expected store ready while redis is up")
	}
}
