package authcore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/store/memory"
)

var testSecret = []byte("test-secret-test-secret-test-secret!")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine *authcore.Engine
	store  *memory.Store
	clock  *testClock
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

func testConfig() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEnv(t testing.TB, mutate ...func(*authcore.Config)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	store := memory.New()
	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityStore(store).
		WithClock(clock).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	return &testEnv{engine: engine, store: store, clock: clock, mr: mr, rdb: rdb}
}

// hookStore runs afterFind once, right after the next FindByEmail returns.
type hookStore struct {
	*memory.Store
	afterFind func()
}

func (h *hookStore) FindByEmail(ctx context.Context, email string) (*authcore.Identity, error) {
	ident, err := h.Store.FindByEmail(ctx, email)
	if f := h.afterFind; f != nil {
		h.afterFind = nil
		f()
	}
	return ident, err
}

func newEngineWithStore(t testing.TB, env *testEnv, store authcore.IdentityStore) *authcore.Engine {
	t.Helper()
	engine, err := authcore.New().
		WithConfig(testConfig()).
		WithRedis(env.rdb).
		WithIdentityStore(store).
		WithClock(env.clock).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return engine
}
