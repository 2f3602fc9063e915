package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	mrand "math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/store/memory"
	"github.com/MrEthical07/authcore/store/postgres"
)

const seedPassword = "loadtest-password"

type identityState struct {
	email string
	mu    sync.Mutex
	pair  authcore.TokenPair
}

type report struct {
	authorize      phaseStats
	refresh        phaseStats
	raceRounds     int
	raceViolations int64
	metrics        authcore.MetricsSnapshot
}

func (r report) print(w io.Writer) {
	fmt.Fprintln(w, "---- results ----")
	printStats(w, "authorize", r.authorize)
	printStats(w, "refresh", r.refresh)
	fmt.Fprintf(w, "race: rounds=%d violations=%d reuse_detected=%d race_lost=%d\n",
		r.raceRounds,
		r.raceViolations,
		r.metrics.Counters[authcore.MetricRefreshReuseDetected],
		r.metrics.Counters[authcore.MetricRefreshRaceLost],
	)
	fmt.Fprintf(w, "cache: hit=%d miss=%d unavailable=%d\n",
		r.metrics.Counters[authcore.MetricCacheHit],
		r.metrics.Counters[authcore.MetricCacheMiss],
		r.metrics.Counters[authcore.MetricCacheUnavailable],
	)
}

func run(ctx context.Context, cfg loadConfig, out io.Writer, logger *slog.Logger) (report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rdb, closeRedis, err := connectRedis(ctx, cfg.RedisAddr, out)
	if err != nil {
		return report{}, err
	}
	defer closeRedis()

	store, closeStore, err := openStore(ctx, cfg.DatabaseURL, out)
	if err != nil {
		return report{}, err
	}
	defer closeStore()

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return report{}, oops.In("loadtest").Wrapf(err, "generate signing secret")
	}

	engineCfg := authcore.DefaultConfig()
	engineCfg.JWT.Secret = secret
	engineCfg.Cache.RedisPrefix = cfg.RedisPrefix
	engineCfg.Metrics.Enabled = true
	engineCfg.Metrics.EnableLatencyHistograms = true

	engine, err := authcore.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithIdentityStore(store).
		WithLogger(logger).
		Build()
	if err != nil {
		return report{}, oops.In("loadtest").Wrapf(err, "build engine")
	}

	fmt.Fprintf(out, "seeding %d identities...\n", cfg.Identities)
	seedStart := time.Now()
	states, err := seed(ctx, engine, store, cfg.Identities)
	if err != nil {
		return report{}, err
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(seedStart).Round(time.Millisecond))

	rep := report{raceRounds: cfg.RaceRounds}
	rep.authorize = runAuthorizePhase(ctx, engine, states, cfg.Ops, cfg.Concurrency)
	rep.refresh, rep.raceViolations = runRefreshRacePhase(ctx, engine, states, cfg.RaceRounds, cfg.RaceWidth, cfg.Concurrency)
	rep.metrics = engine.MetricsSnapshot()
	return rep, nil
}

func connectRedis(ctx context.Context, addr string, out io.Writer) (redis.UniversalClient, func(), error) {
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, oops.In("loadtest").Wrapf(err, "start miniredis")
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	backoff := retry.WithMaxRetries(5, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, oops.In("loadtest").With("addr", addr).Wrapf(err, "connect redis")
	}
	fmt.Fprintf(out, "using redis at %s\n", addr)
	return client, func() { _ = client.Close() }, nil
}

func openStore(ctx context.Context, dsn string, out io.Writer) (authcore.IdentityStore, func(), error) {
	if dsn == "" {
		fmt.Fprintln(out, "using in-memory identity store")
		return memory.New(), func() {}, nil
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
	var store *postgres.Store
	var closeFn func()
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		pool, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := postgres.MigratePool(ctx, pool); err != nil {
			pool.Close()
			return err
		}
		store = postgres.New(pool)
		closeFn = pool.Close
		return nil
	})
	if err != nil {
		return nil, nil, oops.In("loadtest").Wrapf(err, "open postgres store")
	}
	fmt.Fprintln(out, "using postgres identity store")
	return store, closeFn, nil
}

// seed creates confirmed identities sharing one password hash and opens a
// session for each. Identities left over from an earlier run are reused.
func seed(ctx context.Context, engine *authcore.Engine, store authcore.IdentityStore, n int) ([]*identityState, error) {
	hasher, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		return nil, oops.In("loadtest").Wrapf(err, "seed hasher")
	}
	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		return nil, oops.In("loadtest").Wrapf(err, "seed hash")
	}

	states := make([]*identityState, n)
	for i := 0; i < n; i++ {
		ident := &authcore.Identity{
			ID:           fmt.Sprintf("load-%d", i),
			Email:        fmt.Sprintf("load-%d@example.test", i),
			PasswordHash: hash,
			Confirmed:    true,
			CreatedAt:    time.Now().UTC(),
		}
		if err := store.Create(ctx, ident); err != nil && !errors.Is(err, authcore.ErrIdentityExists) {
			return nil, oops.In("loadtest").With("email", ident.Email).Wrapf(err, "seed identity")
		}
		pair, err := engine.IssueSession(ctx, ident)
		if err != nil {
			return nil, oops.In("loadtest").With("email", ident.Email).Wrapf(err, "seed session")
		}
		states[i] = &identityState{email: ident.Email, pair: pair}
	}
	return states, nil
}

func runAuthorizePhase(ctx context.Context, engine *authcore.Engine, states []*identityState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				state := states[mrand.IntN(len(states))]
				state.mu.Lock()
				access := state.pair.AccessToken
				state.mu.Unlock()

				t0 := time.Now()
				_, err := engine.Authorize(ctx, access)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runRefreshRacePhase presents one refresh token from width goroutines at once
// per round. Losing calls count as failures; a round without exactly one
// winner counts as a violation.
func runRefreshRacePhase(ctx context.Context, engine *authcore.Engine, states []*identityState, rounds, width, concurrency int) (phaseStats, int64) {
	var (
		wg         sync.WaitGroup
		cursor     int64
		failures   int64
		violations int64
		latencies  = make([]time.Duration, 0, rounds*width)
		mu         sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				round := int(atomic.AddInt64(&cursor, 1)) - 1
				if round >= rounds {
					return
				}
				state := states[round%len(states)]

				state.mu.Lock()
				winners, lost, samples := raceOnce(ctx, engine, state.pair.RefreshToken, width)
				if len(winners) == 1 {
					state.pair = winners[0]
				} else {
					atomic.AddInt64(&violations, 1)
					if len(winners) > 1 {
						state.pair = winners[0]
					}
				}
				state.mu.Unlock()

				atomic.AddInt64(&failures, lost)
				mu.Lock()
				latencies = append(latencies, samples...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures), violations
}

func raceOnce(ctx context.Context, engine *authcore.Engine, refresh string, width int) ([]authcore.TokenPair, int64, []time.Duration) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []authcore.TokenPair
		lost    int64
		samples = make([]time.Duration, 0, width)
	)

	gate := make(chan struct{})
	for i := 0; i < width; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate
			t0 := time.Now()
			pair, err := engine.Refresh(ctx, refresh)
			d := time.Since(t0)

			mu.Lock()
			defer mu.Unlock()
			samples = append(samples, d)
			if err != nil {
				lost++
				return
			}
			winners = append(winners, pair)
		}()
	}
	close(gate)
	wg.Wait()
	return winners, lost, samples
}
