package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/authcore/cache"
	internalmetrics "github.com/MrEthical07/authcore/internal/metrics"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/token"
)

// Engine is the authentication core. It is immutable after [Builder.Build] and safe
// for concurrent use.
type Engine struct {
	config  Config
	store   IdentityStore
	cache   *cache.Store
	codec   *token.Codec
	hasher  password.Hasher
	clock   Clock
	logger  *slog.Logger
	metrics *internalmetrics.Metrics
}

// MetricsSnapshot returns a copy of the in-process counters. It is empty when
// metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.cache != nil && e.codec != nil && e.hasher != nil
}

// Authenticate checks an email and password pair.
//
// The three failure causes stay distinct: [ErrInvalidCredentials] when no identity
// has the email, [ErrEmailNotConfirmed] when it exists but is unconfirmed, and
// [ErrIncorrectPassword] when the password does not match.
func (e *Engine) Authenticate(ctx context.Context, email, plaintext string) (*Identity, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	email = normalizeEmail(email)

	ident, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	if !ident.Confirmed {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrEmailNotConfirmed
	}
	if !e.hasher.Verify(plaintext, ident.PasswordHash) {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrIncorrectPassword
	}

	if e.config.Password.UpgradeOnLogin && e.hasher.NeedsUpgrade(ident.PasswordHash) {
		e.upgradePasswordHash(ctx, ident, plaintext)
	}

	e.metricInc(MetricAuthenticateSuccess)
	return ident, nil
}

func (e *Engine) upgradePasswordHash(ctx context.Context, ident *Identity, plaintext string) {
	upgraded, err := e.hasher.Hash(plaintext)
	if err != nil {
		e.logger.WarnContext(ctx, "password rehash failed", "identity_id", ident.ID, "error", err)
		return
	}
	if err := e.store.UpdatePasswordHash(ctx, ident.Email, upgraded); err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade not stored", "identity_id", ident.ID, "error", err)
		return
	}
	ident.PasswordHash = upgraded
	e.metricInc(MetricPasswordUpgraded)
}

// Authorize resolves the identity behind an access token.
//
// The snapshot cache is consulted first. On a miss, or when the cache backend is
// unreachable, the identity is loaded from the store and the cache repopulated.
// The returned Identity never carries the password hash or refresh token.
//
//	Performance: 1 Redis GET on a hit; GET + store read + SET on a miss.
func (e *Engine) Authorize(ctx context.Context, accessToken string) (*Identity, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() {
			e.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
		}()
	}

	email, err := e.codec.Decode(accessToken, token.ScopeAccess)
	if err != nil {
		e.metricInc(MetricAuthorizeFailure)
		return nil, ErrAuthentication
	}

	snap, err := e.cache.Get(ctx, email)
	switch {
	case err == nil:
		e.metricInc(MetricCacheHit)
		e.metricInc(MetricAuthorizeSuccess)
		return identityFromSnapshot(snap), nil
	case errors.Is(err, cache.ErrMiss):
		e.metricInc(MetricCacheMiss)
	default:
		e.metricInc(MetricCacheUnavailable)
		e.logger.WarnContext(ctx, "snapshot cache read failed, using identity store", "error", err)
	}

	ident, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		e.metricInc(MetricAuthorizeFailure)
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}

	snap = snapshotOf(ident)
	if err := e.cache.Put(ctx, email, snap, e.config.Cache.TTL); err != nil {
		e.metricInc(MetricCacheUnavailable)
		e.logger.WarnContext(ctx, "snapshot cache write failed", "error", err)
	}

	e.metricInc(MetricAuthorizeSuccess)
	return identityFromSnapshot(snap), nil
}

// IssueSession mints an access and refresh token for ident and stores the refresh
// token as the identity's only live one, replacing any previous value.
func (e *Engine) IssueSession(ctx context.Context, ident *Identity) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}
	if ident == nil || ident.Email == "" {
		return TokenPair{}, errors.New("identity required")
	}

	pair, err := e.mintPair(ident.Email, "")
	if err != nil {
		return TokenPair{}, err
	}

	ident.RefreshToken = pair.RefreshToken
	if err := e.store.Persist(ctx, ident); err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return TokenPair{}, ErrUserNotFound
		}
		return TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	e.metricInc(MetricSessionIssued)
	return pair, nil
}

// Login authenticates and then issues a session.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (TokenPair, error) {
	ident, err := e.Authenticate(ctx, email, plaintext)
	if err != nil {
		return TokenPair{}, err
	}
	return e.IssueSession(ctx, ident)
}

// Refresh rotates a refresh token.
//
// The presented token must decode with the refresh scope and equal the stored value.
// Rotation is a compare-and-swap in the identity store, so of several concurrent
// calls presenting the same token at most one succeeds. The new refresh token
// records the jti of the one it replaced. Any other mismatch is treated as reuse:
// the stored token is cleared and the identity must log in again.
func (e *Engine) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	claims, err := e.codec.Parse(presented, token.ScopeRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, ErrAuthentication
	}
	email := claims.Subject

	ident, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		if errors.Is(err, ErrIdentityNotFound) {
			return TokenPair{}, ErrUserNotFound
		}
		return TokenPair{}, fmt.Errorf("find identity: %w", err)
	}

	if ident.RefreshToken != presented {
		e.metricInc(MetricRefreshFailure)
		if err := e.handleRefreshMismatch(ctx, ident, claims.ID); err != nil {
			return TokenPair{}, err
		}
		return TokenPair{}, ErrInvalidRefreshToken
	}

	pair, err := e.mintPair(email, claims.ID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, err
	}

	swapped, err := e.store.SwapRefreshToken(ctx, email, presented, pair.RefreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		if errors.Is(err, ErrIdentityNotFound) {
			return TokenPair{}, ErrUserNotFound
		}
		return TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !swapped {
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshRaceLost)
		return TokenPair{}, ErrInvalidRefreshToken
	}

	e.metricInc(MetricRefreshSuccess)
	return pair, nil
}

// handleRefreshMismatch clears the stored refresh token unless the stored token is
// the direct rotation of the presented one (presentedID) and was issued within
// Config.JWT.RotationGrace. A nil return means the caller reports
// ErrInvalidRefreshToken.
func (e *Engine) handleRefreshMismatch(ctx context.Context, ident *Identity, presentedID string) error {
	stored := ident.RefreshToken
	if stored == "" {
		return nil
	}

	if grace := e.config.JWT.RotationGrace; grace > 0 && presentedID != "" {
		claims, err := e.codec.Parse(stored, token.ScopeRefresh)
		if err == nil && claims.Prev == presentedID && claims.IssuedAt != nil &&
			e.clock.Now().Sub(claims.IssuedAt.Time) < grace {
			e.metricInc(MetricRefreshRaceLost)
			return nil
		}
	}

	e.metricInc(MetricRefreshReuseDetected)
	e.logger.WarnContext(ctx, "refresh token reuse detected, revoking session", "identity_id", ident.ID)

	if _, err := e.store.SwapRefreshToken(ctx, ident.Email, stored, ""); err != nil && !errors.Is(err, ErrIdentityNotFound) {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	e.invalidateCache(ctx, ident.Email)
	return nil
}

// mintPair issues an access and refresh token. A non-empty prev marks the refresh
// token as the rotation of the token with that jti.
func (e *Engine) mintPair(email, prev string) (TokenPair, error) {
	access, err := e.codec.Issue(email, token.ScopeAccess, e.config.JWT.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	var refresh string
	if prev != "" {
		refresh, err = e.codec.IssueRotation(email, e.config.JWT.RefreshTTL, prev)
	} else {
		refresh, err = e.codec.Issue(email, token.ScopeRefresh, e.config.JWT.RefreshTTL)
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
	}, nil
}

func (e *Engine) invalidateCache(ctx context.Context, email string) {
	if err := e.cache.Invalidate(ctx, email); err != nil {
		e.metricInc(MetricCacheUnavailable)
		e.logger.WarnContext(ctx, "snapshot cache invalidation failed", "error", err)
	}
}

func snapshotOf(ident *Identity) *cache.Snapshot {
	s := &cache.Snapshot{
		ID:        ident.ID,
		Email:     ident.Email,
		Confirmed: ident.Confirmed,
	}
	if !ident.CreatedAt.IsZero() {
		s.CreatedAt = ident.CreatedAt.Unix()
	}
	return s
}

func identityFromSnapshot(s *cache.Snapshot) *Identity {
	return &Identity{
		ID:        s.ID,
		Email:     s.Email,
		Confirmed: s.Confirmed,
		CreatedAt: s.CreatedTime(),
	}
}
