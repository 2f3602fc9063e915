package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Signup validates req, creates an unconfirmed identity and returns it together with
// a confirmation token.
//
// Signup may return an error wrapping [ErrInvalidSignup] for bad input, or
// [ErrAccountExists] when the email is taken.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	req.Email = normalizeEmail(req.Email)
	if err := req.validate(e.config.Signup); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignup, err)
	}

	if _, err := e.store.FindByEmail(ctx, req.Email); err == nil {
		e.metricInc(MetricSignupDuplicate)
		return nil, ErrAccountExists
	} else if !errors.Is(err, ErrIdentityNotFound) {
		return nil, fmt.Errorf("find identity: %w", err)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ident := &Identity{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Confirmed:    false,
		CreatedAt:    e.clock.Now().UTC(),
	}
	if err := e.store.Create(ctx, ident); err != nil {
		if errors.Is(err, ErrIdentityExists) {
			e.metricInc(MetricSignupDuplicate)
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	confirmation, err := e.IssueConfirmationToken(ident)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricSignupSuccess)
	e.logger.InfoContext(ctx, "identity created", "identity_id", ident.ID)

	return &SignupResult{Identity: ident, ConfirmationToken: confirmation}, nil
}

// normalizeEmail trims and lowercases email. Identities, cache keys and token
// subjects all use the normalized form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Logout revokes the identity's refresh token and drops its cache entry. Access
// tokens already issued stay valid until they expire.
func (e *Engine) Logout(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	ident, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find identity: %w", err)
	}

	if ident.RefreshToken != "" {
		ident.RefreshToken = ""
		if err := e.store.Persist(ctx, ident); err != nil {
			return fmt.Errorf("persist logout: %w", err)
		}
	}
	e.invalidateCache(ctx, email)

	e.metricInc(MetricLogout)
	return nil
}

// DeleteAccount removes the identity and its cache entry. Authorize with an access
// token issued before deletion then fails with [ErrUserNotFound].
func (e *Engine) DeleteAccount(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	if err := e.store.Delete(ctx, email); err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete identity: %w", err)
	}
	e.invalidateCache(ctx, email)

	e.metricInc(MetricAccountDeleted)
	e.logger.InfoContext(ctx, "identity deleted")
	return nil
}
