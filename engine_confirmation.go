package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/token"
)

// IssueConfirmationToken mints an email-confirmation token for ident. Delivering it
// is the caller's job.
func (e *Engine) IssueConfirmationToken(ident *Identity) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	if ident == nil || ident.Email == "" {
		return "", errors.New("identity required")
	}

	tok, err := e.codec.Issue(ident.Email, token.ScopeEmailConfirmation, e.config.JWT.ConfirmationTTL)
	if err != nil {
		return "", fmt.Errorf("issue confirmation token: %w", err)
	}
	e.metricInc(MetricConfirmationIssued)
	return tok, nil
}

// ConfirmEmail marks the identity named by a confirmation token as confirmed.
//
// Confirming twice is not an error: later calls return [AlreadyConfirmed] and change
// nothing.
func (e *Engine) ConfirmEmail(ctx context.Context, confirmationToken string) (ConfirmOutcome, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	email, err := e.codec.Decode(confirmationToken, token.ScopeEmailConfirmation)
	if err != nil {
		return 0, ErrAuthentication
	}

	ident, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("find identity: %w", err)
	}
	if ident.Confirmed {
		return AlreadyConfirmed, nil
	}

	changed, err := e.store.MarkConfirmed(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("mark confirmed: %w", err)
	}
	if !changed {
		return AlreadyConfirmed, nil
	}
	e.invalidateCache(ctx, email)

	e.metricInc(MetricEmailConfirmed)
	return Confirmed, nil
}

// RequestConfirmation issues a fresh confirmation token for email. An already
// confirmed identity yields [AlreadyConfirmed] and no token.
func (e *Engine) RequestConfirmation(ctx context.Context, email string) (string, ConfirmOutcome, error) {
	if !e.ready() {
		return "", 0, ErrEngineNotReady
	}
	email = normalizeEmail(email)

	ident, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return "", 0, ErrUserNotFound
		}
		return "", 0, fmt.Errorf("find identity: %w", err)
	}
	if ident.Confirmed {
		return "", AlreadyConfirmed, nil
	}

	tok, err := e.IssueConfirmationToken(ident)
	if err != nil {
		return "", 0, err
	}
	return tok, Confirmed, nil
}
