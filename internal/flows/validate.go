package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// ValidateReason explains why a session is not usable.
type ValidateReason int

const (
	ValidateReasonNone ValidateReason = iota
	ValidateReasonMissingData
	ValidateReasonExpired
	ValidateReasonTokenRefreshNeeded
	ValidateReasonInvalidToken
)

// ValidateInput describes the caller of one validation.
type ValidateInput struct {
	// Destructive is set when the caller is mid-way through a delete and
	// must not be forced to wipe state.
	Destructive bool
	Area        session.Area
}

// ValidateResult is the outcome of one validation.
type ValidateResult struct {
	Valid     bool
	Reason    ValidateReason
	SkipClear bool
	Restored  bool
	// Cleared is set when the flow itself removed the Active Session.
	Cleared bool
	// LocalExpiry is set when TokenRefreshNeeded was decided from the
	// token's own exp claim, without a server round trip.
	LocalExpiry bool
	Err         error
	Record      *session.Record
}

type ValidateStore interface {
	Active(ctx context.Context) (*session.Record, error)
	Restore(ctx context.Context, role session.Role) (bool, error)
	ClearActive(ctx context.Context) error
}

// ValidateDeps captures validation dependencies.
type ValidateDeps struct {
	Store             ValidateStore
	CheckToken        func(ctx context.Context, token string) error
	Now               func() time.Time
	SessionTimeout    time.Duration
	AllowDualSessions bool
	// LocalExpiry enables the exp short-circuit for JWT access tokens.
	LocalExpiry  bool
	ExpiryLeeway time.Duration
	Warn         func(string, ...any)
}

// RunValidate decides whether the Active Session is usable right now.
func RunValidate(ctx context.Context, in ValidateInput, deps ValidateDeps) ValidateResult {
	rec, err := deps.Store.Active(ctx)
	if err != nil {
		res := ValidateResult{
			Reason:    ValidateReasonMissingData,
			SkipClear: in.Destructive,
			Err:       err,
		}
		if !errors.Is(err, session.ErrIncomplete) {
			// Unreadable store: nothing to clear safely.
			res.SkipClear = true
		}
		return res
	}

	now := deps.Now()
	if now.Sub(rec.SessionStart) >= deps.SessionTimeout {
		res := ValidateResult{
			Reason:    ValidateReasonExpired,
			SkipClear: in.Destructive,
			Record:    rec,
		}
		if !in.Destructive {
			if err := deps.Store.ClearActive(ctx); err != nil {
				res.Err = err
			} else {
				res.Cleared = true
			}
		}
		return res
	}

	if deps.AllowDualSessions {
		if implied, ok := in.Area.Role(); ok && implied != rec.UserType {
			restored, err := deps.Store.Restore(ctx, implied)
			if err != nil && deps.Warn != nil {
				deps.Warn("goSession: restore failed", "role", implied, "err", err)
			}
			if restored {
				res := ValidateResult{Valid: true, Restored: true}
				if current, err := deps.Store.Active(ctx); err == nil {
					res.Record = current
				}
				return res
			}
		}
	}

	if deps.LocalExpiry && jwt.Expired(rec.Token, now, deps.ExpiryLeeway) {
		return ValidateResult{
			Reason:      ValidateReasonTokenRefreshNeeded,
			SkipClear:   in.Destructive,
			LocalExpiry: true,
			Record:      rec,
		}
	}

	if err := deps.CheckToken(ctx, rec.Token); err != nil {
		reason := ValidateReasonInvalidToken
		if authapi.IsUnauthorized(err) {
			reason = ValidateReasonTokenRefreshNeeded
		}
		return ValidateResult{
			Reason:    reason,
			SkipClear: in.Destructive,
			Err:       err,
			Record:    rec,
		}
	}

	return ValidateResult{Valid: true, Record: rec}
}
