package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/session"
)

// SwitchRoleFailureKind classifies role switch failures.
type SwitchRoleFailureKind int

const (
	SwitchRoleFailureNone SwitchRoleFailureKind = iota
	SwitchRoleFailureNoSession
	SwitchRoleFailureNotGranted
	SwitchRoleFailureConflict
	SwitchRoleFailureStore
)

type SwitchRoleResult struct {
	Failure SwitchRoleFailureKind
	Err     error
	From    session.Role
	Record  *session.Record
}

type SwitchRoleStore interface {
	Active(ctx context.Context) (*session.Record, error)
	SetUserType(ctx context.Context, token string, role session.Role) error
}

// SwitchRoleDeps captures role switch dependencies. BeforeCommit runs once the
// switch is known to be permitted and before the store changes.
type SwitchRoleDeps struct {
	Store        SwitchRoleStore
	BeforeCommit func(ctx context.Context, rec *session.Record, to session.Role)
}

// RunSwitchRole changes only the userType of the Active Session.
func RunSwitchRole(ctx context.Context, to session.Role, deps SwitchRoleDeps) SwitchRoleResult {
	rec, err := deps.Store.Active(ctx)
	if err != nil {
		return SwitchRoleResult{Failure: SwitchRoleFailureNoSession, Err: err}
	}
	if !to.Valid() || !rec.HasRole(string(to)) {
		return SwitchRoleResult{Failure: SwitchRoleFailureNotGranted, From: rec.UserType}
	}
	if deps.BeforeCommit != nil {
		deps.BeforeCommit(ctx, rec, to)
	}

	if err := deps.Store.SetUserType(ctx, rec.Token, to); err != nil {
		kind := SwitchRoleFailureStore
		if errors.Is(err, session.ErrConflict) {
			kind = SwitchRoleFailureConflict
		}
		return SwitchRoleResult{Failure: kind, Err: err, From: rec.UserType}
	}
	return SwitchRoleResult{From: rec.UserType, Record: rec.WithUserType(to)}
}
