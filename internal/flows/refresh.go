package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/session"
)

// RefreshFailureKind classifies refresh failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoRefreshToken
	RefreshFailureAccountDeleted
	RefreshFailureRejected
	RefreshFailureNetwork
	RefreshFailureStore
)

// RefreshInput is the credential being refreshed, captured when the failing
// request was sent.
type RefreshInput struct {
	RefreshToken string
	Role         session.Role
}

// RefreshResult carries either the new token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	AccessToken  string
	RefreshToken string
	// Stored reports whether any stored session took the new pair. False
	// means the session was replaced while the refresh was in flight.
	Stored bool
	// DeletedRole is the role of the deleted account on
	// RefreshFailureAccountDeleted.
	DeletedRole session.Role
}

type RefreshAPI interface {
	Refresh(ctx context.Context, refreshToken string) (*authapi.RefreshResponse, error)
}

type RefreshStore interface {
	UpdateTokens(ctx context.Context, prevRefresh, token, refreshToken string) (bool, error)
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	API   RefreshAPI
	Store RefreshStore
}

// RunRefresh exchanges the refresh token and writes the new pair back to
// every session that still holds the old one.
func RunRefresh(ctx context.Context, in RefreshInput, deps RefreshDeps) RefreshResult {
	if in.RefreshToken == "" {
		return RefreshResult{Failure: RefreshFailureNoRefreshToken}
	}

	resp, err := deps.API.Refresh(ctx, in.RefreshToken)
	if err != nil {
		res := RefreshResult{Err: err}
		switch {
		case authapi.IsUserDeleted(err):
			res.Failure = RefreshFailureAccountDeleted
			res.DeletedRole = in.Role
			if apiErr, ok := authapi.AsError(err); ok {
				if role, ok := session.ParseRole(apiErr.UserType); ok {
					res.DeletedRole = role
				}
			}
		case errors.Is(err, authapi.ErrNoResponse):
			res.Failure = RefreshFailureNetwork
		default:
			res.Failure = RefreshFailureRejected
		}
		return res
	}

	stored, err := deps.Store.UpdateTokens(ctx, in.RefreshToken, resp.AccessToken, resp.RefreshToken)
	if err != nil {
		return RefreshResult{
			Failure:      RefreshFailureStore,
			Err:          err,
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
		}
	}

	return RefreshResult{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Stored:       stored,
	}
}
