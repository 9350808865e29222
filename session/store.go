package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrIncomplete is returned by [Store.Active] when the Active Session lacks a
// token, sessionStart or userType.
var ErrIncomplete = errors.New("active session incomplete")

// ErrNotFound is returned when a requested Namespaced Session does not exist.
var ErrNotFound = errors.New("namespaced session not found")

// Store owns the Active Session and the Namespaced Sessions of one client.
//
// All reads that feed a write, and the write itself, run under one mutex so
// no caller observes an intermediate state. Safe for concurrent use.
type Store struct {
	backend Backend
	dual    bool

	mu sync.Mutex
}

// NewStore returns a Store over backend. allowDual enables Namespaced
// Sessions; when false no role-prefixed key is ever written.
func NewStore(backend Backend, allowDual bool) *Store {
	return &Store{
		backend: backend,
		dual:    allowDual,
	}
}

// DualSessions reports whether Namespaced Sessions are enabled.
func (s *Store) DualSessions() bool {
	return s.dual
}

// Save writes rec as the Active Session, replacing every active field. With
// dual sessions enabled it also replaces the Namespaced Session of
// rec.UserType; other roles' Namespaced Sessions are untouched. Without dual
// sessions, any leftover role-prefixed keys are removed.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("nil session record")
	}
	if !rec.UserType.Valid() {
		return fmt.Errorf("invalid user type %q", rec.UserType)
	}
	fields, err := encodeFields(rec, rec.LoginTimestamp)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := Mutation{Set: make(map[string]string, len(fields)*2)}
	for _, f := range recordFields {
		v, ok := fields[f]
		if !ok {
			m.Delete = append(m.Delete, activeKey(f))
			continue
		}
		m.Set[activeKey(f)] = v
	}

	if s.dual {
		for _, f := range recordFields {
			v, ok := fields[f]
			if !ok {
				m.Delete = append(m.Delete, namespacedKey(rec.UserType, f))
				continue
			}
			m.Set[namespacedKey(rec.UserType, f)] = v
		}
	} else {
		for _, role := range Roles {
			m.Delete = append(m.Delete, namespacedKeys(role)...)
		}
	}

	return s.backend.Apply(ctx, m)
}

// Restore copies the Namespaced Session of role into the Active Session slot.
// It reports false, leaving the Active Session untouched, when dual sessions
// are disabled or no Namespaced Session exists for role.
func (s *Store) Restore(ctx context.Context, role Role) (bool, error) {
	if !s.dual || !role.Valid() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(ctx)
	if err != nil {
		return false, err
	}
	token := data[namespacedKey(role, fieldToken)]
	if token == "" {
		return false, nil
	}

	m := Mutation{
		Expect: map[string]string{namespacedKey(role, fieldToken): token},
		Set:    make(map[string]string, len(recordFields)),
	}
	for _, f := range recordFields {
		v, ok := data[namespacedKey(role, f)]
		if !ok {
			m.Delete = append(m.Delete, activeKey(f))
			continue
		}
		m.Set[activeKey(f)] = v
	}
	m.Set[activeKey(fieldIsAuthenticated)] = "true"

	if err := s.backend.Apply(ctx, m); err != nil {
		if errors.Is(err, ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ClearActive deletes every Active Session key.
func (s *Store) ClearActive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Apply(ctx, Mutation{Delete: activeKeys()})
}

// ClearAll deletes the Active Session and, with dual sessions enabled, every
// Namespaced Session.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.backend.Apply(ctx, Mutation{Delete: s.allKeys()})
}

// ClearAllIfRefresh runs ClearAll only while at least one session still holds
// refreshToken. It reports whether anything was cleared. A session that was
// replaced or rotated since refreshToken was read keeps everything intact.
func (s *Store) ClearAllIfRefresh(ctx context.Context, refreshToken string) (bool, error) {
	if refreshToken == "" {
		return false, errors.New("conditional clear requires a refresh token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(ctx)
	if err != nil {
		return false, err
	}

	expect := map[string]string{}
	for _, keyOf := range s.slots() {
		if k := keyOf(fieldRefreshToken); data[k] == refreshToken {
			expect[k] = refreshToken
		}
	}
	if len(expect) == 0 {
		return false, nil
	}

	if err := s.backend.Apply(ctx, Mutation{Expect: expect, Delete: s.allKeys()}); err != nil {
		if errors.Is(err, ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// slots returns the key mapper of the Active Session followed by one per
// Namespaced Session when dual sessions are enabled.
func (s *Store) slots() []func(string) string {
	out := []func(string) string{activeKey}
	if s.dual {
		for _, role := range Roles {
			out = append(out, func(f string) string { return namespacedKey(role, f) })
		}
	}
	return out
}

func (s *Store) allKeys() []string {
	keys := activeKeys()
	if s.dual {
		for _, role := range Roles {
			keys = append(keys, namespacedKeys(role)...)
		}
	}
	return keys
}

// Available reports which roles hold a non-empty Namespaced Session. Without
// dual sessions it reports only the active role.
func (s *Store) Available(ctx context.Context) (map[Role]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[Role]bool, len(Roles))
	if !s.dual {
		role := Role(data[activeKey(fieldUserType)])
		if data[activeKey(fieldToken)] != "" && role.Valid() {
			out[role] = true
		}
		return out, nil
	}

	for _, role := range Roles {
		if data[namespacedKey(role, fieldToken)] != "" {
			out[role] = true
		}
	}
	return out, nil
}

// Active returns the Active Session. When a required field is missing it
// returns ErrIncomplete naming the missing fields.
func (s *Store) Active(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	rec, missing := decodeFields(data, activeKey)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return rec, nil
}

// Namespaced returns the Namespaced Session stored for role.
func (s *Store) Namespaced(ctx context.Context, role Role) (*Record, error) {
	if !s.dual || !role.Valid() {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	rec, _ := decodeFields(data, func(f string) string { return namespacedKey(role, f) })
	if rec.Token == "" {
		return nil, ErrNotFound
	}
	return rec, nil
}

// UpdateTokens replaces the token pair of every session that currently holds
// prevRefresh: the Active Session and any Namespaced Session. Timestamps are
// never touched. It reports whether any session was updated; a session
// rotated or replaced meanwhile yields false.
func (s *Store) UpdateTokens(ctx context.Context, prevRefresh, token, refreshToken string) (bool, error) {
	if prevRefresh == "" || token == "" {
		return false, errors.New("token update requires previous refresh token and new access token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(ctx)
	if err != nil {
		return false, err
	}

	m := Mutation{
		Expect: map[string]string{},
		Set:    map[string]string{},
	}
	swap := func(keyOf func(string) string) {
		if data[keyOf(fieldRefreshToken)] != prevRefresh {
			return
		}
		m.Expect[keyOf(fieldRefreshToken)] = prevRefresh
		m.Set[keyOf(fieldToken)] = token
		if refreshToken != "" {
			m.Set[keyOf(fieldRefreshToken)] = refreshToken
		}
	}

	for _, keyOf := range s.slots() {
		swap(keyOf)
	}
	if len(m.Set) == 0 {
		return false, nil
	}

	if err := s.backend.Apply(ctx, m); err != nil {
		if errors.Is(err, ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Credentials returns the token pair a request on behalf of role should use:
// the Active Session's when role is empty or active, otherwise role's
// Namespaced Session.
func (s *Store) Credentials(ctx context.Context, role Role) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(ctx)
	if err != nil {
		return Credentials{}, err
	}

	active := Role(data[activeKey(fieldUserType)])
	if role == "" || role == active {
		return Credentials{
			Role:         active,
			Token:        data[activeKey(fieldToken)],
			RefreshToken: data[activeKey(fieldRefreshToken)],
		}, nil
	}
	if !s.dual || !role.Valid() {
		return Credentials{}, ErrNotFound
	}
	token := data[namespacedKey(role, fieldToken)]
	if token == "" {
		return Credentials{}, ErrNotFound
	}
	return Credentials{
		Role:         role,
		Token:        token,
		RefreshToken: data[namespacedKey(role, fieldRefreshToken)],
	}, nil
}

// ActiveRole returns the userType of the Active Session, or "" when none.
func (s *Store) ActiveRole(ctx context.Context) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(ctx)
	if err != nil {
		return "", err
	}
	if data[activeKey(fieldToken)] == "" {
		return "", nil
	}
	return Role(data[activeKey(fieldUserType)]), nil
}

// SetUserType changes only the userType field of the Active Session, provided
// the Active Session still carries token. Namespaced Sessions are untouched.
func (s *Store) SetUserType(ctx context.Context, token string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid user type %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.backend.Apply(ctx, Mutation{
		Expect: map[string]string{activeKey(fieldToken): token},
		Set:    map[string]string{activeKey(fieldUserType): string(role)},
	})
}
