package session

import (
	"context"
	"errors"
	"maps"
	"sync"
)

// ErrConflict is returned when a Mutation's expected values no longer match
// the stored state.
var ErrConflict = errors.New("session store conflict")

// ErrBackendUnavailable wraps I/O failures of the underlying backend.
var ErrBackendUnavailable = errors.New("session backend unavailable")

// Mutation is an all-or-nothing change to the backend's key space.
//
// Expect maps keys to the value they must currently hold ("" means absent).
// When any expectation fails, nothing is written and ErrConflict is returned.
type Mutation struct {
	Expect map[string]string
	Set    map[string]string
	Delete []string
}

// Backend is a persistent flat key-value namespace owned by one client.
type Backend interface {
	// Load returns a snapshot of every stored key.
	Load(ctx context.Context) (map[string]string, error)
	// Apply applies m atomically.
	Apply(ctx context.Context, m Mutation) error
}

func expectationsHold(current map[string]string, expect map[string]string) bool {
	for k, want := range expect {
		if current[k] != want {
			return false
		}
	}
	return true
}

func applyTo(data map[string]string, m Mutation) {
	for _, k := range m.Delete {
		delete(data, k)
	}
	for k, v := range m.Set {
		data[k] = v
	}
}

// MemoryBackend keeps the key space in process memory. State does not
// survive a restart.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (b *MemoryBackend) Load(context.Context) (map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.data), nil
}

func (b *MemoryBackend) Apply(_ context.Context, m Mutation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !expectationsHold(b.data, m.Expect) {
		return ErrConflict
	}
	applyTo(b.data, m)
	return nil
}
